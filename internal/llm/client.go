package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/gitaudit/internal/report"
)

// Local endpoint defaults.
const (
	DefaultEndpoint    = "http://localhost:1234/v1/chat/completions"
	DefaultModel       = "qwen2.5-coder-7b-instruct"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 2048
	// DefaultTimeout leaves request deadlines to the transport.
	DefaultTimeout time.Duration = 0
)

const (
	systemRoleConstant           = "system"
	userRoleConstant             = "user"
	contentTypeHeaderConstant    = "Content-Type"
	jsonContentTypeConstant      = "application/json"
	maxErrorBodyLengthConstant   = 2000
	transportFailureTemplate     = "request to %s failed: %v"
	statusFailureTemplate        = "endpoint returned HTTP %d: %s"
	decodeFailureTemplate        = "response could not be decoded: %v"
	errorFieldFailureTemplate    = "endpoint reported an error: %s"
	emptyChoicesFailureMessage   = "response contained no choices"
	emptyAnswerFailureMessage    = "response contained an empty answer"
	encodeFailureTemplate        = "request could not be encoded: %v"
	requestBuildFailureTemplate  = "request could not be built: %v"
	readFailureTemplate          = "response could not be read: %v"
	truncatedBodySuffixConstant  = "..."
	requestStartedLogMessage     = "Querying language model"
	requestFailedLogMessage      = "Language model query failed"
	requestCompletedLogMessage   = "Language model query completed"
	logFieldPurposeConstant      = "purpose"
	logFieldEndpointConstant     = "endpoint"
	logFieldModelConstant        = "model"
	logFieldReasonConstant       = "reason"
	logFieldDurationConstant     = "duration"
	logFieldAnswerLengthConstant = "answer_length"
	endpointNotConfiguredMessage = "language model endpoint not configured"
)

// ErrEndpointNotConfigured indicates that the client was constructed without an endpoint.
var ErrEndpointNotConfigured = errors.New(endpointNotConfiguredMessage)

// HTTPClient executes HTTP requests.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Settings configures the chat-completion endpoint.
type Settings struct {
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultSettings returns the local endpoint defaults.
func DefaultSettings() Settings {
	return Settings{
		Endpoint:    DefaultEndpoint,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
	}
}

// Query is one prompt pair and the human-readable purpose used in failure placeholders.
type Query struct {
	Purpose      string
	SystemPrompt string
	UserPrompt   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
	Text    string      `json:"text"`
}

type chatResponse struct {
	Choices []chatChoice    `json:"choices"`
	Error   json.RawMessage `json:"error"`
}

type errorObject struct {
	Message string `json:"message"`
}

// Client issues single-shot chat-completion requests.
type Client struct {
	httpClient HTTPClient
	settings   Settings
	logger     *zap.Logger
}

// NewClient constructs a Client. A nil httpClient selects an http.Client with the configured timeout;
// a zero timeout imposes no client deadline.
func NewClient(httpClient HTTPClient, settings Settings, logger *zap.Logger) (*Client, error) {
	defaults := DefaultSettings()
	if len(strings.TrimSpace(settings.Endpoint)) == 0 {
		return nil, ErrEndpointNotConfigured
	}
	if len(strings.TrimSpace(settings.Model)) == 0 {
		settings.Model = defaults.Model
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = defaults.MaxTokens
	}
	if settings.Timeout < 0 {
		settings.Timeout = defaults.Timeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: settings.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, settings: settings, logger: logger}, nil
}

// Ask sends the query and returns the answer as a completed outcome. Every failure
// becomes a failed outcome labelled with the query purpose; Ask never retries.
func (client *Client) Ask(executionContext context.Context, query Query) report.Outcome {
	startedAt := time.Now()
	client.logger.Info(requestStartedLogMessage,
		zap.String(logFieldPurposeConstant, query.Purpose),
		zap.String(logFieldEndpointConstant, client.settings.Endpoint),
		zap.String(logFieldModelConstant, client.settings.Model),
	)

	answer, failureReason := client.exchange(executionContext, query)
	if len(failureReason) > 0 {
		client.logger.Warn(requestFailedLogMessage,
			zap.String(logFieldPurposeConstant, query.Purpose),
			zap.String(logFieldReasonConstant, failureReason),
		)
		return report.Failed(query.Purpose, failureReason)
	}

	client.logger.Info(requestCompletedLogMessage,
		zap.String(logFieldPurposeConstant, query.Purpose),
		zap.Duration(logFieldDurationConstant, time.Since(startedAt)),
		zap.Int(logFieldAnswerLengthConstant, len(answer)),
	)
	return report.Completed(answer)
}

func (client *Client) exchange(executionContext context.Context, query Query) (string, string) {
	requestBody, encodeError := json.Marshal(chatRequest{
		Model: client.settings.Model,
		Messages: []chatMessage{
			{Role: systemRoleConstant, Content: query.SystemPrompt},
			{Role: userRoleConstant, Content: query.UserPrompt},
		},
		Temperature: client.settings.Temperature,
		MaxTokens:   client.settings.MaxTokens,
		Stream:      false,
	})
	if encodeError != nil {
		return "", fmt.Sprintf(encodeFailureTemplate, encodeError)
	}

	if executionContext == nil {
		executionContext = context.Background()
	}
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodPost, client.settings.Endpoint, bytes.NewReader(requestBody))
	if requestError != nil {
		return "", fmt.Sprintf(requestBuildFailureTemplate, requestError)
	}
	request.Header.Set(contentTypeHeaderConstant, jsonContentTypeConstant)

	response, transportError := client.httpClient.Do(request)
	if transportError != nil {
		return "", fmt.Sprintf(transportFailureTemplate, client.settings.Endpoint, transportError)
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		return "", fmt.Sprintf(readFailureTemplate, readError)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Sprintf(statusFailureTemplate, response.StatusCode, capBody(string(responseBody)))
	}

	var decoded chatResponse
	if decodeError := json.Unmarshal(responseBody, &decoded); decodeError != nil {
		return "", fmt.Sprintf(decodeFailureTemplate, decodeError)
	}

	if errorMessage := extractErrorMessage(decoded.Error); len(errorMessage) > 0 {
		return "", fmt.Sprintf(errorFieldFailureTemplate, errorMessage)
	}

	if len(decoded.Choices) == 0 {
		return "", emptyChoicesFailureMessage
	}

	answer := decoded.Choices[0].Message.Content
	if len(strings.TrimSpace(answer)) == 0 {
		answer = decoded.Choices[0].Text
	}
	if len(strings.TrimSpace(answer)) == 0 {
		return "", emptyAnswerFailureMessage
	}
	return strings.TrimSpace(answer), ""
}

func extractErrorMessage(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	var message string
	if json.Unmarshal(trimmed, &message) == nil {
		return strings.TrimSpace(message)
	}

	var object errorObject
	if json.Unmarshal(trimmed, &object) == nil && len(strings.TrimSpace(object.Message)) > 0 {
		return strings.TrimSpace(object.Message)
	}
	return string(trimmed)
}

func capBody(body string) string {
	trimmed := strings.TrimSpace(body)
	runes := []rune(trimmed)
	if len(runes) <= maxErrorBodyLengthConstant {
		return trimmed
	}
	return string(runes[:maxErrorBodyLengthConstant]) + truncatedBodySuffixConstant
}
