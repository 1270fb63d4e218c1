package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gitaudit/internal/llm"
	"github.com/temirov/gitaudit/internal/report"
)

type failingHTTPClient struct{}

func (failingHTTPClient) Do(request *http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestClientAsk(testInstance *testing.T) {
	testCases := []struct {
		name             string
		statusCode       int
		body             string
		expectedStatus   report.Status
		expectedBody     string
		expectedContains string
	}{
		{
			name:           "answer_extracted",
			statusCode:     http.StatusOK,
			body:           `{"choices":[{"message":{"role":"assistant","content":"## Overview\nAll good.\n"}}]}`,
			expectedStatus: report.StatusCompleted,
			expectedBody:   "## Overview\nAll good.",
		},
		{
			name:             "server_error",
			statusCode:       http.StatusInternalServerError,
			body:             `model crashed`,
			expectedStatus:   report.StatusFailed,
			expectedContains: "endpoint returned HTTP 500: model crashed",
		},
		{
			name:             "malformed_body",
			statusCode:       http.StatusOK,
			body:             `{"choices":`,
			expectedStatus:   report.StatusFailed,
			expectedContains: "response could not be decoded",
		},
		{
			name:             "error_string",
			statusCode:       http.StatusOK,
			body:             `{"error":"model not loaded"}`,
			expectedStatus:   report.StatusFailed,
			expectedContains: "endpoint reported an error: model not loaded",
		},
		{
			name:             "error_object",
			statusCode:       http.StatusOK,
			body:             `{"error":{"message":"context length exceeded","type":"invalid_request_error"}}`,
			expectedStatus:   report.StatusFailed,
			expectedContains: "endpoint reported an error: context length exceeded",
		},
		{
			name:             "empty_choices",
			statusCode:       http.StatusOK,
			body:             `{"choices":[]}`,
			expectedStatus:   report.StatusFailed,
			expectedContains: "response contained no choices",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(testCase.statusCode)
				_, _ = writer.Write([]byte(testCase.body))
			}))
			defer server.Close()

			client, creationError := llm.NewClient(nil, llm.Settings{Endpoint: server.URL}, nil)
			require.NoError(testInstance, creationError)

			outcome := client.Ask(context.Background(), llm.Query{Purpose: "Summary generation", SystemPrompt: "system", UserPrompt: "user"})
			require.Equal(testInstance, testCase.expectedStatus, outcome.Status)
			if len(testCase.expectedBody) > 0 {
				require.Equal(testInstance, testCase.expectedBody, outcome.Body)
			}
			if len(testCase.expectedContains) > 0 {
				require.Equal(testInstance, "Summary generation", outcome.Label)
				require.Contains(testInstance, outcome.Body, testCase.expectedContains)
			}
		})
	}
}

func TestClientSendsChatCompletionRequest(testInstance *testing.T) {
	var received map[string]any
	var receivedMethod string
	var receivedContentType string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		receivedMethod = request.Method
		receivedContentType = request.Header.Get("Content-Type")
		_ = json.NewDecoder(request.Body).Decode(&received)
		_, _ = writer.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	settings := llm.Settings{Endpoint: server.URL, Model: "local-model", Temperature: 0.1, MaxTokens: 512, Timeout: time.Second}
	client, creationError := llm.NewClient(nil, settings, nil)
	require.NoError(testInstance, creationError)

	outcome := client.Ask(context.Background(), llm.Query{Purpose: "Security audit", SystemPrompt: "be a reviewer", UserPrompt: "diff"})
	require.Equal(testInstance, report.StatusCompleted, outcome.Status)

	require.Equal(testInstance, http.MethodPost, receivedMethod)
	require.Equal(testInstance, "application/json", receivedContentType)
	require.Equal(testInstance, "local-model", received["model"])
	require.Equal(testInstance, 0.1, received["temperature"])
	require.Equal(testInstance, float64(512), received["max_tokens"])
	require.Equal(testInstance, false, received["stream"])
	require.Equal(testInstance, []any{
		map[string]any{"role": "system", "content": "be a reviewer"},
		map[string]any{"role": "user", "content": "diff"},
	}, received["messages"])
}

func TestClientTransportFailureDegradesToPlaceholder(testInstance *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	client, creationError := llm.NewClient(failingHTTPClient{}, llm.DefaultSettings(), zap.New(core))
	require.NoError(testInstance, creationError)

	outcome := client.Ask(context.Background(), llm.Query{Purpose: "Summary generation"})
	require.Equal(testInstance, report.StatusFailed, outcome.Status)
	require.Contains(testInstance, outcome.Body, "connection refused")
	require.Contains(testInstance, outcome.Render(), "**Summary generation failed.**")
	require.Equal(testInstance, 1, logs.Len())
}

func TestNewClientRequiresEndpoint(testInstance *testing.T) {
	_, creationError := llm.NewClient(nil, llm.Settings{}, nil)
	require.ErrorIs(testInstance, creationError, llm.ErrEndpointNotConfigured)
}
