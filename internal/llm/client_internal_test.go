package llm

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewClientDefaultHTTPTimeout(testInstance *testing.T) {
	testCases := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{name: "default_leaves_deadline_to_transport", timeout: DefaultTimeout, expectedTimeout: 0},
		{name: "negative_is_treated_as_default", timeout: -time.Second, expectedTimeout: 0},
		{name: "configured_timeout_applies", timeout: 30 * time.Second, expectedTimeout: 30 * time.Second},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			settings := DefaultSettings()
			settings.Timeout = testCase.timeout

			client, creationError := NewClient(nil, settings, nil)
			require.NoError(testInstance, creationError)

			standardClient, isStandardClient := client.httpClient.(*http.Client)
			require.True(testInstance, isStandardClient)
			require.Equal(testInstance, testCase.expectedTimeout, standardClient.Timeout)
			require.Equal(testInstance, testCase.expectedTimeout, client.settings.Timeout)
		})
	}
}
