package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(t *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "LogFormat",
			defaultChoice:  "structured",
			choices:        []string{"structured", "console"},
			description:    "Override the configured log format.",
			expectedOutput: "`<STRUCTURED|console>` Override the configured log format.",
		},
		{
			name:           "LogLevel",
			defaultChoice:  "info",
			choices:        []string{"debug", "info", "warn", "error"},
			description:    "Override the configured log level.",
			expectedOutput: "`<debug|INFO|warn|error>` Override the configured log level.",
		},
		{
			name:           "EmptyDescription",
			defaultChoice:  "console",
			choices:        []string{"structured", "console"},
			expectedOutput: "`<structured|CONSOLE>`",
		},
		{
			name:           "DuplicateAndBlankChoicesIgnored",
			defaultChoice:  "Debug",
			choices:        []string{"debug", "DEBUG", " ", "info"},
			description:    "Select a level.",
			expectedOutput: "`<DEBUG|info>` Select a level.",
		},
		{
			name:           "UnknownDefaultLeavesChoicesAsIs",
			defaultChoice:  "verbose",
			choices:        []string{" debug ", "info"},
			description:    "Select a level.",
			expectedOutput: "`<debug|info>` Select a level.",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expectedOutput, FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description))
		})
	}
}
