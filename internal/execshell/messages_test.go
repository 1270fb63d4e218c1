package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildStartedMessageForRevisionVerification(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"rev-parse", "--verify", "--quiet", "origin/main^{commit}"},
			WorkingDirectory: "/workspace/repo",
		},
	}

	require.Equal(t, "Resolving origin/main^{commit} in /workspace/repo", formatter.BuildStartedMessage(command))
	require.Equal(t, "origin/main^{commit} in /workspace/repo resolved to abc123", formatter.BuildSuccessMessage(command, ExecutionResult{StandardOutput: "abc123\n"}))
}

func TestBuildMessagesForDiffDescribeRange(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments: []string{"diff", "--name-only", "main", "HEAD"},
		},
	}

	require.Equal(t, "Collecting changed paths between main and HEAD in current directory", formatter.BuildStartedMessage(command))
	require.Equal(t, "Failed to collect changed paths between main and HEAD in current directory (exit code 128: bad object)", formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 128, StandardError: "bad object"}))
}

func TestBuildMessagesForCheckout(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name:    CommandGit,
		Details: CommandDetails{Arguments: []string{"checkout", "--quiet", "v1.2.0"}, WorkingDirectory: "/repo"},
	}

	require.Equal(t, "Switching /repo to v1.2.0", formatter.BuildStartedMessage(command))
	require.Equal(t, "Unable to switch /repo to v1.2.0: boom", formatter.BuildExecutionFailureMessage(command, errors.New("boom")))
}

func TestBuildMessagesForScannerUseGenericLabel(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name:    CommandSemgrep,
		Details: CommandDetails{Arguments: []string{"--config", "auto", "."}, WorkingDirectory: "/repo"},
	}

	require.Equal(t, "Running semgrep --config auto . (in /repo)", formatter.BuildStartedMessage(command))
	require.Equal(t, "semgrep --config auto . (in /repo) failed with exit code 2: rules missing", formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 2, StandardError: "rules missing\n"}))
}
