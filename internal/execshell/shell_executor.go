package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandFailedErrorTemplateConstant        = "%s exited with code %d%s"
	commandExecutionErrorTemplateConstant     = "%s could not be executed: %v"
	commandStandardErrorSuffixTemplate        = ": %s"
	combinedOutputSeparatorConstant           = "\n"
)

// CommandName identifies an executable invoked by the audit pipeline.
type CommandName string

// Supported executables.
const (
	CommandGit         CommandName = "git"
	CommandCloc        CommandName = "cloc"
	CommandNpm         CommandName = "npm"
	CommandGovulncheck CommandName = "govulncheck"
	CommandPipAudit    CommandName = "pip-audit"
	CommandSemgrep     CommandName = "semgrep"
	CommandSlither     CommandName = "slither"
)

// ErrLoggerNotConfigured indicates that a nil logger was supplied.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates that a nil command runner was supplied.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// CommandDetails describes the arguments and environment of a single invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CombinedOutput joins standard output and standard error, skipping empty streams.
func (result ExecutionResult) CombinedOutput() string {
	parts := make([]string, 0, 2)
	if trimmed := strings.TrimRight(result.StandardOutput, combinedOutputSeparatorConstant); len(trimmed) > 0 {
		parts = append(parts, trimmed)
	}
	if trimmed := strings.TrimRight(result.StandardError, combinedOutputSeparatorConstant); len(trimmed) > 0 {
		parts = append(parts, trimmed)
	}
	return strings.Join(parts, combinedOutputSeparatorConstant)
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a command that finished with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failing command and its standard error output.
func (failure CommandFailedError) Error() string {
	suffix := ""
	if trimmed := strings.TrimSpace(failure.Result.StandardError); len(trimmed) > 0 {
		suffix = fmt.Sprintf(commandStandardErrorSuffixTemplate, trimmed)
	}
	return fmt.Sprintf(commandFailedErrorTemplateConstant, failure.Command.Name, failure.Result.ExitCode, suffix)
}

// CommandExecutionError reports a command that could not be started or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, failure.Command.Name, failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor runs commands through a CommandRunner and reports lifecycle events.
type ShellExecutor struct {
	runner   CommandRunner
	observer CommandEventObserver
}

// NewShellExecutor constructs a ShellExecutor. A nil observer selects structured zap logging.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, observer CommandEventObserver) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	if observer == nil {
		observer = newStructuredCommandEventLogger(logger)
	}
	return &ShellExecutor{runner: runner, observer: observer}, nil
}

// Execute runs the command and treats a non-zero exit code as CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, name CommandName, details CommandDetails) (ExecutionResult, error) {
	command := ShellCommand{Name: name, Details: details}
	result, runError := executor.run(executionContext, command)
	if runError != nil {
		return ExecutionResult{}, runError
	}
	if result.ExitCode != 0 {
		return ExecutionResult{}, CommandFailedError{Command: command, Result: result}
	}
	return result, nil
}

// ExecuteTool runs the command and returns its result for any exit code.
// Scanners signal findings through non-zero exit codes, so only start-up failures are errors.
func (executor *ShellExecutor) ExecuteTool(executionContext context.Context, name CommandName, details CommandDetails) (ExecutionResult, error) {
	return executor.run(executionContext, ShellCommand{Name: name, Details: details})
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, CommandGit, details)
}

func (executor *ShellExecutor) run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.observer.CommandStarted(command)
	result, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}
	executor.observer.CommandCompleted(command, result)
	return result, nil
}
