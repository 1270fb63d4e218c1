package audit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitaudit/internal/execshell"
	"github.com/temirov/gitaudit/internal/llm"
	"github.com/temirov/gitaudit/internal/reference"
	"github.com/temirov/gitaudit/internal/report"
	"github.com/temirov/gitaudit/internal/ui"
	"github.com/temirov/gitaudit/internal/utils"
	"github.com/temirov/gitaudit/internal/utils/flags"
)

const (
	commandUseConstant                    = "git-audit [reference]"
	commandShortDescriptionConstant       = "Assemble a Markdown code-audit report for a Git repository"
	commandLongDescriptionConstant        = "git-audit compares the working repository against a reference (or snapshots it with --full), asks a local chat-completion endpoint for summary and security narratives, runs the installed scanners, and writes one timestamped Markdown report."
	commandExampleConstant                = "  git-audit\n  git-audit origin/main\n  git-audit --full v1.2.0\n  git-audit --output-dir ~/audits"
	commandExecutionErrorTemplateConstant = "audit failed: %w"
	tooManyArgumentsMessageConstant       = "git-audit accepts at most one reference argument"
	workingDirectoryErrorTemplateConstant = "unable to determine working directory: %w"
	maximumPositionalArgumentsConstant    = 1
)

var errTooManyArguments = errors.New(tooManyArgumentsMessageConstant)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the loaded audit configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the audit cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        ConfigurationProvider
	Executor                     CommandExecutor
	ToolLocator                  execshell.ToolLocator
	HTTPClient                   llm.HTTPClient
	Clock                        report.Clock
	WorkingDirectory             string
}

type commandOptions struct {
	request                 Request
	outputDirectory         string
	outputDirectoryProvided bool
	cleanup                 bool
	cleanupProvided         bool
}

// Build constructs the cobra command running the audit pipeline.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
	}

	flagValues := flags.BindExecutionFlags(command, flags.ExecutionDefaults{}, flags.DefaultExecutionFlagDefinitions())
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments, flagValues)
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string, flagValues *flags.ExecutionFlagValues) error {
	options, optionsError := builder.parseOptions(command, arguments, flagValues)
	if optionsError != nil {
		return optionsError
	}

	configuration := builder.resolveConfiguration()
	if options.outputDirectoryProvided {
		configuration.Report.OutputDirectory = options.outputDirectory
	}
	if options.cleanupProvided {
		configuration.Scanners.Cleanup = options.cleanup
	}

	workingDirectory, workingDirectoryError := builder.resolveWorkingDirectory()
	if workingDirectoryError != nil {
		return workingDirectoryError
	}

	logger := builder.resolveLogger()
	executor, executorError := resolveCommandExecutor(builder.Executor, logger, builder.resolveCommandEventObserver(logger))
	if executorError != nil {
		return executorError
	}

	service, serviceError := buildService(command.Context(), serviceAssembly{
		logger:           logger,
		configuration:    configuration,
		workingDirectory: workingDirectory,
		executor:         executor,
		locator:          resolveToolLocator(builder.ToolLocator),
		httpClient:       builder.HTTPClient,
		clock:            builder.Clock,
		statusWriter:     utils.NewFlushingWriter(command.OutOrStdout()),
	})
	if serviceError != nil {
		return serviceError
	}

	if _, runError := service.Run(command.Context(), options.request); runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string, flagValues *flags.ExecutionFlagValues) (commandOptions, error) {
	if len(arguments) > maximumPositionalArgumentsConstant {
		return commandOptions{}, errTooManyArguments
	}

	mode := reference.ModeDiff
	if flagValues.Full {
		mode = reference.ModeFull
	}

	requestedReference := ""
	if len(arguments) == maximumPositionalArgumentsConstant {
		requestedReference = strings.TrimSpace(arguments[0])
	}

	runIdentifier := ""
	if command.Context() != nil {
		runIdentifier, _ = utils.NewCommandContextAccessor().RunIdentifier(command.Context())
	}

	outputDirectory, outputDirectoryProvided := flagValues.OutputDirectoryOverride(command)
	cleanup, cleanupProvided := flagValues.CleanupOverride(command)
	return commandOptions{
		request: Request{
			Mode:          mode,
			Reference:     requestedReference,
			RunIdentifier: runIdentifier,
		},
		outputDirectory:         outputDirectory,
		outputDirectoryProvided: outputDirectoryProvided,
		cleanup:                 cleanup,
		cleanupProvided:         cleanupProvided,
	}, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) resolveWorkingDirectory() (string, error) {
	if len(strings.TrimSpace(builder.WorkingDirectory)) > 0 {
		return builder.WorkingDirectory, nil
	}
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return "", fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
	}
	return workingDirectory, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveCommandEventObserver(logger *zap.Logger) execshell.CommandEventObserver {
	if builder.HumanReadableLoggingProvider == nil || !builder.HumanReadableLoggingProvider() {
		return nil
	}
	return ui.NewConsoleCommandEventLogger(logger)
}
