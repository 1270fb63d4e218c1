// Package flags binds the audit run flags and formats flag usage strings for the git-audit commands.
package flags

import (
	"strings"

	"github.com/spf13/cobra"
)

const (
	// FullFlagName selects a full-snapshot audit.
	FullFlagName = "full"
	// FullFlagShorthand is the shorthand of FullFlagName.
	FullFlagShorthand = "f"
	// FullFlagUsage describes FullFlagName.
	FullFlagUsage = "Audit a full snapshot of the reference instead of its changes"
	// OutputDirectoryFlagName overrides report.output_directory.
	OutputDirectoryFlagName = "output-dir"
	// OutputDirectoryFlagUsage describes OutputDirectoryFlagName.
	OutputDirectoryFlagUsage = "Directory receiving the report (overrides report.output_directory)"
	// CleanupFlagName overrides scanners.cleanup.
	CleanupFlagName = "cleanup"
	// CleanupFlagUsage describes CleanupFlagName.
	CleanupFlagUsage = "Remove scanner JSON output after it is parsed (overrides scanners.cleanup)"
)

// ExecutionDefaults describes the default values of the audit run flags.
type ExecutionDefaults struct {
	Full    bool
	Cleanup bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups the audit run flag definitions.
type ExecutionFlagDefinitions struct {
	Full            ExecutionFlagDefinition
	OutputDirectory ExecutionFlagDefinition
	Cleanup         ExecutionFlagDefinition
}

// DefaultExecutionFlagDefinitions enables every audit run flag under its standard name.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		Full:            ExecutionFlagDefinition{Name: FullFlagName, Shorthand: FullFlagShorthand, Usage: FullFlagUsage, Enabled: true},
		OutputDirectory: ExecutionFlagDefinition{Name: OutputDirectoryFlagName, Usage: OutputDirectoryFlagUsage, Enabled: true},
		Cleanup:         ExecutionFlagDefinition{Name: CleanupFlagName, Usage: CleanupFlagUsage, Enabled: true},
	}
}

// ExecutionFlagValues receives the parsed audit run flags.
type ExecutionFlagValues struct {
	Full            bool
	OutputDirectory string
	Cleanup         bool
	definitions     ExecutionFlagDefinitions
}

// BindExecutionFlags attaches the enabled audit run flags to the command's local flag set.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) *ExecutionFlagValues {
	values := &ExecutionFlagValues{Full: defaults.Full, Cleanup: defaults.Cleanup, definitions: definitions}
	if command == nil {
		return values
	}

	flagSet := command.Flags()
	if definitions.Full.Enabled && len(definitions.Full.Name) > 0 {
		AddToggleFlag(flagSet, &values.Full, definitions.Full.Name, definitions.Full.Shorthand, defaults.Full, definitions.Full.Usage)
	}
	if definitions.OutputDirectory.Enabled && len(definitions.OutputDirectory.Name) > 0 {
		flagSet.StringVarP(&values.OutputDirectory, definitions.OutputDirectory.Name, definitions.OutputDirectory.Shorthand, "", definitions.OutputDirectory.Usage)
	}
	if definitions.Cleanup.Enabled && len(definitions.Cleanup.Name) > 0 {
		AddToggleFlag(flagSet, &values.Cleanup, definitions.Cleanup.Name, definitions.Cleanup.Shorthand, defaults.Cleanup, definitions.Cleanup.Usage)
	}
	return values
}

// OutputDirectoryOverride returns the trimmed --output-dir value when it was set to a non-blank path.
func (values *ExecutionFlagValues) OutputDirectoryOverride(command *cobra.Command) (string, bool) {
	trimmed := strings.TrimSpace(values.OutputDirectory)
	if len(trimmed) == 0 || !flagChanged(command, values.definitions.OutputDirectory) {
		return "", false
	}
	return trimmed, true
}

// CleanupOverride returns the --cleanup value when the flag was given explicitly.
func (values *ExecutionFlagValues) CleanupOverride(command *cobra.Command) (bool, bool) {
	if !flagChanged(command, values.definitions.Cleanup) {
		return false, false
	}
	return values.Cleanup, true
}

func flagChanged(command *cobra.Command, definition ExecutionFlagDefinition) bool {
	if command == nil || !definition.Enabled || len(definition.Name) == 0 {
		return false
	}
	return command.Flags().Changed(definition.Name)
}
