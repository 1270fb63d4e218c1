package audit

import (
	"strings"
	"time"

	"github.com/temirov/gitaudit/internal/changeset"
	"github.com/temirov/gitaudit/internal/llm"
	"github.com/temirov/gitaudit/internal/scanners"
)

const (
	defaultOutputDirectoryConstant = "."
	defaultReportPrefixConstant    = "audit_report"
	configurationKeySeparator      = "."
	reportConfigurationKey         = "report"
	changeSetConfigurationKey      = "change_set"
	llmConfigurationKey            = "llm"
	scannersConfigurationKey       = "scanners"
)

// CommandConfiguration captures persistent settings for the audit command.
type CommandConfiguration struct {
	Report    ReportConfiguration    `mapstructure:"report"`
	ChangeSet ChangeSetConfiguration `mapstructure:"change_set"`
	LLM       LLMConfiguration       `mapstructure:"llm"`
	Scanners  ScannerConfiguration   `mapstructure:"scanners"`
}

// ReportConfiguration controls where reports are written.
type ReportConfiguration struct {
	OutputDirectory string `mapstructure:"output_directory"`
	FilePrefix      string `mapstructure:"file_prefix"`
}

// ChangeSetConfiguration bounds the change set sent to the model.
type ChangeSetConfiguration struct {
	CharacterBudget     int      `mapstructure:"character_budget"`
	MaxFiles            int      `mapstructure:"max_files"`
	ListedFiles         int      `mapstructure:"listed_files"`
	ExcerptFiles        int      `mapstructure:"excerpt_files"`
	ExcerptLines        int      `mapstructure:"excerpt_lines"`
	Extensions          []string `mapstructure:"extensions"`
	ExcludedDirectories []string `mapstructure:"excluded_directories"`
}

// LLMConfiguration describes the chat-completion endpoint and prompt overrides.
type LLMConfiguration struct {
	Endpoint    string        `mapstructure:"endpoint"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PromptsFile string        `mapstructure:"prompts_file"`
}

// ScannerConfiguration selects semgrep rule sets and intermediate file handling.
type ScannerConfiguration struct {
	SemgrepConfig string `mapstructure:"semgrep_config"`
	OWASPConfig   string `mapstructure:"owasp_config"`
	Cleanup       bool   `mapstructure:"cleanup"`
}

// DefaultCommandConfiguration returns baseline configuration values for the audit command.
func DefaultCommandConfiguration() CommandConfiguration {
	changeSetDefaults := changeset.DefaultSettings()
	llmDefaults := llm.DefaultSettings()
	return CommandConfiguration{
		Report: ReportConfiguration{
			OutputDirectory: defaultOutputDirectoryConstant,
			FilePrefix:      defaultReportPrefixConstant,
		},
		ChangeSet: ChangeSetConfiguration{
			CharacterBudget:     changeSetDefaults.CharacterBudget,
			MaxFiles:            changeSetDefaults.MaxFiles,
			ListedFiles:         changeSetDefaults.ListedFiles,
			ExcerptFiles:        changeSetDefaults.ExcerptFiles,
			ExcerptLines:        changeSetDefaults.ExcerptLines,
			Extensions:          changeSetDefaults.Extensions,
			ExcludedDirectories: changeSetDefaults.ExcludedDirectories,
		},
		LLM: LLMConfiguration{
			Endpoint:    llmDefaults.Endpoint,
			Model:       llmDefaults.Model,
			Temperature: llmDefaults.Temperature,
			MaxTokens:   llmDefaults.MaxTokens,
			Timeout:     llmDefaults.Timeout,
		},
		Scanners: ScannerConfiguration{
			SemgrepConfig: scanners.DefaultSemgrepConfig,
			OWASPConfig:   scanners.DefaultOWASPSemgrepConfig,
		},
	}
}

// DefaultConfigurationValues flattens the defaults into configuration keys below prefix.
// An empty prefix places the keys at the top level.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	values := map[string]any{
		configurationKey(prefix, reportConfigurationKey, "output_directory"):        defaults.Report.OutputDirectory,
		configurationKey(prefix, reportConfigurationKey, "file_prefix"):             defaults.Report.FilePrefix,
		configurationKey(prefix, changeSetConfigurationKey, "character_budget"):     defaults.ChangeSet.CharacterBudget,
		configurationKey(prefix, changeSetConfigurationKey, "max_files"):            defaults.ChangeSet.MaxFiles,
		configurationKey(prefix, changeSetConfigurationKey, "listed_files"):         defaults.ChangeSet.ListedFiles,
		configurationKey(prefix, changeSetConfigurationKey, "excerpt_files"):        defaults.ChangeSet.ExcerptFiles,
		configurationKey(prefix, changeSetConfigurationKey, "excerpt_lines"):        defaults.ChangeSet.ExcerptLines,
		configurationKey(prefix, changeSetConfigurationKey, "extensions"):           defaults.ChangeSet.Extensions,
		configurationKey(prefix, changeSetConfigurationKey, "excluded_directories"): defaults.ChangeSet.ExcludedDirectories,
		configurationKey(prefix, llmConfigurationKey, "endpoint"):                   defaults.LLM.Endpoint,
		configurationKey(prefix, llmConfigurationKey, "model"):                      defaults.LLM.Model,
		configurationKey(prefix, llmConfigurationKey, "temperature"):                defaults.LLM.Temperature,
		configurationKey(prefix, llmConfigurationKey, "max_tokens"):                 defaults.LLM.MaxTokens,
		configurationKey(prefix, llmConfigurationKey, "timeout"):                    defaults.LLM.Timeout,
		configurationKey(prefix, llmConfigurationKey, "prompts_file"):               defaults.LLM.PromptsFile,
		configurationKey(prefix, scannersConfigurationKey, "semgrep_config"):        defaults.Scanners.SemgrepConfig,
		configurationKey(prefix, scannersConfigurationKey, "owasp_config"):          defaults.Scanners.OWASPConfig,
		configurationKey(prefix, scannersConfigurationKey, "cleanup"):               defaults.Scanners.Cleanup,
	}
	return values
}

func configurationKey(prefix string, parts ...string) string {
	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) > 0 {
		parts = append([]string{trimmedPrefix}, parts...)
	}
	return strings.Join(parts, configurationKeySeparator)
}

// sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Report.OutputDirectory = firstNonEmpty(configuration.Report.OutputDirectory, defaults.Report.OutputDirectory)
	sanitized.Report.FilePrefix = firstNonEmpty(configuration.Report.FilePrefix, defaults.Report.FilePrefix)

	sanitized.ChangeSet.Extensions = sanitizeValues(configuration.ChangeSet.Extensions)
	sanitized.ChangeSet.ExcludedDirectories = sanitizeValues(configuration.ChangeSet.ExcludedDirectories)

	sanitized.LLM.Endpoint = firstNonEmpty(configuration.LLM.Endpoint, defaults.LLM.Endpoint)
	sanitized.LLM.Model = firstNonEmpty(configuration.LLM.Model, defaults.LLM.Model)
	sanitized.LLM.PromptsFile = strings.TrimSpace(configuration.LLM.PromptsFile)
	if configuration.LLM.Temperature < 0 {
		sanitized.LLM.Temperature = defaults.LLM.Temperature
	}

	sanitized.Scanners.SemgrepConfig = firstNonEmpty(configuration.Scanners.SemgrepConfig, defaults.Scanners.SemgrepConfig)
	sanitized.Scanners.OWASPConfig = firstNonEmpty(configuration.Scanners.OWASPConfig, defaults.Scanners.OWASPConfig)

	return sanitized
}

func (configuration CommandConfiguration) changeSetSettings() changeset.Settings {
	return changeset.Settings{
		CharacterBudget:     configuration.ChangeSet.CharacterBudget,
		MaxFiles:            configuration.ChangeSet.MaxFiles,
		ListedFiles:         configuration.ChangeSet.ListedFiles,
		ExcerptFiles:        configuration.ChangeSet.ExcerptFiles,
		ExcerptLines:        configuration.ChangeSet.ExcerptLines,
		Extensions:          configuration.ChangeSet.Extensions,
		ExcludedDirectories: configuration.ChangeSet.ExcludedDirectories,
	}
}

func (configuration CommandConfiguration) llmSettings() llm.Settings {
	return llm.Settings{
		Endpoint:    configuration.LLM.Endpoint,
		Model:       configuration.LLM.Model,
		Temperature: configuration.LLM.Temperature,
		MaxTokens:   configuration.LLM.MaxTokens,
		Timeout:     configuration.LLM.Timeout,
	}
}

func (configuration CommandConfiguration) scannerSettings(excludedDirectories []string) scanners.Settings {
	return scanners.Settings{
		SemgrepConfig:       configuration.Scanners.SemgrepConfig,
		OWASPConfig:         configuration.Scanners.OWASPConfig,
		Cleanup:             configuration.Scanners.Cleanup,
		ExcludedDirectories: excludedDirectories,
	}
}

func firstNonEmpty(preferred string, fallback string) string {
	if trimmed := strings.TrimSpace(preferred); len(trimmed) > 0 {
		return trimmed
	}
	return fallback
}

func sanitizeValues(raw []string) []string {
	if raw == nil {
		return nil
	}
	sanitized := make([]string, 0, len(raw))
	for index := range raw {
		trimmed := strings.TrimSpace(raw[index])
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
