package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/temirov/gitaudit/internal/execshell"
	"github.com/temirov/gitaudit/internal/report"
)

const (
	semgrepToolNameConstant        = "semgrep"
	semgrepOWASPToolNameConstant   = "semgrep (OWASP Top Ten)"
	semgrepInstallHintConstant     = "pip install semgrep"
	semgrepResultsFileNameConstant = "semgrep_results.json"
	semgrepOWASPFileNameConstant   = "semgrep_owasp_results.json"
	semgrepConfigFlagConstant      = "--config"
	semgrepJSONFlagConstant        = "--json"
	semgrepOutputFlagConstant      = "--output"
	semgrepQuietFlagConstant       = "--quiet"
	semgrepTargetConstant          = "."
	semgrepFindingTemplateConstant = "- **%s** `%s` at %s:%d: %s\n"
	semgrepErrorsTemplateConstant  = "\nSemgrep reported %d error(s) while scanning.\n"
	semgrepDecodeFailureTemplate   = "%s could not be decoded: %v"
	semgrepReadFailureTemplate     = "%s could not be read: %v"
	semgrepFindingsDetailTemplate  = "%d finding(s)"
	semgrepNoFindingsFileDetail    = "no findings file written"
	semgrepUnknownSeverityConstant = "INFO"
)

type semgrepReport struct {
	Results []semgrepFinding  `json:"results"`
	Errors  []json.RawMessage `json:"errors"`
}

type semgrepFinding struct {
	CheckID string          `json:"check_id"`
	Path    string          `json:"path"`
	Start   semgrepPosition `json:"start"`
	Extra   semgrepExtra    `json:"extra"`
}

type semgrepPosition struct {
	Line int `json:"line"`
}

type semgrepExtra struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// StaticAnalysis runs semgrep with the configured rule set into semgrep_results.json.
func (runner *Runner) StaticAnalysis(executionContext context.Context, repositoryPath string) ScanResult {
	return runner.runSemgrep(executionContext, repositoryPath, report.SectionStaticAnalysis, semgrepToolNameConstant, runner.settings.SemgrepConfig, semgrepResultsFileNameConstant)
}

// OWASPFindings runs semgrep with the OWASP Top Ten rule set into semgrep_owasp_results.json.
func (runner *Runner) OWASPFindings(executionContext context.Context, repositoryPath string) ScanResult {
	return runner.runSemgrep(executionContext, repositoryPath, report.SectionOWASPFindings, semgrepOWASPToolNameConstant, runner.settings.OWASPConfig, semgrepOWASPFileNameConstant)
}

// runSemgrep omits the section whenever no findings file exists afterwards; the
// header table still records whether semgrep was missing or failed.
func (runner *Runner) runSemgrep(executionContext context.Context, repositoryPath string, kind report.SectionKind, toolName string, configuration string, fileName string) ScanResult {
	findingsPath := outputPath(repositoryPath, fileName)
	result := ScanResult{Kind: kind, FindingsPath: findingsPath}

	if !runner.available(execshell.CommandSemgrep) {
		result.Omitted = true
		result.Runs = []ToolRun{{Tool: toolName, Availability: AvailabilityMissing, Detail: semgrepInstallHintConstant}}
		return result
	}

	runner.removeStaleOutput(findingsPath)
	executionResult, executionError := runner.executor.ExecuteTool(executionContext, execshell.CommandSemgrep, execshell.CommandDetails{
		Arguments:        []string{semgrepConfigFlagConstant, configuration, semgrepJSONFlagConstant, semgrepOutputFlagConstant, fileName, semgrepQuietFlagConstant, semgrepTargetConstant},
		WorkingDirectory: repositoryPath,
	})
	defer runner.cleanupOutput(findingsPath)

	if !fileExists(findingsPath) {
		result.Omitted = true
		detail := semgrepNoFindingsFileDetail
		if executionError != nil {
			detail = executionError.Error()
		} else if combined := executionResult.CombinedOutput(); len(combined) > 0 {
			detail = combined
		}
		result.Runs = []ToolRun{{Tool: toolName, Availability: AvailabilityFailed, Detail: detail}}
		return result
	}

	contents, readError := os.ReadFile(findingsPath)
	if readError != nil {
		message := fmt.Sprintf(semgrepReadFailureTemplate, fileName, readError)
		result.Outcome = report.Failed(toolName, message)
		result.Runs = []ToolRun{{Tool: toolName, Availability: AvailabilityFailed, Detail: message}}
		return result
	}

	var decoded semgrepReport
	if decodeError := json.Unmarshal(contents, &decoded); decodeError != nil {
		message := fmt.Sprintf(semgrepDecodeFailureTemplate, fileName, decodeError)
		result.Outcome = report.Failed(toolName, message)
		result.Runs = []ToolRun{{Tool: toolName, Availability: AvailabilityFailed, Detail: message}}
		return result
	}

	if len(decoded.Results) == 0 {
		result.Outcome = report.Empty(noIssuesFoundConstant + errorsNote(len(decoded.Errors)))
		result.Runs = []ToolRun{{Tool: toolName, Availability: AvailabilityClean}}
		return result
	}

	result.Outcome = report.Completed(renderSemgrepFindings(decoded))
	result.Runs = []ToolRun{{Tool: toolName, Availability: AvailabilityFindings, Detail: fmt.Sprintf(semgrepFindingsDetailTemplate, len(decoded.Results))}}
	return result
}

func renderSemgrepFindings(decoded semgrepReport) string {
	var builder strings.Builder
	for _, finding := range decoded.Results {
		severity := strings.TrimSpace(finding.Extra.Severity)
		if len(severity) == 0 {
			severity = semgrepUnknownSeverityConstant
		}
		message := strings.Join(strings.Fields(finding.Extra.Message), " ")
		fmt.Fprintf(&builder, semgrepFindingTemplateConstant, severity, finding.CheckID, finding.Path, finding.Start.Line, message)
	}
	builder.WriteString(errorsNote(len(decoded.Errors)))
	return builder.String()
}

func errorsNote(errorCount int) string {
	if errorCount == 0 {
		return ""
	}
	return fmt.Sprintf(semgrepErrorsTemplateConstant, errorCount)
}
