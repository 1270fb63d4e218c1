package scanners

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/temirov/gitaudit/internal/execshell"
	"github.com/temirov/gitaudit/internal/report"
)

const (
	noManifestStatementConstant     = "No supported dependency manifest found."
	noVulnerabilitiesStatement      = "No known vulnerabilities reported."
	dependencyAuditToolNameConstant = "dependency audit"
	noManifestDetailConstant        = "no manifest"
	subsectionTitleTemplateConstant = "%s (%s)"
	exitCodeDetailTemplateConstant  = "exit code %d"
)

type dependencyAudit struct {
	manifest  string
	tool      string
	command   execshell.CommandName
	arguments []string
	hint      string
}

func dependencyAudits() []dependencyAudit {
	return []dependencyAudit{
		{manifest: "package.json", tool: "npm audit", command: execshell.CommandNpm, arguments: []string{"audit"}, hint: "install Node.js from https://nodejs.org to get npm"},
		{manifest: "go.mod", tool: "govulncheck", command: execshell.CommandGovulncheck, arguments: []string{"./..."}, hint: "go install golang.org/x/vuln/cmd/govulncheck@latest"},
		{manifest: "requirements.txt", tool: "pip-audit", command: execshell.CommandPipAudit, arguments: []string{"-r", "requirements.txt"}, hint: "pip install pip-audit"},
	}
}

// Dependencies audits every supported manifest found at the repository root.
// A tool exiting non-zero is recorded as findings rather than a failure.
func (runner *Runner) Dependencies(executionContext context.Context, repositoryPath string) ScanResult {
	result := ScanResult{Kind: report.SectionDependencyAudit}

	for _, audit := range dependencyAudits() {
		if !fileExists(filepath.Join(repositoryPath, audit.manifest)) {
			continue
		}
		subsection, run := runner.runDependencyAudit(executionContext, repositoryPath, audit)
		result.Subsections = append(result.Subsections, subsection)
		result.Runs = append(result.Runs, run)
	}

	if len(result.Subsections) == 0 {
		result.Outcome = report.Empty(noManifestStatementConstant)
		result.Runs = []ToolRun{{Tool: dependencyAuditToolNameConstant, Availability: AvailabilitySkipped, Detail: noManifestDetailConstant}}
	}
	return result
}

func (runner *Runner) runDependencyAudit(executionContext context.Context, repositoryPath string, audit dependencyAudit) (report.Section, ToolRun) {
	titleValue := fmt.Sprintf(subsectionTitleTemplateConstant, audit.tool, audit.manifest)

	if !runner.available(audit.command) {
		return report.Section{Title: titleValue, Outcome: report.Unavailable(audit.tool, audit.hint)},
			ToolRun{Tool: audit.tool, Availability: AvailabilityMissing, Detail: audit.hint}
	}

	executionResult, executionError := runner.executor.ExecuteTool(executionContext, audit.command, execshell.CommandDetails{
		Arguments:        audit.arguments,
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return report.Section{Title: titleValue, Outcome: report.Failed(audit.tool, executionError.Error())},
			ToolRun{Tool: audit.tool, Availability: AvailabilityFailed, Detail: executionError.Error()}
	}

	output := executionResult.CombinedOutput()
	if executionResult.ExitCode != 0 {
		return report.Section{Title: titleValue, Outcome: report.Completed(fenced(output))},
			ToolRun{Tool: audit.tool, Availability: AvailabilityFindings, Detail: fmt.Sprintf(exitCodeDetailTemplateConstant, executionResult.ExitCode)}
	}
	if len(output) == 0 {
		return report.Section{Title: titleValue, Outcome: report.Empty(noVulnerabilitiesStatement)},
			ToolRun{Tool: audit.tool, Availability: AvailabilityClean}
	}
	return report.Section{Title: titleValue, Outcome: report.Completed(fenced(output))},
		ToolRun{Tool: audit.tool, Availability: AvailabilityClean}
}
