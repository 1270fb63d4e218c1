package scanners

import (
	"context"
	"strings"

	"github.com/temirov/gitaudit/internal/execshell"
	"github.com/temirov/gitaudit/internal/report"
)

const (
	fencedOutputTemplatePrefix = "```\n"
	fencedOutputTemplateSuffix = "\n```"
	noIssuesFoundConstant      = "No issues found."
	detailMaxLengthConstant    = 120
	detailEllipsisConstant     = "..."
)

// Availability distinguishes why a scanner produced what it produced.
type Availability string

// Scanner availability states.
const (
	AvailabilityMissing  Availability = "missing"
	AvailabilityClean    Availability = "clean"
	AvailabilityFindings Availability = "findings"
	AvailabilityFailed   Availability = "failed"
	AvailabilitySkipped  Availability = "skipped"
)

// ToolRun records the availability of one tool invocation for the report header.
type ToolRun struct {
	Tool         string
	Availability Availability
	Detail       string
}

// ScanResult is the outcome of one scanner family rendered as one report section.
type ScanResult struct {
	Kind         report.SectionKind
	Outcome      report.Outcome
	Subsections  []report.Section
	FindingsPath string
	Omitted      bool
	Runs         []ToolRun
}

// Section converts the result into a report section.
func (result ScanResult) Section() report.Section {
	return report.Section{
		Kind:        result.Kind,
		Outcome:     result.Outcome,
		Subsections: result.Subsections,
		Omitted:     result.Omitted,
	}
}

// ScannerStatuses converts the tool runs into header table rows.
func (result ScanResult) ScannerStatuses() []report.ScannerStatus {
	statuses := make([]report.ScannerStatus, 0, len(result.Runs))
	for _, run := range result.Runs {
		statuses = append(statuses, report.ScannerStatus{
			Scanner:      run.Tool,
			Availability: string(run.Availability),
			Detail:       summarizeDetail(run.Detail),
		})
	}
	return statuses
}

// ToolExecutor runs external tools and tolerates non-zero exit codes.
type ToolExecutor interface {
	ExecuteTool(executionContext context.Context, name execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

func fenced(output string) string {
	return fencedOutputTemplatePrefix + strings.TrimSpace(output) + fencedOutputTemplateSuffix
}

func summarizeDetail(detail string) string {
	firstLine := strings.TrimSpace(detail)
	if newlineIndex := strings.IndexByte(firstLine, '\n'); newlineIndex >= 0 {
		firstLine = strings.TrimSpace(firstLine[:newlineIndex])
	}
	runes := []rune(firstLine)
	if len(runes) > detailMaxLengthConstant {
		return string(runes[:detailMaxLengthConstant]) + detailEllipsisConstant
	}
	return firstLine
}
