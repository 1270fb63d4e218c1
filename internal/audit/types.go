package audit

import (
	"context"

	"github.com/temirov/gitaudit/internal/changeset"
	"github.com/temirov/gitaudit/internal/execshell"
	"github.com/temirov/gitaudit/internal/narrative"
	"github.com/temirov/gitaudit/internal/reference"
	"github.com/temirov/gitaudit/internal/report"
	"github.com/temirov/gitaudit/internal/scanners"
)

// Request describes one audit run.
type Request struct {
	Mode          reference.Mode
	Reference     string
	RunIdentifier string
}

// Result summarizes a finished audit run.
type Result struct {
	ReportPath string
	NoChanges  bool
	Report     report.Report
}

// CommandExecutor runs git and the external scanners.
type CommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteTool(executionContext context.Context, name execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ReferenceResolver picks the audited reference and reverts any checkout it performed.
type ReferenceResolver interface {
	Resolve(executionContext context.Context, mode reference.Mode, requestedReference string) (reference.Target, error)
	Restore(executionContext context.Context, target reference.Target) error
}

// ChangeSetCollector gathers the material sent to the model.
type ChangeSetCollector interface {
	Collect(executionContext context.Context, repositoryPath string, target reference.Target) (changeset.ChangeSet, error)
}

// LineCounter renders the Lines of Code section.
type LineCounter interface {
	DiffOutcome(executionContext context.Context, repositoryPath string, comparisonReference string, diffText string) report.Outcome
	FullOutcome(executionContext context.Context, repositoryPath string) report.Outcome
}

// NarrativeGenerator produces the model-written sections.
type NarrativeGenerator interface {
	Generate(executionContext context.Context, kind narrative.Kind, changeSet changeset.ChangeSet) report.Outcome
}

// ScannerSuite runs every external scanner family.
type ScannerSuite interface {
	Dependencies(executionContext context.Context, repositoryPath string) scanners.ScanResult
	StaticAnalysis(executionContext context.Context, repositoryPath string) scanners.ScanResult
	OWASPFindings(executionContext context.Context, repositoryPath string) scanners.ScanResult
	SmartContracts(executionContext context.Context, repositoryPath string, changedPaths []string, diffMode bool) scanners.ScanResult
}

// ReportWriter persists an assembled report and returns its location.
type ReportWriter interface {
	Write(assembled report.Report) (string, error)
}

// StatusReporter prints user-facing progress lines.
type StatusReporter interface {
	Success(message string)
	Notice(message string)
}
