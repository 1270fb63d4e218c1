package audit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/gitaudit/internal/changeset"
	"github.com/temirov/gitaudit/internal/narrative"
	"github.com/temirov/gitaudit/internal/reference"
	"github.com/temirov/gitaudit/internal/report"
	"github.com/temirov/gitaudit/internal/scanners"
)

const (
	dependencyNotConfiguredMessage  = "audit dependency not configured"
	dependencyErrorTemplateConstant = "%w: %s"
	restoreErrorTemplateConstant    = "restore %s: %w"
	writeErrorTemplateConstant      = "write audit report: %w"
	noChangesMessageConstant        = "No changes detected"
	reportWrittenTemplateConstant   = "Audit report written to %s"
	auditStartedLogMessage          = "audit started"
	auditStageLogMessage            = "audit stage completed"
	auditNoChangesLogMessage        = "audit skipped: no changes"
	auditCompletedLogMessage        = "audit completed"
	restoreFailedLogMessage         = "failed to restore original reference"
	logFieldModeConstant            = "mode"
	logFieldReferenceConstant       = "reference"
	logFieldRunIdentifierConstant   = "run_id"
	logFieldStageConstant           = "stage"
	logFieldStatusConstant          = "status"
	logFieldReportPathConstant      = "report_path"
	logFieldOriginalReference       = "original_reference"
	logFieldTruncatedConstant       = "truncated"
	resolverDependencyName          = "reference resolver"
	collectorDependencyName         = "change set collector"
	lineCounterDependencyName       = "line counter"
	narrativesDependencyName        = "narrative generator"
	scannersDependencyName          = "scanner suite"
	writerDependencyName            = "report writer"
)

// ErrDependencyNotConfigured indicates that a required collaborator was not supplied.
var ErrDependencyNotConfigured = errors.New(dependencyNotConfiguredMessage)

// ServiceDependencies enumerates the collaborators of a Service.
type ServiceDependencies struct {
	RepositoryPath      string
	Resolver            ReferenceResolver
	Collector           ChangeSetCollector
	LineCounter         LineCounter
	Narratives          NarrativeGenerator
	Scanners            ScannerSuite
	Writer              ReportWriter
	Status              StatusReporter
	Clock               report.Clock
	IdentifierGenerator report.IdentifierGenerator
	Logger              *zap.Logger
}

// Service drives a single audit run from reference resolution to the written report.
type Service struct {
	repositoryPath      string
	resolver            ReferenceResolver
	collector           ChangeSetCollector
	lineCounter         LineCounter
	narratives          NarrativeGenerator
	scanners            ScannerSuite
	writer              ReportWriter
	status              StatusReporter
	clock               report.Clock
	identifierGenerator report.IdentifierGenerator
	logger              *zap.Logger
}

type nullStatusReporter struct{}

func (nullStatusReporter) Success(string) {}

func (nullStatusReporter) Notice(string) {}

// NewService validates the dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	requirements := []struct {
		name    string
		missing bool
	}{
		{name: resolverDependencyName, missing: dependencies.Resolver == nil},
		{name: collectorDependencyName, missing: dependencies.Collector == nil},
		{name: lineCounterDependencyName, missing: dependencies.LineCounter == nil},
		{name: narrativesDependencyName, missing: dependencies.Narratives == nil},
		{name: scannersDependencyName, missing: dependencies.Scanners == nil},
		{name: writerDependencyName, missing: dependencies.Writer == nil},
	}
	for _, requirement := range requirements {
		if requirement.missing {
			return nil, fmt.Errorf(dependencyErrorTemplateConstant, ErrDependencyNotConfigured, requirement.name)
		}
	}

	service := &Service{
		repositoryPath:      dependencies.RepositoryPath,
		resolver:            dependencies.Resolver,
		collector:           dependencies.Collector,
		lineCounter:         dependencies.LineCounter,
		narratives:          dependencies.Narratives,
		scanners:            dependencies.Scanners,
		writer:              dependencies.Writer,
		status:              dependencies.Status,
		clock:               dependencies.Clock,
		identifierGenerator: dependencies.IdentifierGenerator,
		logger:              dependencies.Logger,
	}
	if service.status == nil {
		service.status = nullStatusReporter{}
	}
	if service.clock == nil {
		service.clock = report.SystemClock{}
	}
	if service.identifierGenerator == nil {
		service.identifierGenerator = report.NewRunIdentifier
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service, nil
}

// Run executes the audit. A full-mode checkout is reverted on every return path, and a
// restore failure is reported unless an earlier error is already being returned.
func (service *Service) Run(executionContext context.Context, request Request) (result Result, runError error) {
	mode := request.Mode
	if len(mode) == 0 {
		mode = reference.ModeDiff
	}
	runIdentifier := request.RunIdentifier
	if len(runIdentifier) == 0 {
		runIdentifier = service.identifierGenerator()
	}
	service.logger.Info(auditStartedLogMessage,
		zap.String(logFieldModeConstant, string(mode)),
		zap.String(logFieldReferenceConstant, request.Reference),
		zap.String(logFieldRunIdentifierConstant, runIdentifier),
	)

	target, resolveError := service.resolver.Resolve(executionContext, mode, request.Reference)
	defer func() {
		restoreError := service.resolver.Restore(executionContext, target)
		if restoreError == nil {
			return
		}
		service.logger.Error(restoreFailedLogMessage,
			zap.String(logFieldOriginalReference, target.OriginalReference),
			zap.Error(restoreError),
		)
		if runError == nil {
			runError = fmt.Errorf(restoreErrorTemplateConstant, target.OriginalReference, restoreError)
		}
	}()
	if resolveError != nil {
		return Result{}, resolveError
	}

	changeSet, collectError := service.collector.Collect(executionContext, service.repositoryPath, target)
	if errors.Is(collectError, changeset.ErrNoChanges) {
		service.logger.Info(auditNoChangesLogMessage, zap.String(logFieldReferenceConstant, target.Reference))
		service.status.Notice(noChangesMessageConstant)
		return Result{NoChanges: true}, nil
	}
	if collectError != nil {
		return Result{}, collectError
	}
	service.logger.Debug(auditStageLogMessage,
		zap.String(logFieldStageConstant, collectorDependencyName),
		zap.Bool(logFieldTruncatedConstant, changeSet.Truncated),
	)

	sections := []report.Section{
		service.linesOfCode(executionContext, target, changeSet),
		service.narrativeSection(executionContext, narrative.KindSummary, report.SectionSummary, changeSet),
		service.narrativeSection(executionContext, narrative.KindSecurity, report.SectionSecurityAudit, changeSet),
	}

	scanResults := []scanners.ScanResult{
		service.scanners.Dependencies(executionContext, service.repositoryPath),
		service.scanners.StaticAnalysis(executionContext, service.repositoryPath),
		service.scanners.OWASPFindings(executionContext, service.repositoryPath),
		service.scanners.SmartContracts(executionContext, service.repositoryPath, changeSet.ChangedPaths, target.Mode == reference.ModeDiff),
	}
	scannerStatuses := make([]report.ScannerStatus, 0, len(scanResults))
	for _, scanResult := range scanResults {
		sections = append(sections, scanResult.Section())
		scannerStatuses = append(scannerStatuses, scanResult.ScannerStatuses()...)
	}

	header := report.Header{
		Mode:               string(target.Mode),
		GeneratedAt:        service.clock.Now(),
		RunIdentifier:      runIdentifier,
		RequestedReference: target.RequestedReference,
		Reference:          target.Reference,
		ReferenceCommit:    target.ReferenceCommit,
		HeadCommit:         target.HeadCommit,
		RestoreReference:   target.OriginalReference,
		Truncated:          changeSet.Truncated,
		Scanners:           scannerStatuses,
	}
	assembled := report.New(header, sections)

	reportPath, writeError := service.writer.Write(assembled)
	if writeError != nil {
		return Result{}, fmt.Errorf(writeErrorTemplateConstant, writeError)
	}

	service.logger.Info(auditCompletedLogMessage,
		zap.String(logFieldRunIdentifierConstant, runIdentifier),
		zap.String(logFieldReportPathConstant, reportPath),
	)
	service.status.Success(fmt.Sprintf(reportWrittenTemplateConstant, reportPath))

	return Result{ReportPath: reportPath, Report: assembled}, nil
}

func (service *Service) linesOfCode(executionContext context.Context, target reference.Target, changeSet changeset.ChangeSet) report.Section {
	var outcome report.Outcome
	if target.Mode == reference.ModeFull {
		outcome = service.lineCounter.FullOutcome(executionContext, service.repositoryPath)
	} else {
		outcome = service.lineCounter.DiffOutcome(executionContext, service.repositoryPath, target.Reference, changeSet.DiffText)
	}
	service.logStage(lineCounterDependencyName, outcome)
	return report.Section{Kind: report.SectionLinesOfCode, Outcome: outcome}
}

func (service *Service) narrativeSection(executionContext context.Context, kind narrative.Kind, sectionKind report.SectionKind, changeSet changeset.ChangeSet) report.Section {
	outcome := service.narratives.Generate(executionContext, kind, changeSet)
	service.logStage(string(kind), outcome)
	return report.Section{Kind: sectionKind, Outcome: outcome}
}

func (service *Service) logStage(stage string, outcome report.Outcome) {
	service.logger.Debug(auditStageLogMessage,
		zap.String(logFieldStageConstant, stage),
		zap.String(logFieldStatusConstant, string(outcome.Status)),
	)
}
