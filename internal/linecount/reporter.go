package linecount

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/gitaudit/internal/execshell"
	"github.com/temirov/gitaudit/internal/report"
)

const (
	clocLabelConstant                = "cloc"
	clocInstallHintConstant          = "brew install cloc  # or: apt-get install cloc"
	clocMissingReasonConstant        = "cloc is not installed, repository line counts were not computed"
	clocCurrentDirectoryConstant     = "."
	clocQuietFlagConstant            = "--quiet"
	clocExcludeDirectoryFlagTemplate = "--exclude-dir=%s"
	clocExcludeDirectorySeparator    = ","
	shortStatLabelConstant           = "git diff --shortstat"
	diffCountsTemplateConstant       = "- Added lines: %d\n- Removed lines: %d\n- Total changed lines: %d\n"
	shortStatTemplateConstant        = "- Summary: %s\n"
	clocOutputTemplateConstant       = "```\n%s\n```"
	emptyShortStatConstant           = "no changes"
	executorNotConfiguredMessage     = "line count executor not configured"
	statisticsSourceNotConfigured    = "line count statistics source not configured"
)

// ErrExecutorNotConfigured indicates that the reporter was constructed without a tool executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// ErrStatisticsSourceNotConfigured indicates that the reporter was constructed without a diff statistics source.
var ErrStatisticsSourceNotConfigured = errors.New(statisticsSourceNotConfigured)

// ToolExecutor runs external tools and tolerates non-zero exit codes.
type ToolExecutor interface {
	ExecuteTool(executionContext context.Context, name execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// StatisticsSource provides git's one-line change summary.
type StatisticsSource interface {
	ShortStat(executionContext context.Context, repositoryPath string, reference string) (string, error)
}

// Reporter renders the Lines of Code section.
type Reporter struct {
	executor            ToolExecutor
	statistics          StatisticsSource
	locator             execshell.ToolLocator
	excludedDirectories []string
}

// NewReporter constructs a Reporter.
func NewReporter(executor ToolExecutor, statistics StatisticsSource, locator execshell.ToolLocator, excludedDirectories []string) (*Reporter, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if statistics == nil {
		return nil, ErrStatisticsSourceNotConfigured
	}
	if locator == nil {
		locator = execshell.NewPathToolLocator()
	}
	return &Reporter{executor: executor, statistics: statistics, locator: locator, excludedDirectories: excludedDirectories}, nil
}

// DiffOutcome counts the diff and appends git's shortstat summary.
func (reporter *Reporter) DiffOutcome(executionContext context.Context, repositoryPath string, comparisonReference string, diffText string) report.Outcome {
	counts := CountDiff(diffText)
	body := fmt.Sprintf(diffCountsTemplateConstant, counts.Added, counts.Removed, counts.Total())

	shortStat, shortStatError := reporter.statistics.ShortStat(executionContext, repositoryPath, comparisonReference)
	if shortStatError != nil {
		return report.Failed(shortStatLabelConstant, body+"\n"+shortStatError.Error())
	}
	if len(shortStat) == 0 {
		shortStat = emptyShortStatConstant
	}
	return report.Completed(body + fmt.Sprintf(shortStatTemplateConstant, shortStat))
}

// FullOutcome runs cloc over the repository, or reports it as skipped when cloc is absent.
func (reporter *Reporter) FullOutcome(executionContext context.Context, repositoryPath string) report.Outcome {
	if !execshell.ToolAvailable(reporter.locator, execshell.CommandCloc) {
		return report.Skipped(clocLabelConstant, clocMissingReasonConstant, clocInstallHintConstant)
	}

	arguments := []string{clocQuietFlagConstant}
	if len(reporter.excludedDirectories) > 0 {
		arguments = append(arguments, fmt.Sprintf(clocExcludeDirectoryFlagTemplate, strings.Join(reporter.excludedDirectories, clocExcludeDirectorySeparator)))
	}
	arguments = append(arguments, clocCurrentDirectoryConstant)

	result, executionError := reporter.executor.ExecuteTool(executionContext, execshell.CommandCloc, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return report.Failed(clocLabelConstant, executionError.Error())
	}
	if result.ExitCode != 0 {
		return report.Failed(clocLabelConstant, result.CombinedOutput())
	}
	return report.Completed(fmt.Sprintf(clocOutputTemplateConstant, strings.TrimSpace(result.StandardOutput)))
}
