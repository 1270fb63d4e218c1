package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/gitaudit/internal/changeset"
	"github.com/temirov/gitaudit/internal/execshell"
	"github.com/temirov/gitaudit/internal/report"
)

const (
	slitherToolNameConstant        = "slither"
	slitherInstallHintConstant     = "pip install slither-analyzer"
	solidityExtensionConstant      = ".sol"
	slitherJSONFlagConstant        = "--json"
	slitherOutputTemplateConstant  = "slither_%s.json"
	slitherDetectorTemplate        = "- **%s** (%s confidence) `%s`: %s\n"
	slitherNoOutputTemplate        = "slither wrote no JSON output for %s"
	slitherDecodeFailureTemplate   = "%s could not be decoded: %v"
	slitherReportedFailureTemplate = "slither reported an error: %s"
	slitherNoSolidityDetail        = "no Solidity files"
	slitherSummaryDetailTemplate   = "%d file(s), %d detector result(s)"
	slitherFailedFilesTemplate     = "%d of %d file(s) failed"
	sanitizedReplacementRune       = '_'
)

type slitherReport struct {
	Success bool           `json:"success"`
	Error   *string        `json:"error"`
	Results slitherResults `json:"results"`
}

type slitherResults struct {
	Detectors []slitherDetector `json:"detectors"`
}

type slitherDetector struct {
	Check       string `json:"check"`
	Impact      string `json:"impact"`
	Confidence  string `json:"confidence"`
	Description string `json:"description"`
}

// SmartContracts runs slither once per Solidity file. In diff mode only changed
// files that still exist are analyzed; in full mode the tree is walked, skipping
// excluded directories. Without Solidity files the section is omitted.
func (runner *Runner) SmartContracts(executionContext context.Context, repositoryPath string, changedPaths []string, diffMode bool) ScanResult {
	result := ScanResult{Kind: report.SectionSmartContractAudit}

	contracts, listError := runner.solidityFiles(repositoryPath, changedPaths, diffMode)
	if listError != nil {
		result.Outcome = report.Failed(slitherToolNameConstant, listError.Error())
		result.Runs = []ToolRun{{Tool: slitherToolNameConstant, Availability: AvailabilityFailed, Detail: listError.Error()}}
		return result
	}
	if len(contracts) == 0 {
		result.Omitted = true
		result.Runs = []ToolRun{{Tool: slitherToolNameConstant, Availability: AvailabilitySkipped, Detail: slitherNoSolidityDetail}}
		return result
	}

	if !runner.available(execshell.CommandSlither) {
		result.Outcome = report.Unavailable(slitherToolNameConstant, slitherInstallHintConstant)
		result.Runs = []ToolRun{{Tool: slitherToolNameConstant, Availability: AvailabilityMissing, Detail: slitherInstallHintConstant}}
		return result
	}

	detectorCount := 0
	failedCount := 0
	for _, contract := range contracts {
		outcome, detectors, failed := runner.analyzeContract(executionContext, repositoryPath, contract)
		result.Subsections = append(result.Subsections, report.Section{Title: contract, Outcome: outcome})
		detectorCount += detectors
		if failed {
			failedCount++
		}
	}

	switch {
	case failedCount > 0:
		result.Runs = []ToolRun{{Tool: slitherToolNameConstant, Availability: AvailabilityFailed, Detail: fmt.Sprintf(slitherFailedFilesTemplate, failedCount, len(contracts))}}
	case detectorCount > 0:
		result.Runs = []ToolRun{{Tool: slitherToolNameConstant, Availability: AvailabilityFindings, Detail: fmt.Sprintf(slitherSummaryDetailTemplate, len(contracts), detectorCount)}}
	default:
		result.Runs = []ToolRun{{Tool: slitherToolNameConstant, Availability: AvailabilityClean, Detail: fmt.Sprintf(slitherSummaryDetailTemplate, len(contracts), 0)}}
	}
	return result
}

func (runner *Runner) solidityFiles(repositoryPath string, changedPaths []string, diffMode bool) ([]string, error) {
	filter := changeset.ExtensionFilter([]string{solidityExtensionConstant})
	if !diffMode {
		return changeset.ListFiles(repositoryPath, runner.settings.ExcludedDirectories, filter, 0)
	}

	contracts := make([]string, 0)
	for _, changedPath := range changedPaths {
		if !filter(changedPath) {
			continue
		}
		if !fileExists(filepath.Join(repositoryPath, filepath.FromSlash(changedPath))) {
			continue
		}
		contracts = append(contracts, changedPath)
	}
	return contracts, nil
}

func (runner *Runner) analyzeContract(executionContext context.Context, repositoryPath string, contract string) (report.Outcome, int, bool) {
	outputFileName := fmt.Sprintf(slitherOutputTemplateConstant, sanitizeFileName(contract))
	outputFilePath := outputPath(repositoryPath, outputFileName)
	runner.removeStaleOutput(outputFilePath)
	defer runner.cleanupOutput(outputFilePath)

	executionResult, executionError := runner.executor.ExecuteTool(executionContext, execshell.CommandSlither, execshell.CommandDetails{
		Arguments:        []string{contract, slitherJSONFlagConstant, outputFileName},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return report.Failed(slitherToolNameConstant, executionError.Error()), 0, true
	}

	contents, readError := os.ReadFile(outputFilePath)
	if readError != nil {
		detail := fmt.Sprintf(slitherNoOutputTemplate, contract)
		if combined := executionResult.CombinedOutput(); len(combined) > 0 {
			detail += "\n" + combined
		}
		return report.Failed(slitherToolNameConstant, detail), 0, true
	}

	var decoded slitherReport
	if decodeError := json.Unmarshal(contents, &decoded); decodeError != nil {
		return report.Failed(slitherToolNameConstant, fmt.Sprintf(slitherDecodeFailureTemplate, outputFileName, decodeError)), 0, true
	}
	if !decoded.Success && decoded.Error != nil && len(strings.TrimSpace(*decoded.Error)) > 0 {
		return report.Failed(slitherToolNameConstant, fmt.Sprintf(slitherReportedFailureTemplate, strings.TrimSpace(*decoded.Error))), 0, true
	}

	detectors := decoded.Results.Detectors
	if len(detectors) == 0 {
		return report.Empty(noIssuesFoundConstant), 0, false
	}

	var builder strings.Builder
	for _, detector := range detectors {
		description := strings.Join(strings.Fields(detector.Description), " ")
		fmt.Fprintf(&builder, slitherDetectorTemplate, detector.Impact, detector.Confidence, detector.Check, description)
	}
	return report.Completed(builder.String()), len(detectors), false
}

func sanitizeFileName(path string) string {
	return strings.Map(func(character rune) rune {
		switch {
		case character >= 'a' && character <= 'z', character >= 'A' && character <= 'Z', character >= '0' && character <= '9':
			return character
		default:
			return sanitizedReplacementRune
		}
	}, path)
}
