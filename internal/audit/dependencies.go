package audit

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/temirov/gitaudit/internal/changeset"
	"github.com/temirov/gitaudit/internal/execshell"
	"github.com/temirov/gitaudit/internal/gitrepo"
	"github.com/temirov/gitaudit/internal/linecount"
	"github.com/temirov/gitaudit/internal/llm"
	"github.com/temirov/gitaudit/internal/narrative"
	"github.com/temirov/gitaudit/internal/reference"
	"github.com/temirov/gitaudit/internal/report"
	"github.com/temirov/gitaudit/internal/scanners"
	"github.com/temirov/gitaudit/internal/ui"
	pathutils "github.com/temirov/gitaudit/internal/utils/path"
)

// serviceAssembly carries everything needed to construct the default collaborators.
type serviceAssembly struct {
	logger           *zap.Logger
	configuration    CommandConfiguration
	workingDirectory string
	executor         CommandExecutor
	locator          execshell.ToolLocator
	httpClient       llm.HTTPClient
	clock            report.Clock
	statusWriter     io.Writer
}

func resolveCommandExecutor(existing CommandExecutor, logger *zap.Logger, observer execshell.CommandEventObserver) (CommandExecutor, error) {
	if existing != nil {
		return existing, nil
	}
	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), observer)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

func resolveToolLocator(existing execshell.ToolLocator) execshell.ToolLocator {
	if existing != nil {
		return existing
	}
	return execshell.NewPathToolLocator()
}

// buildService wires the production collaborators around the repository root. The report directory and
// prompts file stay relative to the working directory.
func buildService(executionContext context.Context, assembly serviceAssembly) (*Service, error) {
	expander := pathutils.NewHomeExpander()

	repositoryManager, managerError := gitrepo.NewRepositoryManager(assembly.executor)
	if managerError != nil {
		return nil, managerError
	}

	repositoryRoot, rootError := repositoryManager.TopLevel(executionContext, assembly.workingDirectory)
	if rootError != nil {
		return nil, rootError
	}

	resolver, resolverError := reference.NewResolver(repositoryManager, repositoryRoot, assembly.logger)
	if resolverError != nil {
		return nil, resolverError
	}

	collector, collectorError := changeset.NewCollector(repositoryManager, assembly.configuration.changeSetSettings())
	if collectorError != nil {
		return nil, collectorError
	}
	excludedDirectories := collector.Settings().ExcludedDirectories

	lineReporter, lineReporterError := linecount.NewReporter(assembly.executor, repositoryManager, assembly.locator, excludedDirectories)
	if lineReporterError != nil {
		return nil, lineReporterError
	}

	promptsFile := assembly.configuration.LLM.PromptsFile
	if len(promptsFile) > 0 {
		promptsFile = expander.ResolveDirectory(assembly.workingDirectory, promptsFile)
	}
	catalog, catalogError := narrative.LoadCatalog(promptsFile)
	if catalogError != nil {
		return nil, catalogError
	}

	client, clientError := llm.NewClient(assembly.httpClient, assembly.configuration.llmSettings(), assembly.logger)
	if clientError != nil {
		return nil, clientError
	}

	generator, generatorError := narrative.NewGenerator(client, catalog)
	if generatorError != nil {
		return nil, generatorError
	}

	scannerRunner, runnerError := scanners.NewRunner(assembly.executor, assembly.locator, assembly.configuration.scannerSettings(excludedDirectories), assembly.logger)
	if runnerError != nil {
		return nil, runnerError
	}

	outputDirectory := expander.ResolveDirectory(assembly.workingDirectory, assembly.configuration.Report.OutputDirectory)
	writer := report.NewWriter(outputDirectory, assembly.configuration.Report.FilePrefix)

	return NewService(ServiceDependencies{
		RepositoryPath: repositoryRoot,
		Resolver:       resolver,
		Collector:      collector,
		LineCounter:    lineReporter,
		Narratives:     generator,
		Scanners:       scannerRunner,
		Writer:         writer,
		Status:         ui.NewStatusPrinter(assembly.statusWriter),
		Clock:          assembly.clock,
		Logger:         assembly.logger,
	})
}
