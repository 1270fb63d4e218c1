package scanners

import (
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/gitaudit/internal/execshell"
)

// Default semgrep rule sets.
const (
	DefaultSemgrepConfig      = "auto"
	DefaultOWASPSemgrepConfig = "p/owasp-top-ten"
)

const (
	executorNotConfigured = "scanner executor not configured"
	staleOutputLogMessage = "Unable to remove stale scanner output"
	cleanupLogMessage     = "Unable to remove scanner output"
	logFieldPathConstant  = "path"
)

// ErrExecutorNotConfigured indicates that the runner was constructed without a tool executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfigured)

// Settings configures scanner invocations.
type Settings struct {
	SemgrepConfig       string
	OWASPConfig         string
	Cleanup             bool
	ExcludedDirectories []string
}

// Runner invokes the installed scanners for a repository.
type Runner struct {
	executor ToolExecutor
	locator  execshell.ToolLocator
	settings Settings
	logger   *zap.Logger
}

// NewRunner constructs a Runner. A nil locator searches PATH.
func NewRunner(executor ToolExecutor, locator execshell.ToolLocator, settings Settings, logger *zap.Logger) (*Runner, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if locator == nil {
		locator = execshell.NewPathToolLocator()
	}
	if len(settings.SemgrepConfig) == 0 {
		settings.SemgrepConfig = DefaultSemgrepConfig
	}
	if len(settings.OWASPConfig) == 0 {
		settings.OWASPConfig = DefaultOWASPSemgrepConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{executor: executor, locator: locator, settings: settings, logger: logger}, nil
}

func (runner *Runner) available(name execshell.CommandName) bool {
	return execshell.ToolAvailable(runner.locator, name)
}

func (runner *Runner) removeStaleOutput(path string) {
	removeError := os.Remove(path)
	if removeError != nil && !errors.Is(removeError, os.ErrNotExist) {
		runner.logger.Warn(staleOutputLogMessage, zap.String(logFieldPathConstant, path), zap.Error(removeError))
	}
}

func (runner *Runner) cleanupOutput(path string) {
	if !runner.settings.Cleanup {
		return
	}
	removeError := os.Remove(path)
	if removeError != nil && !errors.Is(removeError, os.ErrNotExist) {
		runner.logger.Warn(cleanupLogMessage, zap.String(logFieldPathConstant, path), zap.Error(removeError))
	}
}

func fileExists(path string) bool {
	info, statError := os.Stat(path)
	return statError == nil && !info.IsDir()
}

func outputPath(repositoryPath string, fileName string) string {
	return filepath.Join(repositoryPath, fileName)
}
