package changeset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/gitaudit/internal/reference"
)

const (
	noChangesMessageConstant           = "no changes detected"
	noSourceFilesMessageConstant       = "no source files matched the configured extensions"
	sourceNotConfiguredMessageConstant = "change set diff source not configured"
	unsupportedModeTemplateConstant    = "unsupported audit mode: %s"
	collectDiffErrorTemplateConstant   = "collect diff against %s: %w"
	collectPathsErrorTemplateConstant  = "collect changed paths against %s: %w"
	listFilesErrorTemplateConstant     = "list source files under %s: %w"
	readFileErrorTemplateConstant      = "read %s: %w"
	changedFilesHeadingConstant        = "Changed files (%d):\n"
	diffHeadingConstant                = "\nDiff:\n"
	inventoryHeadingTemplateConstant   = "Source inventory (%d files):\n"
	inventoryEntryTemplateConstant     = "- %s (%d lines)\n"
	inventoryRemainderTemplateConstant = "... and %d more files\n"
	excerptsHeadingConstant            = "\nExcerpts:\n"
	excerptHeadingTemplateConstant     = "\n### %s\n"
	excerptFenceConstant               = "```"
	listEntryTemplateConstant          = "- %s\n"
	lineBreakConstant                  = "\n"
	defaultCharacterBudgetConstant     = 6000
	defaultMaxFilesConstant            = 100
	defaultListedFilesConstant         = 50
	defaultExcerptFilesConstant        = 5
	defaultExcerptLinesConstant        = 30
)

// ErrNoChanges indicates that the diff between the reference and HEAD is empty.
var ErrNoChanges = errors.New(noChangesMessageConstant)

// ErrNoSourceFiles indicates that a full-mode walk found nothing to audit.
var ErrNoSourceFiles = errors.New(noSourceFilesMessageConstant)

// ErrDiffSourceNotConfigured indicates that the collector was constructed without a diff source.
var ErrDiffSourceNotConfigured = errors.New(sourceNotConfiguredMessageConstant)

// DiffSource provides the git queries used in diff mode.
type DiffSource interface {
	Diff(executionContext context.Context, repositoryPath string, reference string) (string, error)
	ChangedPaths(executionContext context.Context, repositoryPath string, reference string) ([]string, error)
}

// Settings bounds the size of a collected change set.
type Settings struct {
	CharacterBudget     int
	MaxFiles            int
	ListedFiles         int
	ExcerptFiles        int
	ExcerptLines        int
	Extensions          []string
	ExcludedDirectories []string
}

// DefaultSourceExtensions lists the file extensions inventoried in full mode.
func DefaultSourceExtensions() []string {
	return []string{
		".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".kt", ".c", ".h", ".cpp", ".hpp",
		".cs", ".rb", ".php", ".rs", ".swift", ".scala", ".sh", ".sol", ".sql",
	}
}

// DefaultExcludedDirectories lists dependency, build, and VCS directories skipped by every walk.
func DefaultExcludedDirectories() []string {
	return []string{".git", "node_modules", "vendor", "dist", "build", "target", ".venv", "venv", "__pycache__", "lib", "out", "coverage", ".next"}
}

// DefaultSettings returns the limits used when configuration leaves them unset.
func DefaultSettings() Settings {
	return Settings{
		CharacterBudget:     defaultCharacterBudgetConstant,
		MaxFiles:            defaultMaxFilesConstant,
		ListedFiles:         defaultListedFilesConstant,
		ExcerptFiles:        defaultExcerptFilesConstant,
		ExcerptLines:        defaultExcerptLinesConstant,
		Extensions:          DefaultSourceExtensions(),
		ExcludedDirectories: DefaultExcludedDirectories(),
	}
}

func (settings Settings) sanitize() Settings {
	defaults := DefaultSettings()
	sanitized := settings
	if sanitized.CharacterBudget <= 0 {
		sanitized.CharacterBudget = defaults.CharacterBudget
	}
	if sanitized.MaxFiles <= 0 {
		sanitized.MaxFiles = defaults.MaxFiles
	}
	if sanitized.ListedFiles <= 0 {
		sanitized.ListedFiles = defaults.ListedFiles
	}
	if sanitized.ExcerptFiles <= 0 {
		sanitized.ExcerptFiles = defaults.ExcerptFiles
	}
	if sanitized.ExcerptLines <= 0 {
		sanitized.ExcerptLines = defaults.ExcerptLines
	}
	if len(sanitized.Extensions) == 0 {
		sanitized.Extensions = defaults.Extensions
	}
	if sanitized.ExcludedDirectories == nil {
		sanitized.ExcludedDirectories = defaults.ExcludedDirectories
	}
	return sanitized
}

// InventoryEntry records one inventoried source file.
type InventoryEntry struct {
	Path      string
	LineCount int
}

// Excerpt holds the leading lines of an inventoried file.
type Excerpt struct {
	Path    string
	Content string
}

// ChangeSet is the collected audit material for one run.
type ChangeSet struct {
	Mode         reference.Mode
	DiffText     string
	ChangedPaths []string
	Inventory    []InventoryEntry
	Excerpts     []Excerpt
	Payload      string
	Truncated    bool
}

// Collector builds change sets for a repository.
type Collector struct {
	source   DiffSource
	settings Settings
}

// NewCollector constructs a Collector. Unset limits fall back to DefaultSettings.
func NewCollector(source DiffSource, settings Settings) (*Collector, error) {
	if source == nil {
		return nil, ErrDiffSourceNotConfigured
	}
	return &Collector{source: source, settings: settings.sanitize()}, nil
}

// Settings returns the effective limits.
func (collector *Collector) Settings() Settings {
	return collector.settings
}

// Collect produces the change set for target. Diff mode returns ErrNoChanges for an empty diff;
// full mode returns ErrNoSourceFiles when no file matches the extension allow-list.
func (collector *Collector) Collect(executionContext context.Context, repositoryPath string, target reference.Target) (ChangeSet, error) {
	var changeSet ChangeSet
	var collectError error

	switch target.Mode {
	case reference.ModeDiff:
		changeSet, collectError = collector.collectDiff(executionContext, repositoryPath, target.Reference)
	case reference.ModeFull:
		changeSet, collectError = collector.collectFull(repositoryPath)
	default:
		return ChangeSet{}, fmt.Errorf(unsupportedModeTemplateConstant, target.Mode)
	}
	if collectError != nil {
		return ChangeSet{}, collectError
	}

	changeSet.Payload, changeSet.Truncated = Truncate(changeSet.Payload, collector.settings.CharacterBudget)
	return changeSet, nil
}

func (collector *Collector) collectDiff(executionContext context.Context, repositoryPath string, comparisonReference string) (ChangeSet, error) {
	diffText, diffError := collector.source.Diff(executionContext, repositoryPath, comparisonReference)
	if diffError != nil {
		return ChangeSet{}, fmt.Errorf(collectDiffErrorTemplateConstant, comparisonReference, diffError)
	}
	if len(strings.TrimSpace(diffText)) == 0 {
		return ChangeSet{}, ErrNoChanges
	}

	changedPaths, pathsError := collector.source.ChangedPaths(executionContext, repositoryPath, comparisonReference)
	if pathsError != nil {
		return ChangeSet{}, fmt.Errorf(collectPathsErrorTemplateConstant, comparisonReference, pathsError)
	}

	var payload strings.Builder
	fmt.Fprintf(&payload, changedFilesHeadingConstant, len(changedPaths))
	for _, changedPath := range changedPaths {
		fmt.Fprintf(&payload, listEntryTemplateConstant, changedPath)
	}
	payload.WriteString(diffHeadingConstant)
	payload.WriteString(diffText)

	return ChangeSet{
		Mode:         reference.ModeDiff,
		DiffText:     diffText,
		ChangedPaths: changedPaths,
		Payload:      payload.String(),
	}, nil
}

func (collector *Collector) collectFull(repositoryPath string) (ChangeSet, error) {
	settings := collector.settings
	files, listError := ListFiles(repositoryPath, settings.ExcludedDirectories, ExtensionFilter(settings.Extensions), settings.MaxFiles)
	if listError != nil {
		return ChangeSet{}, fmt.Errorf(listFilesErrorTemplateConstant, repositoryPath, listError)
	}
	if len(files) == 0 {
		return ChangeSet{}, ErrNoSourceFiles
	}

	inventory := make([]InventoryEntry, 0, len(files))
	excerpts := make([]Excerpt, 0, settings.ExcerptFiles)
	for index, relativePath := range files {
		contents, readError := os.ReadFile(filepath.Join(repositoryPath, filepath.FromSlash(relativePath)))
		if readError != nil {
			return ChangeSet{}, fmt.Errorf(readFileErrorTemplateConstant, relativePath, readError)
		}
		inventory = append(inventory, InventoryEntry{Path: relativePath, LineCount: countLines(contents)})
		if index < settings.ExcerptFiles {
			excerpts = append(excerpts, Excerpt{Path: relativePath, Content: leadingLines(contents, settings.ExcerptLines)})
		}
	}

	return ChangeSet{
		Mode:      reference.ModeFull,
		Inventory: inventory,
		Excerpts:  excerpts,
		Payload:   renderInventory(inventory, excerpts, settings.ListedFiles),
	}, nil
}

func renderInventory(inventory []InventoryEntry, excerpts []Excerpt, listedFiles int) string {
	var payload strings.Builder
	fmt.Fprintf(&payload, inventoryHeadingTemplateConstant, len(inventory))
	for index, entry := range inventory {
		if index >= listedFiles {
			fmt.Fprintf(&payload, inventoryRemainderTemplateConstant, len(inventory)-listedFiles)
			break
		}
		fmt.Fprintf(&payload, inventoryEntryTemplateConstant, entry.Path, entry.LineCount)
	}

	if len(excerpts) == 0 {
		return payload.String()
	}

	payload.WriteString(excerptsHeadingConstant)
	for _, excerpt := range excerpts {
		fmt.Fprintf(&payload, excerptHeadingTemplateConstant, excerpt.Path)
		payload.WriteString(excerptFenceConstant + lineBreakConstant)
		payload.WriteString(excerpt.Content)
		if !strings.HasSuffix(excerpt.Content, lineBreakConstant) {
			payload.WriteString(lineBreakConstant)
		}
		payload.WriteString(excerptFenceConstant + lineBreakConstant)
	}
	return payload.String()
}

func countLines(contents []byte) int {
	if len(contents) == 0 {
		return 0
	}
	lineCount := bytes.Count(contents, []byte(lineBreakConstant))
	if !bytes.HasSuffix(contents, []byte(lineBreakConstant)) {
		lineCount++
	}
	return lineCount
}

func leadingLines(contents []byte, lineLimit int) string {
	lines := strings.SplitAfter(string(contents), lineBreakConstant)
	if len(lines) > lineLimit {
		lines = lines[:lineLimit]
	}
	return strings.Join(lines, "")
}
