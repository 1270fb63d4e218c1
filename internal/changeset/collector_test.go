package changeset_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitaudit/internal/changeset"
	"github.com/temirov/gitaudit/internal/reference"
)

type stubDiffSource struct {
	diffs map[string]string
	paths map[string][]string
	err   error
}

func (source stubDiffSource) Diff(executionContext context.Context, repositoryPath string, comparisonReference string) (string, error) {
	if source.err != nil {
		return "", source.err
	}
	return source.diffs[comparisonReference], nil
}

func (source stubDiffSource) ChangedPaths(executionContext context.Context, repositoryPath string, comparisonReference string) ([]string, error) {
	return source.paths[comparisonReference], nil
}

func TestCollectDiffMode(testInstance *testing.T) {
	source := stubDiffSource{
		diffs: map[string]string{
			"main":    "diff --git a/app.go b/app.go\n+added\n",
			"release": "diff --git a/lib.go b/lib.go\n-removed\n",
			"HEAD":    "",
		},
		paths: map[string][]string{
			"main":    {"app.go"},
			"release": {"lib.go", "docs/guide.md"},
		},
	}
	collector, creationError := changeset.NewCollector(source, changeset.Settings{})
	require.NoError(testInstance, creationError)

	mainSet, mainError := collector.Collect(context.Background(), "/repo", reference.Target{Mode: reference.ModeDiff, Reference: "main"})
	require.NoError(testInstance, mainError)
	releaseSet, releaseError := collector.Collect(context.Background(), "/repo", reference.Target{Mode: reference.ModeDiff, Reference: "release"})
	require.NoError(testInstance, releaseError)

	require.Equal(testInstance, []string{"app.go"}, mainSet.ChangedPaths)
	require.Equal(testInstance, []string{"lib.go", "docs/guide.md"}, releaseSet.ChangedPaths)
	require.NotEqual(testInstance, mainSet.ChangedPaths, releaseSet.ChangedPaths)
	require.Contains(testInstance, releaseSet.Payload, "Changed files (2):\n- lib.go\n- docs/guide.md\n")
	require.Contains(testInstance, releaseSet.Payload, "-removed")
	require.False(testInstance, releaseSet.Truncated)

	_, emptyError := collector.Collect(context.Background(), "/repo", reference.Target{Mode: reference.ModeDiff, Reference: "HEAD"})
	require.ErrorIs(testInstance, emptyError, changeset.ErrNoChanges)
}

func TestCollectDiffModeTruncatesPayload(testInstance *testing.T) {
	source := stubDiffSource{
		diffs: map[string]string{"main": "diff --git a/big b/big\n" + strings.Repeat("+x\n", 5000)},
		paths: map[string][]string{"main": {"big"}},
	}
	collector, creationError := changeset.NewCollector(source, changeset.Settings{CharacterBudget: 500})
	require.NoError(testInstance, creationError)

	collected, collectError := collector.Collect(context.Background(), "/repo", reference.Target{Mode: reference.ModeDiff, Reference: "main"})
	require.NoError(testInstance, collectError)
	require.True(testInstance, collected.Truncated)
	require.Len(testInstance, []rune(collected.Payload), 500)
	require.True(testInstance, strings.HasSuffix(collected.Payload, changeset.TruncationMarker(500)))
	require.Greater(testInstance, len(collected.DiffText), 500)
}

func TestCollectDiffModeWrapsSourceErrors(testInstance *testing.T) {
	collector, creationError := changeset.NewCollector(stubDiffSource{err: errors.New("bad object")}, changeset.Settings{})
	require.NoError(testInstance, creationError)

	_, collectError := collector.Collect(context.Background(), "/repo", reference.Target{Mode: reference.ModeDiff, Reference: "main"})
	require.ErrorContains(testInstance, collectError, "bad object")
	require.NotErrorIs(testInstance, collectError, changeset.ErrNoChanges)
}

func TestCollectFullMode(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()
	writeFile(testInstance, repositoryRoot, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(testInstance, repositoryRoot, "internal/service.py", strings.Repeat("print('x')\n", 40))
	writeFile(testInstance, repositoryRoot, "README.md", "# readme\n")
	writeFile(testInstance, repositoryRoot, "node_modules/dep/index.js", "module.exports = {}\n")
	writeFile(testInstance, repositoryRoot, "vendor/lib/lib.go", "package lib\n")

	collector, creationError := changeset.NewCollector(stubDiffSource{}, changeset.Settings{ExcerptLines: 30})
	require.NoError(testInstance, creationError)

	collected, collectError := collector.Collect(context.Background(), repositoryRoot, reference.Target{Mode: reference.ModeFull})
	require.NoError(testInstance, collectError)

	require.Equal(testInstance, []changeset.InventoryEntry{
		{Path: "internal/service.py", LineCount: 40},
		{Path: "main.go", LineCount: 3},
	}, collected.Inventory)
	require.Len(testInstance, collected.Excerpts, 2)
	require.Equal(testInstance, 30, strings.Count(collected.Excerpts[0].Content, "\n"))
	require.Contains(testInstance, collected.Payload, "Source inventory (2 files):\n- internal/service.py (40 lines)\n- main.go (3 lines)\n")
	require.Contains(testInstance, collected.Payload, "### main.go")
	require.NotContains(testInstance, collected.Payload, "node_modules")
	require.NotContains(testInstance, collected.Payload, "README.md")
}

func TestCollectFullModeCapsInventory(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()
	for index := 0; index < 120; index++ {
		writeFile(testInstance, repositoryRoot, fmt.Sprintf("pkg/file_%03d.go", index), "package pkg\n")
	}

	collector, creationError := changeset.NewCollector(stubDiffSource{}, changeset.Settings{CharacterBudget: 100000})
	require.NoError(testInstance, creationError)

	collected, collectError := collector.Collect(context.Background(), repositoryRoot, reference.Target{Mode: reference.ModeFull})
	require.NoError(testInstance, collectError)
	require.Len(testInstance, collected.Inventory, 100)
	require.Len(testInstance, collected.Excerpts, 5)
	require.Equal(testInstance, "pkg/file_000.go", collected.Inventory[0].Path)
	require.Contains(testInstance, collected.Payload, "- pkg/file_049.go (1 lines)\n... and 50 more files\n")
	require.NotContains(testInstance, collected.Payload, "pkg/file_050.go (1 lines)")
}

func TestCollectFullModeWithoutSourceFiles(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()
	writeFile(testInstance, repositoryRoot, "notes.txt", "nothing to audit\n")

	collector, creationError := changeset.NewCollector(stubDiffSource{}, changeset.Settings{})
	require.NoError(testInstance, creationError)

	_, collectError := collector.Collect(context.Background(), repositoryRoot, reference.Target{Mode: reference.ModeFull})
	require.ErrorIs(testInstance, collectError, changeset.ErrNoSourceFiles)
}

func TestNewCollectorRequiresSource(testInstance *testing.T) {
	_, creationError := changeset.NewCollector(nil, changeset.Settings{})
	require.ErrorIs(testInstance, creationError, changeset.ErrDiffSourceNotConfigured)
}

func TestListFilesFiltersByExtension(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()
	writeFile(testInstance, repositoryRoot, "contracts/Token.sol", "pragma solidity ^0.8.0;\n")
	writeFile(testInstance, repositoryRoot, "contracts/Token.t.SOL", "pragma solidity ^0.8.0;\n")
	writeFile(testInstance, repositoryRoot, "lib/forge-std/Test.sol", "pragma solidity ^0.8.0;\n")
	writeFile(testInstance, repositoryRoot, "app.go", "package app\n")

	files, listError := changeset.ListFiles(repositoryRoot, changeset.DefaultExcludedDirectories(), changeset.ExtensionFilter([]string{"sol"}), 0)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"contracts/Token.sol", "contracts/Token.t.SOL"}, files)
}

func writeFile(testInstance *testing.T, root string, relativePath string, contents string) {
	testInstance.Helper()
	absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
	require.NoError(testInstance, os.WriteFile(absolutePath, []byte(contents), 0o644))
}
