package audit_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/gitaudit/internal/audit"
	"github.com/temirov/gitaudit/internal/execshell"
)

const (
	commandTestMainBranch      = "main"
	commandTestFeatureBranch   = "feature"
	commandTestModelAnswer     = "### Key Changes\n- helper added"
	commandTestLLMResponseBody = `{"choices":[{"message":{"role":"assistant","content":"### Key Changes\n- helper added"}}]}`
	commandTestReportPattern   = "audit_report_*.md"
)

type missingToolLocator struct{}

func (missingToolLocator) LookPath(name execshell.CommandName) (string, error) {
	return "", exec.ErrNotFound
}

type cannedHTTPClient struct {
	statusCode int
	body       string
	requests   int
}

func (client *cannedHTTPClient) Do(request *http.Request) (*http.Response, error) {
	client.requests++
	return &http.Response{
		StatusCode: client.statusCode,
		Body:       io.NopCloser(strings.NewReader(client.body)),
		Header:     make(http.Header),
	}, nil
}

func runGit(testInstance *testing.T, repositoryPath string, arguments ...string) string {
	testInstance.Helper()
	command := exec.Command("git", arguments...)
	command.Dir = repositoryPath
	command.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Audit Tester",
		"GIT_AUTHOR_EMAIL=audit@example.com",
		"GIT_COMMITTER_NAME=Audit Tester",
		"GIT_COMMITTER_EMAIL=audit@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	output, runError := command.CombinedOutput()
	if runError != nil {
		testInstance.Fatalf("git %s failed: %v\n%s", strings.Join(arguments, " "), runError, output)
	}
	return strings.TrimSpace(string(output))
}

func writeRepositoryFile(testInstance *testing.T, repositoryPath string, relativePath string, contents string) {
	testInstance.Helper()
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, relativePath), []byte(contents), 0o644))
}

// initializeRepository creates main with one commit and checks out feature with a second commit.
func initializeRepository(testInstance *testing.T) string {
	testInstance.Helper()
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}

	repositoryPath := testInstance.TempDir()
	runGit(testInstance, repositoryPath, "init", "--quiet")
	runGit(testInstance, repositoryPath, "symbolic-ref", "HEAD", "refs/heads/"+commandTestMainBranch)
	writeRepositoryFile(testInstance, repositoryPath, "main.go", "package main\n\nfunc main() {}\n")
	runGit(testInstance, repositoryPath, "add", ".")
	runGit(testInstance, repositoryPath, "commit", "--quiet", "-m", "initial")

	runGit(testInstance, repositoryPath, "checkout", "--quiet", "-b", commandTestFeatureBranch)
	writeRepositoryFile(testInstance, repositoryPath, "helper.go", "package main\n\nfunc helper() int {\n\treturn 1\n}\n")
	runGit(testInstance, repositoryPath, "add", ".")
	runGit(testInstance, repositoryPath, "commit", "--quiet", "-m", "add helper")
	return repositoryPath
}

func executeAuditCommand(testInstance *testing.T, repositoryPath string, httpClient *cannedHTTPClient, arguments ...string) (string, error) {
	testInstance.Helper()
	builder := audit.CommandBuilder{
		LoggerProvider:   func() *zap.Logger { return zap.NewNop() },
		ToolLocator:      missingToolLocator{},
		HTTPClient:       httpClient,
		WorkingDirectory: repositoryPath,
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	var output bytes.Buffer
	command.SetOut(&output)
	command.SetErr(&output)
	command.SetArgs(arguments)
	command.SetContext(context.Background())
	executionError := command.Execute()
	return output.String(), executionError
}

func reportFiles(testInstance *testing.T, outputDirectory string) []string {
	testInstance.Helper()
	matches, globError := filepath.Glob(filepath.Join(outputDirectory, commandTestReportPattern))
	require.NoError(testInstance, globError)
	return matches
}

func TestCommandIdenticalReferencesReportNoChanges(testInstance *testing.T) {
	repositoryPath := initializeRepository(testInstance)
	outputDirectory := filepath.Join(testInstance.TempDir(), "reports")
	httpClient := &cannedHTTPClient{statusCode: http.StatusOK, body: commandTestLLMResponseBody}

	output, executionError := executeAuditCommand(testInstance, repositoryPath, httpClient, "--output-dir", outputDirectory, "HEAD")
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "No changes detected")
	require.Empty(testInstance, reportFiles(testInstance, outputDirectory))
	require.Zero(testInstance, httpClient.requests)
}

func TestCommandDiffModeWritesReport(testInstance *testing.T) {
	repositoryPath := initializeRepository(testInstance)
	outputDirectory := filepath.Join(testInstance.TempDir(), "reports")
	httpClient := &cannedHTTPClient{statusCode: http.StatusOK, body: commandTestLLMResponseBody}

	output, executionError := executeAuditCommand(testInstance, repositoryPath, httpClient, "--output-dir", outputDirectory, commandTestMainBranch)
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "Audit report written to")

	files := reportFiles(testInstance, outputDirectory)
	require.Len(testInstance, files, 1)
	contents, readError := os.ReadFile(files[0])
	require.NoError(testInstance, readError)
	markdown := string(contents)

	require.Contains(testInstance, markdown, "# Code Audit Report")
	require.Contains(testInstance, markdown, "- Added lines: 5")
	require.Contains(testInstance, markdown, "- Removed lines: 0")
	require.Contains(testInstance, markdown, commandTestModelAnswer)
	require.Contains(testInstance, markdown, "No supported dependency manifest found.")
	require.NotContains(testInstance, markdown, "## Static Analysis")
	require.NotContains(testInstance, markdown, "## Smart-Contract Audit")
	require.Equal(testInstance, 2, httpClient.requests)
}

func TestCommandFromSubdirectoryAuditsRepositoryRoot(testInstance *testing.T) {
	repositoryPath := initializeRepository(testInstance)
	contractsPath := filepath.Join(repositoryPath, "contracts")
	require.NoError(testInstance, os.MkdirAll(contractsPath, 0o755))
	writeRepositoryFile(testInstance, repositoryPath, filepath.Join("contracts", "Token.sol"), "pragma solidity ^0.8.0;\n\ncontract Token {}\n")
	runGit(testInstance, repositoryPath, "add", ".")
	runGit(testInstance, repositoryPath, "commit", "--quiet", "-m", "add token")

	outputDirectory := testInstance.TempDir()
	httpClient := &cannedHTTPClient{statusCode: http.StatusOK, body: commandTestLLMResponseBody}

	_, executionError := executeAuditCommand(testInstance, contractsPath, httpClient, "--output-dir", outputDirectory, commandTestMainBranch)
	require.NoError(testInstance, executionError)

	files := reportFiles(testInstance, outputDirectory)
	require.Len(testInstance, files, 1)
	contents, readError := os.ReadFile(files[0])
	require.NoError(testInstance, readError)
	markdown := string(contents)

	require.Contains(testInstance, markdown, "pip install slither-analyzer")
	require.NotContains(testInstance, markdown, "no Solidity files")
	require.Contains(testInstance, markdown, "- Added lines: 8")
}

func TestCommandOutsideRepositoryFails(testInstance *testing.T) {
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
	testInstance.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(testInstance.TempDir()))
	outputDirectory := testInstance.TempDir()
	httpClient := &cannedHTTPClient{statusCode: http.StatusOK, body: commandTestLLMResponseBody}

	_, executionError := executeAuditCommand(testInstance, testInstance.TempDir(), httpClient, "--output-dir", outputDirectory)
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "resolve repository root")
	require.Empty(testInstance, reportFiles(testInstance, outputDirectory))
}

func TestCommandLanguageModelFailureDegradesToPlaceholder(testInstance *testing.T) {
	repositoryPath := initializeRepository(testInstance)
	outputDirectory := testInstance.TempDir()
	httpClient := &cannedHTTPClient{statusCode: http.StatusInternalServerError, body: "model crashed"}

	_, executionError := executeAuditCommand(testInstance, repositoryPath, httpClient, "--output-dir", outputDirectory, commandTestMainBranch)
	require.NoError(testInstance, executionError)

	files := reportFiles(testInstance, outputDirectory)
	require.Len(testInstance, files, 1)
	contents, readError := os.ReadFile(files[0])
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(contents), "**Summary generation failed.**")
	require.Contains(testInstance, string(contents), "endpoint returned HTTP 500")
}

func TestCommandFullModeRestoresOriginalBranch(testInstance *testing.T) {
	repositoryPath := initializeRepository(testInstance)
	outputDirectory := testInstance.TempDir()
	httpClient := &cannedHTTPClient{statusCode: http.StatusOK, body: commandTestLLMResponseBody}

	_, executionError := executeAuditCommand(testInstance, repositoryPath, httpClient, "--full", "--output-dir", outputDirectory, commandTestMainBranch)
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, commandTestFeatureBranch, runGit(testInstance, repositoryPath, "rev-parse", "--abbrev-ref", "HEAD"))

	files := reportFiles(testInstance, outputDirectory)
	require.Len(testInstance, files, 1)
	contents, readError := os.ReadFile(files[0])
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(contents), "- **Mode:** full")
	require.Contains(testInstance, string(contents), "_cloc skipped:")
}

func TestCommandInvalidReferenceListsAlternatives(testInstance *testing.T) {
	repositoryPath := initializeRepository(testInstance)
	outputDirectory := testInstance.TempDir()
	httpClient := &cannedHTTPClient{statusCode: http.StatusOK, body: commandTestLLMResponseBody}

	_, executionError := executeAuditCommand(testInstance, repositoryPath, httpClient, "--output-dir", outputDirectory, "does-not-exist")
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), `reference "does-not-exist" does not exist`)
	require.Contains(testInstance, executionError.Error(), "feature, main")
	require.Empty(testInstance, reportFiles(testInstance, outputDirectory))
}

func TestCommandRejectsExtraArguments(testInstance *testing.T) {
	builder := audit.CommandBuilder{WorkingDirectory: testInstance.TempDir()}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"main", "develop"})
	require.EqualError(testInstance, command.Execute(), "git-audit accepts at most one reference argument")
}

func TestCommandRegistersFlags(testInstance *testing.T) {
	builder := audit.CommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	fullFlag := command.Flags().Lookup("full")
	require.NotNil(testInstance, fullFlag)
	require.Equal(testInstance, "f", fullFlag.Shorthand)
	require.NotNil(testInstance, command.Flags().Lookup("output-dir"))

	cleanupFlag := command.Flags().Lookup("cleanup")
	require.NotNil(testInstance, cleanupFlag)
	require.Equal(testInstance, "true", cleanupFlag.NoOptDefVal)
}

func TestCommandRejectsInvalidToggleValue(testInstance *testing.T) {
	builder := audit.CommandBuilder{WorkingDirectory: testInstance.TempDir()}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"--full=sometimes"})
	executionError := command.Execute()
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), `invalid toggle value "sometimes"`)
}
