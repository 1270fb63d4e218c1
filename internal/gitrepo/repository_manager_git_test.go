package gitrepo_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/gitaudit/internal/execshell"
	"github.com/temirov/gitaudit/internal/gitrepo"
)

func runRepositoryGit(testInstance *testing.T, repositoryPath string, arguments ...string) {
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
}

// newGitBackedManager creates a repository whose main branch shares its name with a tracked file,
// plus a feature branch holding one extra commit.
func newGitBackedManager(testInstance *testing.T) (*gitrepo.RepositoryManager, string) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}

	repositoryPath := testInstance.TempDir()
	runRepositoryGit(testInstance, repositoryPath, "init", "--quiet")
	runRepositoryGit(testInstance, repositoryPath, "symbolic-ref", "HEAD", "refs/heads/main")
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, "main"), []byte("first\n"), 0o644))
	runRepositoryGit(testInstance, repositoryPath, "add", ".")
	runRepositoryGit(testInstance, repositoryPath, "commit", "--quiet", "-m", "initial")

	runRepositoryGit(testInstance, repositoryPath, "checkout", "--quiet", "-b", "feature")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, "contracts"), 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, "contracts", "Token.sol"), []byte("contract Token {}\n"), 0o644))
	runRepositoryGit(testInstance, repositoryPath, "add", ".")
	runRepositoryGit(testInstance, repositoryPath, "commit", "--quiet", "-m", "add token")

	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner(), nil)
	require.NoError(testInstance, executorError)
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)
	return manager, repositoryPath
}

func TestDiffQueriesAcceptReferenceNamedLikeFile(testInstance *testing.T) {
	manager, repositoryPath := newGitBackedManager(testInstance)
	executionContext := context.Background()

	found, verifyError := manager.VerifyCommit(executionContext, repositoryPath, "main")
	require.NoError(testInstance, verifyError)
	require.True(testInstance, found)

	diffText, diffError := manager.Diff(executionContext, repositoryPath, "main")
	require.NoError(testInstance, diffError)
	require.Contains(testInstance, diffText, "contracts/Token.sol")

	paths, pathsError := manager.ChangedPaths(executionContext, repositoryPath, "main")
	require.NoError(testInstance, pathsError)
	require.Equal(testInstance, []string{"contracts/Token.sol"}, paths)

	stat, statError := manager.ShortStat(executionContext, repositoryPath, "main")
	require.NoError(testInstance, statError)
	require.Contains(testInstance, stat, "1 file changed")
}

func TestTopLevelResolvesRepositoryRootFromSubdirectory(testInstance *testing.T) {
	manager, repositoryPath := newGitBackedManager(testInstance)

	topLevel, topLevelError := manager.TopLevel(context.Background(), filepath.Join(repositoryPath, "contracts"))
	require.NoError(testInstance, topLevelError)

	expectedRoot, evaluationError := filepath.EvalSymlinks(repositoryPath)
	require.NoError(testInstance, evaluationError)
	actualRoot, actualEvaluationError := filepath.EvalSymlinks(topLevel)
	require.NoError(testInstance, actualEvaluationError)
	require.Equal(testInstance, expectedRoot, actualRoot)
}

func TestTopLevelOutsideRepositoryFails(testInstance *testing.T) {
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
	testInstance.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(testInstance.TempDir()))

	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner(), nil)
	require.NoError(testInstance, executorError)
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	_, topLevelError := manager.TopLevel(context.Background(), testInstance.TempDir())
	require.Error(testInstance, topLevelError)
	require.Contains(testInstance, topLevelError.Error(), "resolve repository root")
}
