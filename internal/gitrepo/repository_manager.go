package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/gitaudit/internal/execshell"
)

const (
	gitRevParseSubcommandConstant        = "rev-parse"
	gitDiffSubcommandConstant            = "diff"
	gitCheckoutSubcommandConstant        = "checkout"
	gitForEachRefSubcommandConstant      = "for-each-ref"
	gitVerifyFlagConstant                = "--verify"
	gitQuietFlagConstant                 = "--quiet"
	gitAbbrevRefFlagConstant             = "--abbrev-ref"
	gitShortFlagConstant                 = "--short"
	gitNameOnlyFlagConstant              = "--name-only"
	gitShortStatFlagConstant             = "--shortstat"
	gitFormatRefNameFlagConstant         = "--format=%(refname:short)"
	gitBranchReferencePrefixConstant     = "refs/heads"
	gitRemoteReferencePrefixConstant     = "refs/remotes"
	gitTagReferencePrefixConstant        = "refs/tags"
	gitCommitPeelSuffixConstant          = "^{commit}"
	gitHeadReferenceConstant             = "HEAD"
	gitPathSeparatorConstant             = "--"
	gitShowTopLevelFlagConstant          = "--show-toplevel"
	previousReferenceExpressionConstant  = "@{-1}"
	outputLineSeparatorConstant          = "\n"
	executorNotConfiguredMessageConstant = "git executor not configured"
	repositoryPathRequiredMessage        = "repository path must be provided"
	referenceRequiredMessage             = "reference must be provided"
	operationErrorTemplateConstant       = "%s: %w"
	verifyOperationNameConstant          = "verify reference"
	currentBranchOperationNameConstant   = "resolve current branch"
	shortCommitOperationNameConstant     = "resolve short commit"
	previousOperationNameConstant        = "resolve previous reference"
	diffOperationNameConstant            = "collect diff"
	changedPathsOperationNameConstant    = "collect changed paths"
	shortStatOperationNameConstant       = "collect change statistics"
	listBranchesOperationNameConstant    = "list branches"
	listTagsOperationNameConstant        = "list tags"
	checkoutOperationNameConstant        = "checkout reference"
	currentCommitOperationNameConstant   = "resolve current commit"
	topLevelOperationNameConstant        = "resolve repository root"
)

// ErrGitExecutorNotConfigured indicates that the repository manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrRepositoryPathRequired indicates that a repository path argument was empty.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessage)

// ErrReferenceRequired indicates that a reference argument was empty.
var ErrReferenceRequired = errors.New(referenceRequiredMessage)

// GitExecutor exposes the subset of shell execution used by the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager runs git plumbing commands against a working tree.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager backed by the executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// VerifyCommit reports whether the reference names a commit. Unknown references yield false without error.
func (manager *RepositoryManager) VerifyCommit(executionContext context.Context, repositoryPath string, reference string) (bool, error) {
	if validationError := validateArguments(repositoryPath, reference); validationError != nil {
		return false, validationError
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, reference + gitCommitPeelSuffixConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError == nil {
		return true, nil
	}

	var failure execshell.CommandFailedError
	if errors.As(executionError, &failure) {
		return false, nil
	}
	return false, fmt.Errorf(operationErrorTemplateConstant, verifyOperationNameConstant, executionError)
}

// CurrentBranch returns the checked-out branch name, or an empty string when HEAD is detached.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	if validationError := validateArguments(repositoryPath, gitHeadReferenceConstant); validationError != nil {
		return "", validationError
	}

	output, executionError := manager.revParse(executionContext, repositoryPath, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", fmt.Errorf(operationErrorTemplateConstant, currentBranchOperationNameConstant, executionError)
	}
	if output == gitHeadReferenceConstant {
		return "", nil
	}
	return output, nil
}

// CurrentCommit returns the full commit hash of HEAD.
func (manager *RepositoryManager) CurrentCommit(executionContext context.Context, repositoryPath string) (string, error) {
	if validationError := validateArguments(repositoryPath, gitHeadReferenceConstant); validationError != nil {
		return "", validationError
	}

	output, executionError := manager.revParse(executionContext, repositoryPath, gitVerifyFlagConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", fmt.Errorf(operationErrorTemplateConstant, currentCommitOperationNameConstant, executionError)
	}
	return output, nil
}

// ShortCommit returns the abbreviated hash of the commit the reference points at.
func (manager *RepositoryManager) ShortCommit(executionContext context.Context, repositoryPath string, reference string) (string, error) {
	if validationError := validateArguments(repositoryPath, reference); validationError != nil {
		return "", validationError
	}

	output, executionError := manager.revParse(executionContext, repositoryPath, gitShortFlagConstant, reference+gitCommitPeelSuffixConstant)
	if executionError != nil {
		return "", fmt.Errorf(operationErrorTemplateConstant, shortCommitOperationNameConstant, executionError)
	}
	return output, nil
}

// PreviousReference returns the symbolic name of the previously checked-out reference.
// An empty string is returned when the previous reference has no symbolic name or does not exist.
func (manager *RepositoryManager) PreviousReference(executionContext context.Context, repositoryPath string) (string, error) {
	if validationError := validateArguments(repositoryPath, previousReferenceExpressionConstant); validationError != nil {
		return "", validationError
	}

	output, executionError := manager.revParse(executionContext, repositoryPath, gitAbbrevRefFlagConstant, previousReferenceExpressionConstant)
	if executionError != nil {
		var failure execshell.CommandFailedError
		if errors.As(executionError, &failure) {
			return "", nil
		}
		return "", fmt.Errorf(operationErrorTemplateConstant, previousOperationNameConstant, executionError)
	}
	return output, nil
}

// Diff returns the unified diff between the reference and HEAD.
func (manager *RepositoryManager) Diff(executionContext context.Context, repositoryPath string, reference string) (string, error) {
	if validationError := validateArguments(repositoryPath, reference); validationError != nil {
		return "", validationError
	}

	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitDiffSubcommandConstant, reference, gitHeadReferenceConstant, gitPathSeparatorConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", fmt.Errorf(operationErrorTemplateConstant, diffOperationNameConstant, executionError)
	}
	return result.StandardOutput, nil
}

// ChangedPaths returns the ordered paths that differ between the reference and HEAD.
func (manager *RepositoryManager) ChangedPaths(executionContext context.Context, repositoryPath string, reference string) ([]string, error) {
	if validationError := validateArguments(repositoryPath, reference); validationError != nil {
		return nil, validationError
	}

	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitDiffSubcommandConstant, gitNameOnlyFlagConstant, reference, gitHeadReferenceConstant, gitPathSeparatorConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return nil, fmt.Errorf(operationErrorTemplateConstant, changedPathsOperationNameConstant, executionError)
	}
	return splitOutputLines(result.StandardOutput), nil
}

// ShortStat returns the one-line change summary between the reference and HEAD.
func (manager *RepositoryManager) ShortStat(executionContext context.Context, repositoryPath string, reference string) (string, error) {
	if validationError := validateArguments(repositoryPath, reference); validationError != nil {
		return "", validationError
	}

	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitDiffSubcommandConstant, gitShortStatFlagConstant, reference, gitHeadReferenceConstant, gitPathSeparatorConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", fmt.Errorf(operationErrorTemplateConstant, shortStatOperationNameConstant, executionError)
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

// TopLevel returns the absolute root of the working tree containing repositoryPath.
func (manager *RepositoryManager) TopLevel(executionContext context.Context, repositoryPath string) (string, error) {
	if validationError := validateArguments(repositoryPath, gitHeadReferenceConstant); validationError != nil {
		return "", validationError
	}

	output, executionError := manager.revParse(executionContext, repositoryPath, gitShowTopLevelFlagConstant)
	if executionError != nil {
		return "", fmt.Errorf(operationErrorTemplateConstant, topLevelOperationNameConstant, executionError)
	}
	return output, nil
}

// ListBranches returns local and remote-tracking branch names.
func (manager *RepositoryManager) ListBranches(executionContext context.Context, repositoryPath string) ([]string, error) {
	names, listError := manager.listReferences(executionContext, repositoryPath, gitBranchReferencePrefixConstant, gitRemoteReferencePrefixConstant)
	if listError != nil {
		return nil, fmt.Errorf(operationErrorTemplateConstant, listBranchesOperationNameConstant, listError)
	}
	return names, nil
}

// ListTags returns tag names.
func (manager *RepositoryManager) ListTags(executionContext context.Context, repositoryPath string) ([]string, error) {
	names, listError := manager.listReferences(executionContext, repositoryPath, gitTagReferencePrefixConstant)
	if listError != nil {
		return nil, fmt.Errorf(operationErrorTemplateConstant, listTagsOperationNameConstant, listError)
	}
	return names, nil
}

// Checkout switches the working tree to the reference.
func (manager *RepositoryManager) Checkout(executionContext context.Context, repositoryPath string, reference string) error {
	if validationError := validateArguments(repositoryPath, reference); validationError != nil {
		return validationError
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCheckoutSubcommandConstant, gitQuietFlagConstant, reference},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return fmt.Errorf(operationErrorTemplateConstant, checkoutOperationNameConstant, executionError)
	}
	return nil
}

func (manager *RepositoryManager) revParse(executionContext context.Context, repositoryPath string, arguments ...string) (string, error) {
	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        append([]string{gitRevParseSubcommandConstant}, arguments...),
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

func (manager *RepositoryManager) listReferences(executionContext context.Context, repositoryPath string, prefixes ...string) ([]string, error) {
	if validationError := validateArguments(repositoryPath, gitHeadReferenceConstant); validationError != nil {
		return nil, validationError
	}

	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        append([]string{gitForEachRefSubcommandConstant, gitFormatRefNameFlagConstant}, prefixes...),
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return nil, executionError
	}

	names := make([]string, 0)
	for _, name := range splitOutputLines(result.StandardOutput) {
		if strings.HasSuffix(name, "/"+gitHeadReferenceConstant) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func validateArguments(repositoryPath string, reference string) error {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return ErrRepositoryPathRequired
	}
	if len(strings.TrimSpace(reference)) == 0 {
		return ErrReferenceRequired
	}
	return nil
}

func splitOutputLines(output string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(output, outputLineSeparatorConstant) {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines
}
