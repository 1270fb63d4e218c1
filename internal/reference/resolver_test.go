package reference_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitaudit/internal/reference"
)

const testRepositoryPathConstant = "/tmp/repository"

type stubRepository struct {
	commits          map[string]string
	previous         string
	branch           string
	headCommit       string
	branches         []string
	tags             []string
	checkoutFailures map[string]error
	checkouts        []string
}

func (repository *stubRepository) VerifyCommit(executionContext context.Context, repositoryPath string, candidate string) (bool, error) {
	_, exists := repository.commits[candidate]
	return exists, nil
}

func (repository *stubRepository) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	return repository.branch, nil
}

func (repository *stubRepository) CurrentCommit(executionContext context.Context, repositoryPath string) (string, error) {
	return repository.headCommit, nil
}

func (repository *stubRepository) ShortCommit(executionContext context.Context, repositoryPath string, candidate string) (string, error) {
	commit, exists := repository.commits[candidate]
	if !exists {
		return "", errors.New("unknown revision " + candidate)
	}
	return commit, nil
}

func (repository *stubRepository) PreviousReference(executionContext context.Context, repositoryPath string) (string, error) {
	return repository.previous, nil
}

func (repository *stubRepository) ListBranches(executionContext context.Context, repositoryPath string) ([]string, error) {
	return repository.branches, nil
}

func (repository *stubRepository) ListTags(executionContext context.Context, repositoryPath string) ([]string, error) {
	return repository.tags, nil
}

func (repository *stubRepository) Checkout(executionContext context.Context, repositoryPath string, target string) error {
	if failure, failing := repository.checkoutFailures[target]; failing {
		return failure
	}
	repository.checkouts = append(repository.checkouts, target)
	return nil
}

func TestResolveDiffModeFallbackOrder(testInstance *testing.T) {
	testCases := []struct {
		name              string
		commits           map[string]string
		previous          string
		expectedReference string
	}{
		{
			name:              "previous_reference_by_name",
			commits:           map[string]string{"@{-1}": "1111111", "feature": "1111111", "main": "2222222", "HEAD": "3333333"},
			previous:          "feature",
			expectedReference: "feature",
		},
		{
			name:              "previous_reference_without_name",
			commits:           map[string]string{"@{-1}": "1111111", "HEAD": "3333333"},
			expectedReference: "@{-1}",
		},
		{
			name:              "origin_main_before_main",
			commits:           map[string]string{"origin/main": "4444444", "main": "2222222", "HEAD": "3333333"},
			expectedReference: "origin/main",
		},
		{
			name:              "master_when_main_missing",
			commits:           map[string]string{"master": "5555555", "HEAD": "3333333"},
			expectedReference: "master",
		},
		{
			name:              "parent_of_head_last",
			commits:           map[string]string{"HEAD~1": "6666666", "HEAD": "3333333"},
			expectedReference: "HEAD~1",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repository := &stubRepository{commits: testCase.commits, previous: testCase.previous}
			resolver, creationError := reference.NewResolver(repository, testRepositoryPathConstant, nil)
			require.NoError(testInstance, creationError)

			target, resolveError := resolver.Resolve(context.Background(), reference.ModeDiff, "")
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedReference, target.Reference)
			require.Equal(testInstance, reference.SourceFallback, target.Source)
			require.Equal(testInstance, "3333333", target.HeadCommit)
			require.False(testInstance, target.CheckedOut)
		})
	}
}

func TestResolveDiffModeWithoutCandidates(testInstance *testing.T) {
	repository := &stubRepository{commits: map[string]string{"HEAD": "3333333"}}
	resolver, creationError := reference.NewResolver(repository, testRepositoryPathConstant, nil)
	require.NoError(testInstance, creationError)

	_, resolveError := resolver.Resolve(context.Background(), reference.ModeDiff, "")
	require.ErrorIs(testInstance, resolveError, reference.ErrNoFallbackReference)
	require.Contains(testInstance, resolveError.Error(), "origin/master")
}

func TestResolveExplicitReference(testInstance *testing.T) {
	testCases := []struct {
		name              string
		requested         string
		expectedReference string
		expectedSource    reference.Source
	}{
		{name: "local", requested: "v1.0.0", expectedReference: "v1.0.0", expectedSource: reference.SourceExplicit},
		{name: "remote_qualified", requested: "release", expectedReference: "origin/release", expectedSource: reference.SourceRemoteQualified},
		{name: "trimmed", requested: "  v1.0.0 ", expectedReference: "v1.0.0", expectedSource: reference.SourceExplicit},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repository := &stubRepository{commits: map[string]string{"v1.0.0": "7777777", "origin/release": "8888888", "HEAD": "3333333"}}
			resolver, creationError := reference.NewResolver(repository, testRepositoryPathConstant, nil)
			require.NoError(testInstance, creationError)

			target, resolveError := resolver.Resolve(context.Background(), reference.ModeDiff, testCase.requested)
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedReference, target.Reference)
			require.Equal(testInstance, testCase.expectedSource, target.Source)
			require.NotEmpty(testInstance, target.ReferenceCommit)
		})
	}
}

func TestResolveInvalidReferenceListsAlternatives(testInstance *testing.T) {
	repository := &stubRepository{
		commits:  map[string]string{"HEAD": "3333333"},
		branches: []string{"main", "origin/main"},
	}
	resolver, creationError := reference.NewResolver(repository, testRepositoryPathConstant, nil)
	require.NoError(testInstance, creationError)

	_, resolveError := resolver.Resolve(context.Background(), reference.ModeDiff, "nope")

	var invalidReference reference.InvalidReferenceError
	require.ErrorAs(testInstance, resolveError, &invalidReference)
	require.Equal(testInstance, "nope", invalidReference.Reference)
	require.Equal(testInstance,
		`reference "nope" does not exist locally or on origin; available branches: main, origin/main; available tags: none`,
		resolveError.Error(),
	)
}

func TestResolveFullModeChecksOutAndRestores(testInstance *testing.T) {
	testCases := []struct {
		name             string
		branch           string
		headCommit       string
		expectedOriginal string
	}{
		{name: "branch", branch: "feature", headCommit: "abcdef0123", expectedOriginal: "feature"},
		{name: "detached", branch: "", headCommit: "abcdef0123", expectedOriginal: "abcdef0123"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repository := &stubRepository{
				commits:    map[string]string{"v1.0.0": "7777777", "HEAD": "7777777"},
				branch:     testCase.branch,
				headCommit: testCase.headCommit,
			}
			resolver, creationError := reference.NewResolver(repository, testRepositoryPathConstant, nil)
			require.NoError(testInstance, creationError)

			target, resolveError := resolver.Resolve(context.Background(), reference.ModeFull, "v1.0.0")
			require.NoError(testInstance, resolveError)
			require.True(testInstance, target.CheckedOut)
			require.Equal(testInstance, testCase.expectedOriginal, target.OriginalReference)

			require.NoError(testInstance, resolver.Restore(context.Background(), target))
			require.Equal(testInstance, []string{"v1.0.0", testCase.expectedOriginal}, repository.checkouts)
		})
	}
}

func TestResolveFullModeWithoutReferenceAuditsWorkingTree(testInstance *testing.T) {
	repository := &stubRepository{commits: map[string]string{"HEAD": "3333333"}}
	resolver, creationError := reference.NewResolver(repository, testRepositoryPathConstant, nil)
	require.NoError(testInstance, creationError)

	target, resolveError := resolver.Resolve(context.Background(), reference.ModeFull, "")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, reference.SourceWorkingTree, target.Source)
	require.False(testInstance, target.CheckedOut)
	require.Equal(testInstance, "3333333", target.HeadCommit)

	require.NoError(testInstance, resolver.Restore(context.Background(), target))
	require.Empty(testInstance, repository.checkouts)
}

func TestRestoreWrapsCheckoutFailure(testInstance *testing.T) {
	repository := &stubRepository{checkoutFailures: map[string]error{"main": errors.New("dirty tree")}}
	resolver, creationError := reference.NewResolver(repository, testRepositoryPathConstant, nil)
	require.NoError(testInstance, creationError)

	restoreError := resolver.Restore(context.Background(), reference.Target{CheckedOut: true, OriginalReference: "main"})
	require.ErrorContains(testInstance, restoreError, "dirty tree")
}

func TestNewResolverRequiresRepository(testInstance *testing.T) {
	_, creationError := reference.NewResolver(nil, testRepositoryPathConstant, nil)
	require.ErrorIs(testInstance, creationError, reference.ErrRepositoryNotConfigured)
}
