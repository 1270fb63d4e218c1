package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	previousReferenceExpressionConstant = "@{-1}"
	headReferenceConstant               = "HEAD"
	parentOfHeadReferenceConstant       = "HEAD~1"
	remoteQualifierTemplateConstant     = "origin/%s"
	noneListedMessageConstant           = "none"
	listSeparatorConstant               = ", "
	invalidReferenceTemplateConstant    = "reference %q does not exist locally or on origin; available branches: %s; available tags: %s"
	noFallbackReferenceMessageConstant  = "no comparison reference found"
	noFallbackReferenceTemplateConstant = "%w; tried %s"
	repositoryNotConfiguredMessage      = "reference resolver repository not configured"
	unsupportedModeTemplateConstant     = "unsupported audit mode: %s"
	resolutionErrorTemplateConstant     = "resolve reference %q: %w"
	originalReferenceErrorTemplate      = "record current reference: %w"
	checkoutErrorTemplateConstant       = "check out %q: %w"
	restoreErrorTemplateConstant        = "restore %q: %w"
	enumerationErrorTemplateConstant    = "list available references: %w"
	referenceResolvedLogMessageConstant = "Resolved audit reference"
	referenceCheckedOutLogMessage       = "Checked out audit reference"
	referenceRestoredLogMessageConstant = "Restored original reference"
	headCommitUnavailableLogMessage     = "HEAD commit unavailable"
	logFieldModeConstant                = "mode"
	logFieldRequestedReferenceConstant  = "requested_reference"
	logFieldResolvedReferenceConstant   = "resolved_reference"
	logFieldResolutionSourceConstant    = "resolution_source"
	logFieldOriginalReferenceConstant   = "original_reference"
	logFieldRepositoryPathConstant      = "repository_path"
	fallbackCandidatesSeparatorConstant = ", "
)

// Mode selects between auditing changes and auditing a whole snapshot.
type Mode string

// Supported audit modes.
const (
	ModeDiff Mode = "diff"
	ModeFull Mode = "full"
)

// Source records how the audited reference was chosen.
type Source string

// Resolution sources.
const (
	SourceExplicit        Source = "explicit"
	SourceRemoteQualified Source = "remote-qualified"
	SourceFallback        Source = "fallback"
	SourceWorkingTree     Source = "working-tree"
)

// ErrRepositoryNotConfigured indicates that the resolver was constructed without a repository.
var ErrRepositoryNotConfigured = errors.New(repositoryNotConfiguredMessage)

// ErrNoFallbackReference indicates that none of the default comparison references exist.
var ErrNoFallbackReference = errors.New(noFallbackReferenceMessageConstant)

// InvalidReferenceError reports a reference that resolves neither locally nor on origin.
type InvalidReferenceError struct {
	Reference string
	Branches  []string
	Tags      []string
}

// Error lists the references the user could have meant.
func (referenceError InvalidReferenceError) Error() string {
	return fmt.Sprintf(invalidReferenceTemplateConstant, referenceError.Reference, joinOrNone(referenceError.Branches), joinOrNone(referenceError.Tags))
}

// Repository exposes the git queries the resolver relies on.
type Repository interface {
	VerifyCommit(executionContext context.Context, repositoryPath string, reference string) (bool, error)
	CurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	CurrentCommit(executionContext context.Context, repositoryPath string) (string, error)
	ShortCommit(executionContext context.Context, repositoryPath string, reference string) (string, error)
	PreviousReference(executionContext context.Context, repositoryPath string) (string, error)
	ListBranches(executionContext context.Context, repositoryPath string) ([]string, error)
	ListTags(executionContext context.Context, repositoryPath string) ([]string, error)
	Checkout(executionContext context.Context, repositoryPath string, reference string) error
}

// Target is the outcome of resolution consumed by every later audit stage.
type Target struct {
	Mode               Mode
	RequestedReference string
	Reference          string
	ReferenceCommit    string
	HeadCommit         string
	Source             Source
	OriginalReference  string
	CheckedOut         bool
}

// Resolver picks and validates audit references for one repository.
type Resolver struct {
	repository         Repository
	repositoryPath     string
	logger             *zap.Logger
	fallbackReferences []string
}

// DefaultFallbackReferences lists the diff-mode comparison candidates tried when no reference is given.
func DefaultFallbackReferences() []string {
	return []string{previousReferenceExpressionConstant, "origin/main", "main", "origin/master", "master", parentOfHeadReferenceConstant}
}

// NewResolver constructs a Resolver for the repository rooted at repositoryPath.
func NewResolver(repository Repository, repositoryPath string, logger *zap.Logger) (*Resolver, error) {
	if repository == nil {
		return nil, ErrRepositoryNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		repository:         repository,
		repositoryPath:     repositoryPath,
		logger:             logger,
		fallbackReferences: DefaultFallbackReferences(),
	}, nil
}

// Resolve determines the audit target. In full mode with a reference the working tree is checked out,
// and callers must pass the returned Target to Restore on every exit path, including when Resolve
// fails after the checkout happened.
func (resolver *Resolver) Resolve(executionContext context.Context, mode Mode, requestedReference string) (Target, error) {
	trimmedReference := strings.TrimSpace(requestedReference)

	switch mode {
	case ModeDiff:
		return resolver.resolveDiff(executionContext, trimmedReference)
	case ModeFull:
		return resolver.resolveFull(executionContext, trimmedReference)
	default:
		return Target{}, fmt.Errorf(unsupportedModeTemplateConstant, mode)
	}
}

// Restore checks the original reference back out when Resolve performed a checkout.
func (resolver *Resolver) Restore(executionContext context.Context, target Target) error {
	if !target.CheckedOut || len(target.OriginalReference) == 0 {
		return nil
	}
	if checkoutError := resolver.repository.Checkout(executionContext, resolver.repositoryPath, target.OriginalReference); checkoutError != nil {
		return fmt.Errorf(restoreErrorTemplateConstant, target.OriginalReference, checkoutError)
	}
	resolver.logger.Info(referenceRestoredLogMessageConstant,
		zap.String(logFieldOriginalReferenceConstant, target.OriginalReference),
		zap.String(logFieldRepositoryPathConstant, resolver.repositoryPath),
	)
	return nil
}

func (resolver *Resolver) resolveDiff(executionContext context.Context, requestedReference string) (Target, error) {
	target := Target{Mode: ModeDiff, RequestedReference: requestedReference}

	var resolveError error
	if len(requestedReference) == 0 {
		target.Reference, resolveError = resolver.resolveFallback(executionContext)
		target.Source = SourceFallback
	} else {
		target.Reference, target.Source, resolveError = resolver.validate(executionContext, requestedReference)
	}
	if resolveError != nil {
		return Target{}, resolveError
	}

	referenceCommit, referenceCommitError := resolver.repository.ShortCommit(executionContext, resolver.repositoryPath, target.Reference)
	if referenceCommitError != nil {
		return Target{}, fmt.Errorf(resolutionErrorTemplateConstant, target.Reference, referenceCommitError)
	}
	target.ReferenceCommit = referenceCommit

	headCommit, headCommitError := resolver.repository.ShortCommit(executionContext, resolver.repositoryPath, headReferenceConstant)
	if headCommitError != nil {
		return Target{}, fmt.Errorf(resolutionErrorTemplateConstant, headReferenceConstant, headCommitError)
	}
	target.HeadCommit = headCommit

	resolver.logResolution(target)
	return target, nil
}

func (resolver *Resolver) resolveFull(executionContext context.Context, requestedReference string) (Target, error) {
	target := Target{Mode: ModeFull, RequestedReference: requestedReference, Source: SourceWorkingTree}

	if len(requestedReference) == 0 {
		headCommit, headCommitError := resolver.repository.ShortCommit(executionContext, resolver.repositoryPath, headReferenceConstant)
		if headCommitError != nil {
			resolver.logger.Warn(headCommitUnavailableLogMessage, zap.String(logFieldRepositoryPathConstant, resolver.repositoryPath), zap.Error(headCommitError))
		}
		target.HeadCommit = headCommit
		resolver.logResolution(target)
		return target, nil
	}

	resolvedReference, source, validationError := resolver.validate(executionContext, requestedReference)
	if validationError != nil {
		return Target{}, validationError
	}
	target.Reference = resolvedReference
	target.Source = source

	originalReference, originalError := resolver.currentReference(executionContext)
	if originalError != nil {
		return Target{}, fmt.Errorf(originalReferenceErrorTemplate, originalError)
	}

	if checkoutError := resolver.repository.Checkout(executionContext, resolver.repositoryPath, resolvedReference); checkoutError != nil {
		return Target{}, fmt.Errorf(checkoutErrorTemplateConstant, resolvedReference, checkoutError)
	}
	target.OriginalReference = originalReference
	target.CheckedOut = true
	resolver.logger.Info(referenceCheckedOutLogMessage,
		zap.String(logFieldResolvedReferenceConstant, resolvedReference),
		zap.String(logFieldOriginalReferenceConstant, originalReference),
	)

	headCommit, headCommitError := resolver.repository.ShortCommit(executionContext, resolver.repositoryPath, headReferenceConstant)
	if headCommitError != nil {
		return target, fmt.Errorf(resolutionErrorTemplateConstant, headReferenceConstant, headCommitError)
	}
	target.HeadCommit = headCommit
	target.ReferenceCommit = headCommit

	resolver.logResolution(target)
	return target, nil
}

func (resolver *Resolver) validate(executionContext context.Context, requestedReference string) (string, Source, error) {
	exists, verifyError := resolver.repository.VerifyCommit(executionContext, resolver.repositoryPath, requestedReference)
	if verifyError != nil {
		return "", "", fmt.Errorf(resolutionErrorTemplateConstant, requestedReference, verifyError)
	}
	if exists {
		return requestedReference, SourceExplicit, nil
	}

	remoteReference := fmt.Sprintf(remoteQualifierTemplateConstant, requestedReference)
	remoteExists, remoteVerifyError := resolver.repository.VerifyCommit(executionContext, resolver.repositoryPath, remoteReference)
	if remoteVerifyError != nil {
		return "", "", fmt.Errorf(resolutionErrorTemplateConstant, remoteReference, remoteVerifyError)
	}
	if remoteExists {
		return remoteReference, SourceRemoteQualified, nil
	}

	branches, branchesError := resolver.repository.ListBranches(executionContext, resolver.repositoryPath)
	if branchesError != nil {
		return "", "", fmt.Errorf(enumerationErrorTemplateConstant, branchesError)
	}
	tags, tagsError := resolver.repository.ListTags(executionContext, resolver.repositoryPath)
	if tagsError != nil {
		return "", "", fmt.Errorf(enumerationErrorTemplateConstant, tagsError)
	}
	return "", "", InvalidReferenceError{Reference: requestedReference, Branches: branches, Tags: tags}
}

func (resolver *Resolver) resolveFallback(executionContext context.Context) (string, error) {
	for _, candidate := range resolver.fallbackReferences {
		exists, verifyError := resolver.repository.VerifyCommit(executionContext, resolver.repositoryPath, candidate)
		if verifyError != nil {
			return "", fmt.Errorf(resolutionErrorTemplateConstant, candidate, verifyError)
		}
		if !exists {
			continue
		}
		if candidate != previousReferenceExpressionConstant {
			return candidate, nil
		}
		previousName, previousError := resolver.repository.PreviousReference(executionContext, resolver.repositoryPath)
		if previousError != nil || len(previousName) == 0 {
			return candidate, nil
		}
		return previousName, nil
	}
	return "", fmt.Errorf(noFallbackReferenceTemplateConstant, ErrNoFallbackReference, strings.Join(resolver.fallbackReferences, fallbackCandidatesSeparatorConstant))
}

func (resolver *Resolver) currentReference(executionContext context.Context) (string, error) {
	branch, branchError := resolver.repository.CurrentBranch(executionContext, resolver.repositoryPath)
	if branchError != nil {
		return "", branchError
	}
	if len(branch) > 0 {
		return branch, nil
	}
	return resolver.repository.CurrentCommit(executionContext, resolver.repositoryPath)
}

func (resolver *Resolver) logResolution(target Target) {
	resolver.logger.Info(referenceResolvedLogMessageConstant,
		zap.String(logFieldModeConstant, string(target.Mode)),
		zap.String(logFieldRequestedReferenceConstant, target.RequestedReference),
		zap.String(logFieldResolvedReferenceConstant, target.Reference),
		zap.String(logFieldResolutionSourceConstant, string(target.Source)),
	)
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return noneListedMessageConstant
	}
	return strings.Join(values, listSeparatorConstant)
}
