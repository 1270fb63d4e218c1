// Package gitrepo contains helpers for interrogating and manipulating Git repositories.
//
// It exposes RepositoryManager for verifying references, collecting diffs and
// changed paths, enumerating branches and tags, and switching the working tree
// between references.
package gitrepo
