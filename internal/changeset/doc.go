// Package changeset gathers the material an audit narrates: a diff against a
// reference or an inventory of source files with excerpts. The rendered
// payload is truncated to a character budget before it leaves the package.
package changeset
