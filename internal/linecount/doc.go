// Package linecount reports line statistics: added and removed lines for diff
// audits and repository totals from cloc for full audits.
package linecount
