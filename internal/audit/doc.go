// Package audit runs the git-audit pipeline: it resolves the audited
// reference, collects the change set, gathers line statistics, narratives and
// scanner output, and writes the assembled Markdown report.
//
// CommandBuilder wires the pipeline into a Cobra command, while Service drives
// it programmatically against injected collaborators.
package audit
