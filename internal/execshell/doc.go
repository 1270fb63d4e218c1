// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with lifecycle logging via ShellExecutor, exposes
// OSCommandRunner for default process execution, PathToolLocator for tool
// availability checks, and CommandMessageFormatter for human-readable
// descriptions of git and scanner invocations.
package execshell
