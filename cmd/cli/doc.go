// Package cli constructs the git-audit command-line interface, wiring the
// Cobra root command, configuration loader, and structured logging
// primitives. The root command runs the audit pipeline directly.
package cli
