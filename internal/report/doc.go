// Package report defines the uniform section outcome type and assembles audit
// sections into a timestamped Markdown document.
package report
