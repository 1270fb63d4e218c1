// Package llm sends system and user prompts to an OpenAI-compatible
// chat-completion endpoint and converts every outcome, including failures,
// into a report.Outcome.
package llm
