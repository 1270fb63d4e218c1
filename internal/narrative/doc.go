// Package narrative renders the summary and security prompts for a change set
// and asks the language model for the corresponding report narratives.
package narrative
