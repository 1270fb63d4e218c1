package report

import (
	"fmt"
	"strings"
)

const (
	unavailableTemplateConstant    = "**%s is not installed.** Install: `%s`"
	unavailableWithoutHintTemplate = "**%s is not installed.**"
	failedTemplateConstant         = "**%s failed.**"
	skippedTemplateConstant        = "_%s skipped: %s_"
	hintTemplateConstant           = "\n\nInstall: `%s`"
	codeFenceConstant              = "```"
	paragraphSeparatorConstant     = "\n\n"
	lineBreakConstant              = "\n"
)

// Status classifies how a section's producer finished.
type Status string

// Outcome statuses.
const (
	StatusCompleted   Status = "completed"
	StatusEmpty       Status = "empty"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
)

// Outcome is the result of every report producer: line counts, narratives, and scanners.
type Outcome struct {
	Status Status
	Label  string
	Body   string
	Hint   string
}

// Completed wraps successful output that is embedded verbatim.
func Completed(body string) Outcome {
	return Outcome{Status: StatusCompleted, Body: body}
}

// Empty records a producer that ran and had nothing to report.
func Empty(statement string) Outcome {
	return Outcome{Status: StatusEmpty, Body: statement}
}

// Unavailable records a producer whose tool is not installed.
func Unavailable(label string, hint string) Outcome {
	return Outcome{Status: StatusUnavailable, Label: label, Hint: hint}
}

// Failed records a producer that could not finish, with the failure text for diagnosis.
func Failed(label string, detail string) Outcome {
	return Outcome{Status: StatusFailed, Label: label, Body: detail}
}

// Skipped records a producer that deliberately did not run.
func Skipped(label string, reason string, hint string) Outcome {
	return Outcome{Status: StatusSkipped, Label: label, Body: reason, Hint: hint}
}

// Render formats the outcome as Markdown. Every status shares this renderer.
func (outcome Outcome) Render() string {
	switch outcome.Status {
	case StatusUnavailable:
		if len(outcome.Hint) == 0 {
			return fmt.Sprintf(unavailableWithoutHintTemplate, outcome.Label)
		}
		return fmt.Sprintf(unavailableTemplateConstant, outcome.Label, outcome.Hint)
	case StatusFailed:
		rendered := fmt.Sprintf(failedTemplateConstant, outcome.Label)
		detail := strings.TrimSpace(outcome.Body)
		if len(detail) == 0 {
			return rendered
		}
		return rendered + paragraphSeparatorConstant + codeFenceConstant + lineBreakConstant + detail + lineBreakConstant + codeFenceConstant
	case StatusSkipped:
		rendered := fmt.Sprintf(skippedTemplateConstant, outcome.Label, strings.TrimSpace(outcome.Body))
		if len(outcome.Hint) == 0 {
			return rendered
		}
		return rendered + fmt.Sprintf(hintTemplateConstant, outcome.Hint)
	default:
		return strings.TrimSpace(outcome.Body)
	}
}
