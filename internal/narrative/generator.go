package narrative

import (
	"context"
	"errors"
	"strings"

	"github.com/temirov/gitaudit/internal/changeset"
	"github.com/temirov/gitaudit/internal/llm"
	"github.com/temirov/gitaudit/internal/report"
)

const (
	askerNotConfiguredMessage = "narrative language model client not configured"
	promptFailureLabelSuffix  = " prompt"
)

// ErrAskerNotConfigured indicates that the generator was constructed without a language model client.
var ErrAskerNotConfigured = errors.New(askerNotConfiguredMessage)

// Asker sends a prompt pair to a language model.
type Asker interface {
	Ask(executionContext context.Context, query llm.Query) report.Outcome
}

// Generator produces narratives for change sets.
type Generator struct {
	asker   Asker
	catalog Catalog
}

// NewGenerator constructs a Generator over the catalog.
func NewGenerator(asker Asker, catalog Catalog) (*Generator, error) {
	if asker == nil {
		return nil, ErrAskerNotConfigured
	}
	return &Generator{asker: asker, catalog: catalog}, nil
}

// BuildQuery renders the prompt pair of the kind for the change set.
func (generator *Generator) BuildQuery(kind Kind, changeSet changeset.ChangeSet) (llm.Query, error) {
	prompts, kindError := generator.catalog.Prompts(kind)
	if kindError != nil {
		return llm.Query{}, kindError
	}
	template, modeError := prompts.Template(changeSet.Mode)
	if modeError != nil {
		return llm.Query{}, modeError
	}
	return llm.Query{
		Purpose:      prompts.Purpose,
		SystemPrompt: strings.TrimSpace(template.System),
		UserPrompt:   template.UserPrompt(changeSet.Payload),
	}, nil
}

// Generate asks for the narrative of the kind. The model output is returned unparsed.
func (generator *Generator) Generate(executionContext context.Context, kind Kind, changeSet changeset.ChangeSet) report.Outcome {
	query, queryError := generator.BuildQuery(kind, changeSet)
	if queryError != nil {
		return report.Failed(string(kind)+promptFailureLabelSuffix, queryError.Error())
	}
	return generator.asker.Ask(executionContext, query)
}
