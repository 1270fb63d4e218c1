package narrative

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/gitaudit/internal/reference"
)

const (
	embeddedCatalogErrorTemplate    = "decode embedded prompt catalog: %w"
	overrideReadErrorTemplate       = "read prompt catalog %s: %w"
	overrideDecodeErrorTemplate     = "decode prompt catalog %s: %w"
	missingPromptTemplateConstant   = "%w: %s.%s.%s is empty"
	incompleteCatalogMessage        = "prompt catalog incomplete"
	unsupportedKindTemplateConstant = "unsupported narrative kind: %s"
	unsupportedModeTemplateConstant = "unsupported audit mode: %s"
	promptSeparatorConstant         = "\n\n"
	systemFieldNameConstant         = "system"
	templateFieldNameConstant       = "template"
)

//go:embed prompts.yaml
var embeddedCatalog []byte

// Kind names a narrative.
type Kind string

// Narrative kinds.
const (
	KindSummary  Kind = "summary"
	KindSecurity Kind = "security"
)

// ErrIncompleteCatalog indicates that a prompt catalog lacks a system role or template.
var ErrIncompleteCatalog = errors.New(incompleteCatalogMessage)

// PromptTemplate pairs a system role with the instruction template placed before the payload.
type PromptTemplate struct {
	System   string `yaml:"system"`
	Template string `yaml:"template"`
}

// KindPrompts holds the mode-specific prompts of one narrative kind.
type KindPrompts struct {
	Purpose string         `yaml:"purpose"`
	Diff    PromptTemplate `yaml:"diff"`
	Full    PromptTemplate `yaml:"full"`
}

// Catalog holds every prompt the generators render.
type Catalog struct {
	Summary  KindPrompts `yaml:"summary"`
	Security KindPrompts `yaml:"security"`
}

// LoadCatalog decodes the embedded prompts and overlays the optional override file.
// Fields absent from the override keep their embedded values.
func LoadCatalog(overridePath string) (Catalog, error) {
	var catalog Catalog
	if decodeError := yaml.NewDecoder(bytes.NewReader(embeddedCatalog)).Decode(&catalog); decodeError != nil {
		return Catalog{}, fmt.Errorf(embeddedCatalogErrorTemplate, decodeError)
	}

	trimmedPath := strings.TrimSpace(overridePath)
	if len(trimmedPath) > 0 {
		contents, readError := os.ReadFile(trimmedPath)
		if readError != nil {
			return Catalog{}, fmt.Errorf(overrideReadErrorTemplate, trimmedPath, readError)
		}
		var override Catalog
		if decodeError := yaml.Unmarshal(contents, &override); decodeError != nil {
			return Catalog{}, fmt.Errorf(overrideDecodeErrorTemplate, trimmedPath, decodeError)
		}
		catalog = catalog.overlay(override)
	}

	if validationError := catalog.validate(); validationError != nil {
		return Catalog{}, validationError
	}
	return catalog, nil
}

// Prompts returns the prompts of the kind.
func (catalog Catalog) Prompts(kind Kind) (KindPrompts, error) {
	switch kind {
	case KindSummary:
		return catalog.Summary, nil
	case KindSecurity:
		return catalog.Security, nil
	default:
		return KindPrompts{}, fmt.Errorf(unsupportedKindTemplateConstant, kind)
	}
}

// Template returns the prompt template for the mode.
func (prompts KindPrompts) Template(mode reference.Mode) (PromptTemplate, error) {
	switch mode {
	case reference.ModeDiff:
		return prompts.Diff, nil
	case reference.ModeFull:
		return prompts.Full, nil
	default:
		return PromptTemplate{}, fmt.Errorf(unsupportedModeTemplateConstant, mode)
	}
}

// UserPrompt appends the payload verbatim to the template after a blank line.
func (template PromptTemplate) UserPrompt(payload string) string {
	return strings.TrimRight(template.Template, "\n") + promptSeparatorConstant + payload
}

func (catalog Catalog) overlay(override Catalog) Catalog {
	catalog.Summary = catalog.Summary.overlay(override.Summary)
	catalog.Security = catalog.Security.overlay(override.Security)
	return catalog
}

func (prompts KindPrompts) overlay(override KindPrompts) KindPrompts {
	prompts.Purpose = firstNonEmpty(override.Purpose, prompts.Purpose)
	prompts.Diff = prompts.Diff.overlay(override.Diff)
	prompts.Full = prompts.Full.overlay(override.Full)
	return prompts
}

func (template PromptTemplate) overlay(override PromptTemplate) PromptTemplate {
	template.System = firstNonEmpty(override.System, template.System)
	template.Template = firstNonEmpty(override.Template, template.Template)
	return template
}

func firstNonEmpty(preferred string, fallback string) string {
	if len(strings.TrimSpace(preferred)) > 0 {
		return preferred
	}
	return fallback
}

func (catalog Catalog) validate() error {
	for _, kind := range []Kind{KindSummary, KindSecurity} {
		prompts, _ := catalog.Prompts(kind)
		for _, mode := range []reference.Mode{reference.ModeDiff, reference.ModeFull} {
			template, _ := prompts.Template(mode)
			if len(strings.TrimSpace(template.System)) == 0 {
				return fmt.Errorf(missingPromptTemplateConstant, ErrIncompleteCatalog, kind, mode, systemFieldNameConstant)
			}
			if len(strings.TrimSpace(template.Template)) == 0 {
				return fmt.Errorf(missingPromptTemplateConstant, ErrIncompleteCatalog, kind, mode, templateFieldNameConstant)
			}
		}
	}
	return nil
}
