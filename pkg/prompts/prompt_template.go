// Package prompts renders system prompts from Go templates with the sprig
// function map.
package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// FormatPrompter renders a prompt from input values.
type FormatPrompter interface {
	FormatPrompt(values map[string]any) (string, error)
	GetInputVariables() []string
}

// PromptTemplate is a prompt backed by a Go text template.
type PromptTemplate struct {
	// Template is the prompt template text.
	Template string
	// InputVariables is a list of variable names the prompt template expects.
	InputVariables []string
}

var _ FormatPrompter = PromptTemplate{}

// NewPromptTemplate returns a new prompt template.
func NewPromptTemplate(tmpl string, inputVars []string) PromptTemplate {
	return PromptTemplate{
		Template:       tmpl,
		InputVariables: inputVars,
	}
}

// FormatPrompt renders the template with the given values.
// Referencing a variable that is not provided is an error.
func (p PromptTemplate) FormatPrompt(values map[string]any) (string, error) {
	tmpl, err := template.New("prompt").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(p.Template)
	if err != nil {
		return "", errors.WithMessage(err, "invalid prompt template")
	}

	if values == nil {
		values = map[string]any{}
	}
	for _, name := range p.InputVariables {
		if _, ok := values[name]; !ok {
			return "", errors.Errorf("missing prompt input: %s", name)
		}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, values); err != nil {
		return "", errors.WithMessage(err, "failed to render prompt template")
	}
	return sb.String(), nil
}

// GetInputVariables returns the declared input variable names.
func (p PromptTemplate) GetInputVariables() []string {
	return p.InputVariables
}
