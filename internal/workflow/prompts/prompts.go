// Package prompts embeds the literal prompt templates for each pipeline step.
// The template text is configuration data: changing the wording of a step's
// instruction never touches the execution engine.
//
// Templates use {{NAME}} placeholders. LANGUAGE, SOURCE, CHAINS, ROLE, TASK
// and CONTEXT are filled by the composer, along with one placeholder per
// prior result field the step declares it uses (the field name upper-cased,
// e.g. {{STRUCTURAL_DNA}}).
package prompts

import (
	"fmt"
	"strings"

	"embed"
)

//go:embed *.md
var templatesFS embed.FS

// Generic is the fallback template for steps that do not name one. It renders
// the step's role and task around the contract source, with prior outputs
// appended as a context block.
const Generic = "GENERIC_STEP"

// Templates holds the loaded template set keyed by name.
type Templates struct {
	byName map[string]string
}

// Load reads every embedded template. The name of a template is its filename
// without the .md extension.
func Load() (*Templates, error) {
	entries, err := templatesFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded templates: %w", err)
	}

	byName := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".md")
		data, err := templatesFS.ReadFile(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}
		byName[name] = strings.TrimSpace(string(data))
	}

	if _, ok := byName[Generic]; !ok {
		return nil, fmt.Errorf("generic template %s is missing", Generic)
	}

	return &Templates{byName: byName}, nil
}

// Get returns the template with the given name.
func (t *Templates) Get(name string) (string, bool) {
	s, ok := t.byName[name]
	return s, ok
}
