package workflow

import (
	"fmt"
	"strings"
)

// Compose builds the literal prompt text for one step. It is a pure function
// of its inputs: the same step, template text, input and accumulator snapshot
// produce byte-identical output. The original contract source is interpolated
// verbatim, and for each prior field the step declares it uses, the literal
// prior answer text is interpolated unmodified and untruncated.
func Compose(step StepDefinition, template string, in Input, prior *Accumulator) (string, error) {
	pairs := []string{
		"{{ROLE}}", step.Role,
		"{{TASK}}", step.Task,
		"{{LANGUAGE}}", in.Language,
		"{{SOURCE}}", in.Source,
		"{{CHAINS}}", strings.Join(in.Chains, ", "),
	}

	// Prior answers fill both their named placeholders and the generic
	// context block used by templates that do not name fields.
	var context strings.Builder
	for _, f := range step.Uses {
		answer, ok := prior.Get(f)
		if !ok {
			return "", fmt.Errorf("step %q uses field %q with no prior answer", step.Role, f)
		}
		pairs = append(pairs, placeholderFor(f), answer)
		fmt.Fprintf(&context, "%s:\n%s\n\n", fieldTitle(f), answer)
	}
	pairs = append(pairs, "{{CONTEXT}}", strings.TrimSpace(context.String()))

	return strings.NewReplacer(pairs...).Replace(template), nil
}

func placeholderFor(f Field) string {
	return "{{" + strings.ToUpper(string(f)) + "}}"
}

func fieldTitle(f Field) string {
	words := strings.Split(string(f), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
