package workflow

import (
	"errors"
	"fmt"
)

// Catalog is an immutable registry of pipeline definitions. It is built once
// at startup and is safe for unlimited concurrent readers.
type Catalog struct {
	order []string
	byID  map[string]Definition
}

// NewCatalog builds a catalog from the given definitions, or from the
// built-in pipelines when none are given. Definitions are validated at
// construction so that a step referencing a result field no earlier step
// produces is rejected before any execution can run.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	if len(defs) == 0 {
		defs = builtinDefinitions()
	}

	c := &Catalog{byID: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if err := validateDefinition(def); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", def.ID, err)
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate pipeline id %q", def.ID)
		}
		c.order = append(c.order, def.ID)
		c.byID[def.ID] = def
	}
	return c, nil
}

func validateDefinition(def Definition) error {
	if def.ID == "" {
		return errors.New("id is required")
	}
	if def.Name == "" {
		return errors.New("name is required")
	}
	if len(def.Steps) == 0 {
		return errors.New("at least one step is required")
	}

	produced := make(map[Field]struct{}, len(def.Steps))
	for i, step := range def.Steps {
		if step.Role == "" {
			return fmt.Errorf("step %d: role is required", i+1)
		}
		if step.Field == "" {
			return fmt.Errorf("step %d (%s): result field is required", i+1, step.Role)
		}
		if _, dup := produced[step.Field]; dup {
			return fmt.Errorf("step %d (%s): duplicate result field %q", i+1, step.Role, step.Field)
		}
		for _, use := range step.Uses {
			if _, ok := produced[use]; !ok {
				return fmt.Errorf("step %d (%s): uses field %q not produced by an earlier step", i+1, step.Role, use)
			}
		}
		produced[step.Field] = struct{}{}
	}
	return nil
}

// List returns summaries of all pipelines in registration order.
func (c *Catalog) List() []Summary {
	out := make([]Summary, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Summary())
	}
	return out
}

// Get returns the definition for a pipeline id.
func (c *Catalog) Get(id string) (Definition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// Summary returns the listing view of a definition.
func (d Definition) Summary() Summary {
	steps := make([]StepSummary, len(d.Steps))
	for i, s := range d.Steps {
		steps[i] = StepSummary{Role: s.Role, Task: s.Task}
	}
	return Summary{
		ID:          d.ID,
		Name:        d.Name,
		Tagline:     d.Tagline,
		Description: d.Description,
		Icon:        d.Icon,
		Gradient:    d.Gradient,
		Steps:       steps,
	}
}

// builtinDefinitions returns the three stock analysis pipelines.
func builtinDefinitions() []Definition {
	return []Definition{
		{
			ID:          "dna_profiler",
			Name:        "🧬 Smart Contract DNA Profiler",
			Tagline:     "Genetic fingerprinting for blockchain code",
			Description: "Creates a unique genetic fingerprint of any smart contract by analyzing code patterns, vulnerability markers, gas efficiency genes, and behavioral DNA. Like 23andMe for smart contracts!",
			Icon:        "🧬",
			Gradient:    "linear-gradient(135deg, #00d4aa 0%, #00b894 50%, #00cec9 100%)",
			Steps: []StepDefinition{
				{
					Role:     "Code Analyzer",
					Task:     "Extract structural DNA",
					Endpoint: EndpointGPT4o,
					Field:    "structural_dna",
					Template: "DNA_STRUCTURAL",
				},
				{
					Role:     "Vulnerability Scanner",
					Task:     "Identify risk markers",
					Endpoint: EndpointClaude,
					Field:    "risk_markers",
					Uses:     []Field{"structural_dna"},
					Template: "DNA_RISK_MARKERS",
				},
				{
					Role:     "Pattern Matcher",
					Task:     "Match against known strains",
					Endpoint: EndpointGemini,
					Field:    "strain_matches",
					Uses:     []Field{"structural_dna", "risk_markers"},
					Template: "DNA_STRAIN_MATCHES",
				},
				{
					Role:     "DNA Synthesizer",
					Task:     "Generate unique fingerprint",
					Endpoint: EndpointGPT4o,
					Field:    "dna_fingerprint",
					Uses:     []Field{"structural_dna", "risk_markers", "strain_matches"},
					Template: "DNA_FINGERPRINT",
				},
			},
			OutputSchema: map[string]string{
				"dna_sequence":         "string",
				"risk_markers":         "array",
				"similarity_matches":   "array",
				"mutation_probability": "number",
				"evolutionary_tree":    "object",
			},
		},
		{
			ID:          "exploit_oracle",
			Name:        "🔮 Predictive Exploit Oracle",
			Tagline:     "See the future of smart contract attacks",
			Description: "AI-powered oracle that predicts potential future exploits by analyzing historical attack patterns, current vulnerabilities, and emerging threat vectors. Prevents attacks before they happen!",
			Icon:        "🔮",
			Gradient:    "linear-gradient(135deg, #667eea 0%, #764ba2 50%, #f093fb 100%)",
			Steps: []StepDefinition{
				{
					Role:     "Historical Analyst",
					Task:     "Analyze past exploits",
					Endpoint: EndpointClaude,
					Field:    "historical_analysis",
					Template: "ORACLE_HISTORICAL",
				},
				{
					Role:     "Vulnerability Mapper",
					Task:     "Map current weaknesses",
					Endpoint: EndpointGPT4o,
					Field:    "vulnerability_map",
					Uses:     []Field{"historical_analysis"},
					Template: "ORACLE_VULNERABILITY_MAP",
				},
				{
					Role:     "Attack Simulator",
					Task:     "Simulate attack vectors",
					Endpoint: EndpointGrok,
					Field:    "attack_simulations",
					Uses:     []Field{"historical_analysis", "vulnerability_map"},
					Template: "ORACLE_ATTACK_SIMULATIONS",
				},
				{
					Role:     "Future Predictor",
					Task:     "Generate exploit predictions",
					Endpoint: EndpointGPT4o,
					Field:    "exploit_predictions",
					Uses:     []Field{"historical_analysis", "vulnerability_map", "attack_simulations"},
					Template: "ORACLE_PREDICTIONS",
				},
			},
			OutputSchema: map[string]string{
				"predicted_exploits":   "array",
				"attack_probability":   "number",
				"time_to_exploit":      "string",
				"prevention_steps":     "array",
				"similar_past_attacks": "array",
			},
		},
		{
			ID:          "threat_mesh",
			Name:        "🌐 Cross-Chain Threat Mesh",
			Tagline:     "Multi-dimensional blockchain security",
			Description: "Analyzes security across multiple blockchain ecosystems simultaneously, identifying attack patterns that spread across chains, bridge vulnerabilities, and cross-chain exploit vectors.",
			Icon:        "🌐",
			Gradient:    "linear-gradient(135deg, #f093fb 0%, #f5576c 50%, #ff6b6b 100%)",
			Steps: []StepDefinition{
				{
					Role:     "Chain Analyzer",
					Task:     "Scan multiple chains",
					Endpoint: EndpointGPT4o,
					Field:    "chain_analysis",
					Template: "MESH_CHAIN_ANALYSIS",
				},
				{
					Role:     "Bridge Inspector",
					Task:     "Analyze cross-chain bridges",
					Endpoint: EndpointClaude,
					Field:    "bridge_vulnerabilities",
					Uses:     []Field{"chain_analysis"},
					Template: "MESH_BRIDGES",
				},
				{
					Role:     "Pattern Correlator",
					Task:     "Correlate attack patterns",
					Endpoint: EndpointGrok,
					Field:    "correlated_patterns",
					Uses:     []Field{"chain_analysis", "bridge_vulnerabilities"},
					Template: "MESH_CORRELATED",
				},
				{
					Role:     "Mesh Generator",
					Task:     "Create threat mesh map",
					Endpoint: EndpointGemini,
					Field:    "threat_mesh",
					Uses:     []Field{"chain_analysis", "bridge_vulnerabilities", "correlated_patterns"},
					Template: "MESH_MAP",
				},
			},
			OutputSchema: map[string]string{
				"threat_map":             "object",
				"chain_risk_scores":      "object",
				"bridge_vulnerabilities": "array",
				"correlated_attacks":     "array",
				"mesh_visualization":     "object",
			},
		},
	}
}
