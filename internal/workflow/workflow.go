// Package workflow implements the multi-step contract analysis pipelines.
// A pipeline is an ordered list of steps, each bound to an analysis role and
// a model endpoint. The engine executes steps strictly in order within one
// remote session, threading each step's raw answer into the prompts of the
// steps that follow it.
package workflow

import (
	"time"
)

// Field names one step's slot in the aggregated result, e.g. "structural_dna".
type Field string

// Endpoint selects which underlying model answers a step's query.
type Endpoint string

const (
	EndpointGPT4o  Endpoint = "gpt4o"
	EndpointClaude Endpoint = "claude"
	EndpointGrok   Endpoint = "grok"
	EndpointGemini Endpoint = "gemini"
)

// endpointIDs maps endpoints to the On-Demand predefined endpoint identifiers.
var endpointIDs = map[Endpoint]string{
	EndpointGPT4o:  "predefined-openai-gpt4o",
	EndpointClaude: "predefined-anthropic-claude-sonnet",
	EndpointGrok:   "predefined-xai-grok4.1-fast",
	EndpointGemini: "predefined-google-gemini-2.0-flash",
}

// ID returns the wire-level endpoint identifier. Unknown endpoints fall back
// to GPT-4o, matching the remote API's own default.
func (e Endpoint) ID() string {
	if id, ok := endpointIDs[e]; ok {
		return id
	}
	return endpointIDs[EndpointGPT4o]
}

// StepDefinition is one role-bound instruction within a pipeline.
type StepDefinition struct {
	// Role is the analysis persona, e.g. "Code Analyzer".
	Role string
	// Task is a short summary of what the step does.
	Task string
	// Endpoint selects the model that answers this step.
	Endpoint Endpoint
	// Field is the result slot this step's answer is stored under.
	Field Field
	// Uses lists the result fields of earlier steps whose answers this
	// step's prompt requires. The catalog rejects references to fields
	// that are not produced by an earlier step.
	Uses []Field
	// Template names the embedded prompt template for this step. Empty
	// means the generic role/task template.
	Template string
}

// Definition is an immutable pipeline definition. Definitions are established
// at startup and shared read-only by all executions.
type Definition struct {
	ID          string
	Name        string
	Tagline     string
	Description string
	Icon        string
	Gradient    string
	Steps       []StepDefinition

	// OutputSchema documents the expected shape of each result field.
	// It is contract documentation only and is not enforced at runtime.
	OutputSchema map[string]string
}

// StepSummary is the listing view of a step.
type StepSummary struct {
	Role string `json:"agent"`
	Task string `json:"task"`
}

// Summary is the listing view of a pipeline, without execution state.
type Summary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Tagline     string        `json:"tagline"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Gradient    string        `json:"gradient"`
	Steps       []StepSummary `json:"steps"`
}

// Input is the payload a pipeline executes against.
type Input struct {
	// Source is the smart contract source text.
	Source string
	// Language is the contract language tag interpolated into prompts.
	// Defaults to "move".
	Language string
	// Chains are the blockchain ecosystems considered by cross-chain
	// pipelines. Defaults to the standard five-chain set when empty.
	Chains []string
}

var defaultChains = []string{"aptos", "ethereum", "solana", "sui", "arbitrum"}

func (in Input) withDefaults() Input {
	if in.Language == "" {
		in.Language = "move"
	}
	if len(in.Chains) == 0 {
		in.Chains = defaultChains
	}
	return in
}

// Accumulator is the ordered mapping of completed steps' raw answers. It is
// owned exclusively by a single execution and never shared.
type Accumulator struct {
	order []Field
	text  map[Field]string
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{text: make(map[Field]string)}
}

// Set stores the answer for a field, appending it to the declared order.
// Setting an existing field overwrites its text without reordering.
func (a *Accumulator) Set(f Field, answer string) {
	if _, ok := a.text[f]; !ok {
		a.order = append(a.order, f)
	}
	a.text[f] = answer
}

// Get returns the stored answer for a field.
func (a *Accumulator) Get(f Field) (string, bool) {
	s, ok := a.text[f]
	return s, ok
}

// Len returns the number of completed fields.
func (a *Accumulator) Len() int {
	return len(a.order)
}

// Fields returns the completed fields in completion order.
func (a *Accumulator) Fields() []Field {
	out := make([]Field, len(a.order))
	copy(out, a.order)
	return out
}

// Map returns a copy of the accumulator contents keyed by field name,
// suitable for JSON encoding.
func (a *Accumulator) Map() map[Field]string {
	out := make(map[Field]string, len(a.text))
	for f, s := range a.text {
		out[f] = s
	}
	return out
}

// Result is the aggregated outcome of one completed pipeline execution.
type Result struct {
	PipelineID     string
	PipelineName   string
	ExecutedAt     time.Time
	StepsCompleted int
	Outputs        *Accumulator
	SessionID      string
}
