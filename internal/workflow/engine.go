package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/movelabs/moveguard/internal/metrics"
	"github.com/movelabs/moveguard/internal/workflow/prompts"
)

// minSourceLen is the minimum number of meaningful characters the contract
// source must contain after trimming whitespace.
const minSourceLen = 10

// AnalysisClient is the contract the engine requires from the remote AI
// backend: create a session, then submit endpoint-addressed queries within
// it. Session teardown is not part of the contract; the backend expires
// sessions server-side.
type AnalysisClient interface {
	CreateSession(ctx context.Context) (string, error)
	SubmitQuery(ctx context.Context, sessionID, endpointID, prompt string) (string, error)
}

// Config holds the engine dependencies. Client and Catalog are injected so
// tests can substitute fakes without touching process state.
type Config struct {
	Client  AnalysisClient
	Catalog *Catalog

	// Optional configuration.
	Clock     clockwork.Clock
	Templates *prompts.Templates
}

func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.New("analysis client is required")
	}
	if c.Catalog == nil {
		return errors.New("catalog is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Templates == nil {
		t, err := prompts.Load()
		if err != nil {
			return fmt.Errorf("failed to load prompt templates: %w", err)
		}
		c.Templates = t
	}
	return nil
}

// Engine executes analysis pipelines. Each execution owns its own session
// and accumulator, so distinct executions may run concurrently without
// synchronization; the engine itself holds only read-only state.
type Engine struct {
	log *slog.Logger
	cfg *Config
}

// New creates an engine and verifies that every catalog step resolves to an
// embedded prompt template, so a template typo fails at startup rather than
// mid-execution.
func New(log *slog.Logger, cfg *Config) (*Engine, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, summary := range cfg.Catalog.List() {
		def, _ := cfg.Catalog.Get(summary.ID)
		for i, step := range def.Steps {
			if _, err := templateFor(cfg.Templates, step); err != nil {
				return nil, fmt.Errorf("pipeline %q step %d: %w", def.ID, i+1, err)
			}
		}
	}
	return &Engine{log: log, cfg: cfg}, nil
}

// List returns summaries of all registered pipelines.
func (e *Engine) List() []Summary {
	return e.cfg.Catalog.List()
}

// Get returns the summary for a single pipeline.
func (e *Engine) Get(id string) (Summary, bool) {
	def, ok := e.cfg.Catalog.Get(id)
	if !ok {
		return Summary{}, false
	}
	return def.Summary(), true
}

// Execute runs the named pipeline against the input. Steps run strictly in
// order, since each step's prompt requires the textual output of the steps
// before it. There is no retry of an individual step: the first failure
// aborts the remaining sequence and surfaces a StepError carrying the
// partial accumulator.
func (e *Engine) Execute(ctx context.Context, pipelineID string, in Input) (*Result, error) {
	def, ok := e.cfg.Catalog.Get(pipelineID)
	if !ok {
		metrics.RecordWorkflowExecution(pipelineID, "not_found")
		return nil, &NotFoundError{ID: pipelineID}
	}

	in = in.withDefaults()
	if len(strings.TrimSpace(in.Source)) < minSourceLen {
		metrics.RecordWorkflowExecution(pipelineID, "invalid_input")
		return nil, &ValidationError{Reason: fmt.Sprintf("contract source must contain at least %d characters", minSourceLen)}
	}

	sessionID, err := e.cfg.Client.CreateSession(ctx)
	if err != nil {
		metrics.RecordWorkflowExecution(pipelineID, "session_error")
		return nil, &SessionError{Err: err}
	}
	e.log.Info("workflow: session created", "pipeline", pipelineID, "session_id", sessionID, "steps", len(def.Steps))

	acc := NewAccumulator()
	for i, step := range def.Steps {
		template, err := templateFor(e.cfg.Templates, step)
		if err != nil {
			metrics.RecordWorkflowExecution(pipelineID, "step_error")
			return nil, &StepError{Index: i, Role: step.Role, Completed: acc.Len(), Partial: acc, Err: err}
		}
		prompt, err := Compose(step, template, in, acc)
		if err != nil {
			metrics.RecordWorkflowExecution(pipelineID, "step_error")
			return nil, &StepError{Index: i, Role: step.Role, Completed: acc.Len(), Partial: acc, Err: err}
		}

		e.log.Info("workflow: executing step",
			"pipeline", pipelineID,
			"step", i+1,
			"role", step.Role,
			"endpoint", step.Endpoint,
			"prompt_len", len(prompt))

		start := e.cfg.Clock.Now()
		answer, err := e.cfg.Client.SubmitQuery(ctx, sessionID, step.Endpoint.ID(), prompt)
		duration := e.cfg.Clock.Since(start)
		metrics.RecordWorkflowStep(pipelineID, string(step.Endpoint), duration)
		if err != nil {
			e.log.Error("workflow: step failed",
				"pipeline", pipelineID,
				"step", i+1,
				"role", step.Role,
				"completed", acc.Len(),
				"duration", duration,
				"error", err)
			metrics.RecordWorkflowExecution(pipelineID, "step_error")
			return nil, &StepError{Index: i, Role: step.Role, Completed: acc.Len(), Partial: acc, Err: err}
		}

		acc.Set(step.Field, answer)
		e.log.Info("workflow: step completed",
			"pipeline", pipelineID,
			"step", i+1,
			"role", step.Role,
			"duration", duration,
			"answer_len", len(answer))
	}

	metrics.RecordWorkflowExecution(pipelineID, "ok")
	return &Result{
		PipelineID:     def.ID,
		PipelineName:   def.Name,
		ExecutedAt:     e.cfg.Clock.Now(),
		StepsCompleted: len(def.Steps),
		Outputs:        acc,
		SessionID:      sessionID,
	}, nil
}

func templateFor(t *prompts.Templates, step StepDefinition) (string, error) {
	name := step.Template
	if name == "" {
		name = prompts.Generic
	}
	template, ok := t.Get(name)
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	return template, nil
}
