package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/movelabs/moveguard/internal/monitor"
	"github.com/movelabs/moveguard/internal/notify"
	"github.com/movelabs/moveguard/internal/workflow"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubEngine struct {
	summaries []workflow.Summary
	result    *workflow.Result
	err       error

	gotID    string
	gotInput workflow.Input
}

func (s *stubEngine) List() []workflow.Summary {
	return s.summaries
}

func (s *stubEngine) Get(id string) (workflow.Summary, bool) {
	for _, summary := range s.summaries {
		if summary.ID == id {
			return summary, true
		}
	}
	return workflow.Summary{}, false
}

func (s *stubEngine) Execute(_ context.Context, id string, in workflow.Input) (*workflow.Result, error) {
	s.gotID = id
	s.gotInput = in
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestServer(t *testing.T, engine *stubEngine, hub *notify.Hub) *httptest.Server {
	t.Helper()
	if hub == nil {
		hub = notify.NewHub(discardLogger())
	}
	srv, err := New(discardLogger(), Config{Engine: engine, Hub: hub, Version: "test", Network: "testnet"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func sampleSummaries() []workflow.Summary {
	return []workflow.Summary{
		{ID: "dna_profiler", Name: "Contract DNA Profiler", Steps: []workflow.StepSummary{{Role: "Code Analyzer", Task: "Extract structure"}}},
		{ID: "exploit_oracle", Name: "Exploit Oracle"},
	}
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &stubEngine{summaries: sampleSummaries()}, nil)

	var body map[string]any
	status := getJSON(t, ts.URL+"/api/health", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "moveguard", body["service"])
	require.Equal(t, "testnet", body["network"])
	require.Equal(t, float64(2), body["workflows"])
}

func TestServer_ListWorkflows(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &stubEngine{summaries: sampleSummaries()}, nil)

	var body struct {
		Success   bool               `json:"success"`
		Workflows []workflow.Summary `json:"workflows"`
		Total     int                `json:"total"`
	}
	status := getJSON(t, ts.URL+"/api/workflows", &body)
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)
	require.Equal(t, 2, body.Total)
	require.Equal(t, "dna_profiler", body.Workflows[0].ID)
	require.Equal(t, "Code Analyzer", body.Workflows[0].Steps[0].Role)
}

func TestServer_GetWorkflow(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &stubEngine{summaries: sampleSummaries()}, nil)

	var body struct {
		Success  bool             `json:"success"`
		Workflow workflow.Summary `json:"workflow"`
	}
	status := getJSON(t, ts.URL+"/api/workflows/dna_profiler", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Contract DNA Profiler", body.Workflow.Name)

	// Hyphenated alias resolves to the same pipeline.
	status = getJSON(t, ts.URL+"/api/workflows/dna-profiler", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "dna_profiler", body.Workflow.ID)

	var errBody errorResponse
	status = getJSON(t, ts.URL+"/api/workflows/nope", &errBody)
	require.Equal(t, http.StatusNotFound, status)
	require.Contains(t, errBody.Error, "nope")
}

func TestServer_ExecuteSuccess(t *testing.T) {
	t.Parallel()

	outputs := workflow.NewAccumulator()
	outputs.Set("structural_dna", "S1")
	outputs.Set("risk_markers", "S2")
	engine := &stubEngine{
		summaries: sampleSummaries(),
		result: &workflow.Result{
			PipelineID:     "dna_profiler",
			PipelineName:   "Contract DNA Profiler",
			ExecutedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			StepsCompleted: 2,
			Outputs:        outputs,
			SessionID:      "sess-1",
		},
	}
	ts := newTestServer(t, engine, nil)

	var body executeResponse
	status := postJSON(t, ts.URL+"/api/workflows/dna_profiler/execute",
		`{"source_code":"module demo {}","language":"move","chains":["aptos"]}`, &body)
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)
	require.Equal(t, "dna_profiler", body.WorkflowID)
	require.Equal(t, 2, body.StepsCompleted)
	require.Equal(t, "S1", body.Results["structural_dna"])
	require.Equal(t, "sess-1", body.SessionID)
	require.Equal(t, "2025-06-01T12:00:00Z", body.ExecutionTime)

	require.Equal(t, "dna_profiler", engine.gotID)
	require.Equal(t, "module demo {}", engine.gotInput.Source)
	require.Equal(t, []string{"aptos"}, engine.gotInput.Chains)
}

func TestServer_ExecuteAliasRoute(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{
		summaries: sampleSummaries(),
		result:    &workflow.Result{PipelineID: "threat_mesh", Outputs: workflow.NewAccumulator()},
	}
	ts := newTestServer(t, engine, nil)

	var body executeResponse
	status := postJSON(t, ts.URL+"/api/workflows/threat-mesh/execute", `{"source_code":"module demo {}"}`, &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "threat_mesh", engine.gotID)
}

func TestServer_ExecuteErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown workflow",
			err:        &workflow.NotFoundError{ID: "bad"},
			wantStatus: http.StatusNotFound,
			wantError:  "bad",
		},
		{
			name:       "invalid input",
			err:        &workflow.ValidationError{Reason: "source code too short"},
			wantStatus: http.StatusBadRequest,
			wantError:  "too short",
		},
		{
			name:       "session failure",
			err:        &workflow.SessionError{Err: errors.New("upstream 503")},
			wantStatus: http.StatusBadGateway,
			wantError:  "upstream 503",
		},
		{
			name:       "unclassified failure",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t, &stubEngine{err: tt.err}, nil)
			var body errorResponse
			status := postJSON(t, ts.URL+"/api/workflows/x/execute", `{"source_code":"module demo {}"}`, &body)
			require.Equal(t, tt.wantStatus, status)
			require.Contains(t, body.Error, tt.wantError)
			require.Nil(t, body.StepsCompleted)
		})
	}
}

func TestServer_ExecuteStepFailureCarriesPartialResults(t *testing.T) {
	t.Parallel()

	partial := workflow.NewAccumulator()
	partial.Set("structural_dna", "S1")
	partial.Set("risk_markers", "S2")
	engine := &stubEngine{err: &workflow.StepError{
		Index:     2,
		Role:      "Pattern Matcher",
		Completed: 2,
		Partial:   partial,
		Err:       errors.New("query timed out"),
	}}
	ts := newTestServer(t, engine, nil)

	var body errorResponse
	status := postJSON(t, ts.URL+"/api/workflows/dna_profiler/execute", `{"source_code":"module demo {}"}`, &body)
	require.Equal(t, http.StatusBadGateway, status)
	require.Contains(t, body.Error, "Pattern Matcher")
	require.NotNil(t, body.StepsCompleted)
	require.Equal(t, 2, *body.StepsCompleted)
	require.Equal(t, "S1", body.Results["structural_dna"])
	require.Equal(t, "S2", body.Results["risk_markers"])
}

func TestServer_ExecuteRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &stubEngine{}, nil)
	var body errorResponse
	status := postJSON(t, ts.URL+"/api/workflows/x/execute", `{not json`, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body.Error, "invalid request body")
}

func TestServer_WebsocketStreamsAlerts(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub(discardLogger())
	ts := newTestServer(t, &stubEngine{}, hub)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	alert := monitor.Alert{
		ID:       "alert-1",
		Rule:     monitor.RuleMaxValue,
		Severity: monitor.SeverityCritical,
		Version:  "42",
		Message:  "transfer too large",
	}
	hub.Publish(alert)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var envelope wsEnvelope
	require.NoError(t, conn.ReadJSON(&envelope))
	require.Equal(t, "alert", envelope.Type)
	require.Equal(t, alert.ID, envelope.Alert.ID)
	require.Equal(t, alert.Rule, envelope.Alert.Rule)
}
