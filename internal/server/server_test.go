package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/mlplayground/internal/grid"
	"github.com/cwbudde/mlplayground/internal/search"
	"github.com/cwbudde/mlplayground/internal/store"
)

func postJob(t *testing.T, ts *httptest.Server, body string) (*http.Response, Job) {
	t.Helper()

	resp, err := http.Post(ts.URL+"/api/v1/jobs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	var job Job
	if resp.StatusCode == http.StatusCreated {
		if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
			t.Fatalf("Failed to decode job: %v", err)
		}
	}
	return resp, job
}

// waitForState polls the status endpoint until the job reaches want.
func waitForState(t *testing.T, ts *httptest.Server, jobID string, want JobState) map[string]interface{} {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/api/v1/jobs/" + jobID + "/status")
		if err != nil {
			t.Fatalf("GET status failed: %v", err)
		}
		var status map[string]interface{}
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("Failed to decode status: %v", err)
		}
		if JobState(status["state"].(string)) == want {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job %s did not reach state %s", jobID, want)
	return nil
}

func TestServer_CreateJobRunsToCompletion(t *testing.T) {
	s := NewServer(":0", nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, job := postJob(t, ts, `{"algorithm": "hill", "seed": 1}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}
	if job.ID == "" {
		t.Fatal("Job ID should not be empty")
	}
	if job.State != StatePending && job.State != StateRunning {
		t.Errorf("Expected pending or running state, got %s", job.State)
	}
	if job.Start != (grid.Cell{Row: 9, Col: 5}) {
		t.Errorf("Expected the path start (9,5), got %v", job.Start)
	}

	status := waitForState(t, ts, job.ID, StateCompleted)
	if status["bestValue"].(float64) != 5 {
		t.Errorf("Expected best value 5, got %v", status["bestValue"])
	}
	if status["bestLabel"] != "(2, 10)" {
		t.Errorf("Expected best label (2, 10), got %v", status["bestLabel"])
	}
	if status["iterations"].(float64) != 13 {
		t.Errorf("Expected 13 iterations, got %v", status["iterations"])
	}
	if status["result"] == nil {
		t.Error("Completed job should carry its result")
	}
}

// Population and multi-start algorithms pick their start without a start
// cell; the job must still be encodable before its first step.
func TestServer_CreateJobWithoutStartCell(t *testing.T) {
	s := NewServer(":0", nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, algorithm := range []string{search.AlgGRASP, search.AlgGenetic} {
		t.Run(algorithm, func(t *testing.T) {
			resp, job := postJob(t, ts, `{"algorithm": "`+algorithm+`", "seed": 1, "paceMs": 500}`)
			if resp.StatusCode != http.StatusCreated {
				t.Fatalf("Expected status 201, got %d", resp.StatusCode)
			}
			if job.ID == "" {
				t.Fatal("Job ID should not be empty")
			}
			if job.BestValue > job.StartValue {
				t.Errorf("Best value %v above start value %v", job.BestValue, job.StartValue)
			}

			statusResp, err := http.Get(ts.URL + "/api/v1/jobs/" + job.ID + "/status")
			if err != nil {
				t.Fatalf("GET status failed: %v", err)
			}
			var status map[string]interface{}
			err = json.NewDecoder(statusResp.Body).Decode(&status)
			statusResp.Body.Close()
			if err != nil {
				t.Fatalf("Status body should decode before the first step: %v", err)
			}
			if status["id"] != job.ID {
				t.Errorf("Expected id %s, got %v", job.ID, status["id"])
			}

			req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/jobs/"+job.ID, nil)
			if delResp, err := http.DefaultClient.Do(req); err == nil {
				delResp.Body.Close()
			}
		})
	}
}

func TestServer_CreateJobKeepsDefaults(t *testing.T) {
	s := NewServer(":0", nil)

	body := `{"algorithm": "sa", "generator": "landscape", "seed": 3, "annealing": {"maxIterations": 5}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatal(err)
	}
	if job.Config.Annealing.MaxIterations != 5 {
		t.Errorf("Expected maxIterations 5, got %d", job.Config.Annealing.MaxIterations)
	}
	want := search.DefaultAnnealingConfig()
	if job.Config.Annealing.InitialTemp != want.InitialTemp || job.Config.Annealing.Cooling != want.Cooling {
		t.Errorf("Omitted fields should keep defaults, got %+v", job.Config.Annealing)
	}
	if job.Config.Tabu != search.DefaultTabuConfig() {
		t.Errorf("Other algorithms should keep defaults, got %+v", job.Config.Tabu)
	}
}

func TestServer_CreateJobRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"algorithm": `},
		{"missing algorithm", `{"seed": 1}`},
		{"unknown algorithm", `{"algorithm": "pso"}`},
		{"unknown generator", `{"algorithm": "hill", "generator": "spiral"}`},
		{"ragged grid", `{"algorithm": "hill", "grid": [[1, 2], [3]]}`},
		{"start outside", `{"algorithm": "tabu", "start": {"row": 20, "col": 0}}`},
		{"invalid params", `{"algorithm": "ga", "genetic": {"population": 1}}`},
	}

	s := NewServer(":0", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			s.handleCreateJob(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
	if len(s.jobManager.ListJobs()) != 0 {
		t.Error("Rejected requests must not create jobs")
	}
}

func TestServer_ListJobs(t *testing.T) {
	s := NewServer(":0", nil)
	createTestJob(t, s.jobManager, nil)
	createTestJob(t, s.jobManager, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var jobs []Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestServer_GetJobStatus_NotFound(t *testing.T) {
	s := NewServer(":0", nil)

	for _, path := range []string{"/api/v1/jobs/missing", "/api/v1/jobs/missing/status", "/api/v1/jobs/missing/grid.txt", "/api/v1/jobs/missing/stream"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, w.Code)
		}
	}
}

func TestServer_Routing(t *testing.T) {
	s := NewServer(":0", nil)
	job := createTestJob(t, s.jobManager, nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPut, "/api/v1/jobs", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/jobs/", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/jobs/" + job.ID + "/unknown", http.StatusNotFound},
		{http.MethodPost, "/api/v1/jobs/" + job.ID, http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/checkpoints", http.StatusNotFound},
		{http.MethodGet, "/api/v1/jobs/" + job.ID + "/trace", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, w.Code)
		}
	}
}

func TestServer_GetGrid(t *testing.T) {
	s := NewServer(":0", nil)
	job := createTestJob(t, s.jobManager, func(c *JobConfig) {
		c.Grid = [][]int{{3, 2}, {1, 4}}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/grid.txt", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "3, 2\n1, 4\n" {
		t.Errorf("Unexpected grid text %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Expected text/plain, got %s", ct)
	}

	parsed, err := grid.ParseText(w.Body)
	if err != nil {
		t.Fatalf("Grid text should parse back: %v", err)
	}
	if parsed.Rows() != 2 || parsed.Cols() != 2 {
		t.Errorf("Expected 2x2, got %dx%d", parsed.Rows(), parsed.Cols())
	}
}

func TestServer_CancelJob(t *testing.T) {
	s := NewServer(":0", nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	_, job := postJob(t, ts, `{"algorithm": "ga", "seed": 2, "paceMs": 10, "genetic": {"generations": 1000}}`)

	del := func(id string) int {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/jobs/"+id, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := del(job.ID); code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", code)
	}
	status := waitForState(t, ts, job.ID, StateCancelled)
	if status["endTime"] == nil {
		t.Error("Cancelled job should have an end time")
	}

	if code := del(job.ID); code != http.StatusConflict {
		t.Errorf("Expected status 409 for a finished job, got %d", code)
	}
	if code := del("missing"); code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", code)
	}
}

func TestServer_JobStream_SSE(t *testing.T) {
	s := NewServer(":0", nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	_, job := postJob(t, ts, `{"algorithm": "hill", "seed": 1, "paceMs": 20}`)

	resp, err := http.Get(ts.URL + "/api/v1/jobs/" + job.ID + "/stream")
	if err != nil {
		t.Fatalf("GET stream failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %s", ct)
	}

	var events []ProgressEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("Invalid SSE payload %q: %v", line, err)
		}
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("Expected SSE events")
	}
	final := events[len(events)-1]
	if final.State != StateCompleted {
		t.Errorf("Stream should end with the completed event, got %s", final.State)
	}
	if final.BestValue != 5 {
		t.Errorf("Expected final best value 5, got %v", final.BestValue)
	}
	if !events[0].State.Terminal() {
		steps := 0
		for _, ev := range events {
			if ev.Step != nil {
				steps++
			}
		}
		if steps == 0 {
			t.Error("Expected step events while the job was running")
		}
	}
}

func TestServer_StreamFinishedJob(t *testing.T) {
	s := NewServer(":0", nil)
	job := createTestJob(t, s.jobManager, nil)
	s.jobManager.UpdateJob(job.ID, func(j *Job) { j.State = StateCompleted })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/stream", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	if strings.Count(body, "data: ") != 1 || !strings.Contains(body, `"state":"completed"`) {
		t.Errorf("Expected a single completed event, got %q", body)
	}
}

func TestServer_CheckpointsAndTrace(t *testing.T) {
	dir := t.TempDir()
	fsStore, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(":0", fsStore)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	_, job := postJob(t, ts, `{"algorithm": "hill", "seed": 1}`)
	waitForState(t, ts, job.ID, StateCompleted)

	resp, err := http.Get(ts.URL + "/api/v1/checkpoints")
	if err != nil {
		t.Fatal(err)
	}
	var infos []store.CheckpointInfo
	err = json.NewDecoder(resp.Body).Decode(&infos)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].JobID != job.ID || infos[0].BestValue != 5 {
		t.Errorf("Unexpected checkpoints: %+v", infos)
	}

	resp, err = http.Get(ts.URL + "/api/v1/jobs/" + job.ID + "/trace")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var entries []store.TraceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 14 {
		t.Errorf("Expected 14 trace entries, got %d", len(entries))
	}

	resp2, err := http.Get(ts.URL + "/api/v1/jobs/unknown/trace")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing trace, got %d", resp2.StatusCode)
	}
}

func TestServer_CORS(t *testing.T) {
	s := NewServer(":0", nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Errorf("DELETE should be allowed, got %q", w.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestEventBroadcaster(t *testing.T) {
	eb := NewEventBroadcaster()

	eb.Broadcast(ProgressEvent{JobID: "job", Iterations: 1})
	ch := eb.Subscribe("job")

	select {
	case ev := <-ch:
		if ev.Iterations != 1 {
			t.Errorf("Expected the cached event first, got %+v", ev)
		}
	default:
		t.Fatal("New subscribers should receive the last event")
	}

	eb.Broadcast(ProgressEvent{JobID: "job", Iterations: 2})
	if ev := <-ch; ev.Iterations != 2 {
		t.Errorf("Expected iteration 2, got %d", ev.Iterations)
	}

	// Slow clients are skipped instead of blocking.
	for i := 0; i < 200; i++ {
		eb.Broadcast(ProgressEvent{JobID: "job", Iterations: i})
	}

	eb.CleanupJob("job")
	if _, ok := <-drain(ch); ok {
		t.Error("Channel should be closed after cleanup")
	}
	eb.Unsubscribe("job", ch) // already closed, must not panic

	if _, ok := eb.LastEvent("job"); ok {
		t.Error("Cleanup should drop the cached event")
	}
}

// drain discards buffered events and returns the channel once it is empty.
func drain(ch chan ProgressEvent) chan ProgressEvent {
	out := make(chan ProgressEvent)
	go func() {
		for ev := range ch {
			_ = ev
		}
		close(out)
	}()
	return out
}

func TestWriteSSEEvent(t *testing.T) {
	w := httptest.NewRecorder()
	step := search.Event{Iteration: 3, Phase: search.PhaseMove}
	if err := writeSSEEvent(w, ProgressEvent{JobID: "j", State: StateRunning, Step: &step}); err != nil {
		t.Fatal(err)
	}

	body, _ := io.ReadAll(w.Body)
	if !bytes.HasPrefix(body, []byte("data: {")) || !bytes.HasSuffix(body, []byte("}\n\n")) {
		t.Errorf("Unexpected SSE framing %q", body)
	}
	if !bytes.Contains(body, []byte(`"phase":"move"`)) {
		t.Errorf("Step should be embedded: %s", body)
	}
}
