package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeJob is the server-side view of one job created against a JobServer.
type FakeJob struct {
	ID       string
	Filename string
	Assets   []string
	Uploaded int64
	Enqueued bool
	Polls    int
}

// JobServer emulates the remote job service over HTTP. Status answers for
// GET /jobs/{id} follow Script; once exhausted the last entry repeats. An
// empty Script reports "done" with one result.
type JobServer struct {
	*httptest.Server

	mu       sync.Mutex
	next     int
	jobs     map[string]*FakeJob
	order    []string
	requests []string

	// Script lists status values returned by successive polls of each job.
	Script []string
	// RejectCreate maps filenames to a detail returned with a 422 on create.
	RejectCreate map[string]string
}

// NewJobServer starts a JobServer that is closed when the test finishes.
func NewJobServer(t testing.TB) *JobServer {
	t.Helper()

	js := &JobServer{
		jobs:         make(map[string]*FakeJob),
		RejectCreate: make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /jobs", js.handleCreate)
	mux.HandleFunc("POST /jobs/{id}/upload", js.handleUpload)
	mux.HandleFunc("POST /jobs/{id}/process", js.handleProcess)
	mux.HandleFunc("GET /jobs/{id}", js.handleGet)
	mux.HandleFunc("GET /jobs/{id}/results", js.handleResults)

	js.Server = httptest.NewServer(js.record(mux))
	t.Cleanup(js.Close)
	return js
}

// Jobs returns copies of every job created so far in creation order.
func (js *JobServer) Jobs() []FakeJob {
	js.mu.Lock()
	defer js.mu.Unlock()
	out := make([]FakeJob, 0, len(js.order))
	for _, id := range js.order {
		out = append(out, *js.jobs[id])
	}
	return out
}

// Requests returns "METHOD path" for every request served.
func (js *JobServer) Requests() []string {
	js.mu.Lock()
	defer js.mu.Unlock()
	return append([]string(nil), js.requests...)
}

func (js *JobServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		js.mu.Lock()
		js.requests = append(js.requests, r.Method+" "+r.URL.Path)
		js.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (js *JobServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Assets   []string `json:"assets"`
		Filename string   `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}

	js.mu.Lock()
	defer js.mu.Unlock()
	if detail, ok := js.RejectCreate[body.Filename]; ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": detail})
		return
	}
	js.next++
	job := &FakeJob{
		ID:       fmt.Sprintf("job-%d", js.next),
		Filename: body.Filename,
		Assets:   body.Assets,
	}
	js.jobs[job.ID] = job
	js.order = append(js.order, job.ID)
	writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID})
}

func (js *JobServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "missing file"})
		return
	}
	defer file.Close()
	n, _ := io.Copy(io.Discard, file)

	js.withJob(w, r, func(job *FakeJob) {
		job.Uploaded = n
		writeJSON(w, http.StatusOK, map[string]string{"status": "uploaded"})
	})
}

func (js *JobServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	js.withJob(w, r, func(job *FakeJob) {
		job.Enqueued = true
		writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID, "status": "queued"})
	})
}

func (js *JobServer) handleGet(w http.ResponseWriter, r *http.Request) {
	js.withJob(w, r, func(job *FakeJob) {
		status := "done"
		if len(js.Script) > 0 {
			idx := min(job.Polls, len(js.Script)-1)
			status = js.Script[idx]
		}
		job.Polls++
		resp := map[string]any{"job_id": job.ID, "status": status}
		if status == "done" {
			resp["results"] = []map[string]any{{"frame": 0, "label": "stop_sign"}}
			resp["results_path"] = "results/" + job.ID + ".json"
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

func (js *JobServer) handleResults(w http.ResponseWriter, r *http.Request) {
	js.withJob(w, r, func(job *FakeJob) {
		writeJSON(w, http.StatusOK, map[string]any{
			"job_id":  job.ID,
			"results": []map[string]any{{"frame": 0, "label": "stop_sign"}},
		})
	})
}

func (js *JobServer) withJob(w http.ResponseWriter, r *http.Request, fn func(*FakeJob)) {
	js.mu.Lock()
	defer js.mu.Unlock()
	job, ok := js.jobs[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "job not found"})
		return
	}
	fn(job)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
