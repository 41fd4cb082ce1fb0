package jobapi

import "encoding/json"

// JobStatus is the service's view of one job as returned by GET /jobs/{id}.
type JobStatus struct {
	JobID       string            `json:"job_id,omitempty"`
	Status      string            `json:"status"`
	Results     []json.RawMessage `json:"results,omitempty"`
	ResultsPath string            `json:"results_path,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// ResultCount returns the number of detections reported with the status.
func (s JobStatus) ResultCount() int {
	return len(s.Results)
}

// Results is the payload returned by GET /jobs/{id}/results.
type Results struct {
	JobID   string          `json:"job_id"`
	Results json.RawMessage `json:"results"`
}

type createJobRequest struct {
	Assets   []string `json:"assets"`
	Filename string   `json:"filename"`
}

type createJobResponse struct {
	JobID string `json:"job_id"`
}

type statusResponse struct {
	JobID  string `json:"job_id,omitempty"`
	Status string `json:"status"`
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type uploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	VideoKey  string `json:"video_key"`
}

type uploadCompleteRequest struct {
	VideoKey string `json:"video_key"`
}

type videoResponse struct {
	VideoURL string `json:"video_url"`
}
