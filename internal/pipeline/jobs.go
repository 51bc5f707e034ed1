package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a batch query job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Finished reports whether the job has reached a terminal state.
func (s JobStatus) Finished() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// File is one uploaded document of a batch.
type File struct {
	Name string
	Data []byte
}

// FileResult holds the query output for one file.
type FileResult struct {
	Filename    string   `json:"filename"`
	Format      string   `json:"format"`
	ContentHash string   `json:"content_hash"`
	Results     []string `json:"results"`
	Error       string   `json:"error,omitempty"`
}

// Job tracks the state of one query run over a set of files.
type Job struct {
	mu sync.Mutex

	ID          string
	Query       string
	InputFormat string // empty infers the format per file
	ListStyle   string

	Status JobStatus
	Error  string

	CreatedAt time.Time
	UpdatedAt time.Time

	files   []File
	results []FileResult
	done    int
}

// NewJob creates a queued job with a fresh id.
func NewJob(query string, files []File) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Query:     query,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		files:     files,
		results:   make([]FileResult, len(files)),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Finished() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed with a job-level error and releases the
// uploaded bytes.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.Error = err.Error()
	j.files = nil
	j.UpdatedAt = time.Now()
}

// Files returns the uploaded documents.
func (j *Job) Files() []File {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.files
}

// SetResult records the outcome for the file at index i.
func (j *Job) SetResult(i int, r FileResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[i] = r
	j.done++
	j.UpdatedAt = time.Now()
}

// Finish derives the terminal status from the file results and releases
// the uploaded bytes.
func (j *Job) Finish() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	failed := 0
	for _, r := range j.results {
		if r.Error != "" {
			failed++
		}
	}
	switch {
	case failed == 0:
		j.Status = StatusCompleted
	case failed == len(j.results):
		j.Status = StatusFailed
	default:
		j.Status = StatusPartial
	}
	j.files = nil
	j.UpdatedAt = time.Now()
	return j.Status
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID             string       `json:"job_id"`
	Query          string       `json:"query"`
	Status         JobStatus    `json:"status"`
	Error          string       `json:"error,omitempty"`
	FilesTotal     int          `json:"files_total"`
	FilesProcessed int          `json:"files_processed"`
	Files          []FileResult `json:"files"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state. Results are only
// included once the job has finished.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	files := []FileResult{}
	if j.Status.Finished() {
		files = make([]FileResult, len(j.results))
		for i, r := range j.results {
			if r.Results == nil {
				r.Results = []string{}
			}
			files[i] = r
		}
	}
	return JobSnapshot{
		ID:             j.ID,
		Query:          j.Query,
		Status:         j.Status,
		Error:          j.Error,
		FilesTotal:     len(j.results),
		FilesProcessed: j.done,
		Files:          files,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
