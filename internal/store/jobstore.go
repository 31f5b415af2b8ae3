// Package store holds the in-memory job index and the per-job artifact
// directory on disk. The job index is guarded by a single mutex: Go's
// goroutines give true parallelism, so unlike a GIL-bound interpreter a
// naive unsynchronized map here would race for real, not just in theory.
// ArtifactStore holds no lock of its own.
package store

import (
	"sync"
	"time"

	"horus/pkg/models"
)

// JobStore is the thread-safe index of every job the orchestrator knows
// about, keyed by job id. It owns no provider state and no HTTP
// knowledge — just status, timestamps, and the append-only attempt log.
type JobStore struct {
	mu       sync.Mutex
	records  map[string]*models.JobRecord
	requests map[string]models.JobRequest
	attempts map[string][]models.AttemptRecord
	now      func() time.Time
}

// New builds an empty JobStore.
func New() *JobStore {
	return &JobStore{
		records:  make(map[string]*models.JobRecord),
		requests: make(map[string]models.JobRequest),
		attempts: make(map[string][]models.AttemptRecord),
		now:      time.Now,
	}
}

// Create inserts a new job in the queued state and stores its originating
// request for the orchestrator to read back when it starts processing.
func (s *JobStore) Create(jobID string, req models.JobRequest) models.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := &models.JobRecord{
		JobID:     jobID,
		Status:    models.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		Artifacts: make(map[string]string),
	}
	s.records[jobID] = rec
	s.requests[jobID] = req.Clone()
	return *rec
}

// Get returns a copy of the job record for jobID, and whether it exists.
func (s *JobStore) Get(jobID string) (models.JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[jobID]
	if !ok {
		return models.JobRecord{}, false
	}
	return *rec, true
}

// Request returns the original JobRequest submitted for jobID.
func (s *JobStore) Request(jobID string) (models.JobRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[jobID]
	return req, ok
}

// SetStatus transitions jobID to status and stamps UpdatedAt. Status
// transitions are monotonic by convention of the caller (the orchestrator
// engine); JobStore itself does not enforce the state machine, only
// records it.
func (s *JobStore) SetStatus(jobID string, status models.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[jobID]
	if !ok {
		return
	}
	rec.Status = status
	rec.UpdatedAt = s.now()
}

// SetError records a terminal failure reason on jobID.
func (s *JobStore) SetError(jobID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[jobID]
	if !ok {
		return
	}
	rec.Error = reason
	rec.UpdatedAt = s.now()
}

// SetArtifact records the path or URL of a named artifact (e.g. "output",
// "scene_spec") produced for jobID.
func (s *JobStore) SetArtifact(jobID, name, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[jobID]
	if !ok {
		return
	}
	if rec.Artifacts == nil {
		rec.Artifacts = make(map[string]string)
	}
	rec.Artifacts[name] = location
	rec.UpdatedAt = s.now()
}

// AppendAttempt adds one AttemptRecord to jobID's audit trail.
func (s *JobStore) AppendAttempt(jobID string, attempt models.AttemptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[jobID] = append(s.attempts[jobID], attempt)
}

// Attempts returns a copy of jobID's attempt log.
func (s *JobStore) Attempts(jobID string) []models.AttemptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.attempts[jobID]
	out := make([]models.AttemptRecord, len(src))
	copy(out, src)
	return out
}
