package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"certscribe/event-portal/event-portal-backend/internal/roster"
)

// BatchStatus is the lifecycle state of a bulk issuance batch.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// RecipientResult records the outcome of one certificate delivery within a batch.
type RecipientResult struct {
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	Digest      string    `json:"digest,omitempty"`
	Delivered   bool      `json:"delivered"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Batch tracks one bulk issuance run.
type Batch struct {
	ID          uuid.UUID         `json:"id"`
	EventLabel  string            `json:"event_label"`
	Status      BatchStatus       `json:"status"`
	Total       int               `json:"total"`
	Sent        int               `json:"sent"`
	Failed      int               `json:"failed"`
	Results     []RecipientResult `json:"results"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Snapshot is an immutable copy of the session state a render run should use.
// Callers take a snapshot before issuing so concurrent roster uploads cannot
// race an in-flight batch.
type Snapshot struct {
	EventLabel   string
	Participants []roster.Participant
}

// Store holds the process-wide session state: the current event label, the
// imported roster, and recent issuance batches. Nothing in it survives a
// process restart.
type Store struct {
	mu           sync.RWMutex
	eventLabel   string
	participants []roster.Participant
	batches      map[uuid.UUID]*Batch

	retention time.Duration
	janitor   *cron.Cron
	logger    *zap.Logger
}

// NewStore creates a session store. retention bounds how long finished
// batches are kept before the janitor purges them.
func NewStore(defaultEventLabel string, retention time.Duration, logger *zap.Logger) *Store {
	return &Store{
		eventLabel: defaultEventLabel,
		batches:    make(map[uuid.UUID]*Batch),
		retention:  retention,
		logger:     logger,
	}
}

// SetEventLabel replaces the current event label.
func (s *Store) SetEventLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventLabel = label
}

// EventLabel returns the current event label.
func (s *Store) EventLabel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventLabel
}

// SetParticipants replaces the roster.
func (s *Store) SetParticipants(participants []roster.Participant) {
	copied := make([]roster.Participant, len(participants))
	copy(copied, participants)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = copied
}

// Participants returns a copy of the current roster.
func (s *Store) Participants() []roster.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]roster.Participant, len(s.participants))
	copy(copied, s.participants)
	return copied
}

// Snapshot returns an immutable copy of the event label and roster.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]roster.Participant, len(s.participants))
	copy(copied, s.participants)
	return Snapshot{
		EventLabel:   s.eventLabel,
		Participants: copied,
	}
}

// CreateBatch registers a new issuance batch and returns its ID.
func (s *Store) CreateBatch(eventLabel string, total int) uuid.UUID {
	batch := &Batch{
		ID:         uuid.New(),
		EventLabel: eventLabel,
		Status:     BatchPending,
		Total:      total,
		StartedAt:  time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = batch
	return batch.ID
}

// MarkBatchRunning transitions a batch to running.
func (s *Store) MarkBatchRunning(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if batch, ok := s.batches[id]; ok {
		batch.Status = BatchRunning
	}
}

// RecordResult appends one recipient outcome to a batch.
func (s *Store) RecordResult(id uuid.UUID, result RecipientResult) {
	result.CompletedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok {
		return
	}
	batch.Results = append(batch.Results, result)
	if result.Delivered {
		batch.Sent++
	} else {
		batch.Failed++
	}
}

// CompleteBatch transitions a batch to its terminal status.
func (s *Store) CompleteBatch(id uuid.UUID, status BatchStatus) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if batch, ok := s.batches[id]; ok {
		batch.Status = status
		batch.CompletedAt = &now
	}
}

// GetBatch returns a copy of a batch.
func (s *Store) GetBatch(id uuid.UUID) (Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[id]
	if !ok {
		return Batch{}, false
	}
	copied := *batch
	copied.Results = make([]RecipientResult, len(batch.Results))
	copy(copied.Results, batch.Results)
	return copied, true
}

// StartJanitor schedules periodic purging of expired batches.
func (s *Store) StartJanitor() error {
	c := cron.New()
	if _, err := c.AddFunc("@every 10m", s.purgeExpired); err != nil {
		return err
	}
	c.Start()
	s.janitor = c
	return nil
}

// StopJanitor stops the purge schedule.
func (s *Store) StopJanitor() {
	if s.janitor != nil {
		s.janitor.Stop()
	}
}

// purgeExpired drops finished batches older than the retention window.
func (s *Store) purgeExpired() {
	cutoff := time.Now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, batch := range s.batches {
		if batch.CompletedAt != nil && batch.CompletedAt.Before(cutoff) {
			delete(s.batches, id)
			if s.logger != nil {
				s.logger.Debug("Purged expired batch", zap.String("batch_id", id.String()))
			}
		}
	}
}
