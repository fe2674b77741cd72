// Package history records completed consultations.
package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("history: record not found")

// Record is one consultation: the patient data, the classifier's direct
// prediction and what each crew task produced.
type Record struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	PatientData string       `json:"patient_data"`
	Prediction  *Prediction  `json:"prediction,omitempty"`
	Diagnosis   string       `json:"diagnosis"`
	Treatment   string       `json:"treatment"`
	Tasks       []TaskOutput `json:"tasks,omitempty"`
	// Error is set when the crew failed; the record is still stored
	Error string `json:"error,omitempty"`
}

// Prediction is the classifier result stored with a record.
type Prediction struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
	Error string `json:"error,omitempty"`
}

// TaskOutput is the text one agent produced for one task.
type TaskOutput struct {
	Task     string        `json:"task"`
	Agent    string        `json:"agent"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// NewRecord stamps a fresh ID and creation time.
func NewRecord(patientData string) *Record {
	return &Record{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		PatientData: patientData,
	}
}

// Store persists records.
type Store interface {
	// Save inserts or replaces a record
	Save(ctx context.Context, r *Record) error
	// Get returns ErrNotFound for unknown IDs
	Get(ctx context.Context, id string) (*Record, error)
	// List returns up to limit records, newest first; limit <= 0 means all
	List(ctx context.Context, limit int) ([]*Record, error)
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Save(ctx context.Context, r *Record) error {
	if r == nil || r.ID == "" {
		return errors.New("history: record needs an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = clone(*r)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(r)
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		c := clone(r)
		out = append(out, &c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(r Record) Record {
	if r.Prediction != nil {
		p := *r.Prediction
		r.Prediction = &p
	}
	r.Tasks = append([]TaskOutput(nil), r.Tasks...)
	return r
}

var _ Store = (*MemoryStore)(nil)
