package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/domain/model"
)

// MemStore is an in-memory RosterStore guarded by a read-write mutex. It
// backs tests and single-process deployments that load answers from elsewhere.
type MemStore struct {
	mu         sync.RWMutex
	answers    map[string]model.Answer // questionID + participant key -> answer
	byQuestion map[string][]string     // questionID -> composite keys, insertion order
	roster     *model.Roster
}

var _ RosterStore = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		answers:    make(map[string]model.Answer),
		byQuestion: make(map[string][]string),
	}
}

func storeKey(questionID string, ref model.ParticipantRef) string {
	return questionID + "|" + ref.Key()
}

// Answer returns the zero-or-one answer for a question/participant pair.
func (s *MemStore) Answer(_ context.Context, questionID string, ref model.ParticipantRef) (model.Answer, bool, error) {
	if !ref.Valid() {
		return model.Answer{}, false, ErrInvalidRef
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.answers[storeKey(questionID, ref)]
	return a, ok, nil
}

// AnswersForQuestion returns all answers recorded for a question.
func (s *MemStore) AnswersForQuestion(_ context.Context, questionID string) ([]model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.byQuestion[questionID]
	out := make([]model.Answer, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.answers[k])
	}
	return out, nil
}

// EnsureAnswer creates a blank row for the pair if none exists.
func (s *MemStore) EnsureAnswer(_ context.Context, questionID string, ref model.ParticipantRef) (model.Answer, error) {
	if !ref.Valid() {
		return model.Answer{}, ErrInvalidRef
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(questionID, ref)
	if a, ok := s.answers[key]; ok {
		return a, nil
	}
	a := model.Answer{
		ID:          uuid.NewString(),
		QuestionID:  questionID,
		Participant: ref,
	}
	s.answers[key] = a
	s.byQuestion[questionID] = append(s.byQuestion[questionID], key)
	return a, nil
}

// SetValue records a score for the pair, creating the row if needed.
func (s *MemStore) SetValue(_ context.Context, questionID string, ref model.ParticipantRef, value *float64) error {
	if !ref.Valid() {
		return ErrInvalidRef
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(questionID, ref)
	a, ok := s.answers[key]
	if !ok {
		a = model.Answer{
			ID:          uuid.NewString(),
			QuestionID:  questionID,
			Participant: ref,
		}
		s.byQuestion[questionID] = append(s.byQuestion[questionID], key)
	}
	a.Value = value
	s.answers[key] = a
	return nil
}

// SaveRoster replaces the stored roster snapshot.
func (s *MemStore) SaveRoster(_ context.Context, roster *model.Roster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = roster
	return nil
}

// LoadRoster returns the stored roster snapshot.
func (s *MemStore) LoadRoster(_ context.Context) (*model.Roster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.roster == nil {
		return nil, ErrNoActiveRoster
	}
	return s.roster, nil
}

// HasValue reports whether a graded answer exists for the pair.
func (s *MemStore) HasValue(_ context.Context, questionID string, ref model.ParticipantRef) (bool, error) {
	if !ref.Valid() {
		return false, ErrInvalidRef
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.answers[storeKey(questionID, ref)]
	return ok && a.HasValue(), nil
}
