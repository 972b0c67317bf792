// Package repository defines the answer store interface and its
// implementations. The grading engine treats the store as a read-only data
// source; writes happen through score entry and explicit placeholder
// creation, never as a hidden side effect of grading.
package repository

import (
	"context"

	"github.com/okian/podium/internal/domain/model"
)

// Store provides access to (question, participant) -> answer records.
type Store interface {
	// Answer returns the zero-or-one answer for a question/participant pair.
	Answer(ctx context.Context, questionID string, ref model.ParticipantRef) (model.Answer, bool, error)

	// AnswersForQuestion returns all answers recorded for a question.
	AnswersForQuestion(ctx context.Context, questionID string) ([]model.Answer, error)

	// EnsureAnswer creates a blank answer row for the pair if none exists and
	// returns the stored record. Used by grading UIs to open a sheet for
	// editing; grading itself never calls this.
	EnsureAnswer(ctx context.Context, questionID string, ref model.ParticipantRef) (model.Answer, error)

	// SetValue records a score for the pair, creating the row if needed.
	// A nil value marks the answer as ungraded again.
	SetValue(ctx context.Context, questionID string, ref model.ParticipantRef, value *float64) error

	// HasValue reports whether a graded (non-nil) answer exists for the pair.
	HasValue(ctx context.Context, questionID string, ref model.ParticipantRef) (bool, error)
}

// RosterStore extends Store with roster persistence for deployments that keep
// the competition definition alongside the answers.
type RosterStore interface {
	Store

	SaveRoster(ctx context.Context, roster *model.Roster) error
	LoadRoster(ctx context.Context) (*model.Roster, error)
}
