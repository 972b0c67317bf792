// Package model declares the read-only competition entities consumed by the
// grading engine: competitions, rounds, questions, answers, teams, students.
package model

import (
	"strings"

	"github.com/okian/podium/internal/domain/types"
)

// Grouping determines which participant collection a round iterates.
type Grouping int

const (
	// GroupingIndividual rounds are scored per attending student.
	GroupingIndividual Grouping = iota
	// GroupingTeam rounds are scored per team.
	GroupingTeam
)

// QuestionType distinguishes exact-correctness from numeric-estimation scoring.
type QuestionType int

const (
	// TypeCorrect questions carry a correctness value (typically 0 or 1).
	TypeCorrect QuestionType = iota
	// TypeEstimation questions are credited by closeness to a reference answer.
	TypeEstimation
)

// EstimationSpec describes the credit formula for an estimation question as
// data. Formulas changed between seasons, so they are configured per question
// rather than hardcoded.
type EstimationSpec struct {
	// Kind selects the decay shape; see the estimation package for kinds.
	Kind string `json:"kind"`
	// Cap is the raw credit ceiling the decay is measured against.
	Cap float64 `json:"cap"`
	// Scale stretches the error term; interpretation depends on Kind.
	Scale float64 `json:"scale"`
}

// Question belongs to a round.
type Question struct {
	ID       string          `json:"id"`
	RoundRef string          `json:"round_ref"`
	Number   int             `json:"number"`
	Label    string          `json:"label"`
	Type     QuestionType    `json:"type"`
	// Weight scales the question's credit. Non-negative; defaults to 1.
	Weight float64 `json:"weight"`
	// Answer is the reference value for estimation questions.
	Answer     *float64        `json:"answer,omitempty"`
	Estimation *EstimationSpec `json:"estimation,omitempty"`
}

// Round is a single competition round with an ordered question set.
type Round struct {
	ID        string     `json:"id"`
	Ref       string     `json:"ref"`
	Name      string     `json:"name"`
	Grouping  Grouping   `json:"grouping"`
	Questions []Question `json:"questions"`
}

// Competition identifies one grading context. At most one competition is
// active system-wide at a time; the engine operates against the active one.
type Competition struct {
	ID            string                    `json:"id"`
	Ref           string                    `json:"ref"`
	Name          string                    `json:"name"`
	Active        bool                      `json:"active"`
	Divisions     []types.Division          `json:"divisions"`
	DivisionNames map[types.Division]string `json:"division_names"`
	Subjects      []types.Subject           `json:"subjects"`
	Rounds        []Round                   `json:"rounds"`
}

// Team competes in exactly one division.
type Team struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Number   int            `json:"number"`
	School   string         `json:"school"`
	Division types.Division `json:"division"`
}

// Student belongs to a team and sits two distinct subject tests. Only
// attending students participate in scoring.
type Student struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	TeamID    string        `json:"team_id"`
	Subject1  types.Subject `json:"subject1"`
	Subject2  types.Subject `json:"subject2"`
	Attending bool          `json:"attending"`
}

// ParticipantRef points at exactly one of a student or a team.
type ParticipantRef struct {
	StudentID string `json:"student_id,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
}

// StudentRef builds a reference to a student.
func StudentRef(id string) ParticipantRef { return ParticipantRef{StudentID: id} }

// TeamRef builds a reference to a team.
func TeamRef(id string) ParticipantRef { return ParticipantRef{TeamID: id} }

// Key returns a stable composite key for map indexing.
func (r ParticipantRef) Key() string {
	if r.StudentID != "" {
		return "s:" + r.StudentID
	}
	return "t:" + r.TeamID
}

// ParseKey inverts Key.
func ParseKey(key string) (ParticipantRef, bool) {
	switch {
	case strings.HasPrefix(key, "s:"):
		return StudentRef(key[2:]), true
	case strings.HasPrefix(key, "t:"):
		return TeamRef(key[2:]), true
	default:
		return ParticipantRef{}, false
	}
}

// Valid reports whether exactly one side of the reference is set.
func (r ParticipantRef) Valid() bool {
	return (r.StudentID == "") != (r.TeamID == "")
}

// Answer associates one question with one participant. A nil Value means
// "not yet graded" or "skipped" and is semantically distinct from zero.
type Answer struct {
	ID          string         `json:"id"`
	QuestionID  string         `json:"question_id"`
	Participant ParticipantRef `json:"participant"`
	Value       *float64       `json:"value,omitempty"`
}

// ValueOrZero returns the answer value, treating an ungraded answer as zero.
func (a Answer) ValueOrZero() float64 {
	if a.Value == nil {
		return 0
	}
	return *a.Value
}

// HasValue reports whether the answer has been graded.
func (a Answer) HasValue() bool { return a.Value != nil }
