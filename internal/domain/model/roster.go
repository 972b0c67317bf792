package model

import (
	"fmt"

	"github.com/okian/podium/internal/domain/types"
)

// Roster is an immutable snapshot of the active competition's rounds, teams
// and students with the lookups the grading engine needs. Building it up
// front keeps the engine free of hidden queries and makes division
// partitioning exact: a participant appears in exactly one division bucket.
type Roster struct {
	competition Competition
	teams       []Team
	students    []Student

	roundsByRef  map[string]*Round
	questionByID map[string]*Question
	teamByID     map[string]*Team
	studentByID  map[string]*Student
	teamStudents map[string][]*Student
}

// NewRoster builds a roster and validates referential integrity.
func NewRoster(c Competition, teams []Team, students []Student) (*Roster, error) {
	r := &Roster{
		competition:  c,
		teams:        teams,
		students:     students,
		roundsByRef:  make(map[string]*Round, len(c.Rounds)),
		questionByID: make(map[string]*Question),
		teamByID:     make(map[string]*Team, len(teams)),
		studentByID:  make(map[string]*Student, len(students)),
		teamStudents: make(map[string][]*Student),
	}
	for i := range c.Rounds {
		round := &c.Rounds[i]
		r.roundsByRef[round.Ref] = round
		for j := range round.Questions {
			q := &round.Questions[j]
			if q.Weight < 0 {
				return nil, fmt.Errorf("%w: question %s has negative weight", ErrInvalidRoster, q.ID)
			}
			r.questionByID[q.ID] = q
		}
	}
	for i := range teams {
		r.teamByID[teams[i].ID] = &teams[i]
	}
	for i := range students {
		s := &students[i]
		if _, ok := r.teamByID[s.TeamID]; !ok {
			return nil, fmt.Errorf("%w: student %s references unknown team %s", ErrInvalidRoster, s.ID, s.TeamID)
		}
		if s.Subject1 == s.Subject2 {
			return nil, fmt.Errorf("%w: student %s has duplicate subject assignment", ErrInvalidRoster, s.ID)
		}
		r.studentByID[s.ID] = s
		r.teamStudents[s.TeamID] = append(r.teamStudents[s.TeamID], s)
	}
	return r, nil
}

// Competition returns the snapshotted competition.
func (r *Roster) Competition() Competition { return r.competition }

// Round looks up a round by its reference tag.
func (r *Roster) Round(ref string) (*Round, bool) {
	round, ok := r.roundsByRef[ref]
	return round, ok
}

// Question looks up a question by id.
func (r *Roster) Question(id string) (*Question, bool) {
	q, ok := r.questionByID[id]
	return q, ok
}

// Teams returns the current teams.
func (r *Roster) Teams() []Team { return r.teams }

// Team looks up a team by id.
func (r *Roster) Team(id string) (*Team, bool) {
	t, ok := r.teamByID[id]
	return t, ok
}

// Student looks up a student by id.
func (r *Roster) Student(id string) (*Student, bool) {
	s, ok := r.studentByID[id]
	return s, ok
}

// AttendingStudents returns students with the attendance flag set.
func (r *Roster) AttendingStudents() []Student {
	out := make([]Student, 0, len(r.students))
	for _, s := range r.students {
		if s.Attending {
			out = append(out, s)
		}
	}
	return out
}

// StudentsOfTeam returns a team's students.
func (r *Roster) StudentsOfTeam(teamID string) []Student {
	ptrs := r.teamStudents[teamID]
	out := make([]Student, 0, len(ptrs))
	for _, s := range ptrs {
		out = append(out, *s)
	}
	return out
}

// DivisionOfStudent resolves a student's division through their team.
func (r *Roster) DivisionOfStudent(studentID string) (types.Division, bool) {
	s, ok := r.studentByID[studentID]
	if !ok {
		return 0, false
	}
	t, ok := r.teamByID[s.TeamID]
	if !ok {
		return 0, false
	}
	return t.Division, true
}

// DivisionOf resolves any participant reference to its division.
func (r *Roster) DivisionOf(ref ParticipantRef) (types.Division, bool) {
	if ref.StudentID != "" {
		return r.DivisionOfStudent(ref.StudentID)
	}
	t, ok := r.teamByID[ref.TeamID]
	if !ok {
		return 0, false
	}
	return t.Division, true
}

// NameOf resolves a participant reference to a display name.
func (r *Roster) NameOf(ref ParticipantRef) string {
	if ref.StudentID != "" {
		if s, ok := r.studentByID[ref.StudentID]; ok {
			return s.Name
		}
		return ref.StudentID
	}
	if t, ok := r.teamByID[ref.TeamID]; ok {
		return t.Name
	}
	return ref.TeamID
}

// SubjectInSlot returns the subject a student sat in the given test slot
// (0 for subject1, 1 for subject2).
func (r *Roster) SubjectInSlot(studentID string, slot int) (types.Subject, bool) {
	s, ok := r.studentByID[studentID]
	if !ok {
		return "", false
	}
	if slot == 0 {
		return s.Subject1, true
	}
	return s.Subject2, true
}

// DivisionName returns the configured display name for a division.
func (r *Roster) DivisionName(d types.Division) string {
	if name, ok := r.competition.DivisionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("division-%d", d)
}
