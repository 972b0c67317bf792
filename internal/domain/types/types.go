// Package types contains score shapes shared across the application.
package types

import "sort"

// Division is a competition tier. Every aggregate in the system is computed
// independently per division; cross-division comparison never occurs.
type Division int

// Subject identifies one of the individually-tested subjects.
type Subject string

// ScoreMap is the common currency between grading stages: division ->
// participant id -> score.
type ScoreMap map[Division]map[string]float64

// Set records a score, creating the division bucket on first use.
func (m ScoreMap) Set(d Division, participant string, score float64) {
	bucket, ok := m[d]
	if !ok {
		bucket = make(map[string]float64)
		m[d] = bucket
	}
	bucket[participant] = score
}

// Get returns the score for a participant in a division.
func (m ScoreMap) Get(d Division, participant string) (float64, bool) {
	s, ok := m[d][participant]
	return s, ok
}

// Participants counts entries across all divisions.
func (m ScoreMap) Participants() int {
	n := 0
	for _, bucket := range m {
		n += len(bucket)
	}
	return n
}

// Scale returns a copy of the map with every score multiplied by factor.
func (m ScoreMap) Scale(factor float64) ScoreMap {
	out := make(ScoreMap, len(m))
	for d, bucket := range m {
		for id, s := range bucket {
			out.Set(d, id, s*factor)
		}
	}
	return out
}

// Scoreboard maps division display names to ranked standings.
type Scoreboard map[string][]Standing

// SubjectScoreboards nests scoreboards by division name, then subject.
type SubjectScoreboards map[string]map[string][]Standing

// Standing is one row of a ranked scoreboard.
type Standing struct {
	Rank  int     `json:"rank"`
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Rank orders a division bucket by score descending and assigns ranks.
// Participants with equal scores share a rank. nameOf resolves display names;
// a nil nameOf leaves the participant id as the name.
func Rank(bucket map[string]float64, nameOf func(id string) string) []Standing {
	out := make([]Standing, 0, len(bucket))
	for id, score := range bucket {
		name := id
		if nameOf != nil {
			name = nameOf(id)
		}
		out = append(out, Standing{ID: id, Name: name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}
