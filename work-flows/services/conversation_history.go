package services

import (
	"dialogue-tutor/work-flows/models"
)

// Transcript is an append-only, ordered list of turns. Append never modifies
// the receiver; it returns a new transcript so a caller can build a working
// copy and commit it only when an exchange succeeds.
type Transcript struct {
	turns []models.Turn
}

func NewTranscript(turns ...models.Turn) *Transcript {
	copied := make([]models.Turn, len(turns))
	copy(copied, turns)
	return &Transcript{turns: copied}
}

func (t *Transcript) Append(turns ...models.Turn) *Transcript {
	next := make([]models.Turn, 0, t.Len()+len(turns))
	if t != nil {
		next = append(next, t.turns...)
	}
	next = append(next, turns...)
	return &Transcript{turns: next}
}

func (t *Transcript) Len() int {
	if t == nil {
		return 0
	}
	return len(t.turns)
}

// Turns returns a copy of the turn list.
func (t *Transcript) Turns() []models.Turn {
	if t == nil {
		return []models.Turn{}
	}
	out := make([]models.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// History maps the transcript to the {role, content} entries sent to the service.
func (t *Transcript) History() []models.HistoryEntry {
	if t == nil {
		return []models.HistoryEntry{}
	}
	return models.ToHistory(t.turns)
}

// LastTutor returns the most recent tutor turn.
func (t *Transcript) LastTutor() (models.TutorTurn, bool) {
	if t == nil {
		return models.TutorTurn{}, false
	}
	for i := len(t.turns) - 1; i >= 0; i-- {
		if tutor, ok := t.turns[i].(models.TutorTurn); ok {
			return tutor, true
		}
	}
	return models.TutorTurn{}, false
}

func (t *Transcript) GetRecentTurns(maxTurns int) []models.Turn {
	turns := t.Turns()
	start := max(len(turns)-maxTurns, 0)
	return turns[start:]
}

type TranscriptStats struct {
	TotalTurns int `json:"total_turns"`
	UserTurns  int `json:"user_turns"`
	TutorTurns int `json:"tutor_turns"`
	Exchanges  int `json:"exchanges"`
}

func (t *Transcript) Stats() TranscriptStats {
	user := t.countTurnsByRole(models.RoleUser)
	return TranscriptStats{
		TotalTurns: t.Len(),
		UserTurns:  user,
		TutorTurns: t.countTurnsByRole(models.RoleTutor),
		Exchanges:  user,
	}
}

func (t *Transcript) countTurnsByRole(role models.Role) int {
	if t == nil {
		return 0
	}
	count := 0
	for _, turn := range t.turns {
		if turn.Role() == role {
			count++
		}
	}
	return count
}
