package models

import "encoding/json"

// Turn is one utterance in a dialogue. It is either a *TutorTurn or a
// *UserTurn; turns are never modified after they are appended.
type Turn interface {
	Role() Role
	Text() string
	isTurn()
}

type UserTurn struct {
	Content string
}

func NewUserTurn(text string) UserTurn {
	return UserTurn{Content: text}
}

func (UserTurn) Role() Role     { return RoleUser }
func (t UserTurn) Text() string { return t.Content }
func (UserTurn) isTurn()        {}

func (t UserTurn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role      Role   `json:"role"`
		ContentZh string `json:"content_zh"`
	}{RoleUser, t.Content})
}

// TutorTurn carries the optional fields the service returned for a tutor line.
// Which fields are present depends on the display options at request time.
type TutorTurn struct {
	Content     string
	Pinyin      Optional[string]
	English     Optional[string]
	SituationZh Optional[string]
	SituationEn Optional[string]

	// Per-turn feedback, only filled when the controller runs with
	// Capabilities.PerTurnFeedback.
	Evaluation     Optional[string]
	SuggestedWords []string
}

func (TutorTurn) Role() Role     { return RoleTutor }
func (t TutorTurn) Text() string { return t.Content }
func (TutorTurn) isTurn()        {}

// HasFeedback reports whether the turn carries any per-turn feedback.
func (t TutorTurn) HasFeedback() bool {
	return t.Evaluation.IsSome() || len(t.SuggestedWords) > 0
}

func (t TutorTurn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role           Role             `json:"role"`
		ContentZh      string           `json:"content_zh"`
		ContentPinyin  Optional[string] `json:"content_pinyin"`
		ContentEn      Optional[string] `json:"content_en"`
		SituationZh    Optional[string] `json:"situation_zh,omitzero"`
		SituationEn    Optional[string] `json:"situation_en,omitzero"`
		Evaluation     Optional[string] `json:"evaluation,omitzero"`
		SuggestedWords []string         `json:"suggested_words,omitempty"`
	}{
		Role:           RoleTutor,
		ContentZh:      t.Content,
		ContentPinyin:  t.Pinyin,
		ContentEn:      t.English,
		SituationZh:    t.SituationZh,
		SituationEn:    t.SituationEn,
		Evaluation:     t.Evaluation,
		SuggestedWords: t.SuggestedWords,
	})
}

// ToHistory maps turns to the history shape the service expects.
func ToHistory(turns []Turn) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(turns))
	for _, t := range turns {
		history = append(history, HistoryEntry{Role: t.Role(), Content: t.Text()})
	}
	return history
}
