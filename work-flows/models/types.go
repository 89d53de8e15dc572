package models

// Turn roles

type Role string

const (
	RoleTutor Role = "tutor"
	RoleUser  Role = "user"
)

func (r Role) String() string {
	return string(r)
}

type Scenario string

const (
	ScenarioRestaurant Scenario = "restaurant"
	ScenarioShopping   Scenario = "shopping"
	ScenarioTravel     Scenario = "travel"
	ScenarioWork       Scenario = "work"
)

func (s Scenario) String() string {
	return string(s)
}

// Known reports whether s is one of the built-in scenarios. Unknown values are
// still sent to the service as-is; the service decides what to do with them.
func (s Scenario) Known() bool {
	switch s {
	case ScenarioRestaurant, ScenarioShopping, ScenarioTravel, ScenarioWork:
		return true
	default:
		return false
	}
}

func KnownScenarios() []Scenario {
	return []Scenario{ScenarioRestaurant, ScenarioShopping, ScenarioTravel, ScenarioWork}
}

type DisplayOptions struct {
	ShowPinyin  bool `json:"show_pinyin" yaml:"show_pinyin"`
	ShowEnglish bool `json:"show_english" yaml:"show_english"`
}

// IncludeTranslations is what the respond exchange asks the service for.
func (o DisplayOptions) IncludeTranslations() bool {
	return o.ShowPinyin || o.ShowEnglish
}

// Capabilities selects which feedback modes a controller exposes.
type Capabilities struct {
	PerTurnFeedback    bool `json:"per_turn_feedback" yaml:"per_turn_feedback"`
	EndOfSessionReview bool `json:"end_of_session_review" yaml:"end_of_session_review"`
}

func DefaultCapabilities() Capabilities {
	return Capabilities{
		PerTurnFeedback:    false,
		EndOfSessionReview: true,
	}
}

// HistoryEntry is one element of the history sent to the service. Content is
// always the Chinese text of the turn, for both roles.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type StartDialogueRequest struct {
	Scenario Scenario `json:"scenario"`
}

type StartDialogueResponse struct {
	SituationZh       string  `json:"situation_zh"`
	SituationEn       *string `json:"situation_en"`
	InitialLineZh     string  `json:"initial_line_zh"`
	InitialLinePinyin *string `json:"initial_line_pinyin"`
	InitialLineEn     *string `json:"initial_line_en"`
}

type RespondRequest struct {
	Response            string         `json:"response"`
	History             []HistoryEntry `json:"history"`
	Scenario            Scenario       `json:"scenario"`
	IncludeTranslations bool           `json:"include_translations"`
}

type RespondResponse struct {
	NextLineZh     string   `json:"next_line_zh"`
	NextLinePinyin *string  `json:"next_line_pinyin"`
	NextLineEn     *string  `json:"next_line_en"`
	Evaluation     *string  `json:"evaluation,omitempty"`
	SuggestedWords []string `json:"suggested_words,omitempty"`
}

type ReviewRequest struct {
	History  []HistoryEntry `json:"history"`
	Scenario Scenario       `json:"scenario"`
}
