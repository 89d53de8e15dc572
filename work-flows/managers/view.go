package managers

import (
	"strings"

	"dialogue-tutor/work-flows/models"
)

type Screen int

const (
	ScreenSelector Screen = iota
	ScreenDialogue
)

type ScenarioOption struct {
	ID          models.Scenario
	Label       string
	Description string
}

func DefaultScenarioOptions() []ScenarioOption {
	return []ScenarioOption{
		{ID: models.ScenarioRestaurant, Label: "Restaurant", Description: "Order food in a Chinese restaurant"},
		{ID: models.ScenarioShopping, Label: "Shopping", Description: "Look for clothes in a mall"},
		{ID: models.ScenarioTravel, Label: "Travel", Description: "Buy tickets at the train station"},
		{ID: models.ScenarioWork, Label: "Work", Description: "Chat with a colleague at the office"},
	}
}

// TurnView is one rendered turn. A sub-line is shown only when its display
// option is on and the turn actually carries the field.
type TurnView struct {
	Role    models.Role
	Text    string
	Pinyin  string
	English string

	SituationZh string
	SituationEn string

	ShowPinyin      bool
	ShowEnglish     bool
	ShowSituation   bool
	ShowSituationEn bool
}

type FeedbackView struct {
	Evaluation     string
	SuggestedWords []string
}

type ReviewView struct {
	OverallFeedback string
	Grammar         []models.GrammarFeedback
	Vocabulary      []models.VocabItem
}

func (r ReviewView) NoCorrections() bool {
	return len(r.Grammar) == 0
}

func (r ReviewView) NoVocabulary() bool {
	return len(r.Vocabulary) == 0
}

type ViewModel struct {
	Screen Screen

	Scenarios        []ScenarioOption
	SelectedScenario models.Scenario
	SelectedIndex    int

	Display  models.DisplayOptions
	Turns    []TurnView
	Feedback *FeedbackView
	Review   *ReviewView
	Input    string

	Busy      bool
	BusyLabel string

	CanStart          bool
	CanSelectScenario bool
	CanSend           bool
	CanReview         bool
	ShowReviewAction  bool
}

// DeriveView maps a snapshot to what the front-ends draw. It has no side
// effects and depends on nothing but its arguments.
func DeriveView(snap Snapshot, scenarios []ScenarioOption) ViewModel {
	if len(scenarios) == 0 {
		scenarios = DefaultScenarioOptions()
	}

	busy := snap.Pending()
	vm := ViewModel{
		Screen:           ScreenSelector,
		SelectedScenario: snap.Scenario,
		SelectedIndex:    -1,
		Display:          snap.Display,
		Input:            snap.Input,
		Busy:             busy,
		BusyLabel:        busyLabel(snap.InFlight),
		ShowReviewAction: snap.Capabilities.EndOfSessionReview,
	}

	vm.Scenarios = make([]ScenarioOption, 0, len(scenarios)+1)
	vm.Scenarios = append(vm.Scenarios, scenarios...)
	for i, opt := range vm.Scenarios {
		if opt.ID == snap.Scenario {
			vm.SelectedIndex = i
			break
		}
	}
	if vm.SelectedIndex < 0 && snap.Scenario != "" {
		vm.Scenarios = append(vm.Scenarios, ScenarioOption{ID: snap.Scenario, Label: string(snap.Scenario)})
		vm.SelectedIndex = len(vm.Scenarios) - 1
	}

	if !snap.Started() {
		vm.CanStart = !busy
		vm.CanSelectScenario = !busy
		return vm
	}

	vm.Screen = ScreenDialogue
	vm.CanStart = !busy
	vm.CanSend = !busy && strings.TrimSpace(snap.Input) != ""
	vm.CanReview = !busy && snap.Capabilities.EndOfSessionReview && len(snap.Turns) >= 2

	vm.Turns = make([]TurnView, 0, len(snap.Turns))
	for _, turn := range snap.Turns {
		vm.Turns = append(vm.Turns, turnView(turn, snap.Display))
	}

	if snap.Capabilities.PerTurnFeedback {
		vm.Feedback = latestFeedback(snap.Turns)
	}

	if snap.Review != nil {
		vm.Review = &ReviewView{
			OverallFeedback: snap.Review.OverallFeedback,
			Grammar:         snap.Review.GrammarFeedback,
			Vocabulary:      snap.Review.VocabularyReview,
		}
	}

	return vm
}

func turnView(turn models.Turn, display models.DisplayOptions) TurnView {
	tv := TurnView{
		Role: turn.Role(),
		Text: turn.Text(),
	}

	tutor, ok := turn.(models.TutorTurn)
	if !ok {
		return tv
	}

	tv.Pinyin = tutor.Pinyin.OrZero()
	tv.English = tutor.English.OrZero()
	tv.SituationZh = tutor.SituationZh.OrZero()
	tv.SituationEn = tutor.SituationEn.OrZero()

	tv.ShowPinyin = display.ShowPinyin && tutor.Pinyin.IsSome()
	tv.ShowEnglish = display.ShowEnglish && tutor.English.IsSome()
	tv.ShowSituation = tutor.SituationZh.IsSome()
	tv.ShowSituationEn = tv.ShowSituation && display.ShowEnglish && tutor.SituationEn.IsSome()
	return tv
}

// latestFeedback is the feedback of the newest exchange only; older feedback is
// replaced, not accumulated.
func latestFeedback(turns []models.Turn) *FeedbackView {
	if len(turns) < 2 {
		return nil
	}
	tutor, ok := turns[len(turns)-1].(models.TutorTurn)
	if !ok || !tutor.HasFeedback() {
		return nil
	}
	return &FeedbackView{
		Evaluation:     tutor.Evaluation.OrZero(),
		SuggestedWords: append([]string(nil), tutor.SuggestedWords...),
	}
}

func busyLabel(kind ExchangeKind) string {
	switch kind {
	case ExchangeStart:
		return "Starting..."
	case ExchangeRespond:
		return "Sending..."
	case ExchangeReview:
		return "Reviewing..."
	default:
		return ""
	}
}
