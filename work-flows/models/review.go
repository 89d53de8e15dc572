package models

type GrammarFeedback struct {
	Original    string `json:"original"`
	Correction  string `json:"correction"`
	Explanation string `json:"explanation"`
	Example     string `json:"example"`
}

type VocabItem struct {
	Word      string `json:"word"`
	Pinyin    string `json:"pinyin"`
	Meaning   string `json:"meaning"`
	UsageNote string `json:"usage_note"`
}

// Review is the end-of-session evaluation returned by the review exchange.
type Review struct {
	OverallFeedback  string            `json:"overall_feedback"`
	GrammarFeedback  []GrammarFeedback `json:"grammar_feedback"`
	VocabularyReview []VocabItem       `json:"vocabulary_review"`
}

// Normalize replaces missing lists with empty ones so an empty review renders
// as empty sections rather than failing.
func (r *Review) Normalize() {
	if r.GrammarFeedback == nil {
		r.GrammarFeedback = []GrammarFeedback{}
	}
	if r.VocabularyReview == nil {
		r.VocabularyReview = []VocabItem{}
	}
}
