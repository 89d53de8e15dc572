package services

import (
	"fmt"
	"strings"

	googletranslatefree "github.com/bas24/googletranslatefree"
)

type translateFunc func(text, sourceLang, targetLang string) (string, error)

// Translator produces a standalone gloss of a piece of text. It never touches
// dialogue turns: a field the service was not asked for stays absent.
type Translator struct {
	sourceLang string
	targetLang string
	translate  translateFunc
}

func NewTranslator(sourceLang, targetLang string) *Translator {
	if sourceLang == "" {
		sourceLang = "zh-CN"
	}
	if targetLang == "" {
		targetLang = "en"
	}
	return &Translator{
		sourceLang: sourceLang,
		targetLang: targetLang,
		translate:  googletranslatefree.Translate,
	}
}

func (t *Translator) TargetLang() string {
	return t.targetLang
}

func (t *Translator) Translate(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	translatedText, err := t.translate(text, t.sourceLang, t.targetLang)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}

	return translatedText, nil
}

// Gloss translates Chinese text into the configured target language.
func (t *Translator) Gloss(text string) (string, error) {
	return t.Translate(strings.TrimSpace(text))
}
