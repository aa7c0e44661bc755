package turn

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
)

// Intent is the classifier's verdict for one transcript.
type Intent string

const (
	FeedbackRequest  Intent = "feedbackRequest"
	AssistanceNeeded Intent = "assistanceNeeded"
	Normal           Intent = "normal"
)

// MinUtteranceRunes is the length below which an utterance counts as trailing off.
const MinUtteranceRunes = 10

var ellipsisMarkers = []string{"...", "…"}

// Classifier decides how the assistant should react to a transcript.
type Classifier struct {
	keywords Keywords
}

// NewClassifier builds a classifier over the given tables. Nil means defaults.
func NewClassifier(keywords Keywords) *Classifier {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	return &Classifier{keywords: keywords}
}

// Classify applies the fixed precedence: an explicit feedback request wins
// over the short/trailing-off heuristics.
func (c *Classifier) Classify(transcript string, session recital.Session) Intent {
	normalized := lower(transcript, session.Language)
	for _, word := range c.keywords.For(session.Language) {
		if word == "" {
			continue
		}
		if strings.Contains(normalized, lower(word, session.Language)) {
			return FeedbackRequest
		}
	}

	trimmed := strings.TrimSpace(transcript)
	if utf8.RuneCountInString(trimmed) < MinUtteranceRunes {
		return AssistanceNeeded
	}
	for _, marker := range ellipsisMarkers {
		if strings.Contains(trimmed, marker) {
			return AssistanceNeeded
		}
	}

	return Normal
}

// Classify runs the default classifier.
func Classify(transcript string, session recital.Session) Intent {
	return defaultClassifier.Classify(transcript, session)
}

var defaultClassifier = NewClassifier(nil)

// 土耳其语的 İ/I 需要特殊的大小写映射。
func lower(s, language string) string {
	if recital.NormalizeCode(language) == "tr" {
		return strings.ToLowerSpecial(unicode.TurkishCase, s)
	}
	return strings.ToLower(s)
}
