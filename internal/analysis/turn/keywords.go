package turn

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
)

// Keywords maps a language code to the phrases that mark a feedback request.
type Keywords map[string][]string

var defaultKeywords = Keywords{
	"en": {"mistake", "correct", "wrong", "feedback", "how did i do", "how was i", "check my"},
	"ar": {"خطأ", "أخطاء", "غلط", "صحح", "تصحيح", "ملاحظات", "كيف كان أدائي", "قيم تلاوتي"},
	"ur": {"غلطی", "غلط", "درست کریں", "اصلاح", "رائے", "میں نے کیسا پڑھا"},
	"tr": {"hata", "yanlış", "düzelt", "geri bildirim", "nasıldı", "nasıl okudum"},
	"id": {"salah", "kesalahan", "koreksi", "perbaiki", "masukan", "bagaimana bacaan saya"},
	"ms": {"salah", "kesilapan", "betulkan", "pembetulan", "maklum balas", "bagaimana bacaan saya"},
	"fr": {"erreur", "faute", "corrige", "correction", "retour", "commentaires", "comment j'ai fait"},
}

// DefaultKeywords returns a copy of the built-in tables.
func DefaultKeywords() Keywords {
	return defaultKeywords.clone()
}

func (k Keywords) clone() Keywords {
	out := make(Keywords, len(k))
	for lang, words := range k {
		out[lang] = append([]string(nil), words...)
	}
	return out
}

// For returns the table for a language, falling back to English when the
// language has no dedicated entries.
func (k Keywords) For(language string) []string {
	if words := k[recital.NormalizeCode(language)]; len(words) > 0 {
		return words
	}
	return k[recital.DefaultLanguage]
}

// Merge returns a copy of k where every language present in override
// replaces the corresponding table.
func (k Keywords) Merge(override Keywords) Keywords {
	out := k.clone()
	for lang, words := range override {
		lang = recital.NormalizeCode(lang)
		cleaned := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.TrimSpace(w); w != "" {
				cleaned = append(cleaned, w)
			}
		}
		out[lang] = cleaned
	}
	return out
}

// LoadKeywords reads a YAML file of the form
//
//	en: ["mistake", "wrong"]
//	ar: ["خطأ"]
//
// and merges it over the defaults. An empty path yields the defaults.
func LoadKeywords(path string) (Keywords, error) {
	if path == "" {
		return DefaultKeywords(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}

	var override Keywords
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse keywords file: %w", err)
	}

	return DefaultKeywords().Merge(override), nil
}
