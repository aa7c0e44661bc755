package recital

import "strings"

// DefaultLanguage is the fallback locale for keyword tables and prompts.
const DefaultLanguage = "en"

// SourceLanguage is the language the recited passages are written in.
const SourceLanguage = "ar"

// Language describes one supported interface locale.
type Language struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	NativeName    string `json:"nativeName"`
	RTL           bool   `json:"rtl,omitempty"`
	TTSLocale     string `json:"ttsLocale"`
	Voice         string `json:"voice,omitempty"`
	Greeting      string `json:"-"`
	Clarification string `json:"-"`
}

// Catalog exposes the fixed set of supported languages.
type Catalog interface {
	List() []Language
	Find(code string) (Language, bool)
}

// MemoryCatalog implements Catalog with an in-memory slice.
type MemoryCatalog struct {
	items []Language
}

// NewMemoryCatalog returns a catalog preloaded with the supplied languages.
func NewMemoryCatalog(items []Language) *MemoryCatalog {
	return &MemoryCatalog{items: append([]Language(nil), items...)}
}

// List returns the supported languages in display order.
func (c *MemoryCatalog) List() []Language {
	return append([]Language(nil), c.items...)
}

// Find looks a language up by code, ignoring case and any region suffix ("ar-SA" -> "ar").
func (c *MemoryCatalog) Find(code string) (Language, bool) {
	code = NormalizeCode(code)
	for _, item := range c.items {
		if item.Code == code {
			return item, true
		}
	}
	return Language{}, false
}

// NormalizeCode lower-cases a locale and strips its region.
func NormalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// Seed provides the built-in language set.
func Seed() []Language {
	return []Language{
		{
			Code:          "en",
			Name:          "English",
			NativeName:    "English",
			TTSLocale:     "en-US",
			Voice:         "en_female_amy_jupiter_bigtts",
			Greeting:      "Peace be upon you. I'm ready to listen to your recitation. Begin whenever you are ready.",
			Clarification: "I didn't quite catch that. Could you repeat the last part?",
		},
		{
			Code:          "ar",
			Name:          "Arabic",
			NativeName:    "العربية",
			RTL:           true,
			TTSLocale:     "ar-SA",
			Greeting:      "السلام عليكم. أنا مستعد للاستماع إلى تلاوتك. ابدأ متى شئت.",
			Clarification: "لم أسمع ذلك جيدًا. هل يمكنك إعادة الجزء الأخير؟",
		},
		{
			Code:          "ur",
			Name:          "Urdu",
			NativeName:    "اردو",
			RTL:           true,
			TTSLocale:     "ur-PK",
			Greeting:      "السلام علیکم۔ میں آپ کی تلاوت سننے کے لیے تیار ہوں۔ جب چاہیں شروع کریں۔",
			Clarification: "میں ٹھیک سے سن نہیں سکا۔ کیا آپ آخری حصہ دوبارہ پڑھ سکتے ہیں؟",
		},
		{
			Code:          "tr",
			Name:          "Turkish",
			NativeName:    "Türkçe",
			TTSLocale:     "tr-TR",
			Greeting:      "Esselamü aleyküm. Kıraatinizi dinlemeye hazırım. Hazır olduğunuzda başlayın.",
			Clarification: "Tam anlayamadım. Son kısmı tekrar eder misiniz?",
		},
		{
			Code:          "id",
			Name:          "Indonesian",
			NativeName:    "Bahasa Indonesia",
			TTSLocale:     "id-ID",
			Greeting:      "Assalamu'alaikum. Saya siap mendengarkan bacaan Anda. Silakan mulai kapan saja.",
			Clarification: "Saya kurang menangkapnya. Bisakah Anda mengulangi bagian terakhir?",
		},
		{
			Code:          "ms",
			Name:          "Malay",
			NativeName:    "Bahasa Melayu",
			TTSLocale:     "ms-MY",
			Greeting:      "Assalamualaikum. Saya sedia mendengar bacaan anda. Mulakan bila-bila masa.",
			Clarification: "Saya kurang dengar. Boleh ulang bahagian terakhir?",
		},
		{
			Code:          "fr",
			Name:          "French",
			NativeName:    "Français",
			TTSLocale:     "fr-FR",
			Greeting:      "Que la paix soit sur vous. Je suis prêt à écouter votre récitation. Commencez quand vous voulez.",
			Clarification: "Je n'ai pas bien entendu. Pouvez-vous répéter la dernière partie ?",
		},
	}
}
