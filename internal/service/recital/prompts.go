package recital

import (
	"fmt"
	"strings"

	recitalmodel "github.com/zhouzirui/tilawa/backend/internal/model/recital"
	"github.com/zhouzirui/tilawa/backend/internal/service/ai"
)

// normalHistoryWindow is how many prior entries a normal turn sees.
const normalHistoryWindow = 3

func systemPrompt(lang recitalmodel.Language, topic string) string {
	var b strings.Builder
	b.WriteString("You are a warm, patient companion who listens to someone reciting the Quran aloud and helps them along. ")
	fmt.Fprintf(&b, "Always respond strictly in %s (%s), except when quoting the recited text, which stays in Arabic script. ", lang.Name, lang.NativeName)
	b.WriteString("Keep replies short enough to be spoken aloud.")
	if topic != "" {
		fmt.Fprintf(&b, "\nThe reciter is working on: %s.", topic)
	}
	return b.String()
}

func numbered(entries []string) string {
	if len(entries) == 0 {
		return "(nothing yet)"
	}
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e)
	}
	return strings.TrimRight(b.String(), "\n")
}

// feedbackPrompt asks for a critique of the recitation so far.
func feedbackPrompt(s recitalmodel.Session, lang recitalmodel.Language) ai.Prompt {
	user := fmt.Sprintf(`The reciter has asked for feedback.

Most recent recitation:
%s

Everything recited in this session, in order:
%s

Give honest feedback on the recitation. Include:
1. An honest critique of accuracy and fluency.
2. Specific corrections, quoting the words that were wrong and the correct form.
3. Pronunciation guidance (makharij and tajweed) where relevant.
4. A sincere word of encouragement.
Respond in %s.`, s.LastTranscript, numbered(s.History), lang.Name)

	return ai.Prompt{System: systemPrompt(lang, s.Topic), User: user}
}

// continuationPrompt helps a reciter who trailed off.
func continuationPrompt(transcript string, s recitalmodel.Session, lang recitalmodel.Language) ai.Prompt {
	user := fmt.Sprintf(`The reciter paused or trailed off. Their last words were:
%s

Recent recitation:
%s

Recite the next part of the passage in Arabic script, continuing exactly where they stopped.
Then add one short encouraging remark in %s.`, transcript, numbered(s.RecentHistory(normalHistoryWindow)), lang.Name)

	return ai.Prompt{System: systemPrompt(lang, s.Topic), User: user}
}

// normalPrompt covers ordinary turns.
func normalPrompt(transcript string, s recitalmodel.Session, lang recitalmodel.Language) ai.Prompt {
	user := fmt.Sprintf(`The reciter said:
%s

Recent recitation:
%s

Guidelines:
- If they seem to have stalled, gently continue the passage with them.
- Do not correct mistakes unless they ask for corrections.
- If they ask a factual question, answer it briefly and accurately.
- Otherwise acknowledge supportively and invite them to carry on.
Respond strictly in %s.`, transcript, numbered(s.RecentHistory(normalHistoryWindow)), lang.Name)

	return ai.Prompt{System: systemPrompt(lang, s.Topic), User: user}
}
