package recital

// Intent tags the purpose of a reply.
type Intent string

const (
	IntentAcknowledgment Intent = "acknowledgment"
	IntentContinuation   Intent = "continuation"
	IntentFeedback       Intent = "feedback"
	IntentClarification  Intent = "clarification"
	// IntentResponse is the typed-text synonym of IntentAcknowledgment.
	IntentResponse Intent = "response"
)

// Source records how a turn's text reached the server.
type Source string

const (
	SourceSpeech Source = "speech"
	SourceText   Source = "text"
)

// Audio is a browser-playable attachment. Exactly one of Data or URL is set.
type Audio struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ReplyEnvelope is the outbound unit produced for every turn.
type ReplyEnvelope struct {
	Intent           Intent `json:"intent"`
	Text             string `json:"text"`
	Audio            *Audio `json:"audio,omitempty"`
	SourceTranscript string `json:"sourceTranscript,omitempty"`
}

// HasAudio reports whether synthesis produced something playable.
func (e ReplyEnvelope) HasAudio() bool {
	return e.Audio != nil && (len(e.Audio.Data) > 0 || e.Audio.URL != "")
}
