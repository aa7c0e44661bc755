package speech

import "time"

// DefaultEndpoint is the Volcengine unidirectional streaming TTS endpoint.
const DefaultEndpoint = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

// Config 语音合成配置
type Config struct {
	AppID       string
	AccessToken string
	Endpoint    string

	// DefaultVoice is used when neither the language nor Voices names one.
	DefaultVoice string
	// Voices overrides the speaker per language code.
	Voices map[string]string

	Format     string // pcm, mp3, ogg_opus
	SampleRate int
	Speed      float32
	Volume     float32

	// Timeout bounds one synthesis call.
	Timeout time.Duration
}

// Enabled 表示是否提供了必需的凭证。
func (c Config) Enabled() bool {
	return c.AppID != "" && c.AccessToken != ""
}
