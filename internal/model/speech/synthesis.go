package speech

// Encoding declares how synthesized bytes must be treated before playback.
type Encoding string

const (
	// EncodingContainer is already playable (mp3, ogg, wav).
	EncodingContainer Encoding = "container"
	// EncodingPCM is raw little-endian samples described by the format fields.
	EncodingPCM Encoding = "pcm"
	// EncodingRemote means URL points at hosted audio and Data is empty.
	EncodingRemote Encoding = "remote"
)

// Synthesis is the output of one synthesis call.
type Synthesis struct {
	Data     []byte
	URL      string
	Encoding Encoding
	MimeType string

	SampleRate    int
	Channels      int
	BitsPerSample int

	RequestID string
}
