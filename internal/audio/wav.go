package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// HeaderSize is the length of the canonical RIFF/WAVE header written by EncodeContainer.
const HeaderSize = 44

// ErrInvalidFormat is returned when the PCM format parameters cannot describe a WAV stream.
var ErrInvalidFormat = errors.New("audio: invalid format")

// Format describes interleaved little-endian linear PCM.
type Format struct {
	SampleRate    int `json:"sampleRate"`
	Channels      int `json:"channels"`
	BitsPerSample int `json:"bitsPerSample"`
}

// DefaultFormat is the profile the speech synthesizer is asked for: 24kHz mono 16-bit.
var DefaultFormat = Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

// Validate reports ErrInvalidFormat for parameters no WAV header can carry.
func (f Format) Validate() error {
	if f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0 {
		return fmt.Errorf("%w: bits per sample %d is not a positive multiple of 8", ErrInvalidFormat, f.BitsPerSample)
	}
	if f.Channels < 1 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidFormat, f.Channels)
	}
	if f.SampleRate < 1 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	return nil
}

// BlockAlign is the size in bytes of one frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// ByteRate is the number of bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Duration returns the play time of n bytes of PCM in this format.
func (f Format) Duration(n int) time.Duration {
	rate := f.ByteRate()
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// wavHeader mirrors the on-disk layout of a canonical 44-byte header.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // data size + 36
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// EncodeContainer wraps raw PCM bytes in a WAV container. The payload is
// copied unmodified and may have any length.
func EncodeContainer(pcm []byte, sampleRate, channels, bitsPerSample int) ([]byte, error) {
	return Format{SampleRate: sampleRate, Channels: channels, BitsPerSample: bitsPerSample}.Encode(pcm)
}

// Encode wraps pcm in a WAV container described by f.
func (f Format) Encode(pcm []byte) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	dataSize := uint32(len(pcm))
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     dataSize + 36,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.ByteRate()),
		BlockAlign:    uint16(f.BlockAlign()),
		BitsPerSample: uint16(f.BitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	buf.Write(pcm)
	return buf.Bytes(), nil
}

// Info is what ParseHeader recovers from a canonical header.
type Info struct {
	Format   Format `json:"format"`
	DataSize uint32 `json:"dataSize"`
	FileSize uint32 `json:"fileSize"`
}

// ParseHeader reads back the header written by EncodeContainer.
func ParseHeader(data []byte) (Info, error) {
	if len(data) < HeaderSize {
		return Info{}, fmt.Errorf("wav data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	var h wavHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return Info{}, fmt.Errorf("read wav header: %w", err)
	}

	switch {
	case string(h.ChunkID[:]) != "RIFF":
		return Info{}, fmt.Errorf("invalid wav: missing RIFF tag")
	case string(h.Format[:]) != "WAVE":
		return Info{}, fmt.Errorf("invalid wav: missing WAVE tag")
	case string(h.Subchunk1ID[:]) != "fmt ":
		return Info{}, fmt.Errorf("invalid wav: missing fmt chunk")
	case string(h.Subchunk2ID[:]) != "data":
		return Info{}, fmt.Errorf("invalid wav: missing data chunk")
	case h.AudioFormat != 1:
		return Info{}, fmt.Errorf("unsupported audio format tag %d (only PCM)", h.AudioFormat)
	}

	return Info{
		Format: Format{
			SampleRate:    int(h.SampleRate),
			Channels:      int(h.NumChannels),
			BitsPerSample: int(h.BitsPerSample),
		},
		DataSize: h.Subchunk2Size,
		FileSize: h.ChunkSize,
	}, nil
}

// IsContainer sniffs the RIFF/WAVE magic.
func IsContainer(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}
