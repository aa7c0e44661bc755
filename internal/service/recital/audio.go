package recital

import (
	"fmt"

	"github.com/zhouzirui/tilawa/backend/internal/audio"
	recitalmodel "github.com/zhouzirui/tilawa/backend/internal/model/recital"
	speechmodel "github.com/zhouzirui/tilawa/backend/internal/model/speech"
)

// playableAudio converts a synthesis result into something a browser can
// play directly. A nil result means there is nothing to attach.
func playableAudio(s *speechmodel.Synthesis) (*recitalmodel.Audio, error) {
	if s == nil {
		return nil, nil
	}

	switch s.Encoding {
	case speechmodel.EncodingPCM:
		if len(s.Data) == 0 {
			return nil, nil
		}
		wav, err := audio.EncodeContainer(s.Data, s.SampleRate, s.Channels, s.BitsPerSample)
		if err != nil {
			return nil, fmt.Errorf("wrap pcm: %w", err)
		}
		return &recitalmodel.Audio{MimeType: "audio/wav", Data: wav}, nil

	case speechmodel.EncodingContainer:
		if len(s.Data) == 0 {
			return nil, nil
		}
		mime := s.MimeType
		if mime == "" {
			if audio.IsContainer(s.Data) {
				mime = "audio/wav"
			} else {
				mime = "audio/mpeg"
			}
		}
		return &recitalmodel.Audio{MimeType: mime, Data: s.Data}, nil

	case speechmodel.EncodingRemote:
		if s.URL == "" {
			return nil, nil
		}
		return &recitalmodel.Audio{MimeType: s.MimeType, URL: s.URL}, nil

	default:
		return nil, fmt.Errorf("unknown audio encoding %q", s.Encoding)
	}
}
