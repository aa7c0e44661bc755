package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
	speechmodel "github.com/zhouzirui/tilawa/backend/internal/model/speech"
)

// ErrNotConfigured is returned when synthesis credentials are missing.
var ErrNotConfigured = errors.New("speech synthesis credentials missing")

// Synthesizer renders text as audio. A nil Synthesis with a nil error
// means nothing playable was produced.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang recital.Language) (*speechmodel.Synthesis, error)
}

// NopSynthesizer never produces audio; it backs deployments without TTS credentials.
type NopSynthesizer struct{}

// Synthesize implements Synthesizer.
func (NopSynthesizer) Synthesize(context.Context, string, recital.Language) (*speechmodel.Synthesis, error) {
	return nil, nil
}

// New returns the Volcengine synthesizer when credentials are present and
// a NopSynthesizer otherwise.
func New(cfg speechmodel.Config, logger *zap.SugaredLogger) Synthesizer {
	if !cfg.Enabled() {
		return NopSynthesizer{}
	}
	s, err := NewVolcengineSynthesizer(cfg, logger)
	if err != nil {
		return NopSynthesizer{}
	}
	return s
}

// VolcengineSynthesizer 火山引擎 TTS WebSocket 客户端
type VolcengineSynthesizer struct {
	cfg    speechmodel.Config
	dialer *websocket.Dialer
	logger *zap.SugaredLogger
}

// NewVolcengineSynthesizer validates credentials and applies defaults.
func NewVolcengineSynthesizer(cfg speechmodel.Config, logger *zap.SugaredLogger) (*VolcengineSynthesizer, error) {
	cfg.AppID = strings.TrimSpace(cfg.AppID)
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = speechmodel.DefaultEndpoint
	}
	if cfg.Format == "" {
		cfg.Format = "pcm"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &VolcengineSynthesizer{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}, nil
}

type ttsRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format      string  `json:"format"`
	SampleRate  int     `json:"sample_rate"`
	SpeedRatio  float32 `json:"speed_ratio,omitempty"`
	VolumeRatio float32 `json:"volume_ratio,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
}

// Synthesize tries every speaker/resource combination for the language and
// returns the first successful result.
func (s *VolcengineSynthesizer) Synthesize(ctx context.Context, text string, lang recital.Language) (*speechmodel.Synthesis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	speakers := speakerCandidates(lang, s.cfg)
	if len(speakers) == 0 {
		return nil, fmt.Errorf("no voice configured for language %q", lang.Code)
	}

	var lastMismatch error
	for _, speaker := range speakers {
		for _, resource := range resourceCandidates(speaker) {
			out, err := s.synthesizeOnce(ctx, text, lang, speaker, resource)
			if err == nil {
				return out, nil
			}
			if !isResourceMismatch(err) {
				return nil, err
			}
			s.logger.Debugw("tts resource mismatch", "voice", speaker, "resource", resource)
			lastMismatch = err
		}
	}
	return nil, lastMismatch
}

func (s *VolcengineSynthesizer) synthesizeOnce(ctx context.Context, text string, lang recital.Language, speaker, resource string) (*speechmodel.Synthesis, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", s.cfg.AppID)
	header.Set("X-Api-Access-Key", s.cfg.AccessToken)
	header.Set("X-Api-Resource-Id", resource)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("connect tts websocket: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			s.logger.Debugw("tts connected", "logid", logID, "voice", speaker)
		}
	}

	// ReadMessage 不感知 ctx，取消时直接关闭连接让读取返回
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	body, err := jsonAPI.Marshal(s.buildRequest(text, lang, speaker, connectID))
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}
	req, err := newRequestFrame(body)
	if err != nil {
		return nil, err
	}
	raw, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
		return nil, fmt.Errorf("send tts request: %w", err)
	}

	var (
		audio []byte
		reqID = connectID
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("read tts response: %w", err)
		}

		f, err := parseFrame(data)
		if err != nil {
			return nil, fmt.Errorf("decode tts frame: %w", err)
		}
		payload, err := f.body()
		if err != nil {
			return nil, fmt.Errorf("decompress tts frame: %w", err)
		}

		switch f.Kind {
		case kindError:
			return nil, fmt.Errorf("tts error %d: %s", f.ErrorCode, payload)

		case kindAudioOnlyResponse:
			audio = append(audio, payload...)

		case kindFullServerResponse:
			if f.hasEvent() && f.Event == eventSessionFailed {
				return nil, fmt.Errorf("tts session failed: %s", payload)
			}
			var msg ttsServerMessage
			if len(payload) > 0 {
				if err := jsonAPI.Unmarshal(payload, &msg); err != nil {
					s.logger.Debugw("tts payload not json", "error", err)
				} else {
					// 3000 表示成功
					if msg.Code != 0 && msg.Code != 3000 {
						return nil, fmt.Errorf("tts api error %d: %s", msg.Code, msg.Message)
					}
					if msg.ReqID != "" {
						reqID = msg.ReqID
					}
					if msg.Data != "" {
						chunk, err := decodeBase64Audio(msg.Data)
						if err != nil {
							return nil, fmt.Errorf("decode base64 audio chunk: %w", err)
						}
						audio = append(audio, chunk...)
					}
				}
			}

			finished := (f.hasEvent() && f.Event == eventSessionFinished) || f.final() || msg.Sequence < 0
			if finished {
				return s.result(audio, reqID), nil
			}

		default:
			s.logger.Debugw("tts unexpected frame", "kind", f.Kind)
		}

		if f.Kind == kindAudioOnlyResponse && f.final() {
			return s.result(audio, reqID), nil
		}
	}
}

func (s *VolcengineSynthesizer) buildRequest(text string, lang recital.Language, speaker, uid string) *ttsRequest {
	req := &ttsRequest{}
	req.User.UID = uid
	req.ReqParams.Speaker = speaker
	req.ReqParams.Text = text
	req.ReqParams.Language = lang.TTSLocale
	req.ReqParams.AudioParams = ttsAudioParams{
		Format:     requestFormat(s.cfg.Format),
		SampleRate: s.cfg.SampleRate,
	}
	if s.cfg.Speed > 0 && s.cfg.Speed != 1 {
		req.ReqParams.AudioParams.SpeedRatio = s.cfg.Speed
	}
	if s.cfg.Volume > 0 && s.cfg.Volume != 1 {
		req.ReqParams.AudioParams.VolumeRatio = s.cfg.Volume
	}
	req.ReqParams.Additions = `{"disable_markdown_filter":false}`
	return req
}

// requestFormat maps the configured format onto what the service accepts;
// wav is produced locally from pcm.
func requestFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "mp3":
		return "mp3"
	case "ogg", "ogg_opus":
		return "ogg_opus"
	default:
		return "pcm"
	}
}

func (s *VolcengineSynthesizer) result(audio []byte, reqID string) *speechmodel.Synthesis {
	if len(audio) == 0 {
		return nil
	}

	out := &speechmodel.Synthesis{Data: audio, RequestID: reqID}
	switch requestFormat(s.cfg.Format) {
	case "mp3":
		out.Encoding = speechmodel.EncodingContainer
		out.MimeType = "audio/mpeg"
	case "ogg_opus":
		out.Encoding = speechmodel.EncodingContainer
		out.MimeType = "audio/ogg"
	default:
		out.Encoding = speechmodel.EncodingPCM
		out.SampleRate = s.cfg.SampleRate
		out.Channels = 1
		out.BitsPerSample = 16
	}
	return out
}
