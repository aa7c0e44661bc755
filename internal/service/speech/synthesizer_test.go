package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
	speechmodel "github.com/zhouzirui/tilawa/backend/internal/model/speech"
)

type fakeTTS struct {
	t      *testing.T
	audio  [][]byte
	reject map[string]bool
	fail   string
	hang   bool

	mu        sync.Mutex
	resources []string
	requests  []ttsRequest
	appKeys   []string
}

func (f *fakeTTS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	resource := r.Header.Get("X-Api-Resource-Id")

	_, data, err := conn.ReadMessage()
	if err != nil {
		f.t.Errorf("read request: %v", err)
		return
	}
	in, err := parseFrame(data)
	if err != nil {
		f.t.Errorf("parse request: %v", err)
		return
	}
	body, err := in.body()
	if err != nil {
		f.t.Errorf("request body: %v", err)
		return
	}
	var req ttsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		f.t.Errorf("request json: %v", err)
		return
	}

	f.mu.Lock()
	f.resources = append(f.resources, resource)
	f.requests = append(f.requests, req)
	f.appKeys = append(f.appKeys, r.Header.Get("X-Api-App-Key"))
	f.mu.Unlock()

	send := func(fr frame) {
		raw, _ := fr.MarshalBinary()
		_ = conn.WriteMessage(websocket.BinaryMessage, raw)
	}

	if f.hang {
		_, _, _ = conn.ReadMessage()
		return
	}
	if f.reject[resource] {
		send(frame{Kind: kindError, ErrorCode: 45000000, Payload: []byte(`{"error":"resource ID is mismatched with speaker related resource"}`)})
		return
	}
	if f.fail != "" {
		send(frame{Kind: kindError, ErrorCode: 50000000, Payload: []byte(f.fail)})
		return
	}

	for i, chunk := range f.audio {
		send(frame{Kind: kindAudioOnlyResponse, Flags: flagPositiveSeq, Sequence: int32(i + 1), Payload: chunk})
	}
	final, _ := gzipBytes([]byte(`{"reqid":"req-1","code":3000,"message":"ok","sequence":-1}`))
	send(frame{
		Kind:          kindFullServerResponse,
		Flags:         flagNegativeSeq,
		Sequence:      -int32(len(f.audio) + 1),
		Serialization: serialJSON,
		Compression:   compressGzip,
		Payload:       final,
	})
}

func startFakeTTS(t *testing.T, fake *fakeTTS) string {
	t.Helper()
	fake.t = t
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func arabic() recital.Language {
	lang, _ := recital.NewMemoryCatalog(recital.Seed()).Find("ar")
	return lang
}

func newTestSynth(t *testing.T, endpoint string, mutate func(*speechmodel.Config)) *VolcengineSynthesizer {
	t.Helper()
	cfg := speechmodel.Config{
		AppID:        "app",
		AccessToken:  "token",
		Endpoint:     endpoint,
		DefaultVoice: "multi_female_default",
		Voices:       map[string]string{"ar": "ar_male_qari"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewVolcengineSynthesizer(cfg, nil)
	if err != nil {
		t.Fatalf("NewVolcengineSynthesizer err: %v", err)
	}
	return s
}

func TestSynthesizePCM(t *testing.T) {
	fake := &fakeTTS{audio: [][]byte{{1, 2}, {3, 4, 5}}}
	s := newTestSynth(t, startFakeTTS(t, fake), nil)

	out, err := s.Synthesize(context.Background(), "أحسنت", arabic())
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if out == nil {
		t.Fatal("expected audio")
	}
	if !bytes.Equal(out.Data, []byte{1, 2, 3, 4, 5}) {
		t.Fatalf("data = %v", out.Data)
	}
	if out.Encoding != speechmodel.EncodingPCM || out.SampleRate != 24000 || out.Channels != 1 || out.BitsPerSample != 16 {
		t.Fatalf("unexpected format: %+v", out)
	}
	if out.RequestID != "req-1" {
		t.Fatalf("request id = %q", out.RequestID)
	}

	req := fake.requests[0]
	if req.ReqParams.Speaker != "ar_male_qari" {
		t.Fatalf("speaker = %q", req.ReqParams.Speaker)
	}
	if req.ReqParams.Language != "ar-SA" || req.ReqParams.Text != "أحسنت" {
		t.Fatalf("unexpected request params: %+v", req.ReqParams)
	}
	if req.ReqParams.AudioParams.Format != "pcm" {
		t.Fatalf("format = %q", req.ReqParams.AudioParams.Format)
	}
	if fake.appKeys[0] != "app" {
		t.Fatalf("app key header = %q", fake.appKeys[0])
	}
}

func TestSynthesizeContainerFormat(t *testing.T) {
	fake := &fakeTTS{audio: [][]byte{[]byte("ID3fake")}}
	s := newTestSynth(t, startFakeTTS(t, fake), func(c *speechmodel.Config) { c.Format = "mp3" })

	out, err := s.Synthesize(context.Background(), "well done", arabic())
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if out.Encoding != speechmodel.EncodingContainer || out.MimeType != "audio/mpeg" {
		t.Fatalf("unexpected synthesis: %+v", out)
	}
	if fake.requests[0].ReqParams.AudioParams.Format != "mp3" {
		t.Fatalf("format = %q", fake.requests[0].ReqParams.AudioParams.Format)
	}
}

func TestSynthesizeFallsBackOnResourceMismatch(t *testing.T) {
	fake := &fakeTTS{
		audio:  [][]byte{{9}},
		reject: map[string]bool{resourceSeed: true},
	}
	s := newTestSynth(t, startFakeTTS(t, fake), func(c *speechmodel.Config) {
		c.Voices = map[string]string{"ar": "ar_female_uranus_bigtts"}
	})

	out, err := s.Synthesize(context.Background(), "نعم", arabic())
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if out == nil || len(out.Data) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	want := []string{resourceSeed, resourceClassic}
	if !reflect.DeepEqual(fake.resources, want) {
		t.Fatalf("resources = %v, want %v", fake.resources, want)
	}
}

func TestSynthesizeServiceError(t *testing.T) {
	fake := &fakeTTS{fail: "quota exceeded"}
	s := newTestSynth(t, startFakeTTS(t, fake), nil)

	_, err := s.Synthesize(context.Background(), "hello there", arabic())
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("err = %v, want quota error", err)
	}
	if len(fake.resources) != 1 {
		t.Fatalf("non-mismatch errors must not retry, attempts = %d", len(fake.resources))
	}
}

func TestSynthesizeEmptyAudioIsAbsent(t *testing.T) {
	fake := &fakeTTS{}
	s := newTestSynth(t, startFakeTTS(t, fake), nil)

	out, err := s.Synthesize(context.Background(), "hello there", arabic())
	if err != nil || out != nil {
		t.Fatalf("got %+v, %v; want nil, nil", out, err)
	}
}

func TestSynthesizeBlankTextSkipsNetwork(t *testing.T) {
	s := newTestSynth(t, "ws://127.0.0.1:1/unused", nil)
	out, err := s.Synthesize(context.Background(), "   ", arabic())
	if err != nil || out != nil {
		t.Fatalf("got %+v, %v; want nil, nil", out, err)
	}
}

func TestSynthesizeHonoursDeadline(t *testing.T) {
	fake := &fakeTTS{hang: true}
	s := newTestSynth(t, startFakeTTS(t, fake), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Synthesize(ctx, "hello there", arabic())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("synthesis ignored deadline, took %s", time.Since(start))
	}
}

func TestSpeakerCandidates(t *testing.T) {
	cfg := speechmodel.Config{DefaultVoice: "global", Voices: map[string]string{"ar": "override"}}

	got := speakerCandidates(recital.Language{Code: "ar", Voice: "lang_default"}, cfg)
	if want := []string{"override", "lang_default", "global"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}

	got = speakerCandidates(recital.Language{Code: "fr", Voice: "GLOBAL"}, cfg)
	if want := []string{"GLOBAL"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("duplicates should collapse, got %v", got)
	}
}

func TestResourceCandidates(t *testing.T) {
	cases := map[string][]string{
		"":                             {resourceClassic, resourceSeed},
		"S_clone_speaker":              {resourceMega},
		"en_female_amy_jupiter_bigtts": {resourceSeed, resourceClassic},
		"ar_male_legacy":               {resourceClassic, resourceSeed},
	}
	for voice, want := range cases {
		if got := resourceCandidates(voice); !reflect.DeepEqual(got, want) {
			t.Errorf("resourceCandidates(%q) = %v, want %v", voice, got, want)
		}
	}
}

func TestNewWithoutCredentialsIsNop(t *testing.T) {
	s := New(speechmodel.Config{}, nil)
	if _, ok := s.(NopSynthesizer); !ok {
		t.Fatalf("New without credentials = %T, want NopSynthesizer", s)
	}
	out, err := s.Synthesize(context.Background(), "hello", arabic())
	if out != nil || err != nil {
		t.Fatalf("nop synthesize = %+v, %v", out, err)
	}
}
