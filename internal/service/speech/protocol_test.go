package speech

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   frame
	}{
		{
			name: "client request",
			in:   frame{Kind: kindFullClientRequest, Serialization: serialJSON, Compression: compressGzip, Payload: []byte("{}")},
		},
		{
			name: "audio with sequence",
			in:   frame{Kind: kindAudioOnlyResponse, Flags: flagPositiveSeq, Sequence: 7, Payload: []byte{1, 2, 3}},
		},
		{
			name: "last audio",
			in:   frame{Kind: kindAudioOnlyResponse, Flags: flagNegativeSeq, Sequence: -8, Payload: []byte{4}},
		},
		{
			name: "session event",
			in:   frame{Kind: kindFullServerResponse, Flags: flagEvent, Event: eventSessionFinished, SessionID: "sess-1", Payload: []byte(`{"code":0}`)},
		},
		{
			name: "connection event",
			in:   frame{Kind: kindFullServerResponse, Flags: flagEvent, Event: eventConnectionStarted, ConnectID: "conn-9"},
		},
		{
			name: "error",
			in:   frame{Kind: kindError, ErrorCode: 45000001, Payload: []byte("boom")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := tc.in.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary err: %v", err)
			}
			got, err := parseFrame(raw)
			if err != nil {
				t.Fatalf("parseFrame err: %v", err)
			}
			if got.Kind != tc.in.Kind || got.Flags != tc.in.Flags || got.Compression != tc.in.Compression {
				t.Fatalf("header mismatch: got %+v want %+v", got, tc.in)
			}
			if got.Sequence != tc.in.Sequence || got.Event != tc.in.Event || got.ErrorCode != tc.in.ErrorCode {
				t.Fatalf("metadata mismatch: got %+v want %+v", got, tc.in)
			}
			if got.SessionID != tc.in.SessionID || got.ConnectID != tc.in.ConnectID {
				t.Fatalf("ids mismatch: got %+v want %+v", got, tc.in)
			}
			if !bytes.Equal(got.Payload, tc.in.Payload) {
				t.Fatalf("payload mismatch: got %q want %q", got.Payload, tc.in.Payload)
			}
		})
	}
}

func TestFrameFinal(t *testing.T) {
	if (&frame{Flags: flagPositiveSeq, Sequence: 3}).final() {
		t.Fatal("positive sequence is not final")
	}
	if !(&frame{Flags: flagNegativeSeq, Sequence: -3}).final() {
		t.Fatal("negative sequence is final")
	}
	if !(&frame{Flags: flagLastNoSeq}).final() {
		t.Fatal("last-no-sequence flag is final")
	}
}

func TestParseFrameRejectsBadInput(t *testing.T) {
	if _, err := parseFrame([]byte{0x11, 0x10}); err == nil {
		t.Fatal("expected error for short header")
	}
	if _, err := parseFrame([]byte{0x21, 0x10, 0x00, 0x00, 0, 0, 0, 0}); err == nil {
		t.Fatal("expected error for unknown version")
	}

	f := frame{Kind: kindAudioOnlyResponse, Payload: []byte("abcdef")}
	raw, _ := f.MarshalBinary()
	_, err := parseFrame(raw[:len(raw)-2])
	if !errors.Is(err, errShortFrame) {
		t.Fatalf("err = %v, want errShortFrame", err)
	}
}

func TestRequestFrameIsGzipped(t *testing.T) {
	body := []byte(`{"req_params":{"text":"بسم الله"}}`)
	f, err := newRequestFrame(body)
	if err != nil {
		t.Fatalf("newRequestFrame err: %v", err)
	}
	if f.Compression != compressGzip || f.Serialization != serialJSON {
		t.Fatalf("unexpected frame header: %+v", f)
	}
	got, err := f.body()
	if err != nil {
		t.Fatalf("body err: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("body = %q, want %q", got, body)
	}
}
