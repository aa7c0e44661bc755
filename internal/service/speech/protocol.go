package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// 二进制帧协议：4 字节头 + 可选序号/事件元数据 + 4 字节长度 + payload，整数均为大端序。
const protocolVersion = 0x1

type frameKind uint8

const (
	kindFullClientRequest  frameKind = 0x1
	kindFullServerResponse frameKind = 0x9
	kindAudioOnlyResponse  frameKind = 0xB
	kindError              frameKind = 0xF
)

type frameFlags uint8

const (
	flagNone        frameFlags = 0x0
	flagPositiveSeq frameFlags = 0x1
	flagLastNoSeq   frameFlags = 0x2
	flagNegativeSeq frameFlags = 0x3
	flagEvent       frameFlags = 0x4
)

type serialization uint8

const (
	serialNone serialization = 0x0
	serialJSON serialization = 0x1
)

type compression uint8

const (
	compressNone compression = 0x0
	compressGzip compression = 0x1
)

type event int32

const (
	eventStartConnection    event = 1
	eventFinishConnection   event = 2
	eventConnectionStarted  event = 50
	eventConnectionFailed   event = 51
	eventConnectionFinished event = 52
	eventSessionStarted     event = 150
	eventSessionFinished    event = 152
	eventSessionFailed      event = 153
)

var errShortFrame = errors.New("frame truncated")

// frame is one protocol message.
type frame struct {
	Kind          frameKind
	Flags         frameFlags
	Serialization serialization
	Compression   compression

	Sequence  int32
	Event     event
	SessionID string
	ConnectID string
	ErrorCode uint32
	Payload   []byte
}

func (f *frame) hasSequence() bool {
	seq := f.Flags & 0x3
	return seq == flagPositiveSeq || seq == flagNegativeSeq
}

func (f *frame) hasEvent() bool { return f.Flags&flagEvent != 0 }

// final 判断是否为最后一包
func (f *frame) final() bool {
	seq := f.Flags & 0x3
	return seq == flagLastNoSeq || seq == flagNegativeSeq || f.Sequence < 0
}

// body returns the payload with compression removed.
func (f *frame) body() ([]byte, error) {
	switch f.Compression {
	case compressNone:
		return f.Payload, nil
	case compressGzip:
		return gunzip(f.Payload)
	default:
		return nil, fmt.Errorf("unsupported compression method: %d", f.Compression)
	}
}

func eventCarriesSession(e event) bool {
	switch e {
	case eventStartConnection, eventFinishConnection,
		eventConnectionStarted, eventConnectionFailed, eventConnectionFinished:
		return false
	default:
		return true
	}
}

func eventCarriesConnect(e event) bool {
	switch e {
	case eventConnectionStarted, eventConnectionFailed, eventConnectionFinished:
		return true
	default:
		return false
	}
}

// MarshalBinary encodes the frame.
func (f *frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 16+len(f.Payload))
	buf = append(buf,
		protocolVersion<<4|0x1, // header size in 4-byte words
		uint8(f.Kind)<<4|uint8(f.Flags),
		uint8(f.Serialization)<<4|uint8(f.Compression),
		0x00,
	)

	if f.hasSequence() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(f.Sequence))
	}
	if f.hasEvent() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(f.Event))
		if eventCarriesSession(f.Event) {
			buf = appendString(buf, f.SessionID)
		}
		if eventCarriesConnect(f.Event) {
			buf = appendString(buf, f.ConnectID)
		}
	}
	if f.Kind == kindError {
		buf = binary.BigEndian.AppendUint32(buf, f.ErrorCode)
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Payload)))
	return append(buf, f.Payload...), nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

type cursor struct {
	data []byte
	off  int
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || len(c.data)-c.off < n {
		return nil, errShortFrame
	}
	out := c.data[c.off : c.off+n]
	c.off += n
	return out, nil
}

func (c *cursor) uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) string() (string, error) {
	n, err := c.uint32()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseFrame decodes one websocket binary message.
func parseFrame(data []byte) (*frame, error) {
	c := &cursor{data: data}

	head, err := c.take(4)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if version := head[0] >> 4; version != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", version)
	}

	f := &frame{
		Kind:          frameKind(head[1] >> 4),
		Flags:         frameFlags(head[1] & 0x0F),
		Serialization: serialization(head[2] >> 4),
		Compression:   compression(head[2] & 0x0F),
	}

	// 头部扩展字段目前不使用，直接跳过
	if extra := int(head[0]&0x0F)*4 - 4; extra > 0 {
		if _, err := c.take(extra); err != nil {
			return nil, fmt.Errorf("read extended header: %w", err)
		}
	}

	if f.hasSequence() {
		seq, err := c.uint32()
		if err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
		f.Sequence = int32(seq)
	}

	if f.hasEvent() {
		ev, err := c.uint32()
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		f.Event = event(int32(ev))
		if eventCarriesSession(f.Event) {
			if f.SessionID, err = c.string(); err != nil {
				return nil, fmt.Errorf("read session id: %w", err)
			}
		}
		if eventCarriesConnect(f.Event) {
			if f.ConnectID, err = c.string(); err != nil {
				return nil, fmt.Errorf("read connect id: %w", err)
			}
		}
	}

	if f.Kind == kindError {
		if f.ErrorCode, err = c.uint32(); err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
	}

	size, err := c.uint32()
	if err != nil {
		return nil, fmt.Errorf("read payload size: %w", err)
	}
	if f.Payload, err = c.take(int(size)); err != nil {
		return nil, fmt.Errorf("read payload (expected %d bytes): %w", size, err)
	}

	return f, nil
}

// newRequestFrame builds the single full-client request a synthesis call sends.
func newRequestFrame(body []byte) (*frame, error) {
	payload, err := gzipBytes(body)
	if err != nil {
		return nil, err
	}
	return &frame{
		Kind:          kindFullClientRequest,
		Flags:         flagNone,
		Serialization: serialJSON,
		Compression:   compressGzip,
		Payload:       payload,
	}, nil
}
