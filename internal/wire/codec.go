package wire

import (
	"encoding/json"
	"fmt"
)

// Message is the decoded result of reading one frame: a typed header plus
// whatever raw payload bytes followed it. The dispatcher type-switches on
// Header to recover the concrete struct.
type Message struct {
	Header  any
	Payload []byte
}

// Encode marshals a typed header struct (one of the *Header types in
// messages.go) and its payload into the bytes WritePlainFrame or the AEAD
// sealer expects.
func Encode(header any, payload []byte) ([]byte, []byte, error) {
	data, err := json.Marshal(header)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: marshaling header: %w", err)
	}
	return data, payload, nil
}

// Decode inspects a header's "type" field and unmarshals it into the
// matching concrete struct, returning it boxed in Message.Header.
func Decode(header, payload []byte) (Message, error) {
	t, err := peekType(header)
	if err != nil {
		return Message{}, err
	}

	var dst any
	switch t {
	case HandshakeHello:
		dst = &HelloHeader{}
	case HandshakeChallenge:
		dst = &ChallengeHeader{}
	case HandshakeResponse:
		dst = &ResponseHeader{}
	case HandshakeOK:
		dst = &OKHeader{}
	case Heartbeat:
		dst = &HeartbeatHeader{}
	case Text:
		dst = &TextHeader{}
	case Image:
		dst = &ImageHeader{}
	case FilesInline:
		dst = &FilesInlineHeader{}
	case FileAnnounce:
		dst = &FileAnnounceHeader{}
	case FileRequest:
		dst = &FileRequestHeader{}
	case FileChunk:
		dst = &FileChunkHeader{}
	case FileComplete:
		dst = &FileCompleteHeader{}
	case TransferCancel:
		dst = &TransferCancelHeader{}
	case TransferError:
		dst = &TransferErrorHeader{}
	default:
		return Message{}, protoErrorf("unknown message type %d", t)
	}

	if err := json.Unmarshal(header, dst); err != nil {
		return Message{}, protoErrorf("decoding %T: %v", dst, err)
	}
	return Message{Header: dst, Payload: payload}, nil
}
