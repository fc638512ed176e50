package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/udisondev/tictac/internal/constants"
)

// Type identifies the kind of a frame. The numeric values are part of the
// wire protocol and must not be reordered.
type Type uint8

const (
	TypeNone Type = iota
	TypeLogin
	TypeUsers
	TypeInvite
	TypeRevoke
	TypeAccept
	TypeDecline
	TypeMove
	TypeResign
	TypeAck
	TypeNack
	TypeInvited
	TypeRevoked
	TypeAccepted
	TypeDeclined
	TypeMoved
	TypeResigned
	TypeEnded
)

var typeNames = [...]string{
	"NONE", "LOGIN", "USERS", "INVITE", "REVOKE", "ACCEPT", "DECLINE",
	"MOVE", "RESIGN", "ACK", "NACK", "INVITED", "REVOKED", "ACCEPTED",
	"DECLINED", "MOVED", "RESIGNED", "ENDED",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// Header is the fixed-size frame header. The interpretation of ID and
// Role depends on Type. Size is the payload length in bytes, zero when the
// frame carries no payload.
type Header struct {
	Type          Type
	ID            uint8
	Role          uint8
	Size          uint16
	TimestampSec  uint32
	TimestampNsec uint32
}

// Timestamps are taken from a monotonic clock so that frame times are not
// affected by wall-clock adjustments. Clients must not interpret them as
// wall time.
var clockBase = time.Now()

func stamp(hdr *Header) {
	elapsed := time.Since(clockBase)
	hdr.TimestampSec = uint32(elapsed / time.Second)
	hdr.TimestampNsec = uint32(elapsed % time.Second)
}

// WritePacket stamps hdr with the current monotonic time, sets its Size
// from payload, and writes the frame to w: the whole header in a single
// write, then the payload (if any) in a single write. The caller is
// responsible for serialising concurrent writers to the same w.
func WritePacket(w io.Writer, hdr Header, payload []byte) error {
	if len(payload) > constants.MaxPayloadSize {
		return fmt.Errorf("write packet: payload %d exceeds %d bytes", len(payload), constants.MaxPayloadSize)
	}
	hdr.Size = uint16(len(payload))
	stamp(&hdr)

	var buf [constants.PacketHeaderSize]byte
	buf[0] = byte(hdr.Type)
	buf[1] = hdr.ID
	buf[2] = hdr.Role
	binary.BigEndian.PutUint16(buf[3:5], hdr.Size)
	binary.BigEndian.PutUint32(buf[5:9], hdr.TimestampSec)
	binary.BigEndian.PutUint32(buf[9:13], hdr.TimestampNsec)

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("writing packet header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("writing packet payload: %w", err)
		}
	}
	return nil
}

// ReadPacket reads one frame from r. A clean end-of-stream before any
// header byte is reported as io.EOF; a header or payload cut short is an
// error. The returned payload is a freshly allocated buffer of exactly
// hdr.Size bytes, or nil when the frame has none.
func ReadPacket(r io.Reader) (Header, []byte, error) {
	var buf [constants.PacketHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF {
			return Header{}, nil, io.EOF
		}
		return Header{}, nil, fmt.Errorf("reading packet header: %w", err)
	}

	hdr := Header{
		Type:          Type(buf[0]),
		ID:            buf[1],
		Role:          buf[2],
		Size:          binary.BigEndian.Uint16(buf[3:5]),
		TimestampSec:  binary.BigEndian.Uint32(buf[5:9]),
		TimestampNsec: binary.BigEndian.Uint32(buf[9:13]),
	}

	if hdr.Size == 0 {
		return hdr, nil, nil
	}

	payload := make([]byte, hdr.Size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Header{}, nil, fmt.Errorf("reading packet payload: %w", err)
	}
	return hdr, payload, nil
}
