package constants

// Wire Protocol Constants
//
// The client↔server protocol uses a fixed 13-byte header followed by an
// optional UTF-8 payload. All multi-byte header fields are network byte
// order on the wire.

const (
	// PacketHeaderSize is the fixed frame header size in bytes:
	// type(1) + id(1) + role(1) + size(2) + ts_sec(4) + ts_nsec(4)
	PacketHeaderSize = 13

	// MaxPayloadSize is the largest payload a single frame can carry,
	// bounded by the 2-byte size field
	MaxPayloadSize = 0xFFFF
)

// Server Limits
const (
	// MaxClients is the hard cap on concurrently registered client sessions
	MaxClients = 64
)

// Rating Constants
const (
	// InitialRating is the rating assigned to a player on first login
	InitialRating = 1500.0

	// EloKFactor is the K multiplier of the Elo update
	EloKFactor = 32.0

	// EloDenominator is the divisor of the rating difference in the
	// expected-score exponent
	EloDenominator = 400.0
)
