package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/aparcar/daisyway/domain/keycrypto"
)

// Etsi014Key is a symmetric key obtained from a QKD device together with
// the key identifier the peer needs to fetch the matching half.
type Etsi014Key struct {
	ID  uuid.UUID
	Key keycrypto.Key
}

// IDBytesLE is the little-endian UUID byte encoding used in KdfInput and
// on the wire (spec §3's UuidBytes).
func (k Etsi014Key) IDBytesLE() [16]byte {
	return uuidBytesLE(k.ID)
}

// uuidBytesLE mirrors the `uuid` crate's to_bytes_le(): the first three
// RFC 4122 fields (time_low, time_mid, time_hi_and_version) are
// byte-swapped; clock_seq and node are left as-is.
func uuidBytesLE(id uuid.UUID) [16]byte {
	b := [16]byte(id)
	var out [16]byte
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	copy(out[8:], b[8:])
	return out
}

// QkdClient is the ETSI GS QKD 014 port: fetch a random key (server role)
// or a specific key by id (client role).
type QkdClient interface {
	FetchAnyKey(ctx context.Context) (Etsi014Key, error)
	FetchSpecificKey(ctx context.Context, id uuid.UUID) (Etsi014Key, error)
}

// UUIDFromBytesLE inverts IDBytesLE: the byte swap is its own inverse, so
// this is the same three-group reversal applied to wire bytes coming in.
func UUIDFromBytesLE(b [16]byte) uuid.UUID {
	var out [16]byte
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	copy(out[8:], b[8:])
	return uuid.UUID(out)
}
