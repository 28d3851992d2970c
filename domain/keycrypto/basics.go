package keycrypto

import "bytes"

// DefaultRekeyIntervalSeconds is used when a server role's configuration
// doesn't specify one.
const DefaultRekeyIntervalSeconds = 120

// Key is the universal 32-octet secret type: PSK, OSK, QKD key and nonce
// are all instances of it.
type Key [KeyLength]byte

// Nonce is a Key used as rekey-round randomness.
type Nonce = Key

// PeerId is a WireGuard public key.
type PeerId = Key

// ProtocolParameters are fixed for the lifetime of a process.
type ProtocolParameters struct {
	PSK          Key
	LocalPeerID  PeerId
	RemotePeerID PeerId
}

// WireGuardConnectionID is the symmetric 64-octet identifier both peers
// compute identically: the concatenation of the two peer ids sorted
// lexicographically by their raw 32-byte value.
type WireGuardConnectionID [2 * KeyLength]byte

// NewWireGuardConnectionID sorts the two peer ids so both roles derive the
// same value regardless of who is "local" and who is "remote".
func NewWireGuardConnectionID(self, peer PeerId) WireGuardConnectionID {
	first, second := self, peer
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}
	var id WireGuardConnectionID
	copy(id[:KeyLength], first[:])
	copy(id[KeyLength:], second[:])
	return id
}

// kdfInputLength is the exact packed size of KdfInput: psk(32) + nonce(32)
// + qkd_key(32) + qkd_key_id(16) + wireguard_connection_id(64).
const kdfInputLength = KeyLength + KeyLength + KeyLength + 16 + 2*KeyLength

// buildKdfInput serializes the KDF input fields in exact spec order with no
// padding. It never allocates more than the 176-byte result.
func buildKdfInput(psk Key, nonce Nonce, qkdKey Key, qkdKeyID [16]byte, connID WireGuardConnectionID) [kdfInputLength]byte {
	var buf [kdfInputLength]byte
	n := 0
	n += copy(buf[n:], psk[:])
	n += copy(buf[n:], nonce[:])
	n += copy(buf[n:], qkdKey[:])
	n += copy(buf[n:], qkdKeyID[:])
	copy(buf[n:], connID[:])
	return buf
}

// DeriveDaisywayKey is the pure, deterministic, role-symmetric OSK
// derivation described in spec §4.2. qkdKeyID is the little-endian byte
// encoding of the QKD key's UUID (see application.Etsi014Key.IDBytesLE).
func DeriveDaisywayKey(params ProtocolParameters, nonce Nonce, qkdKeyID [16]byte, qkdKey Key) Key {
	connID := NewWireGuardConnectionID(params.LocalPeerID, params.RemotePeerID)
	input := buildKdfInput(params.PSK, nonce, qkdKey, qkdKeyID, connID)
	key := DeriveKeyDomain().Mix(input[:]).IntoKey()
	Zeroize(input[:])
	return key
}

// Zeroize overwrites b with zero bytes. Recommended by spec §9 for Key,
// KdfInput and base64 scratch buffers; not part of the wire contract.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
