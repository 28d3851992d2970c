package keycrypto

import (
	"crypto/rand"
	"fmt"
)

// RekeyReqLength is the exact wire size of RekeyReq.
const RekeyReqLength = 16 + KeyLength

// RekeyReq is the server-to-client rekey request: which QKD key id to
// fetch, plus the nonce that will seed this round's OSK.
type RekeyReq struct {
	QkdKeyID [16]byte
	Nonce    Nonce
}

// NewRekeyReq draws a fresh cryptographically secure nonce.
func NewRekeyReq(qkdKeyID [16]byte) (RekeyReq, error) {
	var nonce Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		return RekeyReq{}, fmt.Errorf("keycrypto: failed to draw rekey nonce: %w", err)
	}
	return RekeyReq{QkdKeyID: qkdKeyID, Nonce: nonce}, nil
}

// MarshalBinary packs the request into exactly RekeyReqLength octets:
// qkd_key_id(16) || nonce(32).
func (r RekeyReq) MarshalBinary() [RekeyReqLength]byte {
	var buf [RekeyReqLength]byte
	n := copy(buf[:], r.QkdKeyID[:])
	copy(buf[n:], r.Nonce[:])
	return buf
}

// ParseRekeyReq unpacks a RekeyReq from exactly RekeyReqLength octets.
func ParseRekeyReq(buf [RekeyReqLength]byte) RekeyReq {
	var r RekeyReq
	copy(r.QkdKeyID[:], buf[:16])
	copy(r.Nonce[:], buf[16:])
	return r
}

// RekeyAck is the single-octet client-to-server acknowledgement.
type RekeyAck byte

// RekeyAckOK is the only valid RekeyAck value.
const RekeyAckOK RekeyAck = 0x01

// Validate reports a protocol error for any value other than RekeyAckOK.
func (a RekeyAck) Validate() error {
	if a != RekeyAckOK {
		return fmt.Errorf("keycrypto: rekey acknowledgement is invalid: expected 0x%02x, got 0x%02x", byte(RekeyAckOK), byte(a))
	}
	return nil
}
