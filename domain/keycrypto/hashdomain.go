// Package keycrypto implements Daisyway's domain-separated key derivation:
// a SHAKE-256 based HashDomain primitive and the OSK derivation built on top
// of it. Nothing in this package talks to the network or the filesystem.
package keycrypto

import "golang.org/x/crypto/sha3"

// KeyLength is the size in octets of every Key, Nonce, PeerId and OSK.
const KeyLength = 32

// protocolDomain MUST be bit-exact for interoperability: changing a single
// byte changes every derived key.
const protocolDomain = "Daisyway v1 by Paul Spooren & Karolin Varner, Feb-2025 with Shake256"

// HashDomain is a thin wrapper over SHAKE-256 that supports domain
// separation by chaining: each Mix absorbs the current key plus new data
// and produces a fresh 32-byte key.
type HashDomain struct {
	key Key
}

// ZeroDomain returns the hash domain keyed with 32 zero bytes.
func ZeroDomain() HashDomain {
	return HashDomain{}
}

// ProtocolRootDomain is ZeroDomain().Mix(protocolDomain).
func ProtocolRootDomain() HashDomain {
	return ZeroDomain().Mix([]byte(protocolDomain))
}

// DeriveKeyDomain is the protocol root domain mixed with "derive key".
func DeriveKeyDomain() HashDomain {
	return ProtocolRootDomain().Mix([]byte("derive key"))
}

func (d HashDomain) shake(data []byte) sha3.ShakeHash {
	h := sha3.NewShake256()
	h.Write(d.key[:])
	h.Write(data)
	return h
}

// MixReadInto fills out with SHAKE256(self.key || data).
func (d HashDomain) MixReadInto(data []byte, out []byte) {
	h := d.shake(data)
	if _, err := h.Read(out); err != nil {
		// sha3's XOF reader never returns an error; a panic here means the
		// sha3 package's contract changed underneath us.
		panic("keycrypto: shake256 read failed: " + err.Error())
	}
}

// Mix derives a new HashDomain whose key is the first 32 bytes of
// SHAKE256(self.key || data).
func (d HashDomain) Mix(data []byte) HashDomain {
	var next Key
	d.MixReadInto(data, next[:])
	return HashDomain{key: next}
}

// MixFork splits into two independent 32-byte sub-domains.
func (d HashDomain) MixFork(data []byte) (HashDomain, HashDomain) {
	var buf [2 * KeyLength]byte
	d.MixReadInto(data, buf[:])
	var a, b Key
	copy(a[:], buf[:KeyLength])
	copy(b[:], buf[KeyLength:])
	return HashDomain{key: a}, HashDomain{key: b}
}

// MixTrifork splits into three independent 32-byte sub-domains.
func (d HashDomain) MixTrifork(data []byte) (HashDomain, HashDomain, HashDomain) {
	var buf [3 * KeyLength]byte
	d.MixReadInto(data, buf[:])
	var a, b, c Key
	copy(a[:], buf[:KeyLength])
	copy(b[:], buf[KeyLength:2*KeyLength])
	copy(c[:], buf[2*KeyLength:])
	return HashDomain{key: a}, HashDomain{key: b}, HashDomain{key: c}
}

// IntoKey returns the domain's current key.
func (d HashDomain) IntoKey() Key {
	return d.key
}
