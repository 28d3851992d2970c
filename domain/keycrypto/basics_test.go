package keycrypto

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/sha3"
)

func fill(b byte) Key {
	var k Key
	for i := range k {
		k[i] = b
	}
	return k
}

// shakeRef reproduces the expected OSK by hand, independent of HashDomain,
// to pin down the exact byte layout the scenario vector in spec §8
// describes.
func shakeRef(t *testing.T, key []byte, data []byte, out []byte) {
	t.Helper()
	h := sha3.NewShake256()
	h.Write(key)
	h.Write(data)
	if _, err := h.Read(out); err != nil {
		t.Fatalf("shake read: %v", err)
	}
}

func TestDeriveDaisywayKey_ScenarioVector(t *testing.T) {
	psk := fill(0x00)
	local := fill(0x01)
	remote := fill(0x02)
	nonce := fill(0x03)
	qkdKey := fill(0x04)
	var qkdKeyID [16]byte
	for i := range qkdKeyID {
		qkdKeyID[i] = 0x05
	}

	params := ProtocolParameters{PSK: psk, LocalPeerID: local, RemotePeerID: remote}
	got := DeriveDaisywayKey(params, nonce, qkdKeyID, qkdKey)

	// sort(01x32, 02x32) == 01x32 || 02x32, since 01 < 02 byte-wise.
	conn := NewWireGuardConnectionID(local, remote)
	input := buildKdfInput(psk, nonce, qkdKey, qkdKeyID, conn)

	domainKey := DeriveKeyDomain().IntoKey()
	var want Key
	shakeRef(t, domainKey[:], input[:], want[:])

	if got != want {
		t.Fatalf("OSK mismatch:\n got  %x\n want %x", got, want)
	}
}

func TestDeriveDaisywayKey_SymmetricAcrossRoles(t *testing.T) {
	psk := fill(0xAA)
	a := fill(0x11)
	b := fill(0x22)
	nonce := fill(0x33)
	qkdKey := fill(0x44)
	var id [16]byte
	for i := range id {
		id[i] = byte(i)
	}

	forward := DeriveDaisywayKey(ProtocolParameters{PSK: psk, LocalPeerID: a, RemotePeerID: b}, nonce, id, qkdKey)
	backward := DeriveDaisywayKey(ProtocolParameters{PSK: psk, LocalPeerID: b, RemotePeerID: a}, nonce, id, qkdKey)

	if forward != backward {
		t.Fatalf("swapping local/remote peer id changed the OSK: %x != %x", forward, backward)
	}
}

func TestDeriveDaisywayKey_Deterministic(t *testing.T) {
	params := ProtocolParameters{PSK: fill(1), LocalPeerID: fill(2), RemotePeerID: fill(3)}
	nonce := fill(4)
	qkdKey := fill(5)
	var id [16]byte

	a := DeriveDaisywayKey(params, nonce, id, qkdKey)
	b := DeriveDaisywayKey(params, nonce, id, qkdKey)
	if a != b {
		t.Fatalf("derivation is not deterministic: %x != %x", a, b)
	}
}

func TestWireGuardConnectionID_Symmetric(t *testing.T) {
	a := fill(0x10)
	b := fill(0x20)

	if NewWireGuardConnectionID(a, b) != NewWireGuardConnectionID(b, a) {
		t.Fatal("WireGuardConnectionID is not symmetric under peer swap")
	}
}

func TestKdfInput_ExactSize(t *testing.T) {
	conn := NewWireGuardConnectionID(fill(1), fill(2))
	input := buildKdfInput(fill(0), fill(0), fill(0), [16]byte{}, conn)
	if len(input) != 144 {
		t.Fatalf("KdfInput length = %d, want 144", len(input))
	}
}

func TestZeroize(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zeroize(b)
	if !bytes.Equal(b, []byte{0, 0, 0, 0}) {
		t.Fatalf("Zeroize left nonzero bytes: %v", b)
	}
}
