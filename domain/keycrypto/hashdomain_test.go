package keycrypto

import "testing"

func TestHashDomain_DomainSeparation(t *testing.T) {
	a := ZeroDomain().Mix([]byte("Daisyway v1 by Paul Spooren & Karolin Varner, Feb-2025 with Shake256"))
	b := ZeroDomain().Mix([]byte("Daisyway v2 by Paul Spooren & Karolin Varner, Feb-2025 with Shake256"))

	if a.IntoKey() == b.IntoKey() {
		t.Fatal("changing a single byte of the protocol domain did not change the derived key")
	}
}

func TestHashDomain_DeriveKeySuffixSeparation(t *testing.T) {
	root := ProtocolRootDomain()
	derive := root.Mix([]byte("derive key"))
	other := root.Mix([]byte("derive kez"))

	if derive.IntoKey() == other.IntoKey() {
		t.Fatal("changing the derive-key suffix did not change the domain key")
	}
}

func TestHashDomain_MixForkIndependence(t *testing.T) {
	d := ZeroDomain().Mix([]byte("fork test"))
	a, b := d.MixFork([]byte("payload"))
	if a.IntoKey() == b.IntoKey() {
		t.Fatal("mix_fork produced identical sub-domains")
	}
}

func TestHashDomain_MixTriforkIndependence(t *testing.T) {
	d := ZeroDomain().Mix([]byte("trifork test"))
	a, b, c := d.MixTrifork([]byte("payload"))
	if a.IntoKey() == b.IntoKey() || b.IntoKey() == c.IntoKey() || a.IntoKey() == c.IntoKey() {
		t.Fatal("mix_trifork produced colliding sub-domains")
	}
}

func TestHashDomain_MixReadIntoArbitraryLength(t *testing.T) {
	d := ZeroDomain().Mix([]byte("seed"))
	out := make([]byte, 96)
	d.MixReadInto([]byte("payload"), out)

	allZero := true
	for _, b := range out {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatal("mix_read_into produced all-zero output")
	}
}
