package osk

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

func TestOutfileOskHandler_WritesBase64Key(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osk.b64")
	h := NewOutfileOskHandler(path, noopLogger{})

	var key keycrypto.Key
	for i := range key {
		key[i] = byte(i)
	}

	if err := h.SetOsk(context.Background(), key, application.Fresh); err != nil {
		t.Fatalf("SetOsk: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(string(got))
	if err != nil {
		t.Fatalf("decoding written file: %v", err)
	}
	if keycrypto.Key(decoded) != key {
		t.Fatalf("written key mismatch: got %x, want %x", decoded, key)
	}
}

func TestOutfileOskHandler_OverwritesOnEachCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osk.b64")
	h := NewOutfileOskHandler(path, noopLogger{})

	var first, second keycrypto.Key
	first[0] = 0x01
	second[0] = 0x02

	if err := h.SetOsk(context.Background(), first, application.Fresh); err != nil {
		t.Fatalf("SetOsk first: %v", err)
	}
	if err := h.SetOsk(context.Background(), second, application.Stale); err != nil {
		t.Fatalf("SetOsk second: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(string(got))
	if err != nil {
		t.Fatalf("decoding written file: %v", err)
	}
	if keycrypto.Key(decoded) != second {
		t.Fatalf("file was not overwritten: got %x, want %x", decoded, second)
	}
}
