package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrivateKey_Sources(t *testing.T) {
	key := rsaKey(t)

	pemBytes, err := EncodePrivateKeyPEM(key)
	if err != nil {
		t.Fatalf("EncodePrivateKeyPEM error: %v", err)
	}

	t.Run("inline_with_escaped_newlines", func(t *testing.T) {
		inline := strings.ReplaceAll(string(pemBytes), "\n", `\n`)

		got, err := LoadPrivateKey(inline, "")
		if err != nil {
			t.Fatalf("LoadPrivateKey error: %v", err)
		}
		if !got.Equal(key) {
			t.Fatalf("loaded key differs")
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "private.pem")
		if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
			t.Fatalf("write key: %v", err)
		}

		got, err := LoadPrivateKey("", path)
		if err != nil {
			t.Fatalf("LoadPrivateKey error: %v", err)
		}
		if !got.Equal(key) {
			t.Fatalf("loaded key differs")
		}
	})

	t.Run("missing_file_is_not_an_error", func(t *testing.T) {
		got, err := LoadPrivateKey("", filepath.Join(t.TempDir(), "absent.pem"))
		if err != nil || got != nil {
			t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := LoadPrivateKey("not a pem", ""); err == nil {
			t.Fatalf("expected parse error")
		}
	})
}

func TestEncodePublicKeyPEM(t *testing.T) {
	b, err := EncodePublicKeyPEM(&rsaKey(t).PublicKey)
	if err != nil {
		t.Fatalf("EncodePublicKeyPEM error: %v", err)
	}
	if !strings.HasPrefix(string(b), "-----BEGIN PUBLIC KEY-----") {
		t.Fatalf("unexpected pem header: %q", string(b[:30]))
	}
}
