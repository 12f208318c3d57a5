package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveMasterKeyFromEnvHex(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, 32)
	t.Setenv(EnvMasterKey, hex.EncodeToString(raw))

	key, err := ResolveMasterKey(t.TempDir())
	if err != nil {
		t.Fatalf("ResolveMasterKey failed: %v", err)
	}
	if !bytes.Equal(key, raw) {
		t.Errorf("expected hex-decoded key, got %x", key)
	}
}

func TestResolveMasterKeyFromEnvBase64(t *testing.T) {
	raw := bytes.Repeat([]byte{0x5f, 0x21}, 16)
	t.Setenv(EnvMasterKey, base64.StdEncoding.EncodeToString(raw))

	key, err := ResolveMasterKey(t.TempDir())
	if err != nil {
		t.Fatalf("ResolveMasterKey failed: %v", err)
	}
	if !bytes.Equal(key, raw) {
		t.Errorf("expected base64-decoded key, got %x", key)
	}
}

func TestResolveMasterKeyFromEnvLiteral(t *testing.T) {
	literal := "correct horse battery staple, but long enough!"
	t.Setenv(EnvMasterKey, literal)

	key, err := ResolveMasterKey(t.TempDir())
	if err != nil {
		t.Fatalf("ResolveMasterKey failed: %v", err)
	}
	if string(key) != literal {
		t.Errorf("expected literal key, got %q", key)
	}
}

func TestResolveMasterKeyRejectsShort(t *testing.T) {
	t.Setenv(EnvMasterKey, "too-short")
	if _, err := ResolveMasterKey(t.TempDir()); err == nil {
		t.Error("expected error for short master key")
	}
}

func TestResolveMasterKeyGeneratesAndReuses(t *testing.T) {
	t.Setenv(EnvMasterKey, "")
	dir := t.TempDir()

	key1, err := ResolveMasterKey(dir)
	if err != nil {
		t.Fatalf("first ResolveMasterKey failed: %v", err)
	}
	if len(key1) != 32 {
		t.Errorf("expected 32-byte generated key, got %d", len(key1))
	}

	info, err := os.Stat(filepath.Join(dir, "master.key"))
	if err != nil {
		t.Fatalf("key file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key file permissions = %o, want 600", perm)
	}

	key2, err := ResolveMasterKey(dir)
	if err != nil {
		t.Fatalf("second ResolveMasterKey failed: %v", err)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("second resolution should reuse the persisted key")
	}
}

func TestResolveMasterKeyCorruptKeyFile(t *testing.T) {
	t.Setenv(EnvMasterKey, "")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "master.key"), []byte("not hex at all"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := ResolveMasterKey(dir)
	if err == nil || !strings.Contains(err.Error(), "corrupt") {
		t.Errorf("expected corrupt key file error, got %v", err)
	}
}
