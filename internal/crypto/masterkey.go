package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	cryptorand "crypto/rand"
)

// EnvMasterKey overrides the generated master key. The value may be hex,
// base64, or a literal passphrase; the format is auto-detected.
const EnvMasterKey = "NODEREF_MASTER_KEY"

const (
	masterKeyLen      = 32
	masterKeyFileName = "master.key"
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// ResolveMasterKey returns the process master key. An explicit environment
// override takes precedence; otherwise a generated key is persisted under
// runtimeDir with restricted permissions and reused on later runs.
func ResolveMasterKey(runtimeDir string) ([]byte, error) {
	if v := os.Getenv(EnvMasterKey); v != "" {
		key, err := decodeMasterKey(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvMasterKey, err)
		}
		return key, nil
	}
	return loadOrCreateKeyFile(runtimeDir)
}

// decodeMasterKey interprets an override value as hex, base64, or literal
// UTF-8, in that order. Keys with less material than the required key length
// are rejected.
func decodeMasterKey(v string) ([]byte, error) {
	var key []byte
	switch {
	case len(v)%2 == 0 && hexKeyPattern.MatchString(v):
		b, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("decoding hex key: %w", err)
		}
		key = b
	default:
		if b, err := base64.StdEncoding.DecodeString(v); err == nil {
			key = b
		} else {
			key = []byte(v)
		}
	}
	if len(key) < masterKeyLen {
		return nil, fmt.Errorf("master key too short: need at least %d bytes of material, got %d", masterKeyLen, len(key))
	}
	return key, nil
}

func loadOrCreateKeyFile(runtimeDir string) ([]byte, error) {
	path := filepath.Join(runtimeDir, masterKeyFileName)

	if data, err := os.ReadFile(path); err == nil {
		key, err := hex.DecodeString(string(data))
		if err != nil || len(key) != masterKeyLen {
			return nil, fmt.Errorf("key file %s is corrupt", path)
		}
		return key, nil
	}

	key := make([]byte, masterKeyLen)
	if _, err := io.ReadFull(cryptorand.Reader, key); err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}
	if err := os.MkdirAll(runtimeDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating runtime dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("writing key file: %w", err)
	}
	return key, nil
}
