package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Error kinds. Callers branch on these to decide between re-prompting for a
// secret and treating the failure as a configuration problem.
var (
	ErrEmptyPassword = errors.New("password must not be empty")
	ErrMalformedHash = errors.New("malformed password hash")
	ErrDecrypt       = errors.New("cannot decrypt secret")
)

const (
	hashScheme     = "pbkdf2-sha512"
	hashIterations = 210000
	hashLen        = 64

	envelopePrefix   = "enc.v1:"
	secretIterations = 100000
	secretKeyLen     = 32

	saltLen = 16
	ivLen   = 12
	tagLen  = 16
)

// HashPassword derives a salted PBKDF2-HMAC-SHA512 digest of the password.
// Output format: pbkdf2-sha512:<iterations>:<saltB64>:<hashB64>.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	digest := pbkdf2.Key([]byte(password), salt, hashIterations, hashLen, sha512.New)
	return fmt.Sprintf("%s:%d:%s:%s",
		hashScheme,
		hashIterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(digest),
	), nil
}

// VerifyPassword re-derives the digest with the stored salt and iteration
// count and compares in constant time. A malformed or unsupported stored hash
// is an error; a digest mismatch is (false, nil).
func VerifyPassword(password, stored string) (bool, error) {
	parts := strings.Split(stored, ":")
	if len(parts) != 4 {
		return false, fmt.Errorf("%w: expected 4 segments, got %d", ErrMalformedHash, len(parts))
	}
	if parts[0] != hashScheme {
		return false, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedHash, parts[0])
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, fmt.Errorf("%w: bad iteration count %q", ErrMalformedHash, parts[1])
	}
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("%w: bad salt encoding", ErrMalformedHash)
	}
	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("%w: bad digest encoding", ErrMalformedHash)
	}
	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha512.New)
	if len(got) != len(want) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Cipher encrypts and decrypts stored secrets with keys derived from the
// master key. It is constructed once at startup and passed by reference to
// the components that need it.
type Cipher struct {
	masterKey []byte
}

// NewCipher wraps a resolved master key.
func NewCipher(masterKey []byte) *Cipher {
	return &Cipher{masterKey: masterKey}
}

// EncryptSecret encrypts plaintext with AES-256-GCM under a key derived from
// the master key and a fresh random salt. Output format:
// enc.v1:<saltB64>:<ivB64>:<tagB64>:<ctB64>.
func (c *Cipher) EncryptSecret(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	gcm, err := c.gcm(salt)
	if err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ct := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	b64 := base64.StdEncoding.EncodeToString
	return envelopePrefix + b64(salt) + ":" + b64(iv) + ":" + b64(tag) + ":" + b64(ct), nil
}

// DecryptSecret reverses EncryptSecret. A value without the enc.v1: prefix is
// returned unchanged — pre-encryption-era data is treated as plaintext.
func (c *Cipher) DecryptSecret(value string) (string, error) {
	if !strings.HasPrefix(value, envelopePrefix) {
		return value, nil
	}
	parts := strings.Split(strings.TrimPrefix(value, envelopePrefix), ":")
	if len(parts) != 4 {
		return "", fmt.Errorf("%w: expected 4 segments, got %d", ErrDecrypt, len(parts))
	}
	fields := make([][]byte, 4)
	for i, p := range parts {
		b, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return "", fmt.Errorf("%w: bad base64 in segment %d", ErrDecrypt, i)
		}
		fields[i] = b
	}
	salt, iv, tag, ct := fields[0], fields[1], fields[2], fields[3]
	if len(iv) != ivLen || len(tag) != tagLen {
		return "", fmt.Errorf("%w: truncated payload", ErrDecrypt)
	}

	gcm, err := c.gcm(salt)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}

func (c *Cipher) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.masterKey, salt, secretIterations, secretKeyLen, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
