package crypto

import (
	"errors"
	"strings"
	"testing"
)

func testCipher() *Cipher {
	return NewCipher([]byte("0123456789abcdef0123456789abcdef"))
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hash, "pbkdf2-sha512:") {
		t.Errorf("unexpected hash format: %s", hash)
	}

	ok, err := VerifyPassword("hunter2", hash)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Error("correct password should verify")
	}

	ok, err = VerifyPassword("hunter3", hash)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if ok {
		t.Error("wrong password should not verify")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	_, err := HashPassword("")
	if !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, _ := HashPassword("same")
	h2, _ := HashPassword("same")
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	cases := []string{
		"",
		"not-a-hash",
		"pbkdf2-sha512:210000:onlythree",
		"bcrypt:10:c2FsdA==:aGFzaA==",
		"pbkdf2-sha512:zero:c2FsdA==:aGFzaA==",
		"pbkdf2-sha512:210000:!!!:aGFzaA==",
		"pbkdf2-sha512:210000:c2FsdA==:!!!",
	}
	for _, stored := range cases {
		if _, err := VerifyPassword("pw", stored); !errors.Is(err, ErrMalformedHash) {
			t.Errorf("stored=%q: expected ErrMalformedHash, got %v", stored, err)
		}
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := testCipher()
	for _, plaintext := range []string{
		"admin",
		"a ticket: TICKET_0123456789abcdef",
		"",
		"unicode: пароль 密码",
	} {
		enc, err := c.EncryptSecret(plaintext)
		if err != nil {
			t.Fatalf("EncryptSecret(%q) failed: %v", plaintext, err)
		}
		if !strings.HasPrefix(enc, "enc.v1:") {
			t.Errorf("missing envelope prefix: %s", enc)
		}
		dec, err := c.DecryptSecret(enc)
		if err != nil {
			t.Fatalf("DecryptSecret failed: %v", err)
		}
		if dec != plaintext {
			t.Errorf("round trip mismatch: got %q want %q", dec, plaintext)
		}
	}
}

func TestEncryptSecretFreshSalt(t *testing.T) {
	c := testCipher()
	e1, _ := c.EncryptSecret("same value")
	e2, _ := c.EncryptSecret("same value")
	if e1 == e2 {
		t.Error("two encryptions of the same value should differ")
	}
}

func TestDecryptSecretPassThrough(t *testing.T) {
	c := testCipher()
	for _, v := range []string{"plaintext password", "", "enc.v2:future", "almost-enc.v1:x"} {
		got, err := c.DecryptSecret(v)
		if err != nil {
			t.Fatalf("DecryptSecret(%q) failed: %v", v, err)
		}
		if got != v {
			t.Errorf("non-prefixed value should pass through unchanged: got %q want %q", got, v)
		}
	}
}

func TestDecryptSecretCorrupt(t *testing.T) {
	c := testCipher()
	enc, _ := c.EncryptSecret("secret")

	// Flip a character in the ciphertext segment
	tampered := enc[:len(enc)-2] + "xx"
	if _, err := c.DecryptSecret(tampered); !errors.Is(err, ErrDecrypt) {
		t.Errorf("tampered ciphertext: expected ErrDecrypt, got %v", err)
	}

	// Truncated envelope
	if _, err := c.DecryptSecret("enc.v1:c2FsdA==:aXY="); !errors.Is(err, ErrDecrypt) {
		t.Errorf("truncated envelope: expected ErrDecrypt, got %v", err)
	}

	// Garbage base64
	if _, err := c.DecryptSecret("enc.v1:!:!:!:!"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("bad base64: expected ErrDecrypt, got %v", err)
	}
}

func TestDecryptSecretWrongKey(t *testing.T) {
	enc, _ := testCipher().EncryptSecret("secret")
	other := NewCipher([]byte("ffffffffffffffffffffffffffffffff"))
	if _, err := other.DecryptSecret(enc); !errors.Is(err, ErrDecrypt) {
		t.Errorf("wrong key: expected ErrDecrypt, got %v", err)
	}
}
