// Package codec wraps a whole serialized collection in a password-protected,
// self-describing JSON envelope.
//
// Keys are derived with PBKDF2-HMAC-SHA256 (Iterations rounds) and the
// payload is sealed with AES-256-GCM. Every Encrypt call draws a fresh salt
// and nonce. Version and algorithm are checked strictly on Decrypt: unknown
// formats fail instead of being guessed at.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/starford/daybook/internal/apperr"
)

// Envelope format constants.
const (
	FormatVersion = "1.0"
	CipherID      = "AES-GCM"
	Kind          = "notes-envelope"

	Iterations  = 100000
	KeyLength   = 32
	SaltLength  = 16
	NonceLength = 12
)

// Envelope is the on-disk form of an encrypted collection. Binary fields are
// standard base64.
type Envelope struct {
	Version   string `json:"version"`
	Algorithm string `json:"algorithm"`
	IV        string `json:"iv"`
	Salt      string `json:"salt"`
	Data      string `json:"data"`
	Encrypted bool   `json:"encrypted"`
	FileType  string `json:"fileType"`
}

// probe mirrors Envelope with pointers so absent fields are distinguishable.
type probe struct {
	Version   *string `json:"version"`
	Algorithm *string `json:"algorithm"`
	IV        *string `json:"iv"`
	Salt      *string `json:"salt"`
	Data      *string `json:"data"`
	Encrypted *bool   `json:"encrypted"`
	FileType  *string `json:"fileType"`
}

// Codec encrypts and decrypts envelopes. The zero value is not usable; call New.
type Codec struct {
	rand io.Reader
}

// New returns a Codec drawing salts and nonces from crypto/rand.
func New() *Codec {
	return &Codec{rand: rand.Reader}
}

// IsEnvelope reports whether blob structurally looks like an envelope. It
// never decrypts and needs no password.
func (c *Codec) IsEnvelope(blob []byte) bool {
	p, ok := parseProbe(blob)
	return ok && *p.FileType == Kind
}

// parseProbe reports whether blob carries every envelope field and the
// encrypted marker, whatever its kind.
func parseProbe(blob []byte) (probe, bool) {
	var p probe
	if err := json.Unmarshal(blob, &p); err != nil {
		return p, false
	}
	ok := nonEmpty(p.Version) && nonEmpty(p.Algorithm) && nonEmpty(p.IV) &&
		nonEmpty(p.Salt) && nonEmpty(p.Data) &&
		p.Encrypted != nil && *p.Encrypted && nonEmpty(p.FileType)
	return p, ok
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// Encrypt seals plaintext under password and returns the indented envelope.
func (c *Codec) Encrypt(plaintext []byte, password string) ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(c.rand, salt); err != nil {
		return nil, fmt.Errorf("codec: generate salt: %w", err)
	}
	nonce := make([]byte, NonceLength)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("codec: generate nonce: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	env := Envelope{
		Version:   FormatVersion,
		Algorithm: CipherID,
		IV:        base64.StdEncoding.EncodeToString(nonce),
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Data:      base64.StdEncoding.EncodeToString(sealed),
		Encrypted: true,
		FileType:  Kind,
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("codec: marshal envelope: %w", err)
	}
	return out, nil
}

// Decrypt opens an envelope. A blob that is not an envelope fails with
// apperr.ErrLoadFormat; every other failure is apperr.ErrDecryption because a
// wrong password and a tampered file look identical to GCM.
func (c *Codec) Decrypt(blob []byte, password string) ([]byte, error) {
	if _, ok := parseProbe(blob); !ok {
		return nil, fmt.Errorf("codec: %w: not an encrypted envelope", apperr.ErrLoadFormat)
	}
	var env Envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("codec: %w: %v", apperr.ErrLoadFormat, err)
	}
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("codec: unsupported version %q: %w", env.Version, apperr.ErrDecryption)
	}
	if env.Algorithm != CipherID {
		return nil, fmt.Errorf("codec: unsupported algorithm %q: %w", env.Algorithm, apperr.ErrDecryption)
	}
	if env.FileType != Kind {
		return nil, fmt.Errorf("codec: unexpected kind %q: %w", env.FileType, apperr.ErrDecryption)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(nonce) != NonceLength {
		return nil, fmt.Errorf("codec: bad iv: %w", apperr.ErrDecryption)
	}
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("codec: bad salt: %w", apperr.ErrDecryption)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("codec: bad data: %w", apperr.ErrDecryption)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", apperr.ErrDecryption)
	}
	return plaintext, nil
}

// ValidatePassword reports whether password opens blob.
func (c *Codec) ValidatePassword(blob []byte, password string) bool {
	_, err := c.Decrypt(blob, password)
	return err == nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, Iterations, KeyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("codec: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("codec: new gcm: %w", err)
	}
	return gcm, nil
}
