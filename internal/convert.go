package internal

import (
	"fmt"
	"os"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/codec"
	"github.com/starford/daybook/internal/session"
)

// EncryptFile reads a plaintext journal, checks its shape and writes it as an
// encrypted envelope to out.
func EncryptFile(in, out, password string) error {
	if password == "" {
		return apperr.ErrEmptyPassword
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	c := codec.New()
	if c.IsEnvelope(data) {
		return fmt.Errorf("%s is already encrypted: %w", in, apperr.ErrLoadFormat)
	}
	coll, err := session.ParseCollection(data)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	plain, err := session.EncodeCollection(coll)
	if err != nil {
		return err
	}
	blob, err := c.Encrypt(plain, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, blob, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}

// DecryptFile opens an encrypted journal and returns its plaintext form.
func DecryptFile(in, password string) ([]byte, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in, err)
	}
	plain, err := codec.New().Decrypt(data, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in, err)
	}
	coll, err := session.ParseCollection(plain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in, err)
	}
	return session.EncodeCollection(coll)
}
