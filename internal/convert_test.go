package internal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/daybook/internal/apperr"
)

func TestEncryptDecryptFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.json")
	out := filepath.Join(dir, "vault.json")
	body := `[{"user":"DEFAULT","date":"20240101","contents":[{"id":"a","header":"h","content":"secret words"}]}]`
	if err := os.WriteFile(in, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := EncryptFile(in, out, "pw"); err != nil {
		t.Fatal(err)
	}
	blob, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(blob), "secret words") {
		t.Fatal("plaintext visible in envelope")
	}

	plain, err := DecryptFile(out, "pw")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(plain), "secret words") {
		t.Errorf("decrypted = %s", plain)
	}

	if _, err := DecryptFile(out, "wrong"); !errors.Is(err, apperr.ErrDecryption) {
		t.Errorf("wrong password err = %v", err)
	}
	if err := EncryptFile(out, filepath.Join(dir, "again.json"), "pw"); !errors.Is(err, apperr.ErrLoadFormat) {
		t.Errorf("double encryption err = %v", err)
	}
}

func TestEncryptFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(in, []byte(`{"date":"20240101"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := EncryptFile(in, filepath.Join(dir, "out.json"), "pw"); !errors.Is(err, apperr.ErrLoadFormat) {
		t.Errorf("err = %v, want ErrLoadFormat", err)
	}
	if err := EncryptFile(in, filepath.Join(dir, "out.json"), ""); !errors.Is(err, apperr.ErrEmptyPassword) {
		t.Errorf("empty password err = %v", err)
	}
}
