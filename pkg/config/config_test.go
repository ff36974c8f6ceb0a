package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadKeepsDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "from-env")
	path := write(t, "name: daybook\ntoken: ${SAMPLE_TOKEN}\n")

	cfg := sample{Port: 8080}
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "daybook" || cfg.Port != 8080 || cfg.Token != "from-env" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadValidates(t *testing.T) {
	path := write(t, "port: 0\n")
	cfg := sample{Port: 8080}
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := write(t, "port: 1\nprot: 2\n")
	cfg := sample{}
	if err := Load(path, &cfg); err == nil {
		t.Error("typo in key should fail")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := write(t, "")
	cfg := sample{Port: 1}
	if err := Load(path, &cfg); err != nil {
		t.Errorf("empty file: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	cfg := sample{Port: 1}
	if err := Load(missing, &cfg); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load err = %v", err)
	}
	if err := LoadOptional(missing, &cfg); err != nil {
		t.Errorf("LoadOptional err = %v", err)
	}
	bad := sample{}
	if err := LoadOptional(missing, &bad); err == nil {
		t.Error("defaults must still be validated")
	}
}
