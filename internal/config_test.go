package internal

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled || cfg.AuthEnabled() {
		t.Errorf("mode = %q, enabled = %v", cfg.Mode, cfg.AuthEnabled())
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: AuthModeToken, Token: "secret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token err = %v", err)
	}

	if err := (&AuthConfig{Mode: "magic"}).Validate(); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestLogFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogFormat = ""
	if err := cfg.Validate(); err != nil || cfg.App.LogFormat != LogFormatJSON {
		t.Errorf("empty format: err=%v format=%q", err, cfg.App.LogFormat)
	}
	cfg.App.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log format should fail")
	}
}

func TestDataConfig(t *testing.T) {
	cfg := DataConfig{Dir: "/var/lib/daybook", CacheFile: "cache.db", SettingsFile: "/etc/daybook/settings.toml"}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := cfg.CachePath(); got != filepath.Join("/var/lib/daybook", "cache.db") {
		t.Errorf("CachePath = %q", got)
	}
	if got := cfg.SettingsPath(); got != "/etc/daybook/settings.toml" {
		t.Errorf("SettingsPath = %q", got)
	}

	if err := (&DataConfig{}).Validate(); err == nil {
		t.Error("missing dir should fail")
	}
	if err := (&DataConfig{Ephemeral: true}).Validate(); err != nil {
		t.Errorf("ephemeral needs no paths: %v", err)
	}
}

func TestFileConfig(t *testing.T) {
	if err := (&FileConfig{Enabled: true}).Validate(); err == nil {
		t.Error("enabled without root should fail")
	}
	if err := (&FileConfig{Enabled: false}).Validate(); err != nil {
		t.Errorf("disabled file access needs no root: %v", err)
	}
	if err := (&FileConfig{Enabled: true, Root: ".", Debounce: -1}).Validate(); err == nil {
		t.Error("negative debounce should fail")
	}
}

func TestPromptConfig(t *testing.T) {
	if err := (&PromptConfig{SubmitRate: 2}).Validate(); err == nil {
		t.Error("rate without burst should fail")
	}
	if err := (&PromptConfig{}).Validate(); err != nil {
		t.Errorf("zero rate disables limiting: %v", err)
	}
	if err := (&PromptConfig{SubmitRate: -1}).Validate(); err == nil {
		t.Error("negative rate should fail")
	}
}

func TestFullConfig_SectionErrorsSurface(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = AuthModeToken
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}

	cfg = NewDefaultConfig()
	cfg.App.HTTP.Port = 0
	err := cfg.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "app:") {
		t.Errorf("port error = %v", err)
	}
}
