package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetAppliesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("OPENAI_MODEL", "")
	c := Get(filepath.Join(t.TempDir(), "missing.json"))

	if c.ApiPort != "8080" {
		t.Errorf("ApiPort = %q; want 8080", c.ApiPort)
	}
	if c.Database != "sqlite3" {
		t.Errorf("Database = %q; want sqlite3", c.Database)
	}
	if c.Sessions.Backend != "memory" {
		t.Errorf("Sessions.Backend = %q; want memory", c.Sessions.Backend)
	}
	if c.SessionIdle() != time.Hour {
		t.Errorf("SessionIdle() = %v; want 1h", c.SessionIdle())
	}
	if c.Calendar.DurationMinutes != 60 {
		t.Errorf("Calendar.DurationMinutes = %d; want 60", c.Calendar.DurationMinutes)
	}
}

func TestGetFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"api_port":"9000","timezone":"UTC","bot":{"agency_name":"Casa Sur"},"openai":{"model":"llama3.2"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("POC_NO_WHATSAPP", "true")

	c := Get(path)
	if c.ApiPort != "9000" {
		t.Errorf("ApiPort = %q; want 9000", c.ApiPort)
	}
	if c.Bot.AgencyName != "Casa Sur" {
		t.Errorf("AgencyName = %q; want Casa Sur", c.Bot.AgencyName)
	}
	if c.OpenAI.Model != "gpt-test" {
		t.Errorf("OpenAI.Model = %q; want env override gpt-test", c.OpenAI.Model)
	}
	if !c.WhatsApp.NoSend {
		t.Error("WhatsApp.NoSend should be enabled by POC_NO_WHATSAPP")
	}
	if c.Location() != time.UTC {
		t.Errorf("Location() = %v; want UTC", c.Location())
	}
}
