package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
audio:
  device: default
  input_format: pulse
listen:
  silence_threshold: 0.02
  silence_duration: 1500ms
  max_utterance: 30s
  calibration_window: 2s
wake:
  word: arthur
  idle_timeout: 30s
  fuzzy_threshold: 0.84
reminders:
  poll_interval: 30s
focus:
  focus_duration: 25m
  short_break: 5m
  long_break: 15m
  long_break_every: 4
  min_persist: 5m
providers:
  stt:
    name: whisper
    options:
      model_path: /opt/models/ggml-base.en.bin
  tts:
    name: elevenlabs
    api_key: el-key
  llm:
    name: openai
    api_key: sk-key
    model: gpt-4o-mini
store:
  driver: sqlite
  sqlite_path: /var/lib/arthur/arthur.db
`

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Wake.Word != "arthur" {
		t.Errorf("Wake.Word = %q", cfg.Wake.Word)
	}
	if cfg.Listen.SilenceDuration.Std() != 1500*time.Millisecond {
		t.Errorf("SilenceDuration = %v", cfg.Listen.SilenceDuration)
	}
	if cfg.Focus.FocusDuration.Std() != 25*time.Minute {
		t.Errorf("FocusDuration = %v", cfg.Focus.FocusDuration)
	}
	if cfg.Providers.STT.StringOption("model_path", "") != "/opt/models/ggml-base.en.bin" {
		t.Errorf("model_path option = %q", cfg.Providers.STT.StringOption("model_path", ""))
	}
	if cfg.Store.Driver != StoreSQLite {
		t.Errorf("Store.Driver = %q", cfg.Store.Driver)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader(`
providers:
  stt:
    name: whisper
wake:
  wordd: arthur
`))
	if err == nil {
		t.Fatal("expected an error for unknown field 'wordd'")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader(`
server:
  log_level: loud
listen:
  silence_threshold: 3.0
wake:
  fuzzy_threshold: 0.2
store:
  driver: cassandra
`))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{
		"server.log_level",
		"listen.silence_threshold",
		"wake.fuzzy_threshold",
		"store.driver",
		"providers.stt is required",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestValidatePostgresNeedsDSN(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader(`
providers:
  stt:
    name: whisper
store:
  driver: postgres
`))
	if err == nil || !strings.Contains(err.Error(), "store.postgres_dsn") {
		t.Fatalf("err = %v, want missing postgres_dsn error", err)
	}
}

func TestValidateDiscordNeedsChannel(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader(`
providers:
  stt:
    name: whisper
discord:
  token: abc
`))
	if err == nil || !strings.Contains(err.Error(), "discord.channel_id") {
		t.Fatalf("err = %v, want missing channel_id error", err)
	}
}

func TestValidateMinPersistBounds(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader(`
providers:
  stt:
    name: whisper
focus:
  focus_duration: 25m
  min_persist: 30m
`))
	if err == nil || !strings.Contains(err.Error(), "focus.min_persist") {
		t.Fatalf("err = %v, want min_persist error", err)
	}
}
