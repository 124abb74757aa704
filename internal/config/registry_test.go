package config

import (
	"errors"
	"testing"

	"github.com/arthur-assist/arthur/pkg/provider/stt"
	sttmock "github.com/arthur-assist/arthur/pkg/provider/stt/mock"
	"github.com/arthur-assist/arthur/pkg/provider/tts"
	ttsmock "github.com/arthur-assist/arthur/pkg/provider/tts/mock"
)

func TestRegistryCreate(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterSTT("mock", func(e ProviderEntry) (stt.Transcriber, error) {
		return &sttmock.Transcriber{}, nil
	})
	r.RegisterTTS("mock", func(e ProviderEntry) (tts.Speaker, error) {
		return &ttsmock.Speaker{}, nil
	})

	if _, err := r.CreateSTT(ProviderEntry{Name: "mock"}); err != nil {
		t.Errorf("CreateSTT: %v", err)
	}
	if _, err := r.CreateTTS(ProviderEntry{Name: "mock"}); err != nil {
		t.Errorf("CreateTTS: %v", err)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	_, err := r.CreateSTT(ProviderEntry{Name: "nope"})
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistryFactoryReceivesEntry(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	var got ProviderEntry
	r.RegisterSTT("mock", func(e ProviderEntry) (stt.Transcriber, error) {
		got = e
		return &sttmock.Transcriber{}, nil
	})

	entry := ProviderEntry{
		Name:    "mock",
		APIKey:  "key",
		Model:   "nova-2",
		Options: map[string]any{"model_path": "/models/base.bin"},
	}
	if _, err := r.CreateSTT(entry); err != nil {
		t.Fatal(err)
	}
	if got.APIKey != "key" || got.Model != "nova-2" {
		t.Errorf("factory got %+v", got)
	}
	if got.StringOption("model_path", "") != "/models/base.bin" {
		t.Errorf("model_path = %q", got.StringOption("model_path", ""))
	}
}
