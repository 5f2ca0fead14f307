// Package testutil provides shared test helpers: databases, storage areas
// and provider fakes.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/starford/quest/internal/audio"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/providers"
	"github.com/starford/quest/internal/storage"
	"github.com/starford/quest/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T, opts ...store.Option) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quest-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestArea creates a temporary storage area.
func TestArea(t *testing.T) *storage.FS {
	t.Helper()
	area, err := storage.NewFS(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	return area
}

// FakeText is a TextGenerator that returns a fixed text with fixed usage.
type FakeText struct {
	mu    sync.Mutex
	Calls int
	Text  string
	Err   error
}

func (f *FakeText) GenerateText(_ context.Context, _ providers.TextRequest) (providers.TextResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return providers.TextResult{}, f.Err
	}
	return providers.TextResult{Text: f.Text, InputTokens: 1000, OutputTokens: 500, TotalTokens: 1500}, nil
}

// FakeSpeech is a SpeechSynthesizer that returns one second of silent WAV.
type FakeSpeech struct {
	mu    sync.Mutex
	Calls int
}

func (f *FakeSpeech) Synthesize(_ context.Context, _ providers.SpeechRequest) (providers.SpeechResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	return providers.SpeechResult{
		Audio:    audio.PCMToWAV(make([]byte, 2*audio.DefaultPCMRate), audio.DefaultPCMRate, 1, 16),
		MIMEType: audio.MIMEWAV,
	}, nil
}

// FakeProviders registers fakes for every provider capability.
func FakeProviders(text *FakeText, speech *FakeSpeech) *providers.Set {
	return providers.NewSet().
		RegisterText(models.ProviderOpenAI, text).
		RegisterText(models.ProviderGemini, text).
		RegisterSpeech(models.ProviderGemini, speech).
		RegisterSpeech(models.ProviderElevenLabs, speech)
}
