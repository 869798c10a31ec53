package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Bot defaults, used when the file or a key is missing.
const (
	DefaultRejectionMessage = "Sorry, I can only answer questions related to this domain."
	DefaultModel            = "openai"
)

// DefaultEmbeddingProviders is the embedding fallback order used when the file sets none.
var DefaultEmbeddingProviders = []string{"openrouter", "deepseek", "gemini", "openai"}

// fallbackModels is appended after a single configured model.
var fallbackModels = []string{"openai", "gemini", "deepseek", "ollama"}

// BotConfig is the operator-editable chatbot behavior.
type BotConfig struct {
	RejectionMessage   string   `json:"rejectionMessage"`
	Models             []string `json:"model"`
	ModelIsList        bool     `json:"-"`
	EmbeddingProviders []string `json:"embeddingProviders"`
}

// MarshalJSON writes model back as a string when it was configured as one.
func (b BotConfig) MarshalJSON() ([]byte, error) {
	var model any = b.Models
	if !b.ModelIsList && len(b.Models) == 1 {
		model = b.Models[0]
	}
	return json.Marshal(map[string]any{
		"rejectionMessage":   b.RejectionMessage,
		"model":              model,
		"embeddingProviders": b.EmbeddingProviders,
	})
}

// UnmarshalJSON accepts model as a string or a list of strings.
func (b *BotConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		RejectionMessage   string          `json:"rejectionMessage"`
		Model              json.RawMessage `json:"model"`
		EmbeddingProviders []string        `json:"embeddingProviders"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.RejectionMessage = raw.RejectionMessage
	b.EmbeddingProviders = raw.EmbeddingProviders
	b.Models, b.ModelIsList = nil, false

	if len(raw.Model) == 0 || string(raw.Model) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw.Model, &single); err == nil {
		b.Models = []string{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw.Model, &list); err != nil {
		return fmt.Errorf("model must be a string or a list of strings: %w", err)
	}
	b.Models, b.ModelIsList = list, true
	return nil
}

// Rejection returns the trimmed rejection phrase.
func (b BotConfig) Rejection() string {
	msg := strings.TrimSpace(b.RejectionMessage)
	if msg == "" {
		return DefaultRejectionMessage
	}
	return msg
}

// PreferredModels returns the completion fallback order. A list is used as-is;
// a single model m becomes [m, openai, gemini, deepseek, ollama minus m].
// A list with no usable entries falls back to the default chain.
func (b BotConfig) PreferredModels() []string {
	if b.ModelIsList {
		list := slices.DeleteFunc(slices.Clone(b.Models), func(m string) bool {
			return strings.TrimSpace(m) == ""
		})
		if len(list) > 0 {
			return list
		}
	}
	model := DefaultModel
	if len(b.Models) > 0 && strings.TrimSpace(b.Models[0]) != "" {
		model = b.Models[0]
	}
	out := []string{model}
	for _, m := range fallbackModels {
		if m != model {
			out = append(out, m)
		}
	}
	return out
}

// PrimaryModel is the model recorded on chat logs that never reached a provider.
func (b BotConfig) PrimaryModel() string {
	return b.PreferredModels()[0]
}

// EmbeddingOrder returns the embedding fallback order.
func (b BotConfig) EmbeddingOrder() []string {
	if len(b.EmbeddingProviders) == 0 {
		return slices.Clone(DefaultEmbeddingProviders)
	}
	return slices.Clone(b.EmbeddingProviders)
}

// DefaultBotConfig is written to disk when no file exists.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		RejectionMessage:   DefaultRejectionMessage,
		Models:             []string{DefaultModel},
		EmbeddingProviders: slices.Clone(DefaultEmbeddingProviders),
	}
}

// BotConfigStore keeps the current BotConfig snapshot in sync with a JSON file.
// Readers get an immutable snapshot; reloads swap it atomically.
type BotConfigStore struct {
	path    string
	current atomic.Pointer[BotConfig]
	mu      sync.Mutex // serializes writes and reloads
}

// NewBotConfigStore reads path, creating it with defaults when it does not exist.
func NewBotConfigStore(path string) (*BotConfigStore, error) {
	s := &BotConfigStore{path: path}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeBotConfig(path, DefaultBotConfig()); err != nil {
			return nil, err
		}
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active snapshot.
func (s *BotConfigStore) Current() BotConfig {
	return *s.current.Load()
}

// Reload re-reads the file and swaps the snapshot.
func (s *BotConfigStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

// reloadLocked parses the file with a fresh viper instance so no reader state
// outlives the lock.
func (s *BotConfigStore) reloadLocked() error {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	v.SetDefault("rejectionMessage", DefaultRejectionMessage)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("embeddingProviders", DefaultEmbeddingProviders)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read bot config %s: %w", s.path, err)
	}
	cfg := fromViper(v)
	s.current.Store(&cfg)
	return nil
}

// Update persists cfg and makes it the active snapshot.
func (s *BotConfigStore) Update(cfg BotConfig) (BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeBotConfig(s.path, cfg); err != nil {
		return BotConfig{}, err
	}
	if err := s.reloadLocked(); err != nil {
		return BotConfig{}, err
	}
	return *s.current.Load(), nil
}

// Watch reloads the snapshot whenever the file changes on disk, until ctx is done.
// The directory is watched so atomic replacements are seen.
func (s *BotConfigStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating bot config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching bot config dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					slog.Warn("bot config reload failed", "path", event.Name, "error", err)
					continue
				}
				slog.Info("🔄 Bot config reloaded", "path", event.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("bot config watcher error", "error", err)
			}
		}
	}()
	return nil
}

// fromViper builds a snapshot. Viper lowercases keys; lookups are case-insensitive.
func fromViper(v *viper.Viper) BotConfig {
	cfg := BotConfig{
		RejectionMessage:   v.GetString("rejectionMessage"),
		EmbeddingProviders: v.GetStringSlice("embeddingProviders"),
	}
	switch m := v.Get("model").(type) {
	case string:
		cfg.Models = []string{m}
	case []any, []string:
		cfg.Models = v.GetStringSlice("model")
		cfg.ModelIsList = true
	}
	return cfg
}

// writeBotConfig replaces the file through a rename so readers never see a
// partial write.
func writeBotConfig(path string, cfg BotConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bot config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bot config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create bot config temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write bot config: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod bot config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close bot config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace bot config: %w", err)
	}
	return nil
}
