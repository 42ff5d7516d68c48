package startup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"album-viewer/internal/apperr"
	"album-viewer/internal/codec"
)

// Settings are the values that can be changed at runtime through the
// settings API. They are stored as overrides keyed by their JSON names.
type Settings struct {
	CacheMaxBytes     int64  `json:"cacheMaxBytes"`
	DefaultQuality    int    `json:"defaultQuality"`
	EncodeFormat      string `json:"encodeFormat"`
	AllowRecursive    bool   `json:"allowRecursive"`
	IOConcurrency     int    `json:"ioConcurrency"`
	DecodeConcurrency int    `json:"decodeConcurrency"`
	MaxInputPixels    int    `json:"maxInputPixels"`
	CacheDir          string `json:"cacheDir"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		CacheMaxBytes:     10 << 30,
		DefaultQuality:    codec.DefaultQuality,
		EncodeFormat:      string(codec.FormatWebP),
		AllowRecursive:    false,
		IOConcurrency:     8,
		DecodeConcurrency: 3,
		MaxInputPixels:    codec.DefaultMaxPixels,
		CacheDir:          "./cache",
	}
}

// LiveKeys are applied as soon as they are stored; the rest need a restart.
var LiveKeys = map[string]bool{
	"cacheMaxBytes":  true,
	"defaultQuality": true,
	"encodeFormat":   true,
	"allowRecursive": true,
}

// Validate rejects values the rest of the application cannot work with.
func (s Settings) Validate() error {
	switch {
	case s.CacheMaxBytes < 0:
		return fmt.Errorf("cacheMaxBytes must not be negative: %w", apperr.ErrInvalidInput)
	case s.DefaultQuality < 1 || s.DefaultQuality > 100:
		return fmt.Errorf("defaultQuality %d outside 1..100: %w", s.DefaultQuality, apperr.ErrInvalidInput)
	case s.IOConcurrency < 0 || s.DecodeConcurrency < 0:
		return fmt.Errorf("concurrency limits must not be negative: %w", apperr.ErrInvalidInput)
	case s.MaxInputPixels < 1:
		return fmt.Errorf("maxInputPixels must be positive: %w", apperr.ErrInvalidInput)
	case s.CacheDir == "":
		return fmt.Errorf("cacheDir must not be empty: %w", apperr.ErrInvalidInput)
	}
	if _, err := codec.ParseFormat(s.EncodeFormat); err != nil {
		return fmt.Errorf("encodeFormat: %w", err)
	}
	return nil
}

// Merge returns s with the given overrides applied. Unknown keys and values
// of the wrong type are rejected as invalid input.
func (s Settings) Merge(overrides map[string]json.RawMessage) (Settings, error) {
	if len(overrides) == 0 {
		return s, nil
	}

	base, err := json.Marshal(s)
	if err != nil {
		return s, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return s, err
	}
	for k, v := range overrides {
		if _, ok := fields[k]; !ok {
			return s, fmt.Errorf("unknown setting %q: %w", k, apperr.ErrInvalidInput)
		}
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return s, fmt.Errorf("encode settings: %w", apperr.ErrInvalidInput)
	}
	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	var out Settings
	if err := dec.Decode(&out); err != nil {
		return s, fmt.Errorf("decode settings: %v: %w", err, apperr.ErrInvalidInput)
	}
	if err := out.Validate(); err != nil {
		return s, err
	}
	return out, nil
}

// ApplyOverrides merges stored overrides into the configuration and returns
// the keys that were applied.
func (c *Config) ApplyOverrides(overrides map[string]json.RawMessage) ([]string, error) {
	merged, err := c.Settings.Merge(overrides)
	if err != nil {
		return nil, err
	}
	c.Settings = merged

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
