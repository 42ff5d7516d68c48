package memory

import (
	"runtime/debug"
	"testing"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestConfigureLimit(t *testing.T) {
	orig := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(orig) })

	tests := []struct {
		name       string
		env        map[string]string
		configured bool
		source     string
		goLimit    int64
		ratio      float64
	}{
		{"nothing set", nil, false, SourceNone, 0, 0},
		{"container limit", map[string]string{"MEMORY_LIMIT": "1000000"}, true, SourceContainer, 850000, DefaultMemoryRatio},
		{"custom ratio", map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "0.5"}, true, SourceContainer, 500000, 0.5},
		{"ratio out of range", map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "1.5"}, true, SourceContainer, 850000, DefaultMemoryRatio},
		{"unparsable ratio", map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "half"}, true, SourceContainer, 850000, DefaultMemoryRatio},
		{"invalid limit", map[string]string{"MEMORY_LIMIT": "lots"}, false, SourceNone, 0, 0},
		{"negative limit", map[string]string{"MEMORY_LIMIT": "-5"}, false, SourceNone, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debug.SetMemoryLimit(orig)
			got := ConfigureLimit(env(tt.env))
			if got.Configured != tt.configured || got.Source != tt.source || got.GoMemLimit != tt.goLimit || got.Ratio != tt.ratio {
				t.Errorf("ConfigureLimit = %+v", got)
			}
			if tt.configured && debug.SetMemoryLimit(-1) != tt.goLimit {
				t.Errorf("runtime limit = %d, want %d", debug.SetMemoryLimit(-1), tt.goLimit)
			}
		})
	}
}

func TestConfigureLimitPrefersGOMEMLIMIT(t *testing.T) {
	orig := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(orig) })
	debug.SetMemoryLimit(512 << 20)

	got := ConfigureLimit(env(map[string]string{"GOMEMLIMIT": "512MiB", "MEMORY_LIMIT": "1073741824"}))
	if got.Source != SourceGoMemLimit || !got.Configured || got.GoMemLimit != 512<<20 {
		t.Errorf("ConfigureLimit = %+v", got)
	}
	if debug.SetMemoryLimit(-1) != 512<<20 {
		t.Error("MEMORY_LIMIT must not override GOMEMLIMIT")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1572864, "1.5 MiB"},
		{10 << 30, "10.0 GiB"},
		{1 << 40, "1.0 TiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
