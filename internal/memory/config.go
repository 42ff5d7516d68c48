package memory

import (
	"math"
	"runtime/debug"
	"strconv"

	"album-viewer/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for libvips buffers and goroutine stacks.
const DefaultMemoryRatio = 0.85

// Limit sources.
const (
	SourceNone       = "none"
	SourceGoMemLimit = "GOMEMLIMIT"
	SourceContainer  = "MEMORY_LIMIT"
)

// LimitResult describes how the Go memory limit was configured.
type LimitResult struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureLimit sets the Go soft memory limit. GOMEMLIMIT wins when set;
// otherwise MEMORY_LIMIT (container bytes, e.g. from the Kubernetes
// Downward API) scaled by MEMORY_RATIO is applied. getenv is usually
// os.Getenv. Call it early in main before large allocations.
func ConfigureLimit(getenv func(string) string) LimitResult {
	if v := getenv("GOMEMLIMIT"); v != "" {
		res := LimitResult{Source: SourceGoMemLimit}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			res.Configured = true
			res.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return res
	}

	raw := getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, Go memory limit left unconfigured")
		return LimitResult{Source: SourceNone}
	}
	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
		return LimitResult{Source: SourceNone}
	}

	ratio := DefaultMemoryRatio
	if r := getenv("MEMORY_RATIO"); r != "" {
		parsed, err := strconv.ParseFloat(r, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using %.2f", r, err, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1:
			logging.Warn("MEMORY_RATIO %q outside (0,1], using %.2f", r, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	goLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goLimit)
	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		FormatBytes(goLimit), ratio*100, FormatBytes(containerLimit))

	return LimitResult{
		Configured:     true,
		Source:         SourceContainer,
		ContainerLimit: containerLimit,
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}

// FormatBytes renders b with a binary unit, e.g. "1.5 GiB".
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
