package leak

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/alert"
	"github.com/wardenhq/warden/internal/events"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/resource"
)

const (
	sampleCap  = 100
	sampleKeep = 50
	minWindow  = 3
)

// Sample is one observation of resource counts and host memory usage.
type Sample struct {
	Timestamp    time.Time
	UsedBytes    uint64
	TotalBytes   uint64
	LimitBytes   uint64
	CountsByKind map[resource.Kind]int
}

// Total returns the aggregate resource count in the sample.
func (s Sample) Total() int {
	total := 0
	for _, c := range s.CountsByKind {
		total += c
	}
	return total
}

// Ratio returns used/limit, or 0 when no limit is known.
func (s Sample) Ratio() float64 {
	if s.LimitBytes == 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.LimitBytes)
}

// MemorySource provides host heap telemetry. ok is false when the host
// exposes none, in which case samples carry counts only.
type MemorySource interface {
	Usage() (used, total, limit uint64, ok bool)
}

// FlagType classifies a leak finding.
type FlagType int

const (
	FlagGrowth FlagType = iota
	FlagOldResource
	FlagSuspiciousCount
)

// String returns the string representation of the flag type.
func (f FlagType) String() string {
	switch f {
	case FlagGrowth:
		return "abnormal_growth"
	case FlagOldResource:
		return "old_resource"
	case FlagSuspiciousCount:
		return "suspicious_count"
	default:
		return "unknown"
	}
}

// Flag is a single leak finding.
type Flag struct {
	Type   FlagType
	Kind   resource.Kind
	Detail string
}

// Report is the outcome of one analysis run.
type Report struct {
	Abnormal       bool
	ResourceGrowth float64
	MemoryGrowth   float64
	Flags          []Flag
}

// Config tunes the detector.
type Config struct {
	// WindowSize is the number of trailing samples analyzed; minimum 3.
	WindowSize int
	// ResourceGrowthLimit flags aggregate count growth above this ratio.
	ResourceGrowthLimit float64
	// MemoryGrowthLimit flags memory ratio growth above this ratio.
	MemoryGrowthLimit float64
	// MaxAge holds the configured lifetime per kind; a resource older than
	// twice its kind's entry is flagged individually.
	MaxAge map[resource.Kind]time.Duration
	// CountCeilings are absolute per-kind counts flagged independent of the
	// growth trend.
	CountCeilings map[resource.Kind]int
}

// DefaultConfig returns detector settings matching the default policies.
func DefaultConfig() Config {
	return Config{
		WindowSize:          5,
		ResourceGrowthLimit: 0.5,
		MemoryGrowthLimit:   0.3,
		MaxAge: map[resource.Kind]time.Duration{
			resource.KindPendingOperation: 2 * time.Minute,
			resource.KindTimer:            10 * time.Minute,
			resource.KindSubscription:     30 * time.Minute,
			resource.KindObserver:         30 * time.Minute,
			resource.KindElementRef:       15 * time.Minute,
			resource.KindBuffer:           5 * time.Minute,
		},
		CountCeilings: map[resource.Kind]int{
			resource.KindSubscription:     100,
			resource.KindTimer:            50,
			resource.KindPendingOperation: 200,
		},
	}
}

// Detector samples registry counts and host memory into a bounded series and
// classifies growth as normal or abnormal.
type Detector struct {
	mu      sync.Mutex
	cfg     Config
	samples []Sample

	registry *resource.Registry
	memory   MemorySource
	alerts   *alert.Tracker
	bus      *events.Bus
	logger   *logging.Logger
}

// NewDetector creates a leak detector. memory may be nil when the host
// exposes no heap telemetry.
func NewDetector(cfg Config, registry *resource.Registry, memory MemorySource, alerts *alert.Tracker, bus *events.Bus, logger *logging.Logger) *Detector {
	if cfg.WindowSize < minWindow {
		cfg.WindowSize = minWindow
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Detector{
		cfg:      cfg,
		samples:  make([]Sample, 0, sampleCap),
		registry: registry,
		memory:   memory,
		alerts:   alerts,
		bus:      bus,
		logger:   logger.Component("leak"),
	}
}

// SampleNow appends one observation and returns it.
func (d *Detector) SampleNow() Sample {
	s := Sample{
		Timestamp:    time.Now(),
		CountsByKind: d.registry.Counts(),
	}
	if d.memory != nil {
		if used, total, limit, ok := d.memory.Usage(); ok {
			s.UsedBytes = used
			s.TotalBytes = total
			s.LimitBytes = limit
		}
	}

	d.mu.Lock()
	d.samples = append(d.samples, s)
	if len(d.samples) > sampleCap {
		// Keep the most recent half.
		kept := make([]Sample, sampleKeep)
		copy(kept, d.samples[len(d.samples)-sampleKeep:])
		d.samples = kept
	}
	d.mu.Unlock()

	return s
}

// Samples returns a copy of the retained series.
func (d *Detector) Samples() []Sample {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Sample, len(d.samples))
	copy(out, d.samples)
	return out
}

// Tick samples and analyzes in one step. Intended to run on the sampling
// schedule.
func (d *Detector) Tick() Report {
	d.SampleNow()
	return d.Analyze()
}

// Analyze runs the growth, old-resource, and suspicious-count tests over the
// trailing window. Flags are funneled through the debounced alert tracker
// rather than raised directly.
func (d *Detector) Analyze() Report {
	d.mu.Lock()
	window := d.window()
	d.mu.Unlock()

	var report Report

	if len(window) >= minWindow {
		first, last := window[0], window[len(window)-1]

		if firstTotal := first.Total(); firstTotal > 0 {
			report.ResourceGrowth = float64(last.Total()-firstTotal) / float64(firstTotal)
		}
		if firstRatio := first.Ratio(); firstRatio > 0 {
			report.MemoryGrowth = (last.Ratio() - firstRatio) / firstRatio
		}

		if report.ResourceGrowth > d.cfg.ResourceGrowthLimit {
			report.Flags = append(report.Flags, Flag{
				Type:   FlagGrowth,
				Detail: fmt.Sprintf("resource count grew %.0f%% across window", report.ResourceGrowth*100),
			})
		}
		if report.MemoryGrowth > d.cfg.MemoryGrowthLimit {
			report.Flags = append(report.Flags, Flag{
				Type:   FlagGrowth,
				Detail: fmt.Sprintf("memory ratio grew %.0f%% across window", report.MemoryGrowth*100),
			})
		}
	}

	report.Flags = append(report.Flags, d.oldResourceFlags()...)
	report.Flags = append(report.Flags, d.suspiciousCountFlags()...)
	report.Abnormal = len(report.Flags) > 0

	d.dispatch(report)
	return report
}

// window returns the trailing WindowSize samples. Caller holds d.mu.
func (d *Detector) window() []Sample {
	n := len(d.samples)
	if n == 0 {
		return nil
	}
	k := d.cfg.WindowSize
	if k > n {
		k = n
	}
	out := make([]Sample, k)
	copy(out, d.samples[n-k:])
	return out
}

// oldResourceFlags flags any resource alive longer than twice its kind's
// configured lifetime, regardless of aggregate growth.
func (d *Detector) oldResourceFlags() []Flag {
	now := time.Now()
	var flags []Flag
	for kind, maxAge := range d.cfg.MaxAge {
		if maxAge <= 0 {
			continue
		}
		for _, t := range d.registry.OldestFirst(kind) {
			age := t.Age(now)
			if age <= 2*maxAge {
				break // sorted oldest first, the rest are younger
			}
			flags = append(flags, Flag{
				Type:   FlagOldResource,
				Kind:   kind,
				Detail: fmt.Sprintf("resource %s alive %s (limit %s)", t.ID, age.Round(time.Second), maxAge),
			})
		}
	}
	return flags
}

func (d *Detector) suspiciousCountFlags() []Flag {
	counts := d.registry.Counts()
	var flags []Flag
	for kind, ceiling := range d.cfg.CountCeilings {
		if ceiling > 0 && counts[kind] > ceiling {
			flags = append(flags, Flag{
				Type:   FlagSuspiciousCount,
				Kind:   kind,
				Detail: fmt.Sprintf("%d live (ceiling %d)", counts[kind], ceiling),
			})
		}
	}
	return flags
}

func (d *Detector) dispatch(report Report) {
	if d.alerts == nil {
		return
	}
	for _, f := range report.Flags {
		name := "leak:" + f.Type.String()
		if f.Type != FlagGrowth {
			name += ":" + f.Kind.String()
		}
		emitted := d.alerts.Observe(name, alert.SeverityWarning, map[string]interface{}{
			"detail": f.Detail,
		})
		if emitted && d.bus != nil {
			payload := map[string]interface{}{
				"type":   f.Type.String(),
				"detail": f.Detail,
			}
			if f.Type != FlagGrowth {
				payload["kind"] = f.Kind.String()
			}
			d.bus.Emit(events.LeakDetected, payload)
		}
		if emitted {
			d.logger.Warn("leak flagged",
				zap.String("type", f.Type.String()),
				zap.String("detail", f.Detail))
		}
	}
}
