package sampler

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/afero"
)

const cpufreqGlob = "/sys/devices/system/cpu/cpu[0-9]*/cpufreq/scaling_cur_freq"

// CPUSource is a refreshable view of aggregate usage and per-core clocks.
type CPUSource interface {
	Refresh(ctx context.Context) error
	Usage() float64
	Frequencies() []uint64
	Brand() string
}

// HostCPU derives usage from /proc/stat deltas via gopsutil and reads the
// current clock of each logical core from cpufreq.
type HostCPU struct {
	fs    afero.Fs
	times func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)
	info  func(ctx context.Context) ([]cpu.InfoStat, error)

	mu        sync.RWMutex
	prevTotal float64
	prevIdle  float64
	usage     float64
	freqs     []uint64
	brand     string
}

// NewHostCPU reads cpufreq from the OS filesystem when fs is nil.
func NewHostCPU(fs afero.Fs) *HostCPU {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &HostCPU{
		fs:    fs,
		times: cpu.TimesWithContext,
		info:  cpu.InfoWithContext,
	}
}

// Refresh updates usage and frequencies. The first call establishes the
// usage baseline and reports 0%.
func (h *HostCPU) Refresh(ctx context.Context) error {
	errFactory := errors.New()

	times, err := h.times(ctx, false)
	if err != nil {
		return errFactory.Wrap(errors.ErrCPURefresh, err)
	}
	if len(times) == 0 {
		return errFactory.WithMessage(errors.ErrCPURefresh, "no cpu times reported")
	}

	// retried on every refresh until cpuinfo yields a model name
	var brand string
	if h.Brand() == "" {
		brand = h.readBrand(ctx)
	}
	freqs := h.readFrequencies(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	cur := times[0]
	curTotal := cur.Total()
	curIdle := cur.Idle + cur.Iowait
	h.usage = 0
	if h.prevTotal > 0 {
		dt := curTotal - h.prevTotal
		di := curIdle - h.prevIdle
		if dt > 0 {
			h.usage = 100 * (1 - di/dt)
		}
	}
	h.prevTotal, h.prevIdle = curTotal, curIdle
	h.freqs = freqs
	if brand != "" {
		h.brand = brand
	}
	return nil
}

func (h *HostCPU) Usage() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.usage
}

func (h *HostCPU) Frequencies() []uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]uint64, len(h.freqs))
	copy(out, h.freqs)
	return out
}

func (h *HostCPU) Brand() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.brand
}

// readFrequencies prefers cpufreq (current clock, kHz). Without it, the
// cpuinfo MHz figure from gopsutil is used.
func (h *HostCPU) readFrequencies(ctx context.Context) []uint64 {
	paths, _ := afero.Glob(h.fs, cpufreqGlob)
	sort.Slice(paths, func(i, j int) bool { return coreIndex(paths[i]) < coreIndex(paths[j]) })

	freqs := make([]uint64, 0, len(paths))
	for _, p := range paths {
		b, err := afero.ReadFile(h.fs, p)
		if err != nil {
			continue
		}
		khz, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
		if err != nil {
			continue
		}
		freqs = append(freqs, khz/1000)
	}
	if len(freqs) > 0 {
		return freqs
	}

	infos, err := h.info(ctx)
	if err != nil {
		return nil
	}
	for _, in := range infos {
		freqs = append(freqs, uint64(in.Mhz))
	}
	return freqs
}

func (h *HostCPU) readBrand(ctx context.Context) string {
	infos, err := h.info(ctx)
	if err != nil || len(infos) == 0 {
		return ""
	}
	return strings.TrimSpace(infos[0].ModelName)
}

// coreIndex extracts N from ".../cpuN/cpufreq/...".
func coreIndex(path string) int {
	dir := filepath.Base(filepath.Dir(filepath.Dir(path)))
	n, err := strconv.Atoi(strings.TrimPrefix(dir, "cpu"))
	if err != nil {
		return 1 << 30
	}
	return n
}
