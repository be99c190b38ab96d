package sensors

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/spf13/afero"
)

// DefaultHwmonRoot is where the kernel exposes hwmon devices.
const DefaultHwmonRoot = "/sys/class/hwmon"

// Hwmon reads chips straight from sysfs. Chip names are the hwmon "name"
// attribute (coretemp, k10temp, acpitz, ...) and feature names are the
// channel prefix (temp1, temp2, ...).
type Hwmon struct {
	fs   afero.Fs
	root string
}

// NewHwmon reads from the OS filesystem when fs is nil.
func NewHwmon(fs afero.Fs) *Hwmon {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Hwmon{fs: fs, root: DefaultHwmonRoot}
}

// Chips fails with ErrSensorInit when the root holds no hwmon devices at
// all. Devices without a name attribute are skipped.
func (h *Hwmon) Chips(ctx context.Context) ([]Chip, error) {
	dirs, err := afero.Glob(h.fs, filepath.Join(h.root, "hwmon*"))
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrSensorRead, err)
	}
	if len(dirs) == 0 {
		return nil, errors.New().WithData(errors.ErrSensorInit, h.root)
	}
	sort.Strings(dirs)

	var chips []Chip
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, err := h.readString(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		features := h.features(dir)
		if len(features) == 0 {
			// older drivers keep their attributes under device/
			features = h.features(filepath.Join(dir, "device"))
		}
		chips = append(chips, Chip{Name: name, Features: features})
	}
	return chips, nil
}

func (h *Hwmon) features(dir string) []Feature {
	inputs, _ := afero.Glob(h.fs, filepath.Join(dir, "temp*_input"))
	sort.Slice(inputs, func(i, j int) bool {
		return channelIndex(inputs[i]) < channelIndex(inputs[j])
	})

	features := make([]Feature, 0, len(inputs))
	for _, in := range inputs {
		raw, err := h.readString(in)
		if err != nil {
			continue
		}
		milli, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		prefix := strings.TrimSuffix(filepath.Base(in), "_input")
		label, _ := h.readString(filepath.Join(dir, prefix+"_label"))
		features = append(features, Feature{
			Name:  prefix,
			Label: label,
			Input: milli / 1000,
		})
	}
	return features
}

func (h *Hwmon) readString(path string) (string, error) {
	b, err := afero.ReadFile(h.fs, path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// channelIndex extracts N from ".../tempN_input" so temp10 sorts after temp2.
func channelIndex(path string) int {
	base := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "temp"), "_input")
	n, err := strconv.Atoi(base)
	if err != nil {
		return 1 << 30
	}
	return n
}
