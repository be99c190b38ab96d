// Package sensors enumerates temperature chips and picks the package reading.
package sensors

import (
	"context"
	"strings"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// Feature is one temperature channel of a chip, in degrees Celsius.
type Feature struct {
	Name  string
	Label string
	Input float64
}

// Chip is a sensor device with its temperature features.
type Chip struct {
	Name     string
	Features []Feature
}

// Source lists the chips currently visible to the host.
type Source interface {
	Chips(ctx context.Context) ([]Chip, error)
}

// PackageTemp returns the first reading of the first chip whose name contains
// chipMatch and whose feature name or label contains featureMatch. Missing
// chips, features or a failing source all read as 0.
func PackageTemp(ctx context.Context, src Source, chipMatch, featureMatch string) int {
	chips, err := src.Chips(ctx)
	if err != nil {
		return 0
	}
	chip, ok := lo.Find(chips, func(c Chip) bool {
		return strings.Contains(c.Name, chipMatch)
	})
	if !ok {
		return 0
	}
	feat, ok := lo.Find(chip.Features, func(f Feature) bool {
		return strings.Contains(f.Name, featureMatch) || strings.Contains(f.Label, featureMatch)
	})
	if !ok {
		return 0
	}
	return int(feat.Input)
}

// Default feature matches per backend. hwmon names channels temp1, temp2, ...
// and the package sensor is the first; gopsutil keys carry the label, such
// as "package_id_0".
const (
	HwmonPackageFeature = "temp1"
	HostPackageFeature  = "package"
)

// DefaultFeature returns the feature match that selects the package sensor
// on backend.
func DefaultFeature(backend string) string {
	if backend == "host" {
		return HostPackageFeature
	}
	return HwmonPackageFeature
}

// NewSource builds the named backend. fs is only used by hwmon; nil means
// the OS filesystem.
func NewSource(backend string, fs afero.Fs) (Source, error) {
	switch backend {
	case "hwmon":
		return NewHwmon(fs), nil
	case "host":
		return NewHost(), nil
	default:
		return nil, errors.New().WithData(errors.ErrSensorBackend, backend)
	}
}

// Available enumerates src once. A source that cannot list chips at all
// fails with ErrSensorInit; an empty or non-matching chip list does not.
func Available(ctx context.Context, src Source) error {
	if _, err := src.Chips(ctx); err != nil {
		if errors.HasCode(err, errors.ErrSensorInit) {
			return err
		}
		return errors.New().Wrap(errors.ErrSensorInit, err)
	}
	return nil
}

// Open builds the named backend and checks that it can enumerate chips.
func Open(ctx context.Context, backend string, fs afero.Fs) (Source, error) {
	src, err := NewSource(backend, fs)
	if err != nil {
		return nil, err
	}
	if err := Available(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}
