package sensors

import (
	"context"
	"strings"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/shirou/gopsutil/v3/host"
)

// Host reads temperatures through gopsutil. gopsutil flattens chip and
// channel into one key such as "coretemp_package_id_0"; the part before the
// first underscore becomes the chip name and the rest the feature.
type Host struct {
	read func(ctx context.Context) ([]host.TemperatureStat, error)
}

func NewHost() *Host {
	return &Host{read: host.SensorsTemperaturesWithContext}
}

func (h *Host) Chips(ctx context.Context) ([]Chip, error) {
	stats, err := h.read(ctx)
	if err != nil && len(stats) == 0 {
		// gopsutil reports partial failures alongside usable readings
		return nil, errors.New().Wrap(errors.ErrSensorRead, err)
	}
	return groupStats(stats), nil
}

func groupStats(stats []host.TemperatureStat) []Chip {
	var chips []Chip
	index := make(map[string]int)
	for _, st := range stats {
		chipName, feature, found := strings.Cut(st.SensorKey, "_")
		if !found {
			feature = chipName
		}
		i, ok := index[chipName]
		if !ok {
			i = len(chips)
			index[chipName] = i
			chips = append(chips, Chip{Name: chipName})
		}
		chips[i].Features = append(chips[i].Features, Feature{
			Name:  feature,
			Label: feature,
			Input: st.Temperature,
		})
	}
	return chips
}
