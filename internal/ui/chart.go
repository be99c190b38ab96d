package ui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rawwerks/monty/internal/model"
	"github.com/rawwerks/monty/internal/window"
)

var levels = []rune(" ▁▂▃▄▅▆▇█")

// chartCache holds the last rendering of one store. The store clears it on
// every push; a size change also forces a redraw.
type chartCache struct {
	mu            sync.Mutex
	valid         bool
	width, height int
	rendered      string
	renders       int
}

func (c *chartCache) Clear() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

func (c *chartCache) get(width, height int, draw func() string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.width == width && c.height == height {
		return c.rendered
	}
	c.rendered = draw()
	c.width, c.height = width, height
	c.valid = true
	c.renders++
	return c.rendered
}

// chart pairs a store with its render cache.
type chart struct {
	store *window.Store
	cache *chartCache
}

func newChart(s *window.Store) *chart {
	c := &chart{store: s, cache: &chartCache{}}
	s.AddInvalidator(c.cache)
	return c
}

func (c *chart) render(width, height int) string {
	return c.cache.get(width, height, func() string {
		return drawArea(c.store.Samples(), c.store, width, height)
	})
}

// drawArea plots newest-first samples over the trailing retention window as
// a filled area, one column per time slot, scaled to the store ceiling.
func drawArea(samples []model.Sample, s *window.Store, width, height int) string {
	unit := strings.TrimSpace(s.Unit())
	topLabel := strconv.Itoa(s.Ceiling()) + unit
	botLabel := "0" + unit
	labelW := max(lipgloss.Width(topLabel), lipgloss.Width(botLabel))

	plotW := width - labelW - 1
	if plotW < 1 || height < 1 || len(samples) == 0 {
		return ""
	}

	cols := columns(samples, s.Retention(), s.Ceiling(), plotW, height)

	var b strings.Builder
	for row := 0; row < height; row++ {
		label := ""
		switch row {
		case 0:
			label = topLabel
		case height - 1:
			label = botLabel
		}
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", labelW, label)))
		b.WriteString(axisStyle.Render("│"))

		var line strings.Builder
		// rows count down from the top; each row covers 8 sub-levels
		floor := (height - 1 - row) * 8
		for _, v := range cols {
			if v < 0 {
				line.WriteRune(' ')
				continue
			}
			fill := v - floor
			switch {
			case fill <= 0:
				line.WriteRune(' ')
			case fill >= 8:
				line.WriteRune(levels[8])
			default:
				line.WriteRune(levels[fill])
			}
		}
		b.WriteString(plotStyle.Render(line.String()))
		if row < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// columns maps samples to plot columns as heights in eighths of a row. The
// rightmost column is the newest sample; columns before the first sample stay
// empty (-1) and later gaps repeat the previous value.
func columns(samples []model.Sample, span time.Duration, ceiling, plotW, height int) []int {
	const eighths = 8
	if ceiling <= 0 {
		ceiling = 1
	}

	newest := samples[0].Timestamp
	cols := make([]int, plotW)
	for i := range cols {
		cols[i] = -1
	}

	// oldest first so newer samples overwrite a shared column
	for i := len(samples) - 1; i >= 0; i-- {
		age := newest.Sub(samples[i].Timestamp)
		if age < 0 || age > span {
			continue
		}
		col := plotW - 1 - int(int64(age)*int64(plotW-1)/int64(span))
		v := min(max(samples[i].Value, 0), ceiling)
		cols[col] = v * eighths * height / ceiling
	}

	last := -1
	for i, v := range cols {
		if v >= 0 {
			last = v
			continue
		}
		cols[i] = last
	}
	return cols
}
