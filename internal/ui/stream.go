package ui

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rawwerks/monty/internal/coordinator"
	"github.com/rawwerks/monty/internal/logger"
	"github.com/rawwerks/monty/internal/model"
)

// NDJSON writes one JSON object per sample.
type NDJSON struct {
	mu  sync.Mutex
	enc *json.Encoder
	log logger.Logger
}

func NewNDJSON(w io.Writer) *NDJSON {
	return &NDJSON{enc: json.NewEncoder(w), log: logger.New("stream")}
}

// Observe matches coordinator.Observer.
func (n *NDJSON) Observe(s model.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.enc.Encode(s); err != nil {
		n.log.Error().Err(err).Msg("write sample")
	}
}

// RunTicker drives coord from a plain ticker until ctx is done. It replaces
// the TUI when samples are streamed instead of drawn.
func RunTicker(ctx context.Context, coord *coordinator.Coordinator, tick time.Duration) error {
	log := logger.New("ticker")
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := coord.Tick(ctx); err != nil {
				log.Warn().Err(err).Msg("sample skipped")
			}
		}
	}
}
