package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/michaelpento.lv/triscan/config"
	"github.com/michaelpento.lv/triscan/types"
)

type NetworkHealth struct {
	Connected  bool             `json:"connected"`
	Block      uint64           `json:"block"`
	Tokens     int              `json:"tokens"`
	Categories []types.Category `json:"categories"`
}

type Health struct {
	Status     string                   `json:"status"`
	Timestamp  time.Time                `json:"timestamp"`
	Networks   map[string]NetworkHealth `json:"networks"`
	Strategies []string                 `json:"strategies"`
	Version    string                   `json:"version"`
}

// Health asks every network's provider for its block height. Any failure
// makes the whole check fail.
func (s *Scanner) Health(ctx context.Context) (*Health, error) {
	networks := make(map[string]NetworkHealth)
	for _, n := range s.catalog.Networks() {
		provider, ok := s.providers[n.ID]
		if !ok {
			return nil, fmt.Errorf("no provider for network %s", n.ID)
		}
		block, err := provider.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", n.ID, err)
		}
		networks[n.ID] = NetworkHealth{
			Connected:  true,
			Block:      block,
			Tokens:     len(n.Tokens),
			Categories: n.Categories(),
		}
	}

	return &Health{
		Status:     "healthy",
		Timestamp:  s.clock.Now().UTC(),
		Networks:   networks,
		Strategies: config.StrategyNames(),
		Version:    Version,
	}, nil
}
