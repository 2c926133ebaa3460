package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/michaelpento.lv/triscan/config"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher fans opportunities out over Redis. Each opportunity is
// published on the channel and kept, per network, in a hash of the
// latest result for every path.
type Publisher struct {
	rdb     *redis.Client
	channel string
	metrics *metrics.ScannerMetrics
	logger  *zap.Logger
}

func NewPublisher(cfg config.RedisConfig, m *metrics.ScannerMetrics, logger *zap.Logger) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &Publisher{
		rdb:     rdb,
		channel: cfg.Channel,
		metrics: m,
		logger:  logger,
	}
}

// Ping checks the connection
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// LatestKey is the hash holding the latest opportunity per path on network
func (p *Publisher) LatestKey(network string) string {
	return p.channel + ":latest:" + network
}

func (p *Publisher) Publish(ctx context.Context, opp *types.Opportunity) error {
	err := p.publish(ctx, opp)
	p.metrics.ObserveFeed(err)
	return err
}

func (p *Publisher) publish(ctx context.Context, opp *types.Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("failed to encode opportunity: %w", err)
	}

	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.HSet(ctx, p.LatestKey(opp.Network), opp.PathLabel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish opportunity: %w", err)
	}

	p.logger.Debug("Published opportunity",
		zap.String("channel", p.channel),
		zap.String("path", opp.PathLabel))
	return nil
}

func (p *Publisher) Close() error {
	return p.rdb.Close()
}
