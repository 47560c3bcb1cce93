package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	"github.com/redis/go-redis/v9"
)

// SummaryChannel carries one message per orchestrator cycle
const SummaryChannel = "ultimate_stats:summary"

// Publisher emits "metrics changed" notifications over Redis pub/sub.
// Delivery is fire-and-forget; callers log publish failures and move on.
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a broadcast publisher
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PlayerUpdate is the payload published after a log's metrics change
type PlayerUpdate struct {
	GameID   string                 `json:"game_id"`
	PlayerID string                 `json:"player_id"`
	Sport    string                 `json:"sport"`
	Metrics  map[string]interface{} `json:"metrics"`
}

// PublishPlayerUpdate publishes one log's fresh metrics to the player's
// channel.
func (p *Publisher) PublishPlayerUpdate(ctx context.Context, rec *models.PerformanceRecord) error {
	payload := PlayerUpdate{
		GameID:   rec.GameID,
		PlayerID: rec.PlayerID,
		Sport:    rec.Sport,
		Metrics:  rec.ComputedMetrics,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling player update: %w", err)
	}

	channel := PlayerChannel(rec.PlayerID)
	return p.client.Publish(ctx, channel, data).Err()
}

// PublishCycleSummary publishes the cycle-level summary
func (p *Publisher) PublishCycleSummary(ctx context.Context, summary *models.CycleSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling cycle summary: %w", err)
	}

	return p.client.Publish(ctx, SummaryChannel, data).Err()
}

// PlayerChannel returns the per-player channel name
func PlayerChannel(playerID string) string {
	return fmt.Sprintf("player:%s:stats", playerID)
}
