package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	"github.com/lib/pq"
)

// Store reads and writes the stats database. It is the single source of
// truth; the Redis cache is strictly derived from it.
type Store struct {
	db *sql.DB
}

// New creates a store backed by the given database handle
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GamesUpdatedSince returns games whose authoritative state changed after
// the cutoff, optionally filtered by sport, restricted to the given
// statuses.
func (s *Store) GamesUpdatedSince(ctx context.Context, since time.Time, sportFilter string, statuses []models.GameStatus) ([]models.GameContext, error) {
	query := `
		SELECT game_id, sport, status, home_team_id, away_team_id, updated_at
		FROM games
		WHERE updated_at > $1
		  AND status = ANY($2)
		  AND ($3 = '' OR sport = $3)
		ORDER BY updated_at DESC
	`

	statusStrs := make([]string, len(statuses))
	for i, st := range statuses {
		statusStrs[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx, query, since, pq.Array(statusStrs), sportFilter)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// GameByID retrieves a single game's context
func (s *Store) GameByID(ctx context.Context, gameID string) (*models.GameContext, error) {
	query := `
		SELECT game_id, sport, status, home_team_id, away_team_id, updated_at
		FROM games
		WHERE game_id = $1
	`

	var g models.GameContext
	err := s.db.QueryRowContext(ctx, query, gameID).Scan(
		&g.GameID, &g.Sport, &g.Status, &g.HomeTeamID, &g.AwayTeamID, &g.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("game not found: %s", gameID)
		}
		return nil, fmt.Errorf("query game: %w", err)
	}
	return &g, nil
}

// HasLiveGames reports whether any game is currently in progress
func (s *Store) HasLiveGames(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM games WHERE status = $1`, string(models.StatusInProgress),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count live games: %w", err)
	}
	return count > 0, nil
}

// GamePage returns one keyset page of games for a sport, ordered by
// game_id, starting strictly after afterGameID. An empty result means the
// sweep is exhausted.
func (s *Store) GamePage(ctx context.Context, sport, afterGameID string, limit int) ([]models.GameContext, error) {
	query := `
		SELECT game_id, sport, status, home_team_id, away_team_id, updated_at
		FROM games
		WHERE sport = $1 AND game_id > $2
		ORDER BY game_id
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, sport, afterGameID, limit)
	if err != nil {
		return nil, fmt.Errorf("query game page: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// LogsByGame returns every player log for a game
func (s *Store) LogsByGame(ctx context.Context, gameID string) ([]models.PerformanceRecord, error) {
	query := `
		SELECT l.game_id, l.player_id, g.sport, l.team_id, l.opponent_id, l.is_home,
		       l.minutes_played, l.raw_stats, l.computed_metrics, l.updated_at
		FROM player_game_logs l
		JOIN games g ON g.game_id = l.game_id
		WHERE l.game_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("query logs for game %s: %w", gameID, err)
	}
	defer rows.Close()

	return scanLogs(rows)
}

// LogsMissingMetrics returns one batch of logs for a sport whose computed
// metrics are null or empty, in stable (game_id, player_id) order so
// repeated sweeps make monotonic progress.
func (s *Store) LogsMissingMetrics(ctx context.Context, sport string, limit int) ([]models.PerformanceRecord, error) {
	query := `
		SELECT l.game_id, l.player_id, g.sport, l.team_id, l.opponent_id, l.is_home,
		       l.minutes_played, l.raw_stats, l.computed_metrics, l.updated_at
		FROM player_game_logs l
		JOIN games g ON g.game_id = l.game_id
		WHERE g.sport = $1
		  AND (l.computed_metrics IS NULL OR l.computed_metrics = '{}'::jsonb)
		ORDER BY l.game_id, l.player_id
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, sport, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs missing metrics: %w", err)
	}
	defer rows.Close()

	return scanLogs(rows)
}

// CountLogsMissingMetrics counts the remaining un-metriced logs for a sport
func (s *Store) CountLogsMissingMetrics(ctx context.Context, sport string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM player_game_logs l
		JOIN games g ON g.game_id = l.game_id
		WHERE g.sport = $1
		  AND (l.computed_metrics IS NULL OR l.computed_metrics = '{}'::jsonb)
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, sport).Scan(&count); err != nil {
		return 0, fmt.Errorf("count logs missing metrics: %w", err)
	}
	return count, nil
}

// SampleComputedLogs returns up to limit recently computed logs for a
// sport, used by the post-backfill validation pass.
func (s *Store) SampleComputedLogs(ctx context.Context, sport string, limit int) ([]models.PerformanceRecord, error) {
	query := `
		SELECT l.game_id, l.player_id, g.sport, l.team_id, l.opponent_id, l.is_home,
		       l.minutes_played, l.raw_stats, l.computed_metrics, l.updated_at
		FROM player_game_logs l
		JOIN games g ON g.game_id = l.game_id
		WHERE g.sport = $1
		  AND l.computed_metrics IS NOT NULL AND l.computed_metrics != '{}'::jsonb
		ORDER BY l.updated_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, sport, limit)
	if err != nil {
		return nil, fmt.Errorf("query computed log sample: %w", err)
	}
	defer rows.Close()

	return scanLogs(rows)
}

// UpsertLogs writes a batch of logs in one transaction. Conflict key is
// the (game_id, player_id) identity; the computed bag is a full replace,
// last write wins.
func (s *Store) UpsertLogs(ctx context.Context, logs []models.PerformanceRecord) error {
	if len(logs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO player_game_logs (
			game_id, player_id, team_id, opponent_id, is_home,
			minutes_played, raw_stats, computed_metrics, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (game_id, player_id) DO UPDATE SET
			computed_metrics = EXCLUDED.computed_metrics,
			opponent_id = EXCLUDED.opponent_id,
			is_home = EXCLUDED.is_home,
			updated_at = NOW()
	`

	for _, rec := range logs {
		rawJSON, err := json.Marshal(rec.RawStats)
		if err != nil {
			return fmt.Errorf("marshal raw stats for %s/%s: %w", rec.GameID, rec.PlayerID, err)
		}
		metricsJSON, err := json.Marshal(rec.ComputedMetrics)
		if err != nil {
			return fmt.Errorf("marshal metrics for %s/%s: %w", rec.GameID, rec.PlayerID, err)
		}

		_, err = tx.ExecContext(ctx, query,
			rec.GameID, rec.PlayerID,
			nullString(rec.TeamID), nullString(rec.OpponentID), rec.IsHome,
			rec.MinutesPlayed, rawJSON, metricsJSON,
		)
		if err != nil {
			return fmt.Errorf("upsert log %s/%s: %w", rec.GameID, rec.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit log batch: %w", err)
	}
	return nil
}

// SaveBackfillProgress upserts the per-sport progress row after a batch
func (s *Store) SaveBackfillProgress(ctx context.Context, p *models.BackfillProgress) error {
	query := `
		INSERT INTO backfill_progress (
			sport, run_id, total_records, processed_records, success_count,
			failure_count, repaired_games, current_batch_index, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sport) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			total_records = EXCLUDED.total_records,
			processed_records = EXCLUDED.processed_records,
			success_count = EXCLUDED.success_count,
			failure_count = EXCLUDED.failure_count,
			repaired_games = EXCLUDED.repaired_games,
			current_batch_index = EXCLUDED.current_batch_index,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	var completedAt sql.NullTime
	if p.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *p.CompletedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		p.Sport, p.RunID, p.TotalRecords, p.ProcessedRecords, p.SuccessCount,
		p.FailureCount, p.RepairedGames, p.CurrentBatchIndex, p.StartedAt, completedAt,
	)
	if err != nil {
		return fmt.Errorf("save backfill progress: %w", err)
	}
	return nil
}

// BackfillProgressBySport loads the last persisted progress row, or nil
// when no sweep has run for the sport.
func (s *Store) BackfillProgressBySport(ctx context.Context, sport string) (*models.BackfillProgress, error) {
	query := `
		SELECT sport, run_id, total_records, processed_records, success_count,
		       failure_count, repaired_games, current_batch_index, started_at, completed_at
		FROM backfill_progress
		WHERE sport = $1
	`

	var p models.BackfillProgress
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, sport).Scan(
		&p.Sport, &p.RunID, &p.TotalRecords, &p.ProcessedRecords, &p.SuccessCount,
		&p.FailureCount, &p.RepairedGames, &p.CurrentBatchIndex, &p.StartedAt, &completedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query backfill progress: %w", err)
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}

func scanGames(rows *sql.Rows) ([]models.GameContext, error) {
	var games []models.GameContext
	for rows.Next() {
		var g models.GameContext
		if err := rows.Scan(&g.GameID, &g.Sport, &g.Status, &g.HomeTeamID, &g.AwayTeamID, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

func scanLogs(rows *sql.Rows) ([]models.PerformanceRecord, error) {
	var logs []models.PerformanceRecord
	for rows.Next() {
		var rec models.PerformanceRecord
		var teamID, opponentID sql.NullString
		var minutes sql.NullFloat64
		var rawJSON, metricsJSON []byte

		err := rows.Scan(
			&rec.GameID, &rec.PlayerID, &rec.Sport, &teamID, &opponentID, &rec.IsHome,
			&minutes, &rawJSON, &metricsJSON, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}

		rec.TeamID = teamID.String
		rec.OpponentID = opponentID.String
		rec.MinutesPlayed = minutes.Float64

		if len(rawJSON) > 0 {
			if err := json.Unmarshal(rawJSON, &rec.RawStats); err != nil {
				return nil, fmt.Errorf("unmarshal raw stats %s/%s: %w", rec.GameID, rec.PlayerID, err)
			}
		}
		if len(metricsJSON) > 0 {
			if err := json.Unmarshal(metricsJSON, &rec.ComputedMetrics); err != nil {
				return nil, fmt.Errorf("unmarshal metrics %s/%s: %w", rec.GameID, rec.PlayerID, err)
			}
		}

		logs = append(logs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return logs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
