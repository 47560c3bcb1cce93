package models

import "time"

// GameStatus represents the current state of a game
type GameStatus string

const (
	StatusScheduled  GameStatus = "scheduled"
	StatusInProgress GameStatus = "in_progress"
	StatusCompleted  GameStatus = "completed"
)

// Sport keys for the supported leagues. Lower-tier variants share the
// calculator of their parent sport via registry aliases.
const (
	SportBasketball        = "basketball"
	SportFootball          = "football"
	SportHockey            = "hockey"
	SportBaseball          = "baseball"
	SportCollegeBasketball = "college_basketball"
	SportCollegeFootball   = "college_football"
)

// GameContext is the minimal game metadata the pipeline consumes.
// UpdatedAt strictly increases whenever the authoritative score or status
// changes; the freshness evaluator depends on that monotonicity.
type GameContext struct {
	GameID     string     `json:"game_id"`
	Sport      string     `json:"sport"`
	Status     GameStatus `json:"status"`
	HomeTeamID string     `json:"home_team_id"`
	AwayTeamID string     `json:"away_team_id"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsLive reports whether the game is currently being played
func (g *GameContext) IsLive() bool {
	return g.Status == StatusInProgress
}
