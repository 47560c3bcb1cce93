package baseball

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/statmath"
)

const version = "baseball-v2"

// fipConstant shifts FIP onto the ERA scale
const fipConstant = 3.1

// crossSportFields are stat names that can only come from another sport.
// The upstream baseball feed is known to deliver logs polluted with these;
// when any are present the calculator records a corruption marker instead
// of fabricating metrics from bad data.
var crossSportFields = []string{
	"fieldGoalsMade", "field_goals_made",
	"fieldGoalsAttempted", "field_goals_attempted",
	"threePointersMade", "three_pointers_made",
	"rebounds",
	"passingYards", "passing_yards",
	"passingAttempts", "passing_attempts",
	"rushingYards", "rushing_yards",
	"timeOnIceSeconds", "time_on_ice_seconds",
}

// Calculator computes standard batting and pitching sabermetrics
type Calculator struct{}

// New creates the baseball calculator
func New() *Calculator {
	return &Calculator{}
}

func (c *Calculator) SportKey() string {
	return models.SportBaseball
}

func (c *Calculator) DisplayName() string {
	return "Baseball"
}

func (c *Calculator) Version() string {
	return version
}

// RequiredMetrics is empty for baseball: corrupted logs carry only the
// marker, and an empty required set keeps them from re-flagging as stale
// on every cycle.
func (c *Calculator) RequiredMetrics() []string {
	return nil
}

// Compute derives batting (AVG, OBP, SLG, OPS, BABIP) and pitching
// (ERA, WHIP, FIP, K/9) ratios. Logs carrying cross-sport fields get a
// corruption marker and no metrics.
func (c *Calculator) Compute(raw map[string]interface{}, _ float64) map[string]interface{} {
	m := make(map[string]interface{})

	if statmath.Has(raw, crossSportFields...) {
		m[models.MetaCorruptData] = true
		m[models.MetaUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
		m[models.MetaVersion] = version
		return m
	}

	ab := statmath.Num(raw, "atBats", "at_bats", "ab")
	hits := statmath.Num(raw, "hits", "h")
	doubles := statmath.Num(raw, "doubles", "2b")
	triples := statmath.Num(raw, "triples", "3b")
	hr := statmath.Num(raw, "homeRuns", "home_runs", "hr")
	walks := statmath.Num(raw, "walks", "base_on_balls", "bb")
	hbp := statmath.Num(raw, "hitByPitch", "hit_by_pitch")
	sacFlies := statmath.Num(raw, "sacrificeFlies", "sacrifice_flies")
	strikeouts := statmath.Num(raw, "strikeouts", "k")

	if ab > 0 {
		m["battingAvg"] = statmath.Round3(hits / ab)

		singles := hits - doubles - triples - hr
		totalBases := singles + 2*doubles + 3*triples + 4*hr
		m["sluggingPct"] = statmath.Round3(totalBases / ab)
	}
	if obpDen := ab + walks + hbp + sacFlies; obpDen > 0 {
		m["onBasePct"] = statmath.Round3((hits + walks + hbp) / obpDen)
	}
	if obp, ok := m["onBasePct"].(float64); ok {
		if slg, ok := m["sluggingPct"].(float64); ok {
			m["ops"] = statmath.Round3(obp + slg)
		}
	}
	if babipDen := ab - strikeouts - hr + sacFlies; babipDen > 0 {
		m["babip"] = statmath.Round3((hits - hr) / babipDen)
	}

	ip := statmath.Num(raw, "inningsPitched", "innings_pitched", "ip")
	if ip > 0 {
		earnedRuns := statmath.Num(raw, "earnedRuns", "earned_runs")
		hitsAllowed := statmath.Num(raw, "hitsAllowed", "hits_allowed")
		walksAllowed := statmath.Num(raw, "walksAllowed", "walks_allowed")
		hrAllowed := statmath.Num(raw, "homeRunsAllowed", "home_runs_allowed")
		hitBatters := statmath.Num(raw, "hitBatters", "hit_batters")
		kPitched := statmath.Num(raw, "strikeoutsPitched", "strikeouts_pitched", "pitcher_strikeouts")

		m["era"] = statmath.Round3(earnedRuns * 9 / ip)
		m["whip"] = statmath.Round3((walksAllowed + hitsAllowed) / ip)
		m["fip"] = statmath.Round3((13*hrAllowed+3*(walksAllowed+hitBatters)-2*kPitched)/ip + fipConstant)
		m["kPer9"] = statmath.Round3(kPitched * 9 / ip)
	}

	m[models.MetaUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	m[models.MetaVersion] = version
	return m
}
