package basketball

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/statmath"
)

const version = "basketball-v2"

// leaguePossessionEstimate is a fixed league-average possessions-per-48
// approximation used by the usage rate formula. Kept as a constant rather
// than a per-team value.
const leaguePossessionEstimate = 100.0

// Calculator computes derived basketball metrics from a raw stat bag
type Calculator struct{}

// New creates the basketball calculator
func New() *Calculator {
	return &Calculator{}
}

func (c *Calculator) SportKey() string {
	return models.SportBasketball
}

func (c *Calculator) DisplayName() string {
	return "Basketball"
}

func (c *Calculator) Version() string {
	return version
}

// RequiredMetrics lists the keys the freshness evaluator checks for.
// These are emitted for every input (zero when the guard trips), so a
// computed log stays stable.
func (c *Calculator) RequiredMetrics() []string {
	return []string{"trueShootingPct", "usageRate", "fantasyPoints"}
}

// Compute derives shooting efficiency, usage, game score and fantasy
// metrics. Missing inputs default to zero; division is guarded and all
// outputs are rounded to 3 decimal places.
func (c *Calculator) Compute(raw map[string]interface{}, minutesPlayed float64) map[string]interface{} {
	pts := statmath.Num(raw, "points", "pts")
	fgm := statmath.Num(raw, "fieldGoalsMade", "field_goals_made", "fgMade", "fg_made")
	fga := statmath.Num(raw, "fieldGoalsAttempted", "field_goals_attempted", "fgAttempted", "fg_attempted")
	tpm := statmath.Num(raw, "threePointersMade", "three_pointers_made", "threeMade", "three_made")
	ftm := statmath.Num(raw, "freeThrowsMade", "free_throws_made", "ftMade", "ft_made")
	fta := statmath.Num(raw, "freeThrowsAttempted", "free_throws_attempted", "ftAttempted", "ft_attempted")
	reb := statmath.Num(raw, "rebounds", "total_rebounds", "reb")
	oreb := statmath.Num(raw, "offensiveRebounds", "offensive_rebounds", "oreb")
	ast := statmath.Num(raw, "assists", "ast")
	stl := statmath.Num(raw, "steals", "stl")
	blk := statmath.Num(raw, "blocks", "blk")
	tov := statmath.Num(raw, "turnovers", "tov")
	pf := statmath.Num(raw, "personalFouls", "personal_fouls", "fouls")

	m := make(map[string]interface{})

	if fga > 0 {
		m["fieldGoalPct"] = statmath.Round3(fgm / fga)
		m["effectiveFieldGoalPct"] = statmath.Round3((fgm + 0.5*tpm) / fga)
	}
	if fta > 0 {
		m["freeThrowPct"] = statmath.Round3(ftm / fta)
	}

	ts := 0.0
	if tsDen := 2 * (fga + 0.44*fta); tsDen > 0 {
		ts = pts / tsDen
	}
	m["trueShootingPct"] = statmath.Round3(ts)

	usage := 0.0
	if minutesPlayed > 0 {
		usage = (fga + 0.44*fta + tov) * 48 / (minutesPlayed * leaguePossessionEstimate / 48)
	}
	m["usageRate"] = statmath.Round3(usage)

	gameScore := pts + 0.4*fgm - 0.7*fga - 0.4*(fta-ftm) +
		0.7*(reb-oreb) + 0.3*oreb + stl + 0.7*ast + 0.7*blk - 0.4*pf - tov
	m["gameScore"] = statmath.Round3(gameScore)

	fantasy := pts + 0.5*tpm + 1.25*reb + 1.5*ast + 2*stl + 2*blk - 0.5*tov
	m["fantasyPoints"] = statmath.Round3(fantasy)

	m[models.MetaUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	m[models.MetaVersion] = version
	return m
}
