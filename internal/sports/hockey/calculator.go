package hockey

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/statmath"
)

const version = "hockey-v2"

// Quality start thresholds for goalies
const (
	qualityStartMinSaves = 20
	qualityStartSavePct  = 0.917
)

// Calculator computes derived hockey metrics, normalized per 60 minutes
// of ice time for skaters and save-based metrics for goalies.
type Calculator struct{}

// New creates the hockey calculator
func New() *Calculator {
	return &Calculator{}
}

func (c *Calculator) SportKey() string {
	return models.SportHockey
}

func (c *Calculator) DisplayName() string {
	return "Hockey"
}

func (c *Calculator) Version() string {
	return version
}

func (c *Calculator) RequiredMetrics() []string {
	return []string{"points", "fantasyPoints"}
}

// Compute derives per-60 rates, shooting and save percentages and the
// quality start flag. Time on ice comes from the raw bag in seconds.
func (c *Calculator) Compute(raw map[string]interface{}, _ float64) map[string]interface{} {
	goals := statmath.Num(raw, "goals")
	assists := statmath.Num(raw, "assists")
	shots := statmath.Num(raw, "shots", "shots_on_goal", "shotsOnGoal")
	hits := statmath.Num(raw, "hits")
	blocked := statmath.Num(raw, "blockedShots", "blocked_shots")
	toi := statmath.Num(raw, "timeOnIceSeconds", "time_on_ice_seconds", "toi_seconds")
	saves := statmath.Num(raw, "saves")
	shotsAgainst := statmath.Num(raw, "shotsAgainst", "shots_against")

	m := make(map[string]interface{})

	m["points"] = statmath.Round3(goals + assists)

	if toi > 0 {
		m["goalsPer60"] = statmath.Round3(goals * 3600 / toi)
		m["assistsPer60"] = statmath.Round3(assists * 3600 / toi)
		m["pointsPer60"] = statmath.Round3((goals + assists) * 3600 / toi)
		m["shotsPer60"] = statmath.Round3(shots * 3600 / toi)
	}
	if shots > 0 {
		m["shootingPct"] = statmath.Round3(goals / shots)
	}
	if shotsAgainst > 0 {
		savePct := saves / shotsAgainst
		m["savePct"] = statmath.Round3(savePct)
		m["qualityStart"] = saves >= qualityStartMinSaves && savePct >= qualityStartSavePct
	}

	fantasy := goals*3 + assists*2 + shots*0.5 + hits*0.3 + blocked*0.5 + saves*0.2
	m["fantasyPoints"] = statmath.Round3(fantasy)

	m[models.MetaUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	m[models.MetaVersion] = version
	return m
}
