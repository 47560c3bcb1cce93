package football

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/statmath"
)

const version = "football-v2"

// Each passer rating component is clamped to this ceiling before averaging
const ratingComponentMax = 2.375

// Calculator computes derived American football metrics
type Calculator struct{}

// New creates the football calculator
func New() *Calculator {
	return &Calculator{}
}

func (c *Calculator) SportKey() string {
	return models.SportFootball
}

func (c *Calculator) DisplayName() string {
	return "Football"
}

func (c *Calculator) Version() string {
	return version
}

func (c *Calculator) RequiredMetrics() []string {
	return []string{"fantasyPoints"}
}

// Compute derives passer rating (the four-component NFL formula), simple
// per-attempt ratios and fantasy points. Position-specific metrics are
// omitted when their denominators are zero.
func (c *Calculator) Compute(raw map[string]interface{}, _ float64) map[string]interface{} {
	passAtt := statmath.Num(raw, "passingAttempts", "passing_attempts")
	passCmp := statmath.Num(raw, "passingCompletions", "passing_completions", "completions")
	passYds := statmath.Num(raw, "passingYards", "passing_yards")
	passTD := statmath.Num(raw, "passingTouchdowns", "passing_touchdowns")
	passInt := statmath.Num(raw, "passingInterceptions", "passing_interceptions", "interceptions")
	rushAtt := statmath.Num(raw, "rushingAttempts", "rushing_attempts", "carries")
	rushYds := statmath.Num(raw, "rushingYards", "rushing_yards")
	rushTD := statmath.Num(raw, "rushingTouchdowns", "rushing_touchdowns")
	receptions := statmath.Num(raw, "receptions", "catches")
	targets := statmath.Num(raw, "targets")
	recYds := statmath.Num(raw, "receivingYards", "receiving_yards")
	recTD := statmath.Num(raw, "receivingTouchdowns", "receiving_touchdowns")
	fumbles := statmath.Num(raw, "fumbles", "fumbles_lost")

	m := make(map[string]interface{})

	if passAtt > 0 {
		a := statmath.Clamp((passCmp/passAtt-0.3)*5, 0, ratingComponentMax)
		b := statmath.Clamp((passYds/passAtt-3)*0.25, 0, ratingComponentMax)
		cc := statmath.Clamp((passTD/passAtt)*20, 0, ratingComponentMax)
		d := statmath.Clamp(ratingComponentMax-(passInt/passAtt)*25, 0, ratingComponentMax)

		m["passerRating"] = statmath.Round3((a + b + cc + d) / 6 * 100)
		m["completionPct"] = statmath.Round3(passCmp / passAtt)
		m["yardsPerAttempt"] = statmath.Round3(passYds / passAtt)
	}
	if targets > 0 {
		m["catchRate"] = statmath.Round3(receptions / targets)
	}
	if receptions > 0 {
		m["yardsPerReception"] = statmath.Round3(recYds / receptions)
	}
	if rushAtt > 0 {
		m["yardsPerCarry"] = statmath.Round3(rushYds / rushAtt)
	}

	m["totalYards"] = statmath.Round3(passYds + rushYds + recYds)
	m["totalTouchdowns"] = statmath.Round3(passTD + rushTD + recTD)

	fantasy := passYds/25 + passTD*4 - passInt*2 +
		rushYds/10 + rushTD*6 +
		recYds/10 + recTD*6 + receptions*0.5 -
		fumbles*2
	m["fantasyPoints"] = statmath.Round3(fantasy)

	m[models.MetaUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	m[models.MetaVersion] = version
	return m
}
