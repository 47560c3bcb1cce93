package hockey_test

import (
	"math"
	"testing"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/sports/hockey"
)

func TestSkaterPer60Rates(t *testing.T) {
	calc := hockey.New()

	m := calc.Compute(map[string]interface{}{
		"goals":            2.0,
		"assists":          1.0,
		"shots":            6.0,
		"timeOnIceSeconds": 1200.0, // 20 minutes
	}, 0)

	tests := []struct {
		metric string
		want   float64
	}{
		{"points", 3.0},
		{"goalsPer60", 6.0},
		{"assistsPer60", 3.0},
		{"pointsPer60", 9.0},
		{"shotsPer60", 18.0},
		{"shootingPct", 0.333},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			got, ok := m[tt.metric].(float64)
			if !ok {
				t.Fatalf("metric %s missing from bag", tt.metric)
			}
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("%s = %f, want %f", tt.metric, got, tt.want)
			}
		})
	}
}

func TestPer60OmittedWithoutIceTime(t *testing.T) {
	calc := hockey.New()

	m := calc.Compute(map[string]interface{}{"goals": 1.0}, 0)

	if _, ok := m["goalsPer60"]; ok {
		t.Error("goalsPer60 should be omitted without time on ice")
	}
	if pts, ok := m["points"].(float64); !ok || pts != 1.0 {
		t.Errorf("points = %v, want 1.0", m["points"])
	}
}

func TestGoalieQualityStart(t *testing.T) {
	calc := hockey.New()

	tests := []struct {
		name         string
		saves        float64
		shotsAgainst float64
		wantSavePct  float64
		wantQuality  bool
	}{
		{"Strong start", 30, 32, 0.938, true},
		{"High save pct but few saves", 19, 20, 0.950, false},
		{"Enough saves but leaky", 25, 30, 0.833, false},
		{"Exactly at thresholds", 22, 23, 0.957, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := calc.Compute(map[string]interface{}{
				"saves":        tt.saves,
				"shotsAgainst": tt.shotsAgainst,
			}, 0)

			savePct, ok := m["savePct"].(float64)
			if !ok {
				t.Fatal("savePct missing from bag")
			}
			if math.Abs(savePct-tt.wantSavePct) > 0.01 {
				t.Errorf("savePct = %f, want %f", savePct, tt.wantSavePct)
			}

			quality, ok := m["qualityStart"].(bool)
			if !ok {
				t.Fatal("qualityStart missing from bag")
			}
			if quality != tt.wantQuality {
				t.Errorf("qualityStart = %v, want %v", quality, tt.wantQuality)
			}
		})
	}
}

func TestGoalieMetricsOmittedForSkaters(t *testing.T) {
	calc := hockey.New()

	m := calc.Compute(map[string]interface{}{"goals": 1.0, "shots": 3.0}, 0)

	if _, ok := m["savePct"]; ok {
		t.Error("savePct should be omitted when no shots were faced")
	}
	if _, ok := m["qualityStart"]; ok {
		t.Error("qualityStart should be omitted when no shots were faced")
	}
}
