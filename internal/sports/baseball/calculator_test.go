package baseball_test

import (
	"math"
	"testing"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/sports/baseball"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
)

func TestBattingMetrics(t *testing.T) {
	calc := baseball.New()

	m := calc.Compute(map[string]interface{}{
		"atBats":     4.0,
		"hits":       2.0,
		"doubles":    1.0,
		"homeRuns":   1.0,
		"walks":      1.0,
		"strikeouts": 1.0,
	}, 0)

	tests := []struct {
		metric string
		want   float64
	}{
		{"battingAvg", 0.500},
		{"sluggingPct", 1.500},
		{"onBasePct", 0.600},
		{"ops", 2.100},
		{"babip", 0.500},
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

func TestPitchingMetrics(t *testing.T) {
	calc := baseball.New()

	m := calc.Compute(map[string]interface{}{
		"inningsPitched":    6.0,
		"earnedRuns":        2.0,
		"hitsAllowed":       5.0,
		"walksAllowed":      2.0,
		"homeRunsAllowed":   1.0,
		"strikeoutsPitched": 7.0,
	}, 0)

	tests := []struct {
		metric string
		want   float64
	}{
		{"era", 3.000},
		{"whip", 1.167},
		{"kPer9", 10.500},
		{"fip", 3.933},
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

func TestCrossSportCorruptionMarker(t *testing.T) {
	calc := baseball.New()

	m := calc.Compute(map[string]interface{}{
		"atBats":   4.0,
		"hits":     2.0,
		"rebounds": 7.0,
	}, 0)

	if corrupt, ok := m[models.MetaCorruptData].(bool); !ok || !corrupt {
		t.Fatal("expected corruption marker for log carrying basketball fields")
	}
	if _, ok := m["battingAvg"]; ok {
		t.Error("corrupted log should not produce batting metrics")
	}
	if _, ok := m[models.MetaUpdatedAt]; !ok {
		t.Error("corrupted log should still carry an update timestamp")
	}
	if v, ok := m[models.MetaVersion].(string); !ok || v == "" {
		t.Error("corrupted log should still carry a version stamp")
	}
}

func TestPitchingOmittedWithoutInnings(t *testing.T) {
	calc := baseball.New()

	m := calc.Compute(map[string]interface{}{
		"atBats": 3.0,
		"hits":   1.0,
	}, 0)

	for _, metric := range []string{"era", "whip", "fip", "kPer9"} {
		if _, ok := m[metric]; ok {
			t.Errorf("%s should be omitted for a non-pitcher", metric)
		}
	}
	if avg, ok := m["battingAvg"].(float64); !ok || math.Abs(avg-0.333) > 0.01 {
		t.Errorf("battingAvg = %v, want 0.333", m["battingAvg"])
	}
}

func TestNoRequiredMetrics(t *testing.T) {
	if got := baseball.New().RequiredMetrics(); len(got) != 0 {
		t.Errorf("RequiredMetrics() = %v, want empty", got)
	}
}
