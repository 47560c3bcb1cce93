package registry

import (
	"fmt"

	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/sports/baseball"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/sports/basketball"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/sports/football"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/internal/sports/hockey"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/contracts"
	"github.com/XavierBriggs/fortuna/services/ultimate-stats/pkg/models"
)

// Registry maps sport keys to metric calculators. Adding a sport means
// adding one Calculator implementation and registering it here.
type Registry struct {
	calculators map[string]contracts.Calculator
}

// New creates a registry with all supported sports. Lower-tier leagues
// are aliases onto the parent sport's calculator.
func New() *Registry {
	r := &Registry{
		calculators: make(map[string]contracts.Calculator),
	}

	r.Register(basketball.New())
	r.Register(football.New())
	r.Register(hockey.New())
	r.Register(baseball.New())

	r.Alias(models.SportCollegeBasketball, models.SportBasketball)
	r.Alias(models.SportCollegeFootball, models.SportFootball)

	return r
}

// Register adds a calculator under its own sport key
func (r *Registry) Register(calc contracts.Calculator) {
	r.calculators[calc.SportKey()] = calc
}

// Alias registers an additional sport key onto an existing calculator.
// Unknown targets are ignored.
func (r *Registry) Alias(sportKey, target string) {
	if calc, ok := r.calculators[target]; ok {
		r.calculators[sportKey] = calc
	}
}

// Calculator retrieves the calculator for a sport key
func (r *Registry) Calculator(sportKey string) (contracts.Calculator, error) {
	calc, ok := r.calculators[sportKey]
	if !ok {
		return nil, fmt.Errorf("no calculator registered for sport: %s", sportKey)
	}
	return calc, nil
}

// RequiredMetrics returns the freshness-required metric keys for a sport,
// or nil for an unknown sport.
func (r *Registry) RequiredMetrics(sportKey string) []string {
	calc, ok := r.calculators[sportKey]
	if !ok {
		return nil
	}
	return calc.RequiredMetrics()
}

// SportKeys returns every registered sport key, aliases included
func (r *Registry) SportKeys() []string {
	keys := make([]string, 0, len(r.calculators))
	for key := range r.calculators {
		keys = append(keys, key)
	}
	return keys
}
