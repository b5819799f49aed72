// Package pricing computes rent from name length and lease duration.
//
// The formula is a pure function of its inputs and the loaded tier table:
// cost = ceil(annualRate(len(name)) * seconds / secondsPerYear), in integer
// deci-units. Quoting and charging call the same function, so for identical
// inputs under one configuration the two amounts are bit-identical.
package pricing

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

// SecondsPerYear anchors annual rates to seconds, the unit leases are
// bought in. 365 days, no leap handling: the rate table defines a year.
const SecondsPerYear = 365 * 24 * 60 * 60

// Tier prices all names of length >= MinLength (until the next tier takes
// over). Shorter names are scarcer and rent for more.
type Tier struct {
	MinLength  int    `yaml:"min_length"`
	AnnualRate string `yaml:"annual_rate"`

	rate domain.Amount
}

// Config is the operator-supplied rent table.
type Config struct {
	Tiers []Tier `yaml:"tiers"`
}

// DefaultConfig returns the rent table used when no pricing file is
// configured: 3-character names at 100.0/year down to 10.0/year for names
// of ten characters or more.
func DefaultConfig() Config {
	return Config{Tiers: []Tier{
		{MinLength: 1, AnnualRate: "100.0"},
		{MinLength: 5, AnnualRate: "50.0"},
		{MinLength: 10, AnnualRate: "10.0"},
	}}
}

// LoadConfig reads a tier table from a YAML file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read pricing file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse pricing file: %w", err)
	}
	return cfg, nil
}

// Pricer is the compiled rent table. Construction validates the monotonicity
// the engine promises: rates never increase with name length.
type Pricer struct {
	tiers []Tier // sorted by MinLength ascending
}

// NewPricer validates and compiles a Config.
func NewPricer(cfg Config) (*Pricer, error) {
	if len(cfg.Tiers) == 0 {
		return nil, fmt.Errorf("pricing config has no tiers")
	}
	tiers := make([]Tier, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinLength < tiers[j].MinLength })

	for i := range tiers {
		if tiers[i].MinLength < 1 {
			return nil, fmt.Errorf("tier %d: min_length must be >= 1", i)
		}
		if i > 0 && tiers[i].MinLength == tiers[i-1].MinLength {
			return nil, fmt.Errorf("duplicate tier for min_length %d", tiers[i].MinLength)
		}
		rate, err := domain.ParseAmount(tiers[i].AnnualRate)
		if err != nil {
			return nil, fmt.Errorf("tier %d: invalid annual_rate %q: %w", i, tiers[i].AnnualRate, err)
		}
		if rate.IsZero() {
			return nil, fmt.Errorf("tier %d: annual_rate must be positive", i)
		}
		tiers[i].rate = rate
		if i > 0 && rate.Cmp(tiers[i-1].rate) > 0 {
			return nil, fmt.Errorf("tier %d: annual rates must not increase with name length", i)
		}
	}
	if tiers[0].MinLength != 1 {
		return nil, fmt.Errorf("first tier must start at min_length 1")
	}
	return &Pricer{tiers: tiers}, nil
}

// AnnualRate returns the per-year rate applied to a name of the given length.
func (p *Pricer) AnnualRate(nameLength int) domain.Amount {
	rate := p.tiers[0].rate
	for _, t := range p.tiers {
		if nameLength < t.MinLength {
			break
		}
		rate = t.rate
	}
	return rate
}

// Price computes the rent for leasing the name for the given duration.
// Monotonic: non-decreasing in duration for a fixed name, non-increasing in
// name length for a fixed duration. No randomness, no clock dependence.
func (p *Pricer) Price(name string, duration time.Duration) (domain.Amount, error) {
	secs := int64(duration / time.Second)
	if secs <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "duration must be a positive number of seconds")
	}
	rate := p.AnnualRate(len(name)).Deci()
	if secs > (1<<62)/rate {
		return 0, dErrors.New(dErrors.CodeValidation, "duration out of range")
	}
	// Ceiling division so that no positive duration prices at zero.
	cost := (rate*secs + SecondsPerYear - 1) / SecondsPerYear
	return domain.AmountFromDeci(cost), nil
}
