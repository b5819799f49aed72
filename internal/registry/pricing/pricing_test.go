package pricing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"registrar/pkg/domain"
)

func testPricer(t *testing.T) *Pricer {
	t.Helper()
	p, err := NewPricer(DefaultConfig())
	require.NoError(t, err)
	return p
}

func TestPriceAnchorsToAnnualRate(t *testing.T) {
	p := testPricer(t)

	// A one-year lease on a >=10 character name costs exactly the tier's
	// annual rate.
	cost, err := p.Price("learnweb3-registry", SecondsPerYear*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "10.0", cost.String())

	// Short names rent for more.
	cost, err = p.Price("abc", SecondsPerYear*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "100.0", cost.String())
}

func TestPriceRejectsNonPositiveDuration(t *testing.T) {
	p := testPricer(t)
	_, err := p.Price("learnweb3", 0)
	require.Error(t, err)
	_, err = p.Price("learnweb3", -time.Hour)
	require.Error(t, err)
}

func TestPriceNeverZeroForPositiveDuration(t *testing.T) {
	p := testPricer(t)
	cost, err := p.Price("learnweb3-registry", time.Second)
	require.NoError(t, err)
	assert.False(t, cost.IsZero())
}

func TestPriceIsDeterministic(t *testing.T) {
	p := testPricer(t)
	a, err := p.Price("learnweb3", 31536000*time.Second)
	require.NoError(t, err)
	b, err := p.Price("learnweb3", 31536000*time.Second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// Property: price is non-decreasing in duration for a fixed name.
func TestPriceMonotonicInDuration(t *testing.T) {
	p := testPricer(t)
	rapid.Check(t, func(t *rapid.T) {
		d1 := rapid.Int64Range(1, 100*SecondsPerYear).Draw(t, "d1")
		d2 := rapid.Int64Range(d1, 100*SecondsPerYear).Draw(t, "d2")

		c1, err := p.Price("learnweb3", time.Duration(d1)*time.Second)
		require.NoError(t, err)
		c2, err := p.Price("learnweb3", time.Duration(d2)*time.Second)
		require.NoError(t, err)

		if c1.Cmp(c2) > 0 {
			t.Fatalf("price decreased with duration: %s for %ds vs %s for %ds", c1, d1, c2, d2)
		}
	})
}

// Property: price is non-increasing in name length for a fixed duration.
func TestPriceMonotonicInNameLength(t *testing.T) {
	p := testPricer(t)
	rapid.Check(t, func(t *rapid.T) {
		len1 := rapid.IntRange(1, 64).Draw(t, "len1")
		len2 := rapid.IntRange(len1, 64).Draw(t, "len2")
		secs := rapid.Int64Range(1, 10*SecondsPerYear).Draw(t, "secs")

		name1 := make([]byte, len1)
		name2 := make([]byte, len2)
		for i := range name1 {
			name1[i] = 'a'
		}
		for i := range name2 {
			name2[i] = 'a'
		}

		c1, err := p.Price(string(name1), time.Duration(secs)*time.Second)
		require.NoError(t, err)
		c2, err := p.Price(string(name2), time.Duration(secs)*time.Second)
		require.NoError(t, err)

		if c2.Cmp(c1) > 0 {
			t.Fatalf("longer name priced higher: len %d -> %s, len %d -> %s", len1, c1, len2, c2)
		}
	})
}

func TestNewPricerValidation(t *testing.T) {
	t.Run("rejects empty config", func(t *testing.T) {
		_, err := NewPricer(Config{})
		require.Error(t, err)
	})

	t.Run("rejects rates increasing with length", func(t *testing.T) {
		_, err := NewPricer(Config{Tiers: []Tier{
			{MinLength: 1, AnnualRate: "10.0"},
			{MinLength: 5, AnnualRate: "20.0"},
		}})
		require.Error(t, err)
	})

	t.Run("rejects missing base tier", func(t *testing.T) {
		_, err := NewPricer(Config{Tiers: []Tier{
			{MinLength: 3, AnnualRate: "10.0"},
		}})
		require.Error(t, err)
	})

	t.Run("rejects zero rate", func(t *testing.T) {
		_, err := NewPricer(Config{Tiers: []Tier{
			{MinLength: 1, AnnualRate: "0.0"},
		}})
		require.Error(t, err)
	})

	t.Run("rejects duplicate tiers", func(t *testing.T) {
		_, err := NewPricer(Config{Tiers: []Tier{
			{MinLength: 1, AnnualRate: "20.0"},
			{MinLength: 1, AnnualRate: "10.0"},
		}})
		require.Error(t, err)
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tiers:
  - min_length: 1
    annual_rate: "250.0"
  - min_length: 4
    annual_rate: "25.0"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	p, err := NewPricer(cfg)
	require.NoError(t, err)

	assert.Equal(t, domain.AmountFromDeci(2500), p.AnnualRate(3))
	assert.Equal(t, domain.AmountFromDeci(250), p.AnnualRate(4))
	assert.Equal(t, domain.AmountFromDeci(250), p.AnnualRate(40))
}
