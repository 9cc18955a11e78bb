package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	apperrors "engagectl/internal/platform/errors"
)

// IntensityProfile governs tick timing and the probability that a tick acts.
type IntensityProfile struct {
	DelayMin time.Duration
	DelayMax time.Duration
	Chance   float64
}

// RandSource is the subset of *rand.Rand the engagement code draws from.
type RandSource interface {
	Float64() float64
	IntN(n int) int
	Int64N(n int64) int64
}

type globalRand struct{}

func (globalRand) Float64() float64     { return rand.Float64() }
func (globalRand) IntN(n int) int       { return rand.IntN(n) }
func (globalRand) Int64N(n int64) int64 { return rand.Int64N(n) }

// DefaultRand draws from the process-wide generator and is safe for concurrent use.
var DefaultRand RandSource = globalRand{}

func NewIntensityProfile(delayMin, delayMax time.Duration, chance float64) (IntensityProfile, error) {
	p := IntensityProfile{DelayMin: delayMin, DelayMax: delayMax, Chance: chance}
	if err := p.Validate(); err != nil {
		return IntensityProfile{}, err
	}
	return p, nil
}

func (p IntensityProfile) Validate() error {
	if p.DelayMin < 0 {
		return fmt.Errorf("%w: delay_min %s is negative", apperrors.ErrInvalidProfile, p.DelayMin)
	}
	if p.DelayMin > p.DelayMax {
		return fmt.Errorf("%w: delay_min %s exceeds delay_max %s", apperrors.ErrInvalidProfile, p.DelayMin, p.DelayMax)
	}
	if math.IsNaN(p.Chance) || p.Chance < 0 || p.Chance > 1 {
		return fmt.Errorf("%w: chance %v outside [0,1]", apperrors.ErrInvalidProfile, p.Chance)
	}
	return nil
}

// NextDelay draws uniformly from [DelayMin, DelayMax], both ends inclusive.
func (p IntensityProfile) NextDelay() time.Duration {
	return p.NextDelayFrom(DefaultRand)
}

func (p IntensityProfile) NextDelayFrom(r RandSource) time.Duration {
	span := int64(p.DelayMax - p.DelayMin)
	if span <= 0 {
		return p.DelayMin
	}
	if span == math.MaxInt64 {
		return p.DelayMin + time.Duration(r.Int64N(span))
	}
	return p.DelayMin + time.Duration(r.Int64N(span+1))
}

var presets = map[string]IntensityProfile{
	"low":    {DelayMin: 20 * time.Second, DelayMax: 40 * time.Second, Chance: 0.3},
	"medium": {DelayMin: 10 * time.Second, DelayMax: 25 * time.Second, Chance: 0.6},
	"high":   {DelayMin: 5 * time.Second, DelayMax: 15 * time.Second, Chance: 0.8},
}

// Preset returns one of the canonical profiles: low, medium or high.
func Preset(name string) (IntensityProfile, error) {
	p, ok := presets[name]
	if !ok {
		return IntensityProfile{}, fmt.Errorf("%w: unknown intensity %q", apperrors.ErrInvalidProfile, name)
	}
	return p, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return presets[names[i]].Chance < presets[names[j]].Chance
	})
	return names
}
