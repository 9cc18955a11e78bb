package domain

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	apperrors "engagectl/internal/platform/errors"
)

func TestNextDelayStaysWithinBounds(t *testing.T) {
	t.Parallel()
	profiles := []IntensityProfile{
		{DelayMin: 0, DelayMax: 0, Chance: 1},
		{DelayMin: time.Millisecond, DelayMax: time.Millisecond, Chance: 0},
		{DelayMin: 0, DelayMax: 3, Chance: 0.5},
		{DelayMin: 5 * time.Second, DelayMax: 15 * time.Second, Chance: 0.8},
		{DelayMin: 20 * time.Second, DelayMax: 40 * time.Second, Chance: 0.3},
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			t.Fatalf("profile %+v should be valid: %v", p, err)
		}
		for i := 0; i < 10000; i++ {
			d := p.NextDelay()
			if d < p.DelayMin || d > p.DelayMax {
				t.Fatalf("delay %s outside [%s, %s]", d, p.DelayMin, p.DelayMax)
			}
		}
	}
}

func TestNextDelayReachesBothEnds(t *testing.T) {
	t.Parallel()
	p := IntensityProfile{DelayMin: 1, DelayMax: 3, Chance: 1}
	r := rand.New(rand.NewPCG(1, 2))
	seen := map[time.Duration]bool{}
	for i := 0; i < 1000; i++ {
		seen[p.NextDelayFrom(r)] = true
	}
	for _, want := range []time.Duration{1, 2, 3} {
		if !seen[want] {
			t.Fatalf("expected delay %d to be drawn, got %v", want, seen)
		}
	}
}

func TestProfileValidation(t *testing.T) {
	t.Parallel()
	invalid := []IntensityProfile{
		{DelayMin: 2 * time.Second, DelayMax: time.Second, Chance: 0.5},
		{DelayMin: -time.Second, DelayMax: time.Second, Chance: 0.5},
		{DelayMin: 0, DelayMax: time.Second, Chance: 1.01},
		{DelayMin: 0, DelayMax: time.Second, Chance: -0.1},
		{DelayMin: 0, DelayMax: time.Second, Chance: math.NaN()},
	}
	for _, p := range invalid {
		if _, err := NewIntensityProfile(p.DelayMin, p.DelayMax, p.Chance); !errors.Is(err, apperrors.ErrInvalidProfile) {
			t.Fatalf("expected invalid profile error for %+v, got %v", p, err)
		}
	}
	if _, err := NewIntensityProfile(0, 0, 0); err != nil {
		t.Fatalf("zero profile should be valid: %v", err)
	}
}

func TestPresets(t *testing.T) {
	t.Parallel()
	high, err := Preset("high")
	if err != nil {
		t.Fatalf("high preset: %v", err)
	}
	if high.DelayMin != 5*time.Second || high.DelayMax != 15*time.Second || high.Chance != 0.8 {
		t.Fatalf("unexpected high preset: %+v", high)
	}
	if _, err := Preset("extreme"); !errors.Is(err, apperrors.ErrInvalidProfile) {
		t.Fatalf("expected unknown preset error, got %v", err)
	}
	names := PresetNames()
	if len(names) != 3 || names[0] != "low" || names[2] != "high" {
		t.Fatalf("unexpected preset order: %v", names)
	}
}
