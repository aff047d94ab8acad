package vad

import (
	"math"
	"testing"
)

func constantFrame(value int16, samples int) []int16 {
	frame := make([]int16, samples)
	for i := range frame {
		frame[i] = value
	}
	return frame
}

func TestEnergyIsDeterministicAndNormalized(t *testing.T) {
	t.Parallel()

	frame := constantFrame(16384, 160)
	first := Energy(frame)
	second := Energy(frame)
	if first != second {
		t.Fatalf("energy is not deterministic: %v vs %v", first, second)
	}

	expected := 16384.0 / 32768.0
	if math.Abs(first-expected) > 1e-9 {
		t.Fatalf("unexpected energy: got %v want %v", first, expected)
	}

	if Energy(nil) != 0 {
		t.Fatalf("expected zero energy for empty frame")
	}
}

func TestFinishCalibrationComputesInflatedMean(t *testing.T) {
	t.Parallel()

	e := NewEstimator(0.02)
	e.Observe(constantFrame(328, 160)) // ~0.01 full scale
	e.Observe(constantFrame(328, 160))

	floor := e.FinishCalibration()
	if !e.Calibrated() {
		t.Fatalf("expected calibrated estimator")
	}
	if floor < 0 {
		t.Fatalf("noise floor must be non-negative, got %v", floor)
	}

	expected := (328.0 / 32768.0) * noiseFloorInflation
	if math.Abs(floor-expected) > 1e-6 {
		t.Fatalf("unexpected noise floor: got %v want %v", floor, expected)
	}
}

func TestFinishCalibrationIsIdempotent(t *testing.T) {
	t.Parallel()

	e := NewEstimator(0.02)
	e.Observe(constantFrame(1000, 160))
	first := e.FinishCalibration()

	e.Observe(constantFrame(30000, 160))
	second := e.FinishCalibration()
	if first != second {
		t.Fatalf("expected stable noise floor, got %v then %v", first, second)
	}
}

func TestFinishCalibrationWithoutObservations(t *testing.T) {
	t.Parallel()

	e := NewEstimator(0.02)
	if floor := e.FinishCalibration(); floor != 0 {
		t.Fatalf("expected zero floor without observations, got %v", floor)
	}
	if e.EffectiveThreshold() != 0.02 {
		t.Fatalf("expected configured threshold to hold, got %v", e.EffectiveThreshold())
	}
}

func TestEffectiveThresholdPrefersHigherOfConfigAndFloor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		threshold float64
		ambient   int16
		want      func(floor float64) float64
	}{
		{
			name:      "quiet room keeps configured threshold",
			threshold: 0.02,
			ambient:   66, // ~0.002 full scale
			want:      func(float64) float64 { return 0.02 },
		},
		{
			name:      "noisy room scales with floor",
			threshold: 0.02,
			ambient:   1638, // ~0.05 full scale
			want:      func(floor float64) float64 { return floor * floorMultiplier },
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := NewEstimator(tc.threshold)
			e.Observe(constantFrame(tc.ambient, 160))
			floor := e.FinishCalibration()

			if got, want := e.EffectiveThreshold(), tc.want(floor); math.Abs(got-want) > 1e-9 {
				t.Fatalf("unexpected threshold: got %v want %v", got, want)
			}
		})
	}
}

func TestIsSpeechAgainstThreshold(t *testing.T) {
	t.Parallel()

	e := NewEstimator(0.02)
	e.FinishCalibration()

	if e.IsSpeech(constantFrame(100, 160)) {
		t.Fatalf("quiet frame classified as speech")
	}
	if !e.IsSpeech(constantFrame(8000, 160)) {
		t.Fatalf("loud frame not classified as speech")
	}
}
