// Package vad converts raw PCM frames into speech/silence decisions using an
// adaptive energy threshold derived from a one-shot noise-floor calibration.
package vad

import "math"

const (
	// noiseFloorInflation pads the measured ambient energy so borderline
	// room noise does not sit exactly on the floor.
	noiseFloorInflation = 1.5
	// floorMultiplier scales the calibrated floor into the adaptive
	// threshold: speech must be at least twice the ambient baseline.
	floorMultiplier = 2.0
)

// Estimator decides per frame whether captured audio contains speech.
// Outside the calibration window it is stateless: the decision is a pure
// function of the frame and the immutable threshold.
type Estimator struct {
	volumeThreshold float64
	noiseFloor      float64
	calibrated      bool
	energies        []float64
}

// NewEstimator returns an uncalibrated estimator with the configured
// minimum volume threshold (normalized full-scale, typically 0.02).
func NewEstimator(volumeThreshold float64) *Estimator {
	if volumeThreshold < 0 {
		volumeThreshold = 0
	}
	return &Estimator{volumeThreshold: volumeThreshold}
}

// Energy computes the root-mean-square energy of a frame, normalized to
// [0, 1] full scale. It is deterministic and side-effect-free.
func Energy(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// Observe accumulates a calibration frame. Calls after calibration has
// finished are ignored.
func (e *Estimator) Observe(frame []int16) {
	if e.calibrated {
		return
	}
	e.energies = append(e.energies, Energy(frame))
}

// FinishCalibration computes the noise floor from the observed frames and
// seals the estimator. The floor is the mean observed energy inflated by a
// fixed factor; with no observations it is zero. Idempotent.
func (e *Estimator) FinishCalibration() float64 {
	if e.calibrated {
		return e.noiseFloor
	}
	if len(e.energies) > 0 {
		var sum float64
		for _, energy := range e.energies {
			sum += energy
		}
		e.noiseFloor = sum / float64(len(e.energies)) * noiseFloorInflation
	}
	e.energies = nil
	e.calibrated = true
	return e.noiseFloor
}

// Calibrated reports whether the noise floor has been computed.
func (e *Estimator) Calibrated() bool {
	return e.calibrated
}

// NoiseFloor returns the calibrated ambient energy baseline.
func (e *Estimator) NoiseFloor() float64 {
	return e.noiseFloor
}

// EffectiveThreshold returns the adaptive speech threshold: the configured
// volume threshold, or a multiple of the noise floor, whichever is higher.
func (e *Estimator) EffectiveThreshold() float64 {
	return math.Max(e.volumeThreshold, e.noiseFloor*floorMultiplier)
}

// IsSpeech reports whether the frame's energy exceeds the effective
// threshold.
func (e *Estimator) IsSpeech(frame []int16) bool {
	return Energy(frame) > e.EffectiveThreshold()
}
