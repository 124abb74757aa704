package audio

import "math"

// Level computes the root-mean-square loudness of a block of samples,
// normalised so that full-scale input yields ≈1.0. It returns 0 for empty
// input.
//
// Level is pure and deterministic — the silence/speech boundary logic in the
// recorder is unit-tested against it without real audio hardware.
func Level(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
