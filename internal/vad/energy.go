package vad

import "math"

// RMS returns the root-mean-square energy of the samples, normalised to the
// range [0, 1] where 1 corresponds to a full-scale 16-bit signal. An empty
// slice scores 0.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
