// Package cadence measures how regularly the main loop presents frames.
package cadence

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold is the maximum FPS standard deviation as a fraction of mean FPS.
	// Example: 60 FPS mean → stable if stddev < 9 FPS
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum mean jitter as a fraction of the expected interval.
	// Example: 60 FPS (16.7ms interval) → stable if jitter < 3.3ms
	jitterStabilityThreshold = 0.20
)

// Stats describes presentation cadence over a window of presents
type Stats struct {
	Frames       int
	Duration     time.Duration
	FPSMean      float64
	FPSStdDev    float64
	FPSMin       float64
	FPSMax       float64
	JitterMean   float64 // seconds
	JitterStdDev float64 // seconds
	JitterMax    float64 // seconds
	IsStable     bool
}

// Calculate computes cadence statistics from present timestamps.
//
// Mean FPS is frames over duration; min/max/stddev come from the
// instantaneous rate of each interval. Jitter is the absolute deviation of
// each interval from the one implied by the mean. The cadence is stable when
// stddev < 15% of mean FPS and mean jitter < 20% of the expected interval.
func Calculate(times []time.Time, duration time.Duration) Stats {
	n := len(times)
	if n == 0 || duration <= 0 {
		return Stats{Frames: n, Duration: duration}
	}

	fpsMean := float64(n) / duration.Seconds()

	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if interval := times[i].Sub(times[i-1]).Seconds(); interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}
	if len(instantaneous) == 0 {
		return Stats{Frames: n, Duration: duration, FPSMean: fpsMean}
	}

	fpsMin, fpsMax := instantaneous[0], instantaneous[0]
	var sumSquares float64
	for _, fps := range instantaneous {
		fpsMin = math.Min(fpsMin, fps)
		fpsMax = math.Max(fpsMax, fps)
		diff := fps - fpsMean
		sumSquares += diff * diff
	}
	fpsStdDev := math.Sqrt(sumSquares / float64(len(instantaneous)))

	expectedInterval := 1.0 / fpsMean

	jitters := make([]float64, 0, n-1)
	var jitterSum, jitterMax float64
	for i := 1; i < n; i++ {
		j := math.Abs(times[i].Sub(times[i-1]).Seconds() - expectedInterval)
		jitters = append(jitters, j)
		jitterSum += j
		jitterMax = math.Max(jitterMax, j)
	}
	jitterMean := jitterSum / float64(len(jitters))

	var jitterSumSquares float64
	for _, j := range jitters {
		diff := j - jitterMean
		jitterSumSquares += diff * diff
	}
	jitterStdDev := math.Sqrt(jitterSumSquares / float64(len(jitters)))

	return Stats{
		Frames:       n,
		Duration:     duration,
		FPSMean:      fpsMean,
		FPSStdDev:    fpsStdDev,
		FPSMin:       fpsMin,
		FPSMax:       fpsMax,
		JitterMean:   jitterMean,
		JitterStdDev: jitterStdDev,
		JitterMax:    jitterMax,
		IsStable: fpsStdDev < fpsMean*fpsStabilityThreshold &&
			jitterMean < expectedInterval*jitterStabilityThreshold,
	}
}
