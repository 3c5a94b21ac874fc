package analytics

import "math"

// Moments tracks running mean and variance with Welford's online algorithm.
// These are analytical quantities, not ledger values, so float64 is fine here.
type Moments struct {
	n    int64
	mean float64
	m2   float64
}

// Observe folds one value into the running moments.
func (m *Moments) Observe(x float64) {
	m.n++
	delta := x - m.mean
	m.mean += delta / float64(m.n)
	delta2 := x - m.mean
	m.m2 += delta * delta2
}

// Merge combines another moment triple into this one using the parallel
// Chan et al. formula; shard-and-merge gives the same result as sequential
// observation.
func (m *Moments) Merge(other Moments) {
	if other.n == 0 {
		return
	}
	if m.n == 0 {
		*m = other
		return
	}
	n := m.n + other.n
	delta := other.mean - m.mean
	m.mean += delta * float64(other.n) / float64(n)
	m.m2 += other.m2 + delta*delta*float64(m.n)*float64(other.n)/float64(n)
	m.n = n
}

// Count returns the number of observations.
func (m *Moments) Count() int64 { return m.n }

// Mean returns the running mean; zero before the first observation.
func (m *Moments) Mean() float64 { return m.mean }

// SampleVariance returns M2/(n-1). Undefined below two observations, treated
// as zero so anomaly scoring stays disabled.
func (m *Moments) SampleVariance() float64 {
	if m.n < 2 {
		return 0
	}
	return m.m2 / float64(m.n-1)
}

// StdDev is the sample standard deviation.
func (m *Moments) StdDev() float64 {
	return math.Sqrt(m.SampleVariance())
}

// ZScore returns how many standard deviations x lies from the mean; zero when
// the deviation itself is zero.
func (m *Moments) ZScore(x float64) float64 {
	sd := m.StdDev()
	if sd == 0 {
		return 0
	}
	return (x - m.mean) / sd
}
