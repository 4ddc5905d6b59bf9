package eventstudy

import "math"

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the n-1 standard deviation used for the t statistic and the
// effect size.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sortFloats(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

// percentileSorted expects an already sorted slice.
func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func sortFloats(values []float64) {
	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			if values[j] < values[i] {
				values[i], values[j] = values[j], values[i]
			}
		}
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// olsFit regresses y on x and returns the intercept and slope. A degenerate
// regressor (zero variance) yields alpha = mean(y), beta = 0.
func olsFit(x, y []float64) (alpha, beta float64) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, 0
	}
	xBar := average(x)
	yBar := average(y)
	cov := 0.0
	varX := 0.0
	for i := 0; i < n; i++ {
		dx := x[i] - xBar
		cov += dx * (y[i] - yBar)
		varX += dx * dx
	}
	if varX == 0 {
		return yBar, 0
	}
	beta = cov / varX
	alpha = yBar - beta*xBar
	return alpha, beta
}

// studentTwoSidedP is the two-sided tail probability of the Student t
// distribution with df degrees of freedom, via the regularized incomplete
// beta function: P(|T| >= |t|) = I_{df/(df+t^2)}(df/2, 1/2).
func studentTwoSidedP(t float64, df int) float64 {
	if df < 1 {
		return 1
	}
	fdf := float64(df)
	return regIncompleteBeta(fdf/2.0, 0.5, fdf/(fdf+t*t))
}

// regIncompleteBeta computes I_x(a, b) with the standard continued-fraction
// expansion (Lentz's method).
func regIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lgA, _ := math.Lgamma(a)
	lgB, _ := math.Lgamma(b)
	lgAB, _ := math.Lgamma(a + b)
	front := math.Exp(lgAB - lgA - lgB + a*math.Log(x) + b*math.Log(1-x))

	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIterations = 200
		epsilon       = 3e-14
		tiny          = 1e-30
	)

	qab := a + b
	qap := a + 1
	qam := a - 1
	c := 1.0
	d := 1.0 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1.0 / d
	h := d

	for m := 1; m <= maxIterations; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1.0 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1.0 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1.0 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1.0 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1.0 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1.0 / d
		del := d * c
		h *= del

		if math.Abs(del-1.0) < epsilon {
			break
		}
	}
	return h
}

// benjaminiHochberg converts raw p-values to step-up FDR q-values. The input
// order is preserved in the output.
func benjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	if m == 0 {
		return nil
	}

	type ranked struct {
		p   float64
		idx int
	}
	order := make([]ranked, m)
	for i, p := range pValues {
		order[i] = ranked{p: p, idx: i}
	}
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			if order[j].p < order[i].p {
				order[i], order[j] = order[j], order[i]
			}
		}
	}

	qValues := make([]float64, m)
	running := 1.0
	for rank := m; rank >= 1; rank-- {
		entry := order[rank-1]
		q := entry.p * float64(m) / float64(rank)
		if q < running {
			running = q
		}
		if running > 1 {
			running = 1
		}
		qValues[entry.idx] = running
	}
	return qValues
}
