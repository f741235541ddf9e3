package optimize

import "math"

// Objective is a log likelihood over the hyperparameter values.
type Objective interface {
	LogLikelihood(x []float64) float64
}

// GradientObjective is an objective which can compute its own
// gradient.
type GradientObjective interface {
	Objective
	Gradient(x, grad []float64)
}

// ObjectiveFunc is a function implementing Objective.
type ObjectiveFunc func(x []float64) float64

// LogLikelihood calls f.
func (f ObjectiveFunc) LogLikelihood(x []float64) float64 {
	return f(x)
}

// QuadraticObjective is a product of independent Gaussian likelihood
// terms, one per parameter. Terms with zero width are constant.
type QuadraticObjective struct {
	Centers []float64
	Widths  []float64
}

// LogLikelihood returns -sum((x-c)^2/2w^2).
func (q *QuadraticObjective) LogLikelihood(x []float64) (l float64) {
	if len(x) != len(q.Centers) || len(x) != len(q.Widths) {
		panic("Incorrect number of parameters")
	}
	for i, v := range x {
		if q.Widths[i] == 0 {
			continue
		}
		d := (v - q.Centers[i]) / q.Widths[i]
		l -= d * d / 2
	}
	return
}

// Gradient computes the derivative of the log likelihood.
func (q *QuadraticObjective) Gradient(x, grad []float64) {
	for i, v := range x {
		if q.Widths[i] == 0 {
			grad[i] = 0
			continue
		}
		grad[i] = -(v - q.Centers[i]) / (q.Widths[i] * q.Widths[i])
	}
}

// Model binds parameters to an objective.
type Model struct {
	parameters FloatParameters
	objective  Objective
	x          []float64
}

// NewModel creates a new model. If objective is nil, the likelihood is
// constant and the model samples from the priors.
func NewModel(objective Objective, parameters FloatParameters) *Model {
	return &Model{
		parameters: parameters,
		objective:  objective,
		x:          make([]float64, len(parameters)),
	}
}

// GetFloatParameters returns the model parameters.
func (m *Model) GetFloatParameters() FloatParameters {
	return m.parameters
}

// Likelihood returns the log likelihood at the current parameter
// values.
func (m *Model) Likelihood() float64 {
	if m.objective == nil {
		return 0
	}
	m.x = m.parameters.Values(m.x)
	l := m.objective.LogLikelihood(m.x)
	if math.IsNaN(l) {
		return math.Inf(-1)
	}
	return l
}

// Gradient returns the log likelihood gradient at x, if the objective
// provides one.
func (m *Model) Gradient(x, grad []float64) bool {
	if m.objective == nil {
		for i := range grad {
			grad[i] = 0
		}
		return true
	}
	if g, ok := m.objective.(GradientObjective); ok {
		g.Gradient(x, grad)
		return true
	}
	return false
}
