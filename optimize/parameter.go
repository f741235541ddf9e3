package optimize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"math"
	"strconv"

	"golang.org/x/exp/rand"

	"bitbucket.org/Davydov/hyperprior/prior"
)

// ErrParameterCount is returned if the number of values does not match
// the number of parameters.
var ErrParameterCount = errors.New("incorrect number of parameters")

// FloatParameter is a hyperparameter in log space with a prior.
type FloatParameter interface {
	Name() string
	Prior() float64
	OldPrior() float64
	PriorGradient() float64
	Propose()
	Accept(int)
	Reject()
	String() string
	GetMin() float64
	GetMax() float64
	SetOnChange(func())
	SetProposalFunc(func(float64) float64)
	SetPrior(prior.Prior)
	GetPrior() prior.Prior
	Get() float64
	Set(float64)
	InRange() bool
	ValueInRange(float64) bool
}

// FloatParameterGenerator creates a new parameter given a name and a
// prior.
type FloatParameterGenerator func(string, prior.Prior) FloatParameter

// FloatParameters is a slice of parameters.
type FloatParameters []FloatParameter

// Append adds a parameter.
func (p *FloatParameters) Append(par FloatParameter) {
	*p = append(*p, par)
}

// Names returns parameter names, reusing is if it is not nil.
func (p FloatParameters) Names(is []string) (s []string) {
	if is == nil {
		s = make([]string, len(p))
	} else {
		s = is
	}
	for i, par := range p {
		s[i] = par.Name()
	}
	return
}

// Values returns parameter values, reusing iv if it is not nil.
func (p FloatParameters) Values(iv []float64) (v []float64) {
	if iv == nil {
		v = make([]float64, len(p))
	} else {
		v = iv
	}
	for i, par := range p {
		v[i] = par.Get()
	}
	return
}

// Map returns parameter values by name.
func (p FloatParameters) Map() map[string]float64 {
	m := make(map[string]float64, len(p))
	for _, par := range p {
		m[par.Name()] = par.Get()
	}
	return m
}

// ValuesInRange checks if all the values are inside of the parameter
// bounds.
func (p FloatParameters) ValuesInRange(vals []float64) bool {
	if len(vals) != len(p) {
		panic("Incorrect number of parameters")
	}
	for i, par := range p {
		if !par.ValueInRange(vals[i]) {
			return false
		}
	}
	return true
}

// SetValues sets all the parameter values.
func (p FloatParameters) SetValues(v []float64) error {
	if len(v) != len(p) {
		return ErrParameterCount
	}
	for i, par := range p {
		par.Set(v[i])
	}
	return nil
}

// SetFromMap sets parameter values from a map. All the parameters
// should be present.
func (p FloatParameters) SetFromMap(m map[string]float64) error {
	if len(m) != len(p) {
		return fmt.Errorf("%w: got %d, expected %d", ErrParameterCount, len(m), len(p))
	}
	for _, par := range p {
		v, ok := m[par.Name()]
		if !ok {
			return fmt.Errorf("parameter %q is missing", par.Name())
		}
		par.Set(v)
	}
	return nil
}

// ReadLine sets parameter values from a trajectory line (iteration,
// likelihood and prior followed by the values).
func (p FloatParameters) ReadLine(l string) error {
	v, err := ReadFloats(l)
	if err != nil {
		return err
	}
	if len(v) < 3 {
		return ErrParameterCount
	}
	return p.SetValues(v[3:])
}

// ReadFromJSON reads parameter values from a JSON file.
func (p *FloatParameters) ReadFromJSON(fn string) error {
	b, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, p)
}

// MarshalJSON encodes parameters as an object preserving the
// parameter order.
func (p FloatParameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, par := range p {
		if i != 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(par.Name())
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(par.Get())
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON sets parameter values from a JSON object.
func (p *FloatParameters) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	return p.SetFromMap(m)
}

// maxRandomize is the number of prior draws Randomize makes before
// giving up on a parameter.
const maxRandomize = 100

// Randomize sets every parameter to a sample from its prior. Samples
// outside of the parameter bounds are redrawn; the log-normal sampler
// ignores the location shift of the density, so this can happen for a
// non-zero mean.
func (p FloatParameters) Randomize(src rand.Source) {
	for _, par := range p {
		for i := 0; i < maxRandomize; i++ {
			v := par.GetPrior().Sample(src, 1).At(0, 0)
			if par.ValueInRange(v) {
				par.Set(v)
				break
			}
			if i == maxRandomize-1 {
				log.Warningf("%s: no prior sample inside of [%v, %v]", par.Name(), par.GetMin(), par.GetMax())
			}
		}
	}
}

// InRange checks if all the parameters are inside of the bounds.
func (p FloatParameters) InRange() bool {
	for _, par := range p {
		if !par.InRange() {
			return false
		}
	}
	return true
}

// LogPrior returns the sum of the parameter log priors.
func (p FloatParameters) LogPrior() (lp float64) {
	for _, par := range p {
		lp += par.Prior()
	}
	return
}

// LogPriorGradient fills grad with the prior gradients of every
// parameter, allocating it if nil.
func (p FloatParameters) LogPriorGradient(grad []float64) []float64 {
	if grad == nil {
		grad = make([]float64, len(p))
	}
	for i, par := range p {
		grad[i] = par.PriorGradient()
	}
	return grad
}

// NamesString returns tab-separated names.
func (p FloatParameters) NamesString() (s string) {
	for i, par := range p {
		if i != 0 {
			s += "\t"
		}
		s += par.Name()
	}
	return
}

// ValuesString returns tab-separated values.
func (p FloatParameters) ValuesString() (s string) {
	for i, par := range p {
		if i != 0 {
			s += "\t"
		}
		s += par.String()
	}
	return
}

// BasicFloatParameter is a parameter with a random-walk proposal.
type BasicFloatParameter struct {
	value        float64
	old          float64
	name         string
	prior        prior.Prior
	proposalFunc func(float64) float64
	min          float64
	max          float64
	onChange     func()
}

// NewBasicFloatParameter creates a new parameter with a normal
// proposal. The bounds are taken from the prior if it is
// prior.Bounded.
func NewBasicFloatParameter(name string, pr prior.Prior) *BasicFloatParameter {
	p := &BasicFloatParameter{
		name:         name,
		proposalFunc: NormalProposal(nil, 1),
		min:          math.Inf(-1),
		max:          math.Inf(+1),
	}
	p.SetPrior(pr)
	return p
}

// BasicFloatParameterGenerator is a FloatParameterGenerator for
// BasicFloatParameter.
func BasicFloatParameterGenerator(name string, pr prior.Prior) FloatParameter {
	return NewBasicFloatParameter(name, pr)
}

// SetPrior sets the prior and the bounds.
func (p *BasicFloatParameter) SetPrior(pr prior.Prior) {
	p.prior = pr
	p.min, p.max = math.Inf(-1), math.Inf(+1)
	if b, ok := pr.(prior.Bounded); ok {
		p.min, p.max = b.Bounds()
	}
}

// GetPrior returns the prior.
func (p *BasicFloatParameter) GetPrior() prior.Prior {
	return p.prior
}

func (p *BasicFloatParameter) SetProposalFunc(f func(float64) float64) {
	p.proposalFunc = f
}

func (p *BasicFloatParameter) SetOnChange(f func()) {
	p.onChange = f
}

func (p *BasicFloatParameter) Get() float64 {
	return p.value
}

func (p *BasicFloatParameter) Set(v float64) {
	if p.value == v {
		// do nothing if value has not changed
		return
	}
	p.value = v
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *BasicFloatParameter) GetMin() float64 {
	return p.min
}

func (p *BasicFloatParameter) GetMax() float64 {
	return p.max
}

func (p *BasicFloatParameter) ValueInRange(v float64) bool {
	if v < p.min || v > p.max {
		return false
	}
	return true
}

func (p *BasicFloatParameter) InRange() bool {
	return p.ValueInRange(p.value)
}

func (p *BasicFloatParameter) Name() string {
	return p.name
}

// Prior returns log prior of the current value.
func (p *BasicFloatParameter) Prior() float64 {
	return p.prior.LogProbability([]float64{p.value})
}

// OldPrior returns log prior of the value before the last proposal.
func (p *BasicFloatParameter) OldPrior() float64 {
	return p.prior.LogProbability([]float64{p.old})
}

// PriorGradient returns the gradient of the log prior at the current
// value.
func (p *BasicFloatParameter) PriorGradient() float64 {
	return p.prior.Gradient([]float64{p.value})[0]
}

// reflect moves the value back inside of the bounds.
func (p *BasicFloatParameter) reflect() {
	if math.IsInf(p.value, 0) || math.IsNaN(p.value) {
		return
	}
	for p.value < p.min || p.value > p.max {
		if p.value < p.min {
			p.value = p.min + (p.min - p.value)
		}
		if p.value > p.max {
			p.value = p.max - (p.value - p.max)
		}
	}
}

func (p *BasicFloatParameter) Propose() {
	p.old, p.value = p.value, p.proposalFunc(p.value)
	p.reflect()
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *BasicFloatParameter) Reject() {
	p.value, p.old = p.old, p.value
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *BasicFloatParameter) Accept(iter int) {
}

func (p *BasicFloatParameter) String() string {
	return strconv.FormatFloat(p.value, 'f', 6, 64)
}
