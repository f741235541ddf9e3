package optimize

// None is an optimizer which computes the log posterior at the
// starting point and exits.
type None struct {
	BaseOptimizer
}

// NewNone creates an optimizer which computes initial likelihood only.
func NewNone() *None {
	return &None{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 1,
			method:    "none",
		},
	}
}

// Run computes the likelihood.
func (n *None) Run(iterations int) {
	n.SaveStart()
	n.PrintHeader()
	n.PrintLine(n.l, true)
	n.finish()
}
