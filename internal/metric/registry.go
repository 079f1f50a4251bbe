package metric

import (
	"fmt"
	"sort"
)

// Func computes one or more named values from the non-null actual and
// predicted columns of a fold.
type Func func(actual, predicted []float64) *Set

// ScalarFunc computes a single value.
type ScalarFunc func(actual, predicted []float64) Value

type entry struct {
	fn    Func
	group bool
}

// Registry maps metric names to computations. Build one per process with
// NewRegistry or DefaultRegistry and pass it to a Calculator.
type Registry struct {
	entries map[string]entry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// DefaultRegistry holds every built-in metric.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegisterScalar("spearman", Spearman)
	r.MustRegisterScalar("pearson", Pearson)
	r.MustRegisterScalar("mae", MeanAbsoluteError)
	r.MustRegisterScalar("rmse", RootMeanSquaredError)
	for _, name := range ConfusionStats {
		r.mustRegister(name, confusionStat(name), false)
	}
	r.mustRegister("confusion_matrix", func(actual, predicted []float64) *Set {
		return NewConfusionMatrix(actual, predicted).Stats()
	}, true)
	return r
}

// Register adds fn under name. Its result set is merged into the output as is.
func (r *Registry) Register(name string, fn Func) error {
	return r.register(name, fn, false)
}

// RegisterGroup adds a metric that is only computed when requested by name.
func (r *Registry) RegisterGroup(name string, fn Func) error {
	return r.register(name, fn, true)
}

func (r *Registry) RegisterScalar(name string, fn ScalarFunc) error {
	return r.register(name, func(actual, predicted []float64) *Set {
		out := NewSet()
		out.Set(name, fn(actual, predicted))
		return out
	}, false)
}

func (r *Registry) MustRegisterScalar(name string, fn ScalarFunc) {
	if err := r.RegisterScalar(name, fn); err != nil {
		panic(err)
	}
}

func (r *Registry) mustRegister(name string, fn Func, group bool) {
	if err := r.register(name, fn, group); err != nil {
		panic(err)
	}
}

func (r *Registry) register(name string, fn Func, group bool) error {
	if name == "" {
		return fmt.Errorf("metric name is required")
	}
	if fn == nil {
		return fmt.Errorf("metric %q: nil function", name)
	}
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("metric %q already registered", name)
	}
	r.entries[name] = entry{fn: fn, group: group}
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Lookup(name string) (Func, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.fn, true
}

// Names returns the default selection: every non-group metric in
// registration order.
func (r *Registry) Names() []string {
	var names []string
	for _, name := range r.order {
		if !r.entries[name].group {
			names = append(names, name)
		}
	}
	return names
}

// All returns every registered name, groups included, sorted.
func (r *Registry) All() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

func confusionStat(name string) Func {
	return func(actual, predicted []float64) *Set {
		all := NewConfusionMatrix(actual, predicted).Stats()
		out := NewSet()
		v, _ := all.Get(name)
		out.Set(name, v)
		return out
	}
}
