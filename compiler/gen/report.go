package gen

import (
	"fmt"
	"sort"
	"sync"

	"github.com/syssam/lookgen"
)

// Unit identifies one failed unit of work: a table view, a namespace or a
// dashboard.
type Unit struct {
	Kind      string
	Namespace string
	Name      string
	Err       error
}

// Report collects per-unit failures across a run so one bad input does not
// hide the others. Safe for concurrent use by namespace workers.
type Report struct {
	mu    sync.Mutex
	units []Unit
}

// Add records one failed unit.
func (r *Report) Add(kind, namespace, name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = append(r.units, Unit{Kind: kind, Namespace: namespace, Name: name, Err: err})
}

// Units returns the recorded failures sorted by namespace, kind and name.
func (r *Report) Units() []Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	units := append([]Unit(nil), r.units...)
	sort.Slice(units, func(i, j int) bool {
		if units[i].Namespace != units[j].Namespace {
			return units[i].Namespace < units[j].Namespace
		}
		if units[i].Kind != units[j].Kind {
			return units[i].Kind < units[j].Kind
		}
		return units[i].Name < units[j].Name
	})
	return units
}

// Err returns nil when every unit succeeded, otherwise an error enumerating
// every failed unit in stable order.
func (r *Report) Err() error {
	units := r.Units()
	if len(units) == 0 {
		return nil
	}
	errs := make([]error, len(units))
	for i, u := range units {
		errs[i] = fmt.Errorf("%s %s/%s: %w", u.Kind, u.Namespace, u.Name, u.Err)
	}
	return lookgen.NewAggregateError(errs...)
}
