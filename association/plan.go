package association

import (
	"github.com/xompass/remote-association/resource"
	"go.uber.org/zap"
)

// Conditions are extra remote request parameters for one association.
type Conditions map[string]any

// Pending is an association queued for batch loading.
type Pending struct {
	Name    string
	Kind    Kind
	JoinKey string
	Remote  resource.Finder
	Spec    *Spec
}

// Plan collects the remote associations a query loads in batch and the extra
// conditions sent with each of them. Building a plan performs no I/O.
type Plan struct {
	pending    []Pending
	conditions map[string]Conditions
}

func NewPlan() *Plan {
	return &Plan{conditions: map[string]Conditions{}}
}

// Include queues the named associations of registry. Unknown names fail with
// *SettingsNotFoundError and leave the plan untouched. Polymorphic
// associations are skipped with a warning; their accessors load lazily.
func (p *Plan) Include(registry *Registry, names ...string) error {
	specs := make([]*Spec, 0, len(names))
	for _, name := range names {
		spec, err := registry.Lookup(name)
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}

	for _, spec := range specs {
		if spec.Polymorphic {
			registry.Logger().Warn("eager loading of polymorphic remote associations is not supported, it will load lazily",
				zap.String("owner", registry.Owner()),
				zap.String("name", spec.Name),
			)
			continue
		}
		if p.includes(spec.Name) {
			continue
		}
		p.pending = append(p.pending, Pending{
			Name:    spec.Name,
			Kind:    spec.Kind,
			JoinKey: spec.JoinKey,
			Remote:  spec.Remote,
			Spec:    spec,
		})
	}
	return nil
}

// Filter deep merges conditions into the conditions of each named
// association. Nested maps merge key by key; other values overwrite.
func (p *Plan) Filter(conditions map[string]Conditions) {
	if p.conditions == nil {
		p.conditions = map[string]Conditions{}
	}
	for name, extra := range conditions {
		p.conditions[name] = Conditions(resource.MergeParams(p.conditions[name], extra))
	}
}

func (p *Plan) Pending() []Pending {
	return append([]Pending(nil), p.pending...)
}

func (p *Plan) Conditions(name string) Conditions {
	return p.conditions[name]
}

func (p *Plan) Empty() bool {
	return p == nil || len(p.pending) == 0
}

// Clone returns an independent copy, so derived queries do not share state.
func (p *Plan) Clone() *Plan {
	clone := NewPlan()
	if p == nil {
		return clone
	}
	clone.pending = p.Pending()
	for name, conditions := range p.conditions {
		clone.conditions[name] = Conditions(resource.MergeParams(conditions, nil))
	}
	return clone
}

func (p *Plan) includes(name string) bool {
	for _, pending := range p.pending {
		if pending.Name == name {
			return true
		}
	}
	return false
}
