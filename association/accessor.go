package association

import (
	"context"

	"github.com/xompass/remote-association/helpers"
	"github.com/xompass/remote-association/resource"
	"go.uber.org/zap"
)

// One reads and writes a singular association (has-one or belongs-to).
type One struct {
	registry *Registry
	spec     *Spec
}

func (a *One) Name() string {
	return a.spec.Name
}

func (a *One) Spec() *Spec {
	return a.spec
}

// Get returns the remote object of owner, or nil when there is none. The
// first call fetches unless a batch prefetch already resolved the value;
// later calls return the memoized value.
func (a *One) Get(ctx context.Context, owner Owner) (resource.Object, error) {
	objects, err := a.registry.load(ctx, a.spec, owner)
	if err != nil {
		return nil, err
	}
	return first(objects), nil
}

// Set assigns the remote object of owner without any I/O.
func (a *One) Set(owner Owner, object resource.Object) {
	if object == nil {
		owner.RemoteState().store(a.spec.Name, nil)
		return
	}
	owner.RemoteState().store(a.spec.Name, []resource.Object{object})
}

func (a *One) BuildParams(keys ...any) resource.Params {
	return a.spec.Params(keys...)
}

// Many reads and writes a has-many association.
type Many struct {
	registry *Registry
	spec     *Spec
}

func (a *Many) Name() string {
	return a.spec.Name
}

func (a *Many) Spec() *Spec {
	return a.spec
}

// Get returns the remote objects of owner. It never returns a nil slice
// without an error.
func (a *Many) Get(ctx context.Context, owner Owner) ([]resource.Object, error) {
	return a.registry.load(ctx, a.spec, owner)
}

// Set assigns the remote objects of owner without any I/O.
func (a *Many) Set(owner Owner, objects []resource.Object) {
	owner.RemoteState().store(a.spec.Name, objects)
}

func (a *Many) BuildParams(keys ...any) resource.Params {
	return a.spec.Params(keys...)
}

// load returns the memoized objects of the association, fetching them for
// this single owner when the cell is unresolved. A prefetched owner never
// fetches: associations left out of the batch read as empty, except
// polymorphic ones, which a batch cannot load. The cell lock is held during
// the fetch so concurrent callers fetch once.
func (r *Registry) load(ctx context.Context, spec *Spec, owner Owner) ([]resource.Object, error) {
	state := owner.RemoteState()
	c := state.cell(spec.Name)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved {
		return c.objects, nil
	}

	if state.Prefetched() && !spec.Polymorphic {
		return []resource.Object{}, nil
	}

	objects, err := r.fetchFor(ctx, spec, owner)
	if err != nil {
		return nil, err
	}

	c.set(objects)
	return c.objects, nil
}

func (r *Registry) fetchFor(ctx context.Context, spec *Spec, owner Owner) ([]resource.Object, error) {
	var key any
	if spec.Kind.OwnerHoldsKey() {
		key = FieldValue(owner, spec.JoinKey)
	} else {
		key = owner.GetId()
	}

	// Without a key there is nothing the remote side could match.
	if !helpers.IsPresent(key) {
		return nil, nil
	}

	finder, ok, err := r.finderFor(spec, owner)
	if err != nil || !ok {
		return nil, err
	}

	objects, err := finder.Find(ctx, spec.Scope, spec.Params(key))
	if err != nil {
		if resource.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	r.opt.Logger.Debug("remote association loaded",
		zap.String("owner", r.opt.Owner),
		zap.String("name", spec.Name),
		zap.String("key", helpers.KeyOf(key)),
		zap.Int("count", len(objects)),
	)

	return objects, nil
}
