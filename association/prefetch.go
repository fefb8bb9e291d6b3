package association

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/xompass/remote-association/helpers"
	"github.com/xompass/remote-association/resource"
	"go.uber.org/zap"
)

// Prefetch loads every association queued in plan for owners, issuing one
// remote fetch per association, in order. Afterwards each owner is marked
// prefetched, unless the plan was empty. Remote not-found responses are empty
// results; other remote errors are returned as they are.
func (r *Registry) Prefetch(ctx context.Context, owners []Owner, plan *Plan) error {
	if plan.Empty() {
		return nil
	}

	for _, pending := range plan.Pending() {
		if current, err := r.Lookup(pending.Name); err != nil || current != pending.Spec {
			return errors.Errorf("the %s association does not belong to %s", pending.Name, r.opt.Owner)
		}

		if err := r.prefetch(ctx, owners, pending, plan.Conditions(pending.Name)); err != nil {
			return err
		}
	}

	for _, owner := range owners {
		owner.RemoteState().markPrefetched()
	}
	return nil
}

func (r *Registry) prefetch(ctx context.Context, owners []Owner, pending Pending, conditions Conditions) error {
	spec := pending.Spec
	keys := helpers.UniqueKeys(r.ownerKeys(owners, spec))

	if spec.Kind.OwnerHoldsKey() && len(keys) == 0 {
		for _, owner := range owners {
			owner.RemoteState().store(spec.Name, nil)
		}
		r.opt.Logger.Debug("remote association skipped, no keys",
			zap.String("owner", r.opt.Owner),
			zap.String("name", spec.Name),
		)
		return nil
	}

	params := resource.MergeParams(spec.Params(keys), conditions)

	// A batch covers many owners, so it always asks for every match.
	scope := spec.Scope
	if scope == resource.ScopeFirst {
		scope = resource.ScopeAll
	}

	objects, err := pending.Remote.Find(ctx, scope, params)
	if err != nil {
		if !resource.IsNotFound(err) {
			return err
		}
		objects = nil
	}

	r.opt.Logger.Debug("remote association prefetched",
		zap.String("owner", r.opt.Owner),
		zap.String("name", spec.Name),
		zap.Int("owners", len(owners)),
		zap.Int("keys", len(keys)),
		zap.Int("count", len(objects)),
	)

	remoteField := spec.JoinKey
	if spec.Kind.OwnerHoldsKey() {
		remoteField = spec.RemoteIdentity()
	}
	groups := groupByField(objects, remoteField)

	for _, owner := range owners {
		key := r.ownerKey(owner, spec)
		var matched []resource.Object
		if helpers.IsPresent(key) {
			matched = groups[helpers.KeyOf(key)]
		}
		if !spec.Kind.IsList() && len(matched) > 1 {
			matched = matched[:1]
		}
		owner.RemoteState().store(spec.Name, matched)
	}
	return nil
}

func (r *Registry) ownerKeys(owners []Owner, spec *Spec) []any {
	keys := make([]any, 0, len(owners))
	for _, owner := range owners {
		keys = append(keys, r.ownerKey(owner, spec))
	}
	return keys
}

// ownerKey is the owner side of the join: the join key field for
// belongs-to, the primary key otherwise.
func (r *Registry) ownerKey(owner Owner, spec *Spec) any {
	if spec.Kind.OwnerHoldsKey() {
		return FieldValue(owner, spec.JoinKey)
	}
	return owner.GetId()
}

func groupByField(objects []resource.Object, field string) map[string][]resource.Object {
	groups := make(map[string][]resource.Object)
	for _, object := range objects {
		value := object.Get(field)
		if !helpers.IsPresent(value) {
			continue
		}
		key := helpers.KeyOf(value)
		groups[key] = append(groups[key], object)
	}
	return groups
}
