package database

import (
	"context"

	"github.com/xompass/remote-association/association"
	"github.com/xompass/remote-association/http_errors"
	"github.com/xompass/remote-association/lbq"
)

const (
	QUERY_REPOSITORY_REQUIRED = "QUERY_REPOSITORY_REQUIRED"
	QUERY_INVALID_REMOTE      = "QUERY_INVALID_REMOTE"
)

// Query is a chainable read of T that also batch loads the remote
// associations queued with IncludeRemote. Chained calls mutate and return the
// same query; use Clone to derive an independent one. Building a query
// performs no I/O; All, First, FindById and Count do.
type Query[T IModel] struct {
	repository Repository[T]
	filter     *FilterBuilder
	plan       *association.Plan
	err        error
}

func NewQuery[T IModel](repository Repository[T]) *Query[T] {
	q := &Query[T]{
		repository: repository,
		filter:     NewFilter(),
		plan:       association.NewPlan(),
	}
	if repository == nil {
		q.err = http_errors.InternalServerErrorWithCode(QUERY_REPOSITORY_REQUIRED, "a repository is required")
	}
	return q
}

// IncludeRemote queues the named remote associations of T for batch loading.
// An unknown name is recorded and returned by All, First and Err.
func (q *Query[T]) IncludeRemote(names ...string) *Query[T] {
	if q.err != nil || len(names) == 0 {
		return q
	}

	registry, err := remoteRegistryOf[T]()
	if err != nil {
		q.err = http_errors.BadRequestErrorWithCode(QUERY_INVALID_REMOTE, err.Error())
		return q
	}

	if err := q.plan.Include(registry, names...); err != nil {
		q.err = err
	}
	return q
}

// FilterRemote adds request parameters to the batch fetch of each named
// association.
func (q *Query[T]) FilterRemote(conditions map[string]association.Conditions) *Query[T] {
	q.plan.Filter(conditions)
	return q
}

// FilterRemoteJSON is FilterRemote with the conditions given as a JSON object
// keyed by association name, e.g. {"profile": {"search": {"active": true}}}.
func (q *Query[T]) FilterRemoteJSON(raw string) *Query[T] {
	conditions, err := lbq.ParseConditions(raw)
	if err != nil {
		if q.err == nil {
			q.err = http_errors.BadRequestErrorWithCode(QUERY_INVALID_REMOTE, err.Error())
		}
		return q
	}
	return q.FilterRemote(toAssociationConditions(conditions))
}

// FromLBFilter applies a parsed request filter, both its local part and its
// includeRemote and filterRemote directives.
func (q *Query[T]) FromLBFilter(filter *lbq.Filter) *Query[T] {
	if filter == nil {
		return q
	}

	q.filter.FromLBFilter(filter)
	if len(filter.FilterRemote) > 0 {
		q.FilterRemote(toAssociationConditions(filter.FilterRemote))
	}
	return q.IncludeRemote(filter.IncludeRemote...)
}

// MergeFilter scopes the query to base: both where clauses must hold, and the
// limit, skip and order already set on the query win over those of base.
func (q *Query[T]) MergeFilter(base *FilterBuilder) *Query[T] {
	if base != nil {
		q.filter = base.MergeWith(q.filter)
	}
	return q
}

func (q *Query[T]) Where(where *WhereBuilder) *Query[T] {
	q.filter.WithWhere(where)
	return q
}

func (q *Query[T]) Limit(limit uint) *Query[T] {
	q.filter.Limit(limit)
	return q
}

func (q *Query[T]) Skip(skip uint) *Query[T] {
	q.filter.Skip(skip)
	return q
}

func (q *Query[T]) OrderByAsc(field string) *Query[T] {
	q.filter.OrderByAsc(field)
	return q
}

func (q *Query[T]) OrderByDesc(field string) *Query[T] {
	q.filter.OrderByDesc(field)
	return q
}

// Plan returns the remote load plan of the query.
func (q *Query[T]) Plan() *association.Plan {
	return q.plan
}

func (q *Query[T]) Filter() *FilterBuilder {
	return q.filter
}

func (q *Query[T]) Err() error {
	return q.err
}

func (q *Query[T]) Clone() *Query[T] {
	return &Query[T]{
		repository: q.repository,
		filter:     q.filter.Clone(),
		plan:       q.plan.Clone(),
		err:        q.err,
	}
}

// All runs the local query and then loads every included remote association
// for the whole result, one remote fetch per association.
func (q *Query[T]) All(ctx context.Context) ([]T, error) {
	if q.err != nil {
		return nil, q.err
	}

	docs, err := q.repository.Find(ctx, q.filter)
	if err != nil {
		return nil, err
	}

	if err := q.prefetch(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// First returns the first match and its included remote associations, or
// the zero T when nothing matches.
func (q *Query[T]) First(ctx context.Context) (T, error) {
	if q.err != nil {
		var zero T
		return zero, q.err
	}

	doc, err := q.repository.FindOne(ctx, q.Clone().Limit(1).filter)
	return q.single(ctx, doc, err)
}

// FindById returns the record with the given id and its included remote
// associations, or the zero T when it does not match the query.
func (q *Query[T]) FindById(ctx context.Context, id any) (T, error) {
	if q.err != nil {
		var zero T
		return zero, q.err
	}

	doc, err := q.repository.FindById(ctx, id, q.filter)
	return q.single(ctx, doc, err)
}

// Count returns the number of local records matching the where clause.
// Limit and skip are ignored, and no remote association is loaded.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.repository.Count(ctx, q.filter)
}

func (q *Query[T]) single(ctx context.Context, doc *T, err error) (T, error) {
	var zero T
	if err != nil || doc == nil {
		return zero, err
	}

	if err := q.prefetch(ctx, []T{*doc}); err != nil {
		return zero, err
	}
	return *doc, nil
}

func (q *Query[T]) prefetch(ctx context.Context, docs []T) error {
	if q.plan.Empty() {
		return nil
	}

	registry, err := remoteRegistryOf[T]()
	if err != nil {
		return err
	}

	owners, err := remoteOwners(docs)
	if err != nil {
		return err
	}
	return registry.Prefetch(ctx, owners, q.plan)
}

func toAssociationConditions(conditions lbq.Conditions) map[string]association.Conditions {
	result := make(map[string]association.Conditions, len(conditions))
	for name, params := range conditions {
		result[name] = association.Conditions(params)
	}
	return result
}
