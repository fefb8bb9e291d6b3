package database

import (
	"maps"
	"strings"

	"github.com/go-errors/errors"
	"github.com/xompass/remote-association/lbq"
)

const (
	FILTER_FIELD_EMPTY                    = "FILTER_FIELD_EMPTY"
	FILTER_WHERE_EMPTY                    = "FILTER_WHERE_EMPTY"
	FILTER_CANNOT_MIX_INCLUSION_EXCLUSION = "FILTER_CANNOT_MIX_INCLUSION_EXCLUSION"
	FILTER_WHERE_CANNOT_BE_NIL            = "FILTER_WHERE_CANNOT_BE_NIL"
)

// FilterBuilder builds the local part of a query. Errors are kept and
// returned by Build, so calls can be chained.
type FilterBuilder struct {
	where  []lbq.Where
	fields lbq.Fields
	limit  *uint
	skip   *uint
	order  []lbq.Order
	err    error
}

func NewFilter() *FilterBuilder {
	return &FilterBuilder{
		where:  []lbq.Where{},
		fields: lbq.Fields{},
		order:  []lbq.Order{},
	}
}

func (b *FilterBuilder) Fields(fields map[string]bool) *FilterBuilder {
	if b.fields == nil {
		b.fields = lbq.Fields{}
	}
	maps.Copy(b.fields, fields)
	return b
}

func (b *FilterBuilder) Limit(limit uint) *FilterBuilder {
	b.limit = &limit
	return b
}

func (b *FilterBuilder) Skip(skip uint) *FilterBuilder {
	b.skip = &skip
	return b
}

// CapLimit bounds the limit by max. An unset limit becomes max.
func (b *FilterBuilder) CapLimit(max uint) *FilterBuilder {
	if max > 0 && (b.limit == nil || *b.limit == 0 || *b.limit > max) {
		b.Limit(max)
	}
	return b
}

func (b *FilterBuilder) OrderByAsc(field string) *FilterBuilder {
	return b.orderBy(field, "ASC")
}

func (b *FilterBuilder) OrderByDesc(field string) *FilterBuilder {
	return b.orderBy(field, "DESC")
}

func (b *FilterBuilder) orderBy(field string, direction string) *FilterBuilder {
	if err := validateField(field); err != nil {
		b.err = err
		return b
	}
	b.order = append(b.order, lbq.Order{Field: field, Direction: direction})
	return b
}

func (b *FilterBuilder) WithWhere(builder *WhereBuilder) *FilterBuilder {
	where, err := builder.Build()
	if err != nil {
		b.err = err
		return b
	}

	if len(where) == 0 {
		b.err = errors.New(FILTER_WHERE_EMPTY)
		return b
	}

	b.where = append(b.where, where)
	return b
}

func (b *FilterBuilder) Build() (*lbq.Filter, error) {
	if b.err != nil {
		return nil, b.err
	}

	if !isValidProjection(b.fields) {
		return nil, errors.New(FILTER_CANNOT_MIX_INCLUSION_EXCLUSION)
	}

	return &lbq.Filter{
		Where:  combineWhere(b.where, "and"),
		Fields: b.fields,
		Order:  b.order,
		Limit:  derefUint(b.limit),
		Skip:   derefUint(b.skip),
	}, nil
}

// FromLBFilter replaces the local part of the builder with filter. The
// remote directives of filter are applied by Query.
func (b *FilterBuilder) FromLBFilter(filter *lbq.Filter) *FilterBuilder {
	if filter == nil {
		return b
	}

	b.where = []lbq.Where{}
	if len(filter.Where) > 0 {
		b.where = append(b.where, filter.Where)
	}
	b.fields = filter.Fields
	if b.fields == nil {
		b.fields = lbq.Fields{}
	}
	b.limit = nil
	if filter.Limit > 0 {
		b.limit = &filter.Limit
	}
	b.skip = nil
	if filter.Skip > 0 {
		b.skip = &filter.Skip
	}
	b.order = filter.Order

	if !isValidProjection(b.fields) {
		b.err = errors.New(FILTER_CANNOT_MIX_INCLUSION_EXCLUSION)
	}
	return b
}

func (b *FilterBuilder) Clone() *FilterBuilder {
	clone := &FilterBuilder{
		where:  append([]lbq.Where{}, b.where...),
		fields: maps.Clone(b.fields),
		order:  append([]lbq.Order{}, b.order...),
		err:    b.err,
	}
	if clone.fields == nil {
		clone.fields = lbq.Fields{}
	}

	if b.limit != nil {
		limit := *b.limit
		clone.limit = &limit
	}
	if b.skip != nil {
		skip := *b.skip
		clone.skip = &skip
	}
	return clone
}

// MergeWith returns a new builder where both where clauses must hold. Limit,
// skip and order of other win when set. A field projected differently by
// both builders is an error.
func (b *FilterBuilder) MergeWith(other *FilterBuilder) *FilterBuilder {
	switch {
	case b == nil && other == nil:
		return NewFilter()
	case b == nil:
		return other.Clone()
	case other == nil:
		return b.Clone()
	case b.err != nil:
		return &FilterBuilder{err: b.err}
	case other.err != nil:
		return &FilterBuilder{err: other.err}
	}

	result := b.Clone()

	if len(other.where) > 0 {
		if len(result.where) == 0 {
			result.where = append([]lbq.Where{}, other.where...)
		} else {
			result.where = []lbq.Where{{
				"and": lbq.AndOrCondition{combineWhere(result.where, "and"), combineWhere(other.where, "and")},
			}}
		}
	}

	if len(other.fields) > 0 {
		for field, otherValue := range other.fields {
			if currentValue, exists := result.fields[field]; exists && currentValue != otherValue {
				result.err = errors.Errorf("field projection conflict for '%s': current=%v, other=%v", field, currentValue, otherValue)
				return result
			}
		}
		maps.Copy(result.fields, other.fields)

		if !isValidProjection(result.fields) {
			result.err = errors.New(FILTER_CANNOT_MIX_INCLUSION_EXCLUSION)
			return result
		}
	}

	if other.limit != nil {
		limit := *other.limit
		result.limit = &limit
	}

	if other.skip != nil {
		skip := *other.skip
		result.skip = &skip
	}

	if len(other.order) > 0 {
		result.order = append([]lbq.Order{}, other.order...)
	}

	return result
}

/************************
 * Where Builder
 ************************/

type WhereBuilder struct {
	conditions []lbq.Where
	err        error
}

func NewWhere() *WhereBuilder {
	return &WhereBuilder{}
}

func (b *WhereBuilder) Eq(field string, value any) *WhereBuilder {
	return b.field(field, value)
}

func (b *WhereBuilder) Neq(field string, value any) *WhereBuilder {
	return b.field(field, lbq.Where{"neq": value})
}

func (b *WhereBuilder) In(field string, values any) *WhereBuilder {
	return b.field(field, lbq.Where{"inq": values})
}

func (b *WhereBuilder) Nin(field string, values any) *WhereBuilder {
	return b.field(field, lbq.Where{"nin": values})
}

func (b *WhereBuilder) Gt(field string, value any) *WhereBuilder {
	return b.field(field, lbq.Where{"gt": value})
}

func (b *WhereBuilder) Gte(field string, value any) *WhereBuilder {
	return b.field(field, lbq.Where{"gte": value})
}

func (b *WhereBuilder) Lt(field string, value any) *WhereBuilder {
	return b.field(field, lbq.Where{"lt": value})
}

func (b *WhereBuilder) Lte(field string, value any) *WhereBuilder {
	return b.field(field, lbq.Where{"lte": value})
}

func (b *WhereBuilder) Exists(field string, exists bool) *WhereBuilder {
	return b.field(field, lbq.Where{"exists": exists})
}

func (b *WhereBuilder) field(field string, condition any) *WhereBuilder {
	if err := validateField(field); err != nil {
		b.err = err
		return b
	}
	return b.Raw(lbq.Where{field: condition})
}

func (b *WhereBuilder) Raw(w lbq.Where) *WhereBuilder {
	if b.err != nil {
		return b
	}
	if len(w) == 0 {
		b.err = errors.New("raw where condition cannot be empty")
		return b
	}
	b.conditions = append(b.conditions, w)
	return b
}

func (b *WhereBuilder) Or(builders ...*WhereBuilder) *WhereBuilder {
	return b.group("or", builders)
}

func (b *WhereBuilder) And(builders ...*WhereBuilder) *WhereBuilder {
	return b.group("and", builders)
}

func (b *WhereBuilder) group(operator string, builders []*WhereBuilder) *WhereBuilder {
	var clauses []lbq.Where
	for _, sub := range builders {
		where, err := sub.Build()
		if err != nil {
			b.err = err
			return b
		}
		if len(where) > 0 {
			clauses = append(clauses, where)
		}
	}
	if len(clauses) > 0 {
		b.conditions = append(b.conditions, lbq.Where{operator: lbq.AndOrCondition(clauses)})
	}
	return b
}

func (b *WhereBuilder) Build() (lbq.Where, error) {
	if b == nil {
		return nil, errors.New(FILTER_WHERE_CANNOT_BE_NIL)
	}
	if b.err != nil {
		return nil, b.err
	}
	where := combineWhere(b.conditions, "and")
	if where == nil {
		return lbq.Where{}, nil
	}
	return where, nil
}

func combineWhere(where []lbq.Where, operator string) lbq.Where {
	switch len(where) {
	case 0:
		return nil
	case 1:
		return where[0]
	}
	return lbq.Where{operator: lbq.AndOrCondition(where)}
}

func derefUint(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}

func isValidProjection(fields map[string]bool) bool {
	hasTrue := false
	hasFalse := false
	for key, val := range fields {
		if key == "_id" {
			continue
		}
		if val {
			hasTrue = true
		} else {
			hasFalse = true
		}
	}
	return !(hasTrue && hasFalse)
}

func validateField(field string) error {
	if strings.TrimSpace(field) == "" {
		return errors.New(FILTER_FIELD_EMPTY)
	}
	return nil
}
