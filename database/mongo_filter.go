package database

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/simplereach/timeutils"
	"github.com/xompass/remote-association/lbq"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var Operators = map[string]string{
	"eq":     "$eq",
	"neq":    "$ne",
	"gt":     "$gt",
	"gte":    "$gte",
	"lt":     "$lt",
	"lte":    "$lte",
	"inq":    "$in",
	"nin":    "$nin",
	"and":    "$and",
	"or":     "$or",
	"exists": "$exists",
}

type MongoFilterOptions struct {
	Limit  *int64
	Skip   *int64
	Sort   bson.D
	Fields map[string]bool
}

// MongoFilter is a loopback filter translated for the mongo driver.
type MongoFilter struct {
	Where   bson.M
	Options MongoFilterOptions
}

func adaptLoopbackFilter(filter lbq.Filter, schema *Schema) (MongoFilter, error) {
	result := MongoFilter{}

	where, err := buildWhere(filter.Where, "", schema)
	if err != nil {
		return result, err
	}
	if len(where) == 0 && len(filter.Where) != 0 {
		return result, errors.New("invalid where parameter")
	}
	result.Where = where

	for _, order := range filter.Order {
		direction := 1
		if order.Direction == "DESC" {
			direction = -1
		}
		field := order.Field
		if schemaField, ok := schema.JSONFields[field]; ok {
			field = schemaField.BsonName
		}
		result.Options.Sort = append(result.Options.Sort, bson.E{Key: field, Value: direction})
	}

	if filter.Limit != 0 {
		limit := int64(filter.Limit)
		result.Options.Limit = &limit
	}
	if filter.Skip != 0 {
		skip := int64(filter.Skip)
		result.Options.Skip = &skip
	}

	result.Options.Fields = buildProjection(filter.Fields, schema)
	return result, nil
}

func buildProjection(fields lbq.Fields, schema *Schema) map[string]bool {
	if len(fields) == 0 {
		if len(schema.BannedFields) == 0 {
			return nil
		}
		projection := map[string]bool{}
		for _, field := range schema.BannedFields {
			projection[field.BsonName] = false
		}
		return projection
	}

	projection := map[string]bool{}
	for key, val := range fields {
		if field, exists := schema.getField(key); exists {
			projection[strings.Replace(key, field.JsonName, field.BsonName, 1)] = val
		}
	}
	for _, field := range schema.RequiredFilterFields {
		projection[field.BsonName] = true
	}
	for _, field := range schema.BannedFields {
		delete(projection, field.BsonName)
	}

	if len(projection) == 0 {
		return map[string]bool{"_id": true}
	}
	return projection
}

// buildWhere translates a loopback where clause. parent is the field the
// clause applies to when it holds operators, e.g. {"age": {"gt": 1}}.
func buildWhere(where lbq.Where, parent string, schema *Schema) (bson.M, error) {
	if where == nil {
		return bson.M{}, nil
	}

	if _, ok := where["$where"]; ok {
		return nil, errors.New("invalid where parameter. $where is not allowed")
	}

	query := bson.M{}

	if exists, ok := where["exists"]; ok {
		if _, isBool := exists.(bool); !isBool {
			return nil, errors.New("invalid where parameter. exists must be boolean")
		}
		query["$exists"] = exists
		return query, nil
	}

	if like, ok := where["like"]; ok {
		query["$regex"] = like
		if opts := where["options"]; opts != nil {
			query["$options"] = opts
		}
		return query, nil
	}

	if nlike, ok := where["nlike"]; ok {
		regex := bson.M{"$regex": nlike}
		if opts := where["options"]; opts != nil {
			regex["$options"] = opts
		}
		query["$not"] = regex
		return query, nil
	}

	for key, val := range where {
		if strings.HasPrefix(key, "$") {
			continue
		}

		var field *Field
		target, isOperator := Operators[key]
		if isOperator {
			field, _ = schema.getField(parent)
		} else {
			var exists bool
			field, exists = schema.getField(key)
			if !exists {
				continue
			}
			target = strings.Replace(key, field.JsonName, field.BsonName, 1)
		}

		switch v := val.(type) {
		case lbq.AndOrCondition:
			clauses := bson.A{}
			for _, item := range v {
				clause, err := buildWhere(item, parent, schema)
				if err != nil {
					return nil, err
				}
				if len(clause) > 0 {
					clauses = append(clauses, clause)
				}
			}
			if len(clauses) == 0 {
				return nil, errors.New("invalid and/or condition")
			}
			query[target] = clauses
		case lbq.Where:
			clause, err := buildWhere(v, key, schema)
			if err != nil {
				return nil, err
			}
			if len(clause) > 0 {
				query[target] = clause
			}
		case map[string]any:
			clause, err := buildWhere(lbq.Where(v), key, schema)
			if err != nil {
				return nil, err
			}
			if len(clause) > 0 {
				query[target] = clause
			}
		default:
			query[target] = coerceValue(field, key, val)
		}
	}

	return query, nil
}

// coerceValue converts filter values to the bson type of field. Values that
// do not convert are passed through unchanged.
func coerceValue(field *Field, operator string, val any) any {
	if field == nil || val == nil {
		return val
	}

	var convert func(any) (any, error)
	switch field.DataType {
	case DtObjectID:
		convert = func(v any) (any, error) { return getObjectId(v) }
	case DtDate:
		convert = func(v any) (any, error) { return getDate(v) }
	default:
		return val
	}

	if operator == "inq" || operator == "nin" {
		rv := reflect.ValueOf(val)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return val
		}
		list := bson.A{}
		for i := range rv.Len() {
			item, err := convert(rv.Index(i).Interface())
			if err != nil {
				return val
			}
			list = append(list, item)
		}
		return list
	}

	converted, err := convert(val)
	if err != nil {
		return val
	}
	return converted
}

func getObjectId(val any) (bson.ObjectID, error) {
	switch v := val.(type) {
	case string:
		return bson.ObjectIDFromHex(v)
	case *string:
		if v == nil {
			return bson.ObjectID{}, errors.New("invalid ObjectID")
		}
		return bson.ObjectIDFromHex(*v)
	case bson.ObjectID:
		return v, nil
	case *bson.ObjectID:
		if v == nil {
			return bson.ObjectID{}, errors.New("invalid ObjectID")
		}
		return *v, nil
	}
	return bson.ObjectID{}, errors.New("invalid ObjectID")
}

// getDate accepts times, date strings and unix seconds.
func getDate(val any) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v != nil {
			return *v, nil
		}
	case string:
		return timeutils.ParseDateString(v)
	case int64:
		return time.Unix(v, 0), nil
	case int:
		return time.Unix(int64(v), 0), nil
	}
	return time.Time{}, errors.New("invalid date format")
}
