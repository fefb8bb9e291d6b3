package lbq

import (
	"math"
	"strings"

	"github.com/go-errors/errors"
	"github.com/valyala/fastjson"
)

var filterPool fastjson.ParserPool
var wherePool fastjson.ParserPool
var conditionsPool fastjson.ParserPool

var operators = map[string]bool{
	"eq":     true,
	"neq":    true,
	"gt":     true,
	"gte":    true,
	"lt":     true,
	"lte":    true,
	"inq":    true,
	"nin":    true,
	"and":    true,
	"or":     true,
	"exists": true,
} // @name Operator

func IsOperator(key string) bool {
	return operators[key]
}

func parseWhereValue(where *fastjson.Value) (Where, error) {
	if where == nil {
		return nil, nil
	}

	if where.Type() != fastjson.TypeObject {
		return nil, errors.New("invalid where filter")
	}

	obj, _ := where.Object()

	var nestedError error
	result := Where{}
	obj.Visit(func(key []byte, v *fastjson.Value) {
		if nestedError != nil {
			return
		}

		keyStr := string(key)
		if strings.HasPrefix(keyStr, "$") {
			nestedError = errors.Errorf("invalid use of operator or field: %s", keyStr)
			return
		}

		switch {
		case keyStr == "and" || keyStr == "or":
			if v.Type() != fastjson.TypeArray {
				nestedError = errors.New("invalid query")
				return
			}
			andOr := AndOrCondition{}
			for _, nested := range v.GetArray() {
				cond, err := parseWhereValue(nested)
				if err != nil {
					nestedError = err
					return
				}
				andOr = append(andOr, cond)
			}
			result[keyStr] = andOr
		case v.Type() == fastjson.TypeObject:
			nested, err := parseWhereValue(v)
			if err != nil {
				nestedError = err
				return
			}
			result[keyStr] = nested
		default:
			if (keyStr == "inq" || keyStr == "nin") && v.Type() != fastjson.TypeArray {
				nestedError = errors.New("invalid query")
				return
			}
			result[keyStr] = getRawValue(v)
		}
	})

	return result, nestedError
}

// getRawValue converts a parsed JSON value into plain Go values. Integral
// numbers stay int64 so they can be used as join keys.
func getRawValue(v *fastjson.Value) any {
	if v == nil {
		return nil
	}

	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		f := v.GetFloat64()
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeArray:
		arr := v.GetArray()
		value := make([]any, 0, len(arr))
		for _, current := range arr {
			value = append(value, getRawValue(current))
		}
		return value
	case fastjson.TypeObject:
		obj := v.GetObject()
		value := map[string]any{}
		obj.Visit(func(key []byte, nested *fastjson.Value) {
			value[string(key)] = getRawValue(nested)
		})
		return value
	default:
		return nil
	}
}

func parseOrderValue(order *fastjson.Value) ([]Order, error) {
	switch order.Type() { //nolint:exhaustive
	case fastjson.TypeString:
		lbOrder, err := parseOrderStr(string(order.GetStringBytes()))
		if err != nil {
			return nil, err
		}
		return []Order{lbOrder}, nil
	case fastjson.TypeArray:
		var result []Order
		for _, value := range order.GetArray() {
			if value.Type() != fastjson.TypeString {
				return nil, errors.New("invalid order param")
			}
			lbOrder, err := parseOrderStr(string(value.GetStringBytes()))
			if err != nil {
				return nil, err
			}
			result = append(result, lbOrder)
		}
		return result, nil
	}

	return nil, errors.New("invalid order param")
}

func parseOrderStr(orderStr string) (Order, error) {
	sort := strings.Fields(orderStr)
	if len(sort) != 2 {
		return Order{}, errors.New("invalid order param")
	}

	direction := strings.ToUpper(sort[1])
	if direction != "ASC" && direction != "DESC" {
		return Order{}, errors.New("invalid order param")
	}

	return Order{Field: sort[0], Direction: direction}, nil
}

func parseFieldsValue(v *fastjson.Value) (Fields, error) {
	fields := Fields{}
	switch v.Type() { //nolint:exhaustive
	case fastjson.TypeArray:
		for _, value := range v.GetArray() {
			if value.Type() != fastjson.TypeString {
				return nil, errors.New("invalid fields param")
			}
			fields[string(value.GetStringBytes())] = true
		}
	case fastjson.TypeObject:
		v.GetObject().Visit(func(key []byte, v *fastjson.Value) {
			switch v.Type() { //nolint:exhaustive
			case fastjson.TypeFalse:
				fields[string(key)] = false
			case fastjson.TypeTrue:
				fields[string(key)] = true
			}
		})
	default:
		return nil, errors.New("invalid fields param")
	}
	return fields, nil
}

// parseIncludeRemoteValue accepts "a,b", ["a", "b"] or a mix of both.
func parseIncludeRemoteValue(include *fastjson.Value) ([]string, error) {
	switch include.Type() { //nolint:exhaustive
	case fastjson.TypeString:
		var names []string
		for _, name := range strings.Split(string(include.GetStringBytes()), ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		return names, nil
	case fastjson.TypeArray:
		var names []string
		for _, value := range include.GetArray() {
			nested, err := parseIncludeRemoteValue(value)
			if err != nil {
				return nil, err
			}
			names = append(names, nested...)
		}
		return names, nil
	}

	return nil, errors.New("invalid includeRemote param")
}

func parseConditionsValue(v *fastjson.Value) (Conditions, error) {
	if v.Type() != fastjson.TypeObject {
		return nil, errors.New("invalid filterRemote param")
	}

	var nestedError error
	conditions := Conditions{}
	v.GetObject().Visit(func(key []byte, value *fastjson.Value) {
		if value.Type() != fastjson.TypeObject {
			nestedError = errors.Errorf("conditions for %s must be an object", string(key))
			return
		}
		conditions[string(key)] = getRawValue(value).(map[string]any)
	})

	return conditions, nestedError
}

func parseFilterValue(parsedFilter *fastjson.Value) (*Filter, error) {
	if parsedFilter.Type() != fastjson.TypeObject {
		return nil, errors.New("invalid filter")
	}

	filter := &Filter{}
	if whereValue := parsedFilter.Get("where"); whereValue != nil {
		lbWhere, err := parseWhereValue(whereValue)
		if err != nil {
			return nil, err
		}
		filter.Where = lbWhere
	}

	if orderValue := parsedFilter.Get("order"); orderValue != nil {
		lbOrder, err := parseOrderValue(orderValue)
		if err != nil {
			return nil, err
		}
		filter.Order = lbOrder
	}

	if fieldsValue := parsedFilter.Get("fields"); fieldsValue != nil {
		fields, err := parseFieldsValue(fieldsValue)
		if err != nil {
			return nil, err
		}
		filter.Fields = fields
	}

	if limitValue := parsedFilter.Get("limit"); limitValue != nil {
		filter.Limit = limitValue.GetUint()
	}

	if skipValue := parsedFilter.Get("skip"); skipValue != nil {
		filter.Skip = skipValue.GetUint()
	}

	if includeValue := parsedFilter.Get("includeRemote"); includeValue != nil {
		names, err := parseIncludeRemoteValue(includeValue)
		if err != nil {
			return nil, err
		}
		filter.IncludeRemote = names
	}

	if conditionsValue := parsedFilter.Get("filterRemote"); conditionsValue != nil {
		conditions, err := parseConditionsValue(conditionsValue)
		if err != nil {
			return nil, err
		}
		filter.FilterRemote = conditions
	}

	return filter, nil
}

func ParseWhere(f string) (Where, error) {
	parser := wherePool.Get()
	defer wherePool.Put(parser)

	parsed, err := parser.Parse(f)
	if err != nil {
		return nil, errors.New("cannot parse where query")
	}
	return parseWhereValue(parsed)
}

// ParseConditions parses {"<association>": {...}, ...} into remote conditions.
func ParseConditions(f string) (Conditions, error) {
	parser := conditionsPool.Get()
	defer conditionsPool.Put(parser)

	parsed, err := parser.Parse(f)
	if err != nil {
		return nil, errors.New("cannot parse remote conditions")
	}
	return parseConditionsValue(parsed)
}

func ParseFilter(f string) (*Filter, error) {
	parser := filterPool.Get()
	defer filterPool.Put(parser)

	parsed, err := parser.Parse(f)
	if err != nil {
		return nil, errors.New("cannot parse filter")
	}
	return parseFilterValue(parsed)
}
