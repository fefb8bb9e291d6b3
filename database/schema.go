package database

import (
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type FieldTags struct {
	Name      string
	OmitEmpty bool
	Inline    bool
	Skip      bool
}

type FieldsOptions string

const (
	FieldsAlways FieldsOptions = "always" // Always include the field
	FieldsNever  FieldsOptions = "never"  // Never include the field
)

type FilterTags struct {
	Fields FieldsOptions
}

const (
	DtObjectID = "ObjectID"
	DtDate     = "Date"
)

type Field struct {
	FieldName  string
	BsonName   string
	JsonName   string
	DataType   string
	IsPointer  bool
	FilterTags FilterTags
}

// Schema maps the json names used in filters to the bson names of a model.
type Schema struct {
	Name                 string
	CollectionName       string
	JSONFields           map[string]*Field
	RequiredFilterFields map[string]*Field
	BannedFields         map[string]*Field
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	objectIDType = reflect.TypeOf(bson.ObjectID{})
)

// NewSchema reads the fields of model. model may be a nil pointer.
func NewSchema(model IModel) *Schema {
	schema := &Schema{
		Name:                 model.GetModelName(),
		CollectionName:       model.GetTableName(),
		JSONFields:           map[string]*Field{},
		RequiredFilterFields: map[string]*Field{},
		BannedFields:         map[string]*Field{},
	}

	modelType := reflect.TypeOf(model)
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	if modelType.Kind() == reflect.Struct {
		schema.initFields(modelType, "", "")
	}
	return schema
}

func (s *Schema) initFields(structType reflect.Type, jsonParent string, bsonParent string) {
	for i := range structType.NumField() {
		s.initField(structType.Field(i), jsonParent, bsonParent)
	}
}

func (s *Schema) initField(fieldStruct reflect.StructField, jsonParent string, bsonParent string) {
	if !fieldStruct.IsExported() {
		return
	}

	bsonTags := parseFieldTags(fieldStruct, "bson")
	jsonTags := parseFieldTags(fieldStruct, "json")
	if bsonTags.Skip || jsonTags.Skip {
		return
	}

	fieldType := fieldStruct.Type
	isPointer := fieldType.Kind() == reflect.Ptr
	if isPointer {
		fieldType = fieldType.Elem()
	}

	if fieldType.Kind() == reflect.Struct && (bsonTags.Inline || fieldStruct.Anonymous) && fieldType != timeType {
		s.initFields(fieldType, jsonParent, bsonParent)
		return
	}

	field := &Field{
		FieldName:  fieldStruct.Name,
		BsonName:   joinPath(bsonParent, bsonTags.Name),
		JsonName:   joinPath(jsonParent, jsonTags.Name),
		DataType:   fieldType.Name(),
		IsPointer:  isPointer,
		FilterTags: parseFilterTags(fieldStruct),
	}

	switch {
	case fieldType == timeType:
		field.DataType = DtDate
	case fieldType == objectIDType:
		field.DataType = DtObjectID
	case (fieldType.Kind() == reflect.Slice || fieldType.Kind() == reflect.Array) && fieldType.Elem() == objectIDType:
		field.DataType = DtObjectID
	}

	s.addField(field, jsonParent == "")

	if field.DataType != DtDate && fieldType.Kind() == reflect.Struct {
		s.initFields(fieldType, field.JsonName, field.BsonName)
	}
}

func (s *Schema) addField(field *Field, topLevel bool) {
	if topLevel {
		switch field.FilterTags.Fields {
		case FieldsNever:
			s.BannedFields[field.FieldName] = field
		case FieldsAlways:
			s.RequiredFilterFields[field.FieldName] = field
		}
	}

	s.JSONFields[field.JsonName] = field
}

// getField returns the field named fieldName, or the closest parent field
// for dotted paths into nested documents.
func (s *Schema) getField(fieldName string) (*Field, bool) {
	for name := fieldName; ; {
		if field, exists := s.JSONFields[name]; exists {
			return field, true
		}

		lastDot := strings.LastIndex(name, ".")
		if lastDot == -1 {
			return nil, false
		}
		name = name[:lastDot]
	}
}

func joinPath(parent string, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func parseFieldTags(fieldStruct reflect.StructField, tagName string) FieldTags {
	tag := fieldStruct.Tag.Get(tagName)
	if tag == "-" {
		return FieldTags{Skip: true}
	}

	tags := FieldTags{Name: strings.ToLower(fieldStruct.Name)}
	for idx, option := range strings.Split(tag, ",") {
		switch {
		case idx == 0 && option != "":
			tags.Name = option
		case option == "omitempty":
			tags.OmitEmpty = true
		case option == "inline":
			tags.Inline = true
		}
	}
	return tags
}

func parseFilterTags(fieldStruct reflect.StructField) FilterTags {
	tags := FilterTags{}
	for _, option := range strings.Split(fieldStruct.Tag.Get("filter"), ",") {
		if name, value, found := strings.Cut(option, "="); found && name == "fields" {
			tags.Fields = FieldsOptions(value)
		}
	}
	return tags
}
