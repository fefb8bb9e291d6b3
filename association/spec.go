package association

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/inflection"
	"github.com/xompass/remote-association/helpers"
	"github.com/xompass/remote-association/resource"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Options override the defaults computed for a declaration.
type Options struct {
	// RemoteType names the remote entity type, e.g. "Profile". Defaults to
	// the singularized, camel-cased association name.
	RemoteType string `validate:"omitempty,printascii"`
	// Remote is the finder of the remote type. When nil it is resolved by
	// name through the registry's TypeResolver.
	Remote resource.Finder
	// JoinKey is the field holding the key: on the remote object for
	// has-one/has-many, on the owner for belongs-to.
	JoinKey string `validate:"omitempty,printascii"`
	// RemoteLookupField is the request parameter the keys are sent in. It may
	// use nested syntax, e.g. "search[id_in]".
	RemoteLookupField string `validate:"omitempty,printascii"`
	// RemoteKey is the field of the remote object that a belongs-to join key
	// references. Defaults to RemoteLookupField when it is a plain field name.
	RemoteKey   string         `validate:"omitempty,printascii"`
	Scope       resource.Scope `validate:"omitempty,printascii"`
	Polymorphic bool
	// ForeignType is the owner field naming the remote type of a polymorphic
	// belongs-to. Defaults to "<name>_type".
	ForeignType string `validate:"omitempty,printascii"`
}

// Spec is the resolved configuration of one declared association.
type Spec struct {
	Name              string
	Kind              Kind
	RemoteType        string
	Remote            resource.Finder
	JoinKey           string
	RemoteLookupField string
	RemoteKey         string
	Scope             resource.Scope
	Polymorphic       bool
	ForeignType       string
}

var validate = validator.New()

func newSpec(registry *Registry, name string, kind Kind, opts Options) (*Spec, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	spec := &Spec{
		Name:              name,
		Kind:              kind,
		RemoteType:        opts.RemoteType,
		Remote:            opts.Remote,
		JoinKey:           opts.JoinKey,
		RemoteLookupField: opts.RemoteLookupField,
		RemoteKey:         opts.RemoteKey,
		Scope:             opts.Scope,
		Polymorphic:       opts.Polymorphic,
		ForeignType:       opts.ForeignType,
	}

	if spec.RemoteType == "" {
		spec.RemoteType = typeName(name)
	}

	if spec.Scope == "" {
		spec.Scope = resource.ScopeAll
	}

	switch kind {
	case RemoteHasOne, RemoteHasMany:
		if spec.JoinKey == "" {
			spec.JoinKey = snakeCase(registry.opt.Owner) + "_id"
		}
		if spec.RemoteLookupField == "" {
			spec.RemoteLookupField = spec.JoinKey
		}
	case RemoteBelongsTo:
		if spec.JoinKey == "" {
			spec.JoinKey = snakeCase(name) + "_id"
		}
		if spec.RemoteLookupField == "" {
			spec.RemoteLookupField = registry.opt.PrimaryKey
		}
		if spec.Polymorphic && spec.ForeignType == "" {
			spec.ForeignType = snakeCase(name) + "_type"
		}
	}

	return spec, nil
}

// Params builds the remote query parameters for keys: a single slice
// argument is flattened and scalars are wrapped in a list.
func (s *Spec) Params(keys ...any) resource.Params {
	return resource.Params{s.RemoteLookupField: helpers.Wrap(keys...)}
}

// RemoteIdentity is the remote object field a belongs-to join key matches.
func (s *Spec) RemoteIdentity() string {
	if s.RemoteKey != "" {
		return s.RemoteKey
	}
	if !strings.ContainsAny(s.RemoteLookupField, "[]") {
		return s.RemoteLookupField
	}
	return "id"
}

// typeName turns an association name into a remote type name:
// "blog_posts" -> "BlogPost".
func typeName(name string) string {
	singular := inflection.Singular(name)
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(singular))
	title := cases.Title(language.Und, cases.NoLower).String(strings.Join(words, " "))
	return strings.ReplaceAll(title, " ", "")
}

// snakeCase converts a type name to its key form: "BlogAuthor" -> "blog_author".
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) && runes[i-1] != '_' {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
