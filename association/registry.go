package association

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/xompass/remote-association/helpers"
	"github.com/xompass/remote-association/http_errors"
	"github.com/xompass/remote-association/resource"
	"go.uber.org/zap"
)

// TypeResolver finds the remote finder registered under a type name.
type TypeResolver interface {
	ResolveRemote(name string) (resource.Finder, error)
}

type RegistryOptions struct {
	// Owner is the owner type name, e.g. "User". It derives the default join
	// key of has-one and has-many associations ("user_id").
	Owner string `validate:"required"`
	// PrimaryKey is the owner primary key name. Defaults to "id".
	PrimaryKey string
	Resolver   TypeResolver
	Logger     *zap.Logger
}

func (o *RegistryOptions) SetDefaults() *RegistryOptions {
	if o.PrimaryKey == "" {
		o.PrimaryKey = "id"
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	return o
}

// Registry holds the remote associations declared on one owner type.
// Declarations happen at setup time; afterwards it is only read.
type Registry struct {
	opt   *RegistryOptions
	mu    sync.RWMutex
	specs map[string]*Spec
	names []string
}

func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, http_errors.BadRequestErrorWithCode(ASSOCIATION_INVALID_OPTIONS, "invalid registry options: "+err.Error())
	}

	return &Registry{
		opt:   opts.SetDefaults(),
		specs: map[string]*Spec{},
	}, nil
}

func MustNewRegistry(opts RegistryOptions) *Registry {
	registry, err := NewRegistry(opts)
	if err != nil {
		panic(err)
	}
	return registry
}

func (r *Registry) Owner() string {
	return r.opt.Owner
}

func (r *Registry) Logger() *zap.Logger {
	return r.opt.Logger
}

// HasOne declares a single remote object that references the owner.
func (r *Registry) HasOne(name string, opts ...Options) (*One, error) {
	spec, err := r.declare(name, RemoteHasOne, opts)
	if err != nil {
		return nil, err
	}
	return &One{registry: r, spec: spec}, nil
}

// HasMany declares a list of remote objects that reference the owner.
func (r *Registry) HasMany(name string, opts ...Options) (*Many, error) {
	spec, err := r.declare(name, RemoteHasMany, opts)
	if err != nil {
		return nil, err
	}
	return &Many{registry: r, spec: spec}, nil
}

// BelongsTo declares a single remote object referenced by a key on the owner.
func (r *Registry) BelongsTo(name string, opts ...Options) (*One, error) {
	spec, err := r.declare(name, RemoteBelongsTo, opts)
	if err != nil {
		return nil, err
	}
	return &One{registry: r, spec: spec}, nil
}

func (r *Registry) MustHasOne(name string, opts ...Options) *One {
	return must(r.HasOne(name, opts...))
}

func (r *Registry) MustHasMany(name string, opts ...Options) *Many {
	return must(r.HasMany(name, opts...))
}

func (r *Registry) MustBelongsTo(name string, opts ...Options) *One {
	return must(r.BelongsTo(name, opts...))
}

func must[A any](accessor A, err error) A {
	if err != nil {
		panic(err)
	}
	return accessor
}

func (r *Registry) declare(name string, kind Kind, opts []Options) (*Spec, error) {
	if name == "" {
		return nil, http_errors.BadRequestErrorWithCode(ASSOCIATION_INVALID_OPTIONS, "the association name is required")
	}

	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}

	if opt.Polymorphic && kind != RemoteBelongsTo {
		return nil, http_errors.BadRequestErrorWithCode(ASSOCIATION_INVALID_OPTIONS, "only remote belongs-to associations can be polymorphic: "+name)
	}

	spec, err := newSpec(r, name, kind, opt)
	if err != nil {
		return nil, http_errors.BadRequestErrorWithCode(ASSOCIATION_INVALID_OPTIONS, "invalid options for "+name+" association: "+err.Error())
	}

	if spec.Remote == nil && !spec.Polymorphic {
		if r.opt.Resolver == nil {
			return nil, errors.WrapPrefix(ErrNoRemote, r.opt.Owner+"."+name, 0)
		}
		finder, err := r.opt.Resolver.ResolveRemote(spec.RemoteType)
		if err != nil {
			return nil, errors.WrapPrefix(ErrUnknownRemoteType, spec.RemoteType+": "+err.Error(), 0)
		}
		spec.Remote = finder
	}

	if spec.Polymorphic && r.opt.Resolver == nil {
		return nil, errors.WrapPrefix(ErrNoRemote, "polymorphic "+r.opt.Owner+"."+name+" needs a type resolver", 0)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[name]; exists {
		return nil, errors.WrapPrefix(ErrDuplicateAssociation, r.opt.Owner+"."+name, 0)
	}
	r.specs[name] = spec
	r.names = append(r.names, name)

	r.opt.Logger.Debug("remote association declared",
		zap.String("owner", r.opt.Owner),
		zap.String("name", name),
		zap.Stringer("kind", kind),
		zap.String("remote_type", spec.RemoteType),
		zap.String("join_key", spec.JoinKey),
	)

	return spec, nil
}

// Lookup returns the settings of the association name.
func (r *Registry) Lookup(name string) (*Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[name]
	if !ok {
		return nil, &SettingsNotFoundError{Name: name}
	}
	return spec, nil
}

// Names returns the declared association names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// BuildParams returns {remoteLookupField: [keys...]} for the association name.
func (r *Registry) BuildParams(name string, keys ...any) (resource.Params, error) {
	spec, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return spec.Params(keys...), nil
}

func (r *Registry) finderFor(spec *Spec, owner Owner) (resource.Finder, bool, error) {
	if !spec.Polymorphic {
		return spec.Remote, true, nil
	}

	remoteType := FieldValue(owner, spec.ForeignType)
	if !helpers.IsPresent(remoteType) {
		return nil, false, nil
	}

	finder, err := r.opt.Resolver.ResolveRemote(helpers.KeyOf(remoteType))
	if err != nil {
		return nil, false, errors.WrapPrefix(ErrUnknownRemoteType, helpers.KeyOf(remoteType)+": "+err.Error(), 0)
	}
	return finder, true, nil
}
