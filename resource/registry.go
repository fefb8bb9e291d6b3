package resource

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/xompass/remote-association/http_errors"
)

// Registry maps remote type names to finders. It is the one place where a
// remote type is looked up by name, which polymorphic associations need.
type Registry struct {
	mu      sync.RWMutex
	finders map[string]Finder
}

func NewRegistry() *Registry {
	return &Registry{finders: map[string]Finder{}}
}

func (r *Registry) Register(name string, finder Finder) error {
	if name == "" || finder == nil {
		return errors.New("remote type name and finder are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finders == nil {
		r.finders = map[string]Finder{}
	}
	if _, exists := r.finders[name]; exists {
		return errors.Errorf("the remote type %s is already registered", name)
	}
	r.finders[name] = finder
	return nil
}

func (r *Registry) ResolveRemote(name string) (Finder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	finder, ok := r.finders[name]
	if !ok {
		return nil, http_errors.InternalServerErrorWithCode(RESOURCE_NOT_REGISTERED, "the remote type "+name+" is not registered")
	}
	return finder, nil
}
