package association

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xompass/remote-association/resource"
	"github.com/xompass/remote-association/resource/resourcetest"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type user struct {
	State     `bson:"-" json:"-"`
	ID        int64  `json:"id" bson:"_id"`
	Name      string `json:"name"`
	AccountID any    `json:"account_id,omitempty"`
	OwnerType string `json:"owner_type,omitempty"`
	OwnerID   any    `json:"owner_id,omitempty"`
}

func (u *user) GetId() any {
	return u.ID
}

// member keeps its keys in value-typed fields, as decoded models do, so a
// missing key is the zero value of its field.
type member struct {
	State     `bson:"-" json:"-"`
	ID        bson.ObjectID `json:"id" bson:"_id"`
	AccountID int64         `json:"account_id" bson:"account_id"`
}

func (m *member) GetId() any {
	return m.ID
}

type fixture struct {
	server   *resourcetest.Server
	types    *resource.Registry
	registry *Registry
	profile  *One
	posts    *Many
	account  *One
	owner    *One
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	server := resourcetest.NewServer()
	t.Cleanup(server.Close)

	types := resource.NewRegistry()
	for _, element := range []string{"profile", "post", "account", "company"} {
		finder, err := resource.New(resource.Options{Site: server.URL, ElementName: element})
		require.NoError(t, err)
		require.NoError(t, types.Register(typeName(element), finder))
	}

	registry, err := NewRegistry(RegistryOptions{Owner: "User", Resolver: types})
	require.NoError(t, err)

	return &fixture{
		server:   server,
		types:    types,
		registry: registry,
		profile:  registry.MustHasOne("profile"),
		posts:    registry.MustHasMany("posts"),
		account:  registry.MustBelongsTo("account"),
		owner:    registry.MustBelongsTo("owner", Options{Polymorphic: true}),
	}
}

func (f *fixture) include(t *testing.T, names ...string) *Plan {
	t.Helper()
	plan := NewPlan()
	require.NoError(t, plan.Include(f.registry, names...))
	return plan
}

func owners(users ...*user) []Owner {
	result := make([]Owner, len(users))
	for i, u := range users {
		result[i] = u
	}
	return result
}

// recordingFinder remembers the scopes and params of every find.
type recordingFinder struct {
	mu      sync.Mutex
	next    resource.Finder
	err     error
	scopes  []resource.Scope
	params  []resource.Params
	objects []resource.Object
}

func (f *recordingFinder) Find(ctx context.Context, scope resource.Scope, params resource.Params) ([]resource.Object, error) {
	f.mu.Lock()
	f.scopes = append(f.scopes, scope)
	f.params = append(f.params, params)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.next != nil {
		return f.next.Find(ctx, scope, params)
	}
	return f.objects, nil
}

func (f *recordingFinder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.params)
}
