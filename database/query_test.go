package database

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xompass/remote-association/association"
	"github.com/xompass/remote-association/http_errors"
	"github.com/xompass/remote-association/lbq"
	"github.com/xompass/remote-association/resource"
	"github.com/xompass/remote-association/resource/resourcetest"
)

var memberRemotes *association.Registry

type member struct {
	association.State `bson:"-" json:"-"`
	ID                int64  `json:"id" bson:"_id"`
	Name              string `json:"name" bson:"name"`
	AccountID         int64  `json:"account_id,omitempty" bson:"account_id,omitempty"`
}

func (m *member) GetTableName() string     { return "members" }
func (m *member) GetModelName() string     { return "Member" }
func (m *member) GetConnectorName() string { return "mongodb" }
func (m *member) GetId() any               { return m.ID }

func (*member) RemoteAssociations() *association.Registry {
	return memberRemotes
}

// plainModel declares no remote associations.
type plainModel struct {
	ID int64 `json:"id" bson:"_id"`
}

func (m *plainModel) GetTableName() string     { return "plain" }
func (m *plainModel) GetModelName() string     { return "Plain" }
func (m *plainModel) GetConnectorName() string { return "mongodb" }
func (m *plainModel) GetId() any               { return m.ID }

// memoryRepository returns fresh copies of its documents on every Find and
// remembers the filters it received.
type memoryRepository[T IModel] struct {
	docs    func() []T
	err     error
	filters []*lbq.Filter
}

func (r *memoryRepository[T]) GetSchema() *Schema {
	var instance T
	return NewSchema(instance)
}

func (r *memoryRepository[T]) GetConnector() Connector {
	return nil
}

func (r *memoryRepository[T]) Find(_ context.Context, filter *FilterBuilder) ([]T, error) {
	built, err := filter.Build()
	if err != nil {
		return nil, err
	}
	r.filters = append(r.filters, built)
	if r.err != nil {
		return nil, r.err
	}

	docs := r.docs()
	if built.Limit > 0 && int(built.Limit) < len(docs) {
		docs = docs[:built.Limit]
	}
	return docs, nil
}

func (r *memoryRepository[T]) FindOne(ctx context.Context, filter *FilterBuilder) (*T, error) {
	docs, err := r.Find(ctx, filter)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return &docs[0], nil
}

func (r *memoryRepository[T]) FindById(ctx context.Context, id any, filter *FilterBuilder) (*T, error) {
	docs, err := r.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].GetId() == id {
			return &docs[i], nil
		}
	}
	return nil, nil
}

func (r *memoryRepository[T]) Count(_ context.Context, filter *FilterBuilder) (int64, error) {
	built, err := filter.Build()
	if err != nil {
		return 0, err
	}
	r.filters = append(r.filters, built)
	return int64(len(r.docs())), r.err
}

type queryFixture struct {
	server     *resourcetest.Server
	repository *memoryRepository[*member]
	profile    *association.One
	posts      *association.Many
	account    *association.One
}

func newQueryFixture(t *testing.T, count int) *queryFixture {
	t.Helper()

	server := resourcetest.NewServer()
	t.Cleanup(server.Close)

	ds := &Datasource{}
	for _, element := range []string{"profile", "post", "account"} {
		finder, err := resource.New(resource.Options{Site: server.URL, ElementName: element})
		require.NoError(t, err)
		require.NoError(t, ds.RegisterRemote(typeNameOf(element), finder))
	}

	registry, err := association.NewRegistry(association.RegistryOptions{Owner: "Member", Resolver: ds})
	require.NoError(t, err)

	previous := memberRemotes
	memberRemotes = registry
	t.Cleanup(func() { memberRemotes = previous })

	return &queryFixture{
		server: server,
		repository: &memoryRepository[*member]{docs: func() []*member {
			docs := make([]*member, count)
			for i := range docs {
				docs[i] = &member{ID: int64(i + 1), AccountID: int64(i%2 + 1)}
			}
			return docs
		}},
		profile: registry.MustHasOne("profile"),
		posts:   registry.MustHasMany("posts"),
		account: registry.MustBelongsTo("account"),
	}
}

func typeNameOf(element string) string {
	return map[string]string{"profile": "Profile", "post": "Post", "account": "Account"}[element]
}

func TestQuery_AllPrefetchesOncePerAssociation(t *testing.T) {
	f := newQueryFixture(t, 10)
	f.server.Set("profiles", resource.Object{"id": 100, "member_id": 3})
	f.server.Set("posts", resource.Object{"id": 1, "member_id": 3}, resource.Object{"id": 2, "member_id": 3}, resource.Object{"id": 3, "member_id": 4})
	f.server.Set("accounts", resource.Object{"id": 1}, resource.Object{"id": 2})

	members, err := NewQuery[*member](f.repository).IncludeRemote("profile", "posts", "account").All(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 10)
	assert.Equal(t, 3, f.server.TotalRequests())
	assert.Equal(t, []string{"id%5B%5D=1&id%5B%5D=2"}, f.server.Queries("accounts"))

	ctx := context.Background()
	for _, m := range members {
		assert.True(t, m.Prefetched())

		profile, err := f.profile.Get(ctx, m)
		require.NoError(t, err)
		posts, err := f.posts.Get(ctx, m)
		require.NoError(t, err)
		account, err := f.account.Get(ctx, m)
		require.NoError(t, err)

		switch m.ID {
		case 3:
			assert.Equal(t, "100", profile.String("id"))
			assert.Len(t, posts, 2)
		case 4:
			assert.Nil(t, profile)
			assert.Len(t, posts, 1)
		default:
			assert.Nil(t, profile)
			assert.Empty(t, posts)
		}
		assert.Equal(t, m.AccountID, mustInt(t, account.ID()))
	}
	assert.Equal(t, 3, f.server.TotalRequests(), "accessors read the prefetched cells")
}

func mustInt(t *testing.T, value any) int64 {
	t.Helper()
	number, ok := value.(interface{ Int64() (int64, error) })
	require.True(t, ok, "expected a json number, got %T", value)
	result, err := number.Int64()
	require.NoError(t, err)
	return result
}

func TestQuery_WithoutIncludeLoadsLazily(t *testing.T) {
	f := newQueryFixture(t, 3)
	f.server.Set("profiles", resource.Object{"id": 100, "member_id": 2})

	members, err := NewQuery[*member](f.repository).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.server.TotalRequests())

	for _, m := range members {
		assert.False(t, m.Prefetched())
		_, err := f.profile.Get(context.Background(), m)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.server.Requests("profiles"))
}

func TestQuery_FilterRemoteMergesConditions(t *testing.T) {
	f := newQueryFixture(t, 1)
	f.server.Set("profiles", resource.Object{"id": 100, "member_id": 1, "active": true, "verified": true})

	_, err := NewQuery[*member](f.repository).
		IncludeRemote("profile").
		FilterRemote(map[string]association.Conditions{"profile": {"search": map[string]any{"active": true}}}).
		FilterRemoteJSON(`{"profile": {"search": {"verified": true}}}`).
		All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"member_id%5B%5D=1&search%5Bactive%5D=true&search%5Bverified%5D=true"}, f.server.Queries("profiles"))
}

func TestQuery_FromLBFilter(t *testing.T) {
	f := newQueryFixture(t, 4)
	f.server.Set("posts", resource.Object{"id": 1, "member_id": 1})

	filter, err := lbq.ParseFilter(`{"where": {"name": "a"}, "limit": 2, "includeRemote": ["posts"], "filterRemote": {"posts": {"state": "published"}}}`)
	require.NoError(t, err)

	members, err := NewQuery[*member](f.repository).FromLBFilter(filter).All(context.Background())
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.Len(t, f.repository.filters, 1)
	assert.Equal(t, lbq.Where{"name": "a"}, f.repository.filters[0].Where)
	assert.Equal(t, uint(2), f.repository.filters[0].Limit)
	assert.Equal(t, []string{"member_id%5B%5D=1&member_id%5B%5D=2&state=published"}, f.server.Queries("posts"))
}

func TestQuery_UnknownIncludeFailsBeforeAnyIO(t *testing.T) {
	f := newQueryFixture(t, 2)

	query := NewQuery[*member](f.repository).IncludeRemote("profile", "comments")
	require.Error(t, query.Err())
	assert.True(t, association.IsSettingsNotFound(query.Err()))
	assert.Equal(t, "Can't find settings for comments association", query.Err().Error())
	assert.True(t, query.Plan().Empty(), "a failed include queues nothing")

	_, err := query.All(context.Background())
	require.Error(t, err)
	assert.Empty(t, f.repository.filters)
	assert.Equal(t, 0, f.server.TotalRequests())
}

func TestQuery_IncludeOnModelWithoutRemotes(t *testing.T) {
	repository := &memoryRepository[*plainModel]{docs: func() []*plainModel { return nil }}

	query := NewQuery[*plainModel](repository).IncludeRemote("profile")
	require.Error(t, query.Err())
	assert.Equal(t, http.StatusBadRequest, http_errors.StatusCode(query.Err()))

	docs, err := NewQuery[*plainModel](repository).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestQuery_FirstUsesLimitAndPrefetches(t *testing.T) {
	f := newQueryFixture(t, 5)
	f.server.Set("profiles", resource.Object{"id": 100, "member_id": 1})

	query := NewQuery[*member](f.repository).IncludeRemote("profile")
	first, err := query.First(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(1), first.ID)
	assert.True(t, first.Resolved("profile"))
	assert.Equal(t, []string{"member_id%5B%5D=1"}, f.server.Queries("profiles"))
	assert.Equal(t, uint(1), f.repository.filters[0].Limit)

	// First runs on a clone.
	built, err := query.Filter().Build()
	require.NoError(t, err)
	assert.Equal(t, uint(0), built.Limit)
}

func TestQuery_FirstWithoutMatches(t *testing.T) {
	f := newQueryFixture(t, 0)

	first, err := NewQuery[*member](f.repository).IncludeRemote("profile").First(context.Background())
	require.NoError(t, err)
	assert.Nil(t, first)
}

func TestQuery_RemoteFailurePropagates(t *testing.T) {
	f := newQueryFixture(t, 2)
	f.server.Fail("posts", http.StatusServiceUnavailable)

	_, err := NewQuery[*member](f.repository).IncludeRemote("posts").All(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, http_errors.StatusCode(err))
}

func TestQuery_CloneIsIndependent(t *testing.T) {
	f := newQueryFixture(t, 1)

	base := NewQuery[*member](f.repository).IncludeRemote("profile")
	derived := base.Clone().IncludeRemote("posts").Limit(3)

	assert.Len(t, base.Plan().Pending(), 1)
	assert.Len(t, derived.Plan().Pending(), 2)
}

func TestQuery_NilRepository(t *testing.T) {
	_, err := NewQuery[*member](nil).All(context.Background())
	require.Error(t, err)
}

func TestQuery_FindByIdPrefetches(t *testing.T) {
	f := newQueryFixture(t, 4)
	f.server.Set("posts", resource.Object{"id": 1, "member_id": 3}, resource.Object{"id": 2, "member_id": 1})

	found, err := NewQuery[*member](f.repository).IncludeRemote("posts").FindById(context.Background(), int64(3))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(3), found.ID)
	assert.True(t, found.Resolved("posts"))
	assert.Equal(t, []string{"member_id%5B%5D=3"}, f.server.Queries("posts"))

	posts, err := f.posts.Get(context.Background(), found)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 1, f.server.Requests("posts"))
}

func TestQuery_FindByIdWithoutMatch(t *testing.T) {
	f := newQueryFixture(t, 2)

	found, err := NewQuery[*member](f.repository).IncludeRemote("posts").FindById(context.Background(), int64(9))
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Equal(t, 0, f.server.TotalRequests(), "nothing to prefetch for")
}

func TestQuery_CountIgnoresRemotes(t *testing.T) {
	f := newQueryFixture(t, 6)

	count, err := NewQuery[*member](f.repository).IncludeRemote("profile").Limit(2).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
	assert.Equal(t, 0, f.server.TotalRequests())

	_, err = NewQuery[*member](f.repository).IncludeRemote("comments").Count(context.Background())
	assert.True(t, association.IsSettingsNotFound(err))
}

func TestQuery_MergeFilter(t *testing.T) {
	f := newQueryFixture(t, 3)

	base := NewFilter().WithWhere(NewWhere().Eq("deleted", nil)).Limit(10)
	filter, err := lbq.ParseFilter(`{"where": {"name": "a"}}`)
	require.NoError(t, err)

	_, err = NewQuery[*member](f.repository).FromLBFilter(filter).MergeFilter(base).All(context.Background())
	require.NoError(t, err)

	require.Len(t, f.repository.filters, 1)
	assert.Equal(t, lbq.Where{"and": lbq.AndOrCondition{
		lbq.Where{"deleted": nil},
		lbq.Where{"name": "a"},
	}}, f.repository.filters[0].Where)
	assert.Equal(t, uint(10), f.repository.filters[0].Limit)
}
