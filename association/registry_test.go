package association

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xompass/remote-association/http_errors"
	"github.com/xompass/remote-association/resource"
)

func TestRegistry_Defaults(t *testing.T) {
	f := newFixture(t)

	profile, err := f.registry.Lookup("profile")
	require.NoError(t, err)
	assert.Equal(t, RemoteHasOne, profile.Kind)
	assert.Equal(t, "Profile", profile.RemoteType)
	assert.Equal(t, "user_id", profile.JoinKey)
	assert.Equal(t, "user_id", profile.RemoteLookupField)
	assert.Equal(t, resource.ScopeAll, profile.Scope)
	assert.NotNil(t, profile.Remote)

	posts, err := f.registry.Lookup("posts")
	require.NoError(t, err)
	assert.Equal(t, RemoteHasMany, posts.Kind)
	assert.Equal(t, "Post", posts.RemoteType)
	assert.Equal(t, "user_id", posts.JoinKey)

	account, err := f.registry.Lookup("account")
	require.NoError(t, err)
	assert.Equal(t, RemoteBelongsTo, account.Kind)
	assert.Equal(t, "Account", account.RemoteType)
	assert.Equal(t, "account_id", account.JoinKey)
	assert.Equal(t, "id", account.RemoteLookupField)
	assert.Equal(t, "id", account.RemoteIdentity())

	owner, err := f.registry.Lookup("owner")
	require.NoError(t, err)
	assert.True(t, owner.Polymorphic)
	assert.Equal(t, "owner_type", owner.ForeignType)
	assert.Nil(t, owner.Remote, "polymorphic types resolve per record")

	assert.Equal(t, []string{"profile", "posts", "account", "owner"}, f.registry.Names())
}

func TestRegistry_OptionsOverrideDefaults(t *testing.T) {
	f := newFixture(t)
	finder := &recordingFinder{}

	author, err := f.registry.BelongsTo("author", Options{
		Remote:            finder,
		RemoteType:        "Account",
		JoinKey:           "writer_id",
		RemoteLookupField: "search[id_in]",
		Scope:             resource.ScopeFirst,
	})
	require.NoError(t, err)

	spec := author.Spec()
	assert.Equal(t, "Account", spec.RemoteType)
	assert.Equal(t, "writer_id", spec.JoinKey)
	assert.Equal(t, "search[id_in]", spec.RemoteLookupField)
	assert.Equal(t, "id", spec.RemoteIdentity())
	assert.Equal(t, resource.ScopeFirst, spec.Scope)
	assert.Same(t, finder, spec.Remote)
}

func TestRegistry_OwnerNameDerivesJoinKey(t *testing.T) {
	registry := MustNewRegistry(RegistryOptions{Owner: "BlogAuthor"})

	posts, err := registry.HasMany("blog_posts", Options{Remote: &recordingFinder{}})
	require.NoError(t, err)
	assert.Equal(t, "BlogPost", posts.Spec().RemoteType)
	assert.Equal(t, "blog_author_id", posts.Spec().JoinKey)
}

func TestRegistry_LookupUnknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.Lookup("nonexistent")
	require.Error(t, err)

	var notFound *SettingsNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nonexistent", notFound.Name)
	assert.Equal(t, "Can't find settings for nonexistent association", err.Error())
	assert.True(t, IsSettingsNotFound(err))
}

func TestRegistry_DeclarationErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.HasOne("profile")
	assert.True(t, errors.Is(err, ErrDuplicateAssociation))

	_, err = f.registry.HasOne("avatar")
	assert.True(t, errors.Is(err, ErrUnknownRemoteType))

	_, err = f.registry.HasMany("comments", Options{Polymorphic: true, Remote: &recordingFinder{}})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, http_errors.StatusCode(err))

	_, err = f.registry.HasOne("", Options{Remote: &recordingFinder{}})
	require.Error(t, err)

	bare := MustNewRegistry(RegistryOptions{Owner: "User"})
	_, err = bare.HasOne("profile")
	assert.True(t, errors.Is(err, ErrNoRemote))
	_, err = bare.BelongsTo("owner", Options{Polymorphic: true})
	assert.True(t, errors.Is(err, ErrNoRemote))

	_, err = NewRegistry(RegistryOptions{})
	require.Error(t, err)

	assert.Panics(t, func() { f.registry.MustHasOne("profile") })
}

func TestRegistry_BuildParams(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, resource.Params{"user_id": []any{1}}, f.profile.BuildParams(1))
	assert.Equal(t, resource.Params{"user_id": []any{1, 2}}, f.posts.BuildParams([]int{1, 2}))
	assert.Equal(t, resource.Params{"id": []any{"a", "b"}}, f.account.BuildParams("a", "b"))

	params, err := f.registry.BuildParams("account", 7)
	require.NoError(t, err)
	assert.Equal(t, resource.Params{"id": []any{7}}, params)

	_, err = f.registry.BuildParams("missing", 1)
	assert.True(t, IsSettingsNotFound(err))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Profile", typeName("profiles"))
	assert.Equal(t, "BlogPost", typeName("blog_posts"))
	assert.Equal(t, "user", snakeCase("User"))
	assert.Equal(t, "blog_author", snakeCase("BlogAuthor"))
	assert.Equal(t, "http_server", snakeCase("HTTPServer"))
	assert.Equal(t, "remote_has_many", RemoteHasMany.String())
}

func TestFieldValue(t *testing.T) {
	u := &user{ID: 3, AccountID: 9, OwnerType: "Company"}

	assert.Equal(t, 9, FieldValue(u, "account_id"))
	assert.Equal(t, int64(3), FieldValue(u, "_id"))
	assert.Equal(t, "Company", FieldValue(u, "OwnerType"))
	assert.Nil(t, FieldValue(u, "missing"))
	assert.Nil(t, FieldValue((*user)(nil), "account_id"))
}
