package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xompass/remote-association/resource"
)

type fakeConnector struct {
	name         string
	disconnected bool
}

func (c *fakeConnector) Ping() error             { return nil }
func (c *fakeConnector) Disconnect() error       { c.disconnected = true; return nil }
func (c *fakeConnector) GetName() string         { return c.name }
func (c *fakeConnector) GetDatabaseName() string { return "test" }
func (c *fakeConnector) GetDriver() any          { return nil }

func TestDatasource_Models(t *testing.T) {
	ds := &Datasource{}
	connector := &fakeConnector{name: "mongodb"}

	assert.Error(t, ds.AddConnector(nil))
	require.NoError(t, ds.AddConnector(connector))

	require.NoError(t, ds.RegisterModel(&device{}))
	assert.Error(t, ds.RegisterModel(&device{}), "a model registers once")

	got, err := ds.GetModelConnector(&device{})
	require.NoError(t, err)
	assert.Same(t, connector, got)

	_, err = ds.GetModel("Device")
	assert.NoError(t, err)
	_, err = ds.GetModel("Missing")
	assert.Error(t, err)

	ds.Destroy()
	assert.True(t, connector.disconnected)
}

func TestDatasource_RegisterModelWithoutConnector(t *testing.T) {
	ds := &Datasource{}
	assert.Error(t, ds.RegisterModel(&device{}))
}

func TestDatasource_Repositories(t *testing.T) {
	ds := &Datasource{}
	connector := &fakeConnector{name: "mongodb"}
	require.NoError(t, ds.AddConnector(connector))

	repository := &connectedRepository{connector: connector}
	require.NoError(t, RegisterDatasourceRepository[*device](ds, &device{}, repository))
	assert.Error(t, RegisterDatasourceRepository[*device](ds, &device{}, repository))

	got, err := GetDatasourceModelRepository(ds, &device{})
	require.NoError(t, err)
	assert.Same(t, repository, got)

	unregistered := &memberRepository{connector: &fakeConnector{name: "other"}}
	assert.Error(t, RegisterDatasourceRepository[*member](ds, &member{}, unregistered), "the connector must belong to the datasource")
}

type connectedRepository struct {
	memoryRepository[*device]
	connector Connector
}

func (r *connectedRepository) GetConnector() Connector { return r.connector }

type memberRepository struct {
	memoryRepository[*member]
	connector Connector
}

func (r *memberRepository) GetConnector() Connector { return r.connector }

func TestDatasource_Remotes(t *testing.T) {
	ds := &Datasource{}

	finder, err := resource.New(resource.Options{Site: "http://127.0.0.1:3000", ElementName: "profile"})
	require.NoError(t, err)

	require.NoError(t, ds.RegisterRemote("Profile", finder))
	assert.Error(t, ds.RegisterRemote("Profile", finder))

	resolved, err := ds.ResolveRemote("Profile")
	require.NoError(t, err)
	assert.Same(t, finder, resolved)

	_, err = ds.ResolveRemote("Account")
	assert.Error(t, err)
}
