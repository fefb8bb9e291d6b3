package database

import (
	"github.com/go-errors/errors"
	"github.com/xompass/remote-association/resource"
)

// Connector is implemented by every database connector.
type Connector interface {
	Ping() error
	Disconnect() error
	GetName() string
	GetDatabaseName() string
	GetDriver() any
}

type Datasource struct {
	connectors           map[string]Connector // Connectors registered in the datasource, one per database.
	repositories         map[string]any       // Repositories registered in the datasource.
	models               map[string]IModel    // Models registered in the datasource.
	connectorByModelName map[string]Connector // Connectors by model name.
	remotes              *resource.Registry   // Remote types that associations refer to by name.
}

func (receiver *Datasource) AddConnector(connector Connector) error {
	if receiver == nil {
		return errors.New("datasource is nil")
	}

	if connector == nil {
		return errors.New("connector cannot be nil")
	}

	if receiver.connectors == nil {
		receiver.connectors = make(map[string]Connector)
	}

	receiver.connectors[connector.GetName()] = connector
	return nil
}

func (receiver *Datasource) Destroy() {
	for _, connector := range receiver.connectors {
		if connector != nil {
			_ = connector.Disconnect()
		}
	}
}

func (receiver *Datasource) RegisterModel(model IModel) error {
	if receiver == nil {
		return errors.New("datasource is nil")
	}

	connectorName := model.GetConnectorName()
	modelName := model.GetModelName()
	connector, err := receiver.GetConnector(connectorName)
	if err != nil {
		return err
	}

	if receiver.models == nil {
		receiver.models = make(map[string]IModel)
	}

	if receiver.connectorByModelName == nil {
		receiver.connectorByModelName = make(map[string]Connector)
	}

	if receiver.connectorByModelName[modelName] != nil {
		return errors.Errorf("the model %s is already registered with connector %s", modelName, receiver.connectorByModelName[modelName].GetName())
	}

	receiver.models[modelName] = model
	receiver.connectorByModelName[modelName] = connector
	return nil
}

func (receiver *Datasource) GetModelConnector(model IModel) (Connector, error) {
	if receiver == nil {
		return nil, errors.New("datasource is nil")
	}

	connector, ok := receiver.connectorByModelName[model.GetModelName()]
	if !ok {
		return nil, errors.Errorf("the model %s is not registered", model.GetModelName())
	}

	return connector, nil
}

func (receiver *Datasource) GetConnector(name string) (Connector, error) {
	if receiver == nil {
		return nil, errors.New("datasource is nil")
	}

	connector, ok := receiver.connectors[name]
	if !ok {
		return nil, errors.Errorf("the connector %s is not registered", name)
	}

	return connector, nil
}

func (receiver *Datasource) GetModel(modelName string) (IModel, error) {
	if receiver == nil {
		return nil, errors.New("datasource is nil")
	}

	model, ok := receiver.models[modelName]
	if !ok {
		return nil, errors.Errorf("the model %s is not registered", modelName)
	}

	return model, nil
}

// RegisterRemote makes finder available to remote associations under name,
// e.g. "Profile".
func (receiver *Datasource) RegisterRemote(name string, finder resource.Finder) error {
	if receiver == nil {
		return errors.New("datasource is nil")
	}

	if receiver.remotes == nil {
		receiver.remotes = resource.NewRegistry()
	}

	return receiver.remotes.Register(name, finder)
}

// ResolveRemote returns the finder registered under name. Datasource is the
// type resolver of association registries.
func (receiver *Datasource) ResolveRemote(name string) (resource.Finder, error) {
	if receiver == nil {
		return nil, errors.New("datasource is nil")
	}

	if receiver.remotes == nil {
		receiver.remotes = resource.NewRegistry()
	}

	return receiver.remotes.ResolveRemote(name)
}

func RegisterDatasourceRepository[T IModel](ds *Datasource, model T, repository Repository[T]) error {
	if ds == nil || repository == nil {
		return errors.New("datasource or repository cannot be nil")
	}

	modelName := model.GetModelName()

	if ds.repositories == nil {
		ds.repositories = make(map[string]any)
	}

	repositoryConnector := repository.GetConnector()
	if repositoryConnector == nil {
		return errors.Errorf("repository for model %s does not have a connector", modelName)
	}

	connectorExists := false
	for _, existingConnector := range ds.connectors {
		if existingConnector == repositoryConnector {
			connectorExists = true
			break
		}
	}
	if !connectorExists {
		return errors.Errorf("the connector %s for model %s is not registered in the datasource", repositoryConnector.GetName(), modelName)
	}

	if _, exists := ds.repositories[modelName]; exists {
		return errors.Errorf("a repository is already registered for model %s", modelName)
	}

	ds.repositories[modelName] = repository
	return nil
}

func GetDatasourceModelRepository[T IModel](datasource *Datasource, model T) (Repository[T], error) {
	if datasource == nil {
		return nil, errors.New("datasource is nil")
	}

	repository, ok := datasource.repositories[model.GetModelName()]
	if !ok {
		return nil, errors.Errorf("the model %s is not registered", model.GetModelName())
	}

	if repo, ok := repository.(Repository[T]); ok {
		return repo, nil
	}

	return nil, errors.Errorf("the repository for model %s is not of the expected type", model.GetModelName())
}
