package database

import (
	"github.com/go-errors/errors"
	"github.com/xompass/remote-association/association"
)

// remoteRegistryOf returns the remote association registry of the model
// type T.
func remoteRegistryOf[T IModel]() (*association.Registry, error) {
	var instance T
	model, ok := any(instance).(RemoteModel)
	if !ok {
		return nil, errors.Errorf("the model %T does not declare remote associations", instance)
	}

	registry := model.RemoteAssociations()
	if registry == nil {
		return nil, errors.Errorf("the model %T has no remote association registry", instance)
	}
	return registry, nil
}

// remoteOwners returns docs as association owners.
func remoteOwners[T IModel](docs []T) ([]association.Owner, error) {
	owners := make([]association.Owner, 0, len(docs))
	for _, doc := range docs {
		owner, ok := any(doc).(association.Owner)
		if !ok {
			return nil, errors.Errorf("the model %T does not embed association.State", doc)
		}
		owners = append(owners, owner)
	}
	return owners, nil
}

var _ association.TypeResolver = (*Datasource)(nil)
