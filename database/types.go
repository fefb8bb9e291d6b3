package database

import (
	"github.com/xompass/remote-association/association"
)

type IModel interface {
	GetTableName() string
	GetModelName() string
	GetConnectorName() string
	GetId() any
}

// RemoteModel is a model that declares remote associations. Query uses
// RemoteAssociations, called on the zero value of the model type, to find
// the registry of the type, so it must not read the receiver.
type RemoteModel interface {
	IModel
	association.Owner
	RemoteAssociations() *association.Registry
}
