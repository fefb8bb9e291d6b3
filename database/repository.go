package database

import (
	"context"
)

// Repository is the read side of a model store.
type Repository[T IModel] interface {
	// GetSchema returns the schema of the model used by this repository.
	GetSchema() *Schema

	// GetConnector returns the connector used by this repository.
	GetConnector() Connector

	// Find retrieves all documents matching the filter.
	// If no documents match, it returns an empty slice.
	Find(ctx context.Context, filter *FilterBuilder) ([]T, error)

	// FindOne retrieves the first document matching the filter, or nil.
	FindOne(ctx context.Context, filter *FilterBuilder) (*T, error)

	// FindById retrieves a single document by its ID, or nil.
	FindById(ctx context.Context, id any, filter *FilterBuilder) (*T, error)

	// Count returns the number of documents matching the filter.
	Count(ctx context.Context, filter *FilterBuilder) (int64, error)
}
