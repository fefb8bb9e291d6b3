package database

import (
	"context"
	"errors"

	"github.com/xompass/remote-association/http_errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	ID      = "id"
	AND     = "$and"
	DELETED = "deleted"
	TYPE    = "$type"
)

// Error codes for mongo_repository
const (
	MONGO_CONNECTOR_TYPE_MISMATCH = "MONGO_CONNECTOR_TYPE_MISMATCH"
	MONGO_CONNECTOR_NIL           = "MONGO_CONNECTOR_NIL"
	MONGO_CLIENT_NOT_INITIALIZED  = "MONGO_CLIENT_NOT_INITIALIZED"
	MONGO_DATABASE_NAME_REQUIRED  = "MONGO_DATABASE_NAME_REQUIRED"
	MONGO_ID_CANNOT_BE_NIL        = "MONGO_ID_CANNOT_BE_NIL"
	MONGO_NO_DOCUMENTS_FOUND      = "MONGO_NO_DOCUMENTS_FOUND"
	MONGO_INVALID_FILTER          = "MONGO_INVALID_FILTER"
	MONGO_OPERATION_FAILED        = "MONGO_OPERATION_FAILED"
	MONGO_CONNECTION_ERROR        = "MONGO_CONNECTION_ERROR"
)

// mapMongoError maps MongoDB errors to standardized http_errors
func mapMongoError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return http_errors.NotFoundErrorWithCode(MONGO_NO_DOCUMENTS_FOUND, "document not found")
	}

	var commandErr mongo.CommandError
	if errors.As(err, &commandErr) {
		return http_errors.BadRequestErrorWithCode(MONGO_OPERATION_FAILED, "command failed: "+commandErr.Message)
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return http_errors.InternalServerErrorWithCode(MONGO_CONNECTION_ERROR, "database connection error")
	}

	return http_errors.InternalServerErrorWithCode(MONGO_OPERATION_FAILED, "database operation failed: "+err.Error())
}

type RepositoryOptions struct {
	// Deleted hides soft-deleted documents, those with a "deleted" date.
	Deleted bool
}

type MongoRepository[T IModel] struct {
	Options    RepositoryOptions
	collection *mongo.Collection
	schema     *Schema
	connector  *MongoConnector
}

func NewMongoRepository[T IModel](ds *Datasource, options RepositoryOptions) (Repository[T], error) {
	var instance T
	schema := NewSchema(instance)

	if err := ds.RegisterModel(instance); err != nil {
		return nil, err
	}

	tmp, err := ds.GetModelConnector(instance)
	if err != nil {
		return nil, err
	}

	connector, ok := tmp.(*MongoConnector)
	if !ok {
		return nil, http_errors.InternalServerErrorWithCode(MONGO_CONNECTOR_TYPE_MISMATCH, "the connector for model "+instance.GetModelName()+" is not a MongoConnector")
	}

	if connector == nil {
		return nil, http_errors.InternalServerErrorWithCode(MONGO_CONNECTOR_NIL, "connector is nil")
	}

	client, ok := connector.GetDriver().(*mongo.Client)
	if !ok || client == nil {
		return nil, http_errors.InternalServerErrorWithCode(MONGO_CLIENT_NOT_INITIALIZED, "the MongoDB client is not initialized correctly")
	}

	databaseName := connector.GetDatabaseName()
	if databaseName == "" {
		return nil, http_errors.BadRequestErrorWithCode(MONGO_DATABASE_NAME_REQUIRED, "database name is required")
	}

	repository := &MongoRepository[T]{
		Options:    options,
		collection: client.Database(databaseName).Collection(instance.GetTableName()),
		schema:     schema,
		connector:  connector,
	}

	if err := RegisterDatasourceRepository(ds, instance, Repository[T](repository)); err != nil {
		return nil, err
	}

	return repository, nil
}

func (repository *MongoRepository[T]) GetCollection() *mongo.Collection {
	return repository.collection
}

func (repository *MongoRepository[T]) GetSchema() *Schema {
	return repository.schema
}

func (repository *MongoRepository[T]) GetConnector() Connector {
	return repository.connector
}

func (repository *MongoRepository[T]) Find(ctx context.Context, filterBuilder *FilterBuilder) ([]T, error) {
	query, parsedFilter, err := repository.buildQuery(filterBuilder)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find()
	if len(parsedFilter.Options.Sort) > 0 {
		findOpts.SetSort(parsedFilter.Options.Sort)
	}
	if parsedFilter.Options.Limit != nil {
		findOpts.SetLimit(*parsedFilter.Options.Limit)
	}
	if parsedFilter.Options.Skip != nil {
		findOpts.SetSkip(*parsedFilter.Options.Skip)
	}
	if parsedFilter.Options.Fields != nil {
		findOpts.SetProjection(parsedFilter.Options.Fields)
	}

	cursor, err := repository.collection.Find(ctx, query, findOpts)
	if err != nil {
		return nil, mapMongoError(err)
	}

	var receiver []T
	if err = cursor.All(ctx, &receiver); err != nil {
		return nil, mapMongoError(err)
	}

	if receiver == nil {
		return []T{}, nil
	}
	return receiver, nil
}

func (repository *MongoRepository[T]) FindOne(ctx context.Context, filterBuilder *FilterBuilder) (*T, error) {
	query, parsedFilter, err := repository.buildQuery(filterBuilder)
	if err != nil {
		return nil, err
	}

	findOneOptions := options.FindOne()
	if len(parsedFilter.Options.Sort) > 0 {
		findOneOptions.SetSort(parsedFilter.Options.Sort)
	}
	if parsedFilter.Options.Skip != nil {
		findOneOptions.SetSkip(*parsedFilter.Options.Skip)
	}
	if parsedFilter.Options.Fields != nil {
		findOneOptions.SetProjection(parsedFilter.Options.Fields)
	}

	result := repository.collection.FindOne(ctx, query, findOneOptions)
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, mapMongoError(result.Err())
	}

	receiver := new(T)
	if err := result.Decode(receiver); err != nil {
		return nil, mapMongoError(err)
	}
	return receiver, nil
}

func (repository *MongoRepository[T]) FindById(ctx context.Context, id any, filterBuilder *FilterBuilder) (*T, error) {
	if id == nil {
		return nil, http_errors.BadRequestErrorWithCode(MONGO_ID_CANNOT_BE_NIL, "id cannot be nil")
	}

	filterClone := NewFilter()
	if filterBuilder != nil {
		filterClone = filterBuilder.Clone()
	}
	filterClone.WithWhere(NewWhere().Eq(ID, id))

	return repository.FindOne(ctx, filterClone)
}

func (repository *MongoRepository[T]) Count(ctx context.Context, filterBuilder *FilterBuilder) (int64, error) {
	query, _, err := repository.buildQuery(filterBuilder)
	if err != nil {
		return 0, err
	}

	count, err := repository.collection.CountDocuments(ctx, query)
	if err != nil {
		return 0, mapMongoError(err)
	}
	return count, nil
}

func (repository *MongoRepository[T]) buildQuery(filterBuilder *FilterBuilder) (bson.M, MongoFilter, error) {
	if filterBuilder == nil {
		filterBuilder = NewFilter()
	}

	filter, err := filterBuilder.Build()
	if err != nil {
		return nil, MongoFilter{}, http_errors.BadRequestErrorWithCode(MONGO_INVALID_FILTER, err.Error())
	}

	parsedFilter, err := adaptLoopbackFilter(*filter, repository.schema)
	if err != nil {
		return nil, MongoFilter{}, http_errors.BadRequestErrorWithCode(MONGO_INVALID_FILTER, err.Error())
	}

	query := parsedFilter.Where
	if repository.Options.Deleted {
		query = getSoftDeleteQuery(query)
	}
	return query, parsedFilter, nil
}

func getSoftDeleteQuery(query bson.M) bson.M {
	return bson.M{
		AND: []any{
			query,
			bson.M{DELETED: bson.M{TYPE: 10}},
		},
	}
}
