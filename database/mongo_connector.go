package database

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/xompass/remote-association/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

type MongoConnectorOpts struct {
	options.ClientOptions
	Name     string
	Database string
}

type MongoConnector struct {
	ctx     context.Context
	client  *mongo.Client
	options *MongoConnectorOpts
}

// NewMongoConnector connects to MongoDB with opts and checks the connection.
func NewMongoConnector(opts *MongoConnectorOpts) (*MongoConnector, error) {
	connector := &MongoConnector{
		ctx:     context.Background(),
		options: opts,
	}

	if err := connector.connect(); err != nil {
		return nil, err
	}

	if err := connector.Ping(); err != nil {
		return nil, err
	}

	return connector, nil
}

// NewMongoConnectorFromConfig builds the connector options from cfg. The
// database defaults to the one in the URI, then to "test".
func NewMongoConnectorFromConfig(cfg config.MongoConfig) (*MongoConnector, error) {
	opts, err := MongoConnectorOptions(cfg)
	if err != nil {
		return nil, err
	}
	return NewMongoConnector(opts)
}

func MongoConnectorOptions(cfg config.MongoConfig) (*MongoConnectorOpts, error) {
	conn, err := connstring.Parse(cfg.URI)
	if err != nil {
		return nil, err
	}

	database := cfg.Database
	if database == "" {
		database = conn.Database
	}
	if database == "" {
		database = "test"
	}

	name := cfg.Name
	if name == "" {
		name = "mongodb"
	}

	return &MongoConnectorOpts{
		ClientOptions: *options.Client().ApplyURI(cfg.URI),
		Name:          name,
		Database:      database,
	}, nil
}

func (receiver *MongoConnector) connect() error {
	opts := receiver.options.ClientOptions

	client, err := mongo.Connect(&opts)
	if err != nil {
		return err
	}

	receiver.client = client
	return nil
}

func (receiver *MongoConnector) Ping() error {
	if receiver.client == nil {
		return errors.New("mongo client not initialized")
	}
	return receiver.client.Ping(receiver.ctx, nil)
}

func (receiver *MongoConnector) Disconnect() error {
	if receiver.client == nil {
		return errors.New("mongo client not initialized")
	}
	return receiver.client.Disconnect(receiver.ctx)
}

// GetDriver returns the underlying *mongo.Client.
func (receiver *MongoConnector) GetDriver() any {
	return receiver.client
}

func (receiver *MongoConnector) GetName() string {
	return receiver.options.Name
}

func (receiver *MongoConnector) GetDatabaseName() string {
	return receiver.options.Database
}

func (receiver *MongoConnector) GetOptions() MongoConnectorOpts {
	return *receiver.options
}
