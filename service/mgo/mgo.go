package mgo

import (
	"context"
	"sync"
	"time"

	"chatserve/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config represents the MongoDB configuration.
type Config struct {
	URI         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
	MaxRetry    int
}

func (c *Config) validateAndSetDefaults() error {
	if c.URI == "" {
		return errs.New("mongo uri is required")
	}
	if c.Database == "" {
		return errs.New("mongo database is required")
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 20
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = 3
	}
	if c.Username != "" && c.AuthSource == "" {
		c.AuthSource = "admin"
	}
	return nil
}

func applyConfigToOptions(cfg *Config) *options.ClientOptions {
	opts := options.Client().ApplyURI(cfg.URI)
	opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}
	return opts
}

var (
	mu sync.RWMutex
	db *mongo.Database
)

// Init connects with bounded retry and pings before declaring the store ready.
func Init(ctx context.Context, cfg *Config) error {
	if err := cfg.validateAndSetDefaults(); err != nil {
		return err
	}
	opts := applyConfigToOptions(cfg)

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connectMongo(ctx, opts)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second / 2):
		}
	}
	if err != nil {
		return errs.WrapMsg(err, "failed to connect to MongoDB", "uri", cfg.URI)
	}

	mu.Lock()
	db = cli.Database(cfg.Database)
	mu.Unlock()
	return nil
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return cli, nil
}

// GetDB returns the connected database. Panics if Init has not run; models
// resolve their collections through this at call time, not at package init.
func GetDB() *mongo.Database {
	mu.RLock()
	defer mu.RUnlock()
	if db == nil {
		panic("mongo not initialized, call mgo.Init first")
	}
	return db
}

// EnsureIndexes creates the unique account indexes.
func EnsureIndexes(ctx context.Context) error {
	users := GetDB().Collection("users")
	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return errs.WrapMsg(err, "create user indexes")
}

// Close disconnects the client.
func Close(ctx context.Context) error {
	mu.RLock()
	defer mu.RUnlock()
	if db == nil {
		return nil
	}
	return db.Client().Disconnect(ctx)
}
