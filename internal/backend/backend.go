// Package backend opens the store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/config"
	"github.com/trogers1052/stock-history-loader/internal/database"
	"github.com/trogers1052/stock-history-loader/internal/dynamo"
	"github.com/trogers1052/stock-history-loader/internal/redisstore"
	"github.com/trogers1052/stock-history-loader/internal/store"
)

// Open constructs the configured store. The returned close func releases
// its connections and is never nil.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Loader.Backend {
	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Dynamo.Region))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Dynamo.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Dynamo.Endpoint)
			}
		})
		st := dynamo.New(client, awsCfg.Credentials, dynamo.Options{
			ReadCapacity:  cfg.Dynamo.ReadCapacity,
			WriteCapacity: cfg.Dynamo.WriteCapacity,
			WaitTimeout:   cfg.Dynamo.WaitTimeout,
		}, log)
		return st, noop, nil

	case config.BackendPostgres:
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil

	case config.BackendRedis:
		rs, err := redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, noop, err
		}
		return rs, rs.Close, nil
	}

	return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Loader.Backend)
}
