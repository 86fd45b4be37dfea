package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"kurogo/assistant"
	"kurogo/config"
	"kurogo/knowledge"
	"kurogo/logging"
	"kurogo/storage"
	"kurogo/websearch"
)

const connectTimeout = 10 * time.Second

type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	engine    *knowledge.Engine
	assistant *assistant.Assistant
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func openApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfgPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	envFile, _ := cmd.Flags().GetString("env-file")

	dotenvErr := config.LoadDotEnv(envFile)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return nil, err
	}
	if dotenvErr != nil {
		logger.Warn("dotenv not loaded", zap.Error(dotenvErr))
	}

	a := &app{cfg: cfg, logger: logger}
	conn, closeConn, err := openStorage(ctx, cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	a.closers = append(a.closers, closeConn)

	a.engine, err = knowledge.New(ctx,
		knowledge.WithStorageConn(conn),
		knowledge.WithLogger(logger),
		knowledge.WithClassifier(cfg.Classifier.Enabled),
		knowledge.WithConfidenceThreshold(cfg.Classifier.ConfidenceThreshold),
		knowledge.WithMinTrainingRecords(cfg.Classifier.MinRecords),
		knowledge.WithContextSize(cfg.Context.Size),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []assistant.Option{assistant.WithLogger(logger)}
	if cfg.Web.Enabled {
		webOpts := []websearch.Option{
			websearch.WithEngine(cfg.Web.Engine),
			websearch.WithBaseURL(cfg.Web.BaseURL),
			websearch.WithTimeout(cfg.Web.Timeout),
			websearch.WithNegativeTTL(cfg.Web.NegativeCacheTTL),
			websearch.WithLogger(logger),
		}
		if cfg.Web.UserAgent != "" {
			webOpts = append(webOpts, websearch.WithUserAgent(cfg.Web.UserAgent))
		}
		opts = append(opts, assistant.WithWeb(websearch.New(webOpts...)))
	}
	a.assistant = assistant.New(a.engine, opts...)
	return a, nil
}

// openStorage returns a connection value storage.Manager understands and
// a func that releases it.
func openStorage(ctx context.Context, cfg *config.Config) (any, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverFile:
		return storage.Dir(cfg.DataDir), func() {}, nil

	case config.DriverSQLite:
		dsn := cfg.Storage.DSN
		if dsn == "" {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = cfg.SQLitePath()
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		return storage.SQLConn{DB: db, Dialect: config.DriverSQLite}, func() { _ = db.Close() }, nil

	case config.DriverPostgres:
		db, err := sql.Open("pgx", cfg.Storage.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return storage.SQLConn{DB: db, Dialect: config.DriverPostgres}, func() { _ = db.Close() }, nil

	case config.DriverMongo:
		connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		client, err := mongo.Connect(connCtx, options.Client().ApplyURI(cfg.Storage.DSN))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongodb: %w", err)
		}
		if err := client.Ping(connCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ping mongodb: %w", err)
		}
		return client.Database(cfg.Storage.Database), func() { _ = client.Disconnect(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
