package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"nework/pkg/auth"
	"nework/pkg/changefeed"
	"nework/pkg/mediacache"
	"nework/pkg/remote"
	"nework/pkg/repository"
	"nework/pkg/storage"
	"nework/pkg/store"
)

const (
	STORE_SQLITE    = "sqlite"
	STORE_MONGODB   = "mongodb"
	SESSION_SQL     = "sql"
	SESSION_REDIS   = "redis"
	SESSION_KEY     = "nework:session"
	DEFAULT_DB_PATH = "nework.db"
)

type backends struct {
	repo           *repository.Repository
	holder         *auth.Holder
	storeBackend   string
	sessionBackend string
	closers        []func() error
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// open wires the repository from config. Optional backends stay disabled
// while their address is empty.
func open(ctx context.Context, opts serverOptions, logger *slog.Logger) (_ *backends, err error) {
	b := &backends{
		storeBackend:   opts.StoreBackend,
		sessionBackend: opts.SessionBackend,
	}
	if b.storeBackend == "" {
		b.storeBackend = STORE_SQLITE
	}
	if b.sessionBackend == "" {
		b.sessionBackend = SESSION_SQL
	}
	defer func() {
		if err != nil {
			b.close()
		}
	}()

	var publisher changefeed.Publisher = changefeed.Nop{}
	if opts.RabbitMQAddr != "" {
		ch, conn, err := storage.RabbitMQClient(opts.RabbitMQUsername, opts.RabbitMQPassword, opts.RabbitMQAddr, opts.RabbitMQPort)
		if err != nil {
			return nil, err
		}
		amqpPublisher, err := changefeed.NewAMQPPublisher(ch, conn, opts.ChangefeedExchange)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
		b.closers = append(b.closers, amqpPublisher.Close)
		publisher = amqpPublisher
	}
	storeOpts := store.Options{Publisher: publisher, Logger: logger}

	var db *sql.DB
	sqlite := func() (*sql.DB, error) {
		if db != nil {
			return db, nil
		}
		path := opts.SQLitePath
		if path == "" {
			path = DEFAULT_DB_PATH
		}
		var err error
		db, err = storage.SQLiteDB(ctx, path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		return db, nil
	}

	var st *store.Store
	switch b.storeBackend {
	case STORE_SQLITE:
		db, err := sqlite()
		if err != nil {
			return nil, err
		}
		if st, err = store.OpenSQLite(ctx, db, storeOpts); err != nil {
			return nil, err
		}
	case STORE_MONGODB:
		client, err := storage.MongoDBClient(ctx, opts.MongoDBAddr, opts.MongoDBPort)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error { return client.Disconnect(context.Background()) })
		database := opts.MongoDBDatabase
		if database == "" {
			database = "nework"
		}
		if st, err = store.OpenMongo(ctx, client, database, storeOpts); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", b.storeBackend)
	}

	var sessions auth.Storage
	switch b.sessionBackend {
	case SESSION_SQL:
		db, err := sqlite()
		if err != nil {
			return nil, err
		}
		if sessions, err = auth.SQLStorage(ctx, db); err != nil {
			return nil, err
		}
	case SESSION_REDIS:
		client := storage.RedisClient(opts.RedisAddr, opts.RedisPort)
		b.closers = append(b.closers, client.Close)
		sessions = auth.RedisStorage(client, SESSION_KEY)
	default:
		return nil, fmt.Errorf("unknown session backend %q", b.sessionBackend)
	}
	if b.holder, err = auth.NewHolder(ctx, sessions, logger); err != nil {
		return nil, err
	}

	var media mediacache.Cache = mediacache.Nop{}
	if opts.MemCachedAddr != "" {
		media = mediacache.NewMemcached(storage.MemCachedClient(opts.MemCachedAddr, opts.MemCachedPort), mediacache.DEFAULT_TTL)
	}

	client, err := remote.New(opts.BaseURL, remote.WithTokenSource(b.holder), remote.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	b.repo = repository.New(st, client, b.holder, media, logger, repository.Options{PruneOnRefresh: opts.PruneOnRefresh})
	return b, nil
}
