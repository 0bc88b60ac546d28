package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/ichigozero/focusflow/authsvc"
	authgorm "github.com/ichigozero/focusflow/authsvc/db/gorm"
	authmongo "github.com/ichigozero/focusflow/authsvc/db/mongo"
	authinmem "github.com/ichigozero/focusflow/authsvc/inmem"
	"github.com/ichigozero/focusflow/tasksvc"
	taskgorm "github.com/ichigozero/focusflow/tasksvc/db/gorm"
	taskmongo "github.com/ichigozero/focusflow/tasksvc/db/mongo"
	taskinmem "github.com/ichigozero/focusflow/tasksvc/inmem"
	libmongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultMongoDatabase = "focusflow"

var ErrUnsupportedScheme = errors.New("unsupported database URL scheme")

// Store bundles the repositories of one backing database.
type Store struct {
	Users authsvc.UserRepository
	Tasks tasksvc.TaskRepository

	close func() error
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open picks a driver from the scheme of databaseURL: postgres, sqlite,
// mongodb, mongodb+srv or inmem. Schemas and indexes are created on open.
func Open(ctx context.Context, databaseURL string, logger log.Logger) (*Store, error) {
	// url.Parse rejects DSNs such as sqlite://:memory:, so only the scheme
	// is split off here.
	scheme, rest, _ := strings.Cut(databaseURL, "://")

	switch scheme {
	case "inmem":
		return &Store{
			Users: authinmem.NewUserRepository(),
			Tasks: taskinmem.NewTaskRepository(),
		}, nil
	case "postgres", "postgresql":
		return openGorm(postgres.Open(databaseURL), false, logger)
	case "sqlite", "sqlite3":
		return openGorm(sqlite.Open(rest), strings.Contains(rest, ":memory:"), logger)
	case "mongodb", "mongodb+srv":
		return openMongo(ctx, databaseURL)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
}

func openGorm(dialector libgorm.Dialector, memory bool, kitLogger log.Logger) (*Store, error) {
	db, err := libgorm.Open(dialector, &libgorm.Config{
		Logger: logger.New(gormWriter{kitLogger}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if memory {
		// Each connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&authsvc.User{}, &tasksvc.Task{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{
		Users: authgorm.NewUserRepository(db),
		Tasks: taskgorm.NewTaskRepository(db),
		close: sqlDB.Close,
	}, nil
}

func openMongo(ctx context.Context, uri string) (*Store, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	database := cs.Database
	if database == "" {
		database = defaultMongoDatabase
	}

	client, err := libmongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	disconnect := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Disconnect(ctx)
	}

	if err := client.Ping(ctx, nil); err != nil {
		disconnect()
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	if err := authmongo.EnsureUserIndexes(ctx, db); err != nil {
		disconnect()
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	if err := taskmongo.EnsureTaskIndexes(ctx, db); err != nil {
		disconnect()
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}

	return &Store{
		Users: authmongo.NewUserRepository(db),
		Tasks: taskmongo.NewTaskRepository(db),
		close: disconnect,
	}, nil
}

// gormWriter sends gorm's log lines to the service logger.
type gormWriter struct {
	logger log.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	level.Warn(w.logger).Log("component", "gorm", "msg", fmt.Sprintf(format, args...))
}
