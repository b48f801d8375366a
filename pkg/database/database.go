// Package database 提供 SQLite 连接池：每条物理连接在交付前都已执行建表脚本。
package database

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/contest-communication/config"
	"github.com/d60-Lab/contest-communication/pkg/errs"
	"github.com/d60-Lab/contest-communication/pkg/logger"
)

// Schema is executed on every new physical connection. Every statement is
// CREATE ... IF NOT EXISTS so running it again is a no-op.
//
//go:embed schema.sql
var Schema string

const driverName = "sqlite3_communication"

var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				_, err := conn.Exec(Schema, nil)
				return err
			},
		})
	})
}

// Pool 有界连接池；同一时刻每条连接只服务一个操作。
type Pool struct {
	db             *gorm.DB
	sqlDB          *sql.DB
	acquireTimeout time.Duration
}

// Connect opens the database at cfg.Path. It fails with a ConnectionError when
// the file cannot be opened or the schema script cannot run.
func Connect(cfg config.DatabaseConfig) (*Pool, error) {
	registerDriver()

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 8
	}
	acquire := cfg.AcquireTimeout
	if acquire <= 0 {
		acquire = 5 * time.Second
	}

	gormLog := gormlogger.Default.LogMode(gormlogger.Silent)
	if logger.L().Core().Enabled(zap.DebugLevel) {
		gormLog = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(&sqlite.Dialector{
		DriverName: driverName,
		DSN:        dsn(cfg.Path),
	}, &gorm.Config{Logger: gormLog})
	if err != nil {
		if db != nil {
			if sqlDB, derr := db.DB(); derr == nil {
				_ = sqlDB.Close()
			}
		}
		return nil, errs.Connection(err, "open "+cfg.Path)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.Connection(err, "unwrap sql.DB")
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)

	// gorm 已 ping 过一次；这里再显式确认建表脚本在连接上成功执行
	ctx, cancel := context.WithTimeout(context.Background(), acquire)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errs.Connection(err, "initialize schema")
	}

	logger.Info("database pool ready",
		zap.String("path", cfg.Path),
		zap.Int("max_open_conns", maxOpen),
		zap.Duration("acquire_timeout", acquire))
	return &Pool{db: db, sqlDB: sqlDB, acquireTimeout: acquire}, nil
}

// dsn 附加 WAL、busy_timeout 与 immediate 事务锁，避免并发读写时立即返回 SQLITE_BUSY
func dsn(path string) string {
	params := []string{}
	if !strings.Contains(path, "_journal_mode") {
		params = append(params, "_journal_mode=WAL")
	}
	if !strings.Contains(path, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !strings.Contains(path, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

// WithConn checks out one connection, runs fn against a gorm session bound to
// it, and returns the connection on every exit path, panics included. Waiting
// for a free connection is bounded by the acquire timeout.
func (p *Pool) WithConn(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	conn, err := p.sqlDB.Conn(acquireCtx)
	cancel()
	if err != nil {
		return errs.Connection(err, "acquire connection")
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = errs.Connection(cerr, "release connection")
		}
	}()

	tx := p.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	tx.Statement.ConnPool = conn
	return fn(tx)
}

// Stats 连接池统计
func (p *Pool) Stats() sql.DBStats { return p.sqlDB.Stats() }

// DB exposes the underlying gorm handle for provisioning tools.
func (p *Pool) DB() *gorm.DB { return p.db }

func (p *Pool) Close() error {
	return errors.Wrap(p.sqlDB.Close(), "close database")
}
