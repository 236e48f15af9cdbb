package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// SQLiteSnapshots stores identity snapshots in the snapshots table.
type SQLiteSnapshots struct {
	db *sql.DB
}

func NewSQLiteSnapshots(db *sql.DB) *SQLiteSnapshots {
	return &SQLiteSnapshots{db: db}
}

func (s *SQLiteSnapshots) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM snapshots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrapf(err, "select snapshot %s", key)
	}
	return []byte(value), true, nil
}

func (s *SQLiteSnapshots) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO snapshots(key,value,updated_at) VALUES(?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, string(value), time.Now())
	return errors.Wrapf(err, "upsert snapshot %s", key)
}

func (s *SQLiteSnapshots) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	return errors.Wrapf(err, "delete snapshot %s", key)
}

// RedisSnapshots stores identity snapshots as plain string keys under a
// prefix.
type RedisSnapshots struct {
	inner  *redis.Client
	prefix string
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisSnapshots connects and pings the server.
func NewRedisSnapshots(ctx context.Context, opts RedisOptions) (*RedisSnapshots, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrapf(err, "ping redis %s", opts.Addr)
	}
	return &RedisSnapshots{inner: client, prefix: opts.Prefix}, nil
}

func (r *RedisSnapshots) redisKey(key string) string {
	return r.prefix + key
}

func (r *RedisSnapshots) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.inner.Get(ctx, r.redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrapf(err, "redis get %s", key)
	}
	return b, true, nil
}

func (r *RedisSnapshots) Put(ctx context.Context, key string, value []byte) error {
	return errors.Wrapf(r.inner.Set(ctx, r.redisKey(key), value, 0).Err(), "redis set %s", key)
}

func (r *RedisSnapshots) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(r.inner.Del(ctx, r.redisKey(key)).Err(), "redis del %s", key)
}

func (r *RedisSnapshots) Close() error {
	return r.inner.Close()
}
