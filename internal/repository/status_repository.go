package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/opsdesk/incident-service/internal/domain"
)

// StatusRepository resolves status reference rows. The status set lives in
// the data store, not in code, so lookups go by exact name.
type StatusRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Status, error)
}

type statusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository returns a Postgres-backed implementation. GetByName
// surfaces pgx.ErrNoRows when no status carries the given name.
func NewStatusRepository(pool *pgxpool.Pool) StatusRepository {
	return &statusRepository{pool: pool}
}

func (r *statusRepository) GetByName(ctx context.Context, name string) (*domain.Status, error) {
	const query = `SELECT status_id, status_name FROM incident_statuses WHERE status_name = $1`

	var status domain.Status
	if err := r.pool.QueryRow(ctx, query, name).Scan(&status.ID, &status.Name); err != nil {
		return nil, err
	}
	return &status, nil
}

type cachedStatusRepository struct {
	inner  StatusRepository
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStatusRepository wraps a StatusRepository with a redis
// read-through cache. The status catalog is a small, near-static reference
// set, so positive lookups are cached; misses and redis failures fall through
// to the inner repository.
func NewCachedStatusRepository(inner StatusRepository, client *redis.Client, ttl time.Duration) StatusRepository {
	return &cachedStatusRepository{inner: inner, client: client, ttl: ttl}
}

func (r *cachedStatusRepository) GetByName(ctx context.Context, name string) (*domain.Status, error) {
	key := "incident-service:status:" + name
	if val, err := r.client.Get(ctx, key).Result(); err == nil {
		if id, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
			return &domain.Status{ID: id, Name: name}, nil
		}
	}

	status, err := r.inner.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	_ = r.client.Set(ctx, key, strconv.FormatInt(status.ID, 10), r.ttl).Err()
	return status, nil
}
