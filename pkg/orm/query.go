// Package orm is a thin read-side helper over gorm: chainable filters,
// pagination, and read-through caching in Redis.
package orm

import (
	"context"
	"time"

	"github.com/rituelsdebene/boutique/pkg/cache"
	"github.com/rituelsdebene/boutique/pkg/database"
	"github.com/rituelsdebene/boutique/pkg/metrics"
	"gorm.io/gorm"
)

// Pagination is returned alongside paginated listings.
type Pagination struct {
	Page     int   `json:"page"`
	Limit    int   `json:"limit"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

type Query struct {
	db *gorm.DB
}

// DB starts a query on the global pool.
func DB() *Query {
	return &Query{db: database.DB}
}

// On starts a query on db (a transaction or a test database).
func On(db *gorm.DB) *Query {
	return &Query{db: db}
}

func (q *Query) WithContext(ctx context.Context) *Query {
	return &Query{db: q.db.WithContext(ctx)}
}

func (q *Query) Model(v interface{}) *Query {
	return &Query{db: q.db.Model(v)}
}

func (q *Query) Table(name string, args ...interface{}) *Query {
	return &Query{db: q.db.Table(name, args...)}
}

func (q *Query) Select(query interface{}, args ...interface{}) *Query {
	return &Query{db: q.db.Select(query, args...)}
}

func (q *Query) Joins(query string, args ...interface{}) *Query {
	return &Query{db: q.db.Joins(query, args...)}
}

func (q *Query) Where(query interface{}, args ...interface{}) *Query {
	return &Query{db: q.db.Where(query, args...)}
}

func (q *Query) Order(value interface{}) *Query {
	return &Query{db: q.db.Order(value)}
}

func (q *Query) Preload(query string, args ...interface{}) *Query {
	return &Query{db: q.db.Preload(query, args...)}
}

func (q *Query) Get(dest interface{}) error {
	defer metrics.ObserveDBQuery("select", time.Now())
	return q.db.Find(dest).Error
}

func (q *Query) First(dest interface{}) error {
	defer metrics.ObserveDBQuery("select", time.Now())
	return q.db.First(dest).Error
}

// Scan runs a raw projection (joins, computed columns) into dest.
func (q *Query) Scan(dest interface{}) error {
	defer metrics.ObserveDBQuery("select", time.Now())
	return q.db.Scan(dest).Error
}

// Paginate loads one page into dest. page starts at 1.
func (q *Query) Paginate(dest interface{}, page, limit int) (Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := q.db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	defer metrics.ObserveDBQuery("select", time.Now())
	if err := q.db.Offset((page - 1) * limit).Limit(limit).Find(dest).Error; err != nil {
		return Pagination{}, err
	}

	last := int((total + int64(limit) - 1) / int64(limit))
	if last == 0 {
		last = 1
	}
	return Pagination{Page: page, Limit: limit, Total: total, LastPage: last}, nil
}

// Cache serves dest from Redis when present, otherwise runs the query and
// stores the result for ttl. Without Redis it always hits the database.
func (q *Query) Cache(key string, ttl time.Duration, dest interface{}) error {
	if cache.Get(key, dest) {
		return nil
	}

	if err := q.Get(dest); err != nil {
		return err
	}

	_ = cache.Set(key, dest, ttl)
	return nil
}
