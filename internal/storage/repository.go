package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Repository is the storage boundary the pipeline and API depend on.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetProduct loads a tracked product by id.
	GetProduct(ctx context.Context, id uint) (*Product, error)

	// CreateProduct inserts the product; when the URL is already tracked
	// it loads the existing row into p instead.
	CreateProduct(ctx context.Context, p *Product) error

	// ListProductIDs enumerates all tracked product ids in ascending order.
	ListProductIDs(ctx context.Context) ([]uint, error)

	// AppendObservation appends one price observation and commits.
	AppendObservation(ctx context.Context, obs *PriceObservation) error

	// ListObservations returns a product's history ordered by timestamp.
	ListObservations(ctx context.Context, productID uint) ([]PriceObservation, error)

	// LatestObservation returns the most recent observation for a product.
	LatestObservation(ctx context.Context, productID uint) (*PriceObservation, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a Repository backed by the given gorm handle.
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Connect opens the PostgreSQL connection, retrying with exponential backoff
// while the database comes up.
func Connect(ctx context.Context, dsn string) (*gorm.DB, error) {
	var db *gorm.DB

	backoff := retry.WithMaxRetries(5, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var openErr error
		db, openErr = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if openErr != nil {
			return retry.RetryableError(openErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func (r *gormRepository) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var p Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) CreateProduct(ctx context.Context, p *Product) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.db.WithContext(ctx).Where("url = ?", p.URL).First(p).Error
	}
	return err
}

func (r *gormRepository) ListProductIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&Product{}).Order("id asc").Pluck("id", &ids).Error
	return ids, err
}

func (r *gormRepository) AppendObservation(ctx context.Context, obs *PriceObservation) error {
	return r.db.WithContext(ctx).Create(obs).Error
}

func (r *gormRepository) ListObservations(ctx context.Context, productID uint) ([]PriceObservation, error) {
	var rows []PriceObservation
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("timestamp asc").
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) LatestObservation(ctx context.Context, productID uint) (*PriceObservation, error) {
	var obs PriceObservation
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("timestamp desc").
		First(&obs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &obs, nil
}
