package repository

import (
	"context"
	"errors"
	"time"

	"delegate-portal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultPageSize = 20

type OrderListFilter struct {
	UserID *uuid.UUID
	Status *models.OrderStatus
	Limit  int
	Offset int
}

// scope narrows a query to the filter's owner and status.
func (f OrderListFilter) scope(db *gorm.DB) *gorm.DB {
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	return db
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	// LockForUser is GetByIDForUser with a row lock held until the
	// surrounding transaction ends. Outside a transaction the lock is
	// released immediately.
	LockForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	// CompareAndSetStatus moves the order to `to` only while it is still in
	// `from`. It reports false when another writer got there first.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, updatedBy string, at time.Time) (bool, error)
	List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *orderRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	return r.first(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *orderRepo) LockForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	return r.firstFrom(ctx, r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ? AND user_id = ?", id, userID)
}

func (r *orderRepo) first(ctx context.Context, cond string, args ...any) (*models.Order, error) {
	return r.firstFrom(ctx, r.db, cond, args...)
}

// firstFrom loads one order with its lines in checkout order; nil when absent.
func (r *orderRepo) firstFrom(ctx context.Context, db *gorm.DB, cond string, args ...any) (*models.Order, error) {
	var ord models.Order
	err := db.WithContext(ctx).
		Preload("Items", withItemPosition).
		Where(cond, args...).
		Take(&ord).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &ord, nil
}

func (r *orderRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, updatedBy string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":             to,
			"updated_by":         updatedBy,
			"last_status_change": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepo) List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Order{}).Scopes(f.scope)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*models.Order{}, 0, nil
	}

	limit, offset := f.Limit, max(f.Offset, 0)
	if limit <= 0 {
		limit = defaultPageSize
	}

	var page []*models.Order
	err := r.db.WithContext(ctx).
		Scopes(f.scope).
		Preload("Items", withItemPosition).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&page).Error
	return page, total, err
}

func (r *orderRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var found bool
	err := r.db.WithContext(ctx).
		Raw(`SELECT EXISTS (SELECT 1 FROM orders WHERE id = ?)`, id).
		Scan(&found).Error
	return found, err
}

func withItemPosition(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.position ASC")
}
