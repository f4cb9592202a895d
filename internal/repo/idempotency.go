package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

// IdemKey identifies a remembered POST result. Scope is the route template
// plus the resource id the request acted on.
type IdemKey struct {
	UserID string
	Scope  string
	Key    string
}

func (k IdemKey) where(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ? AND scope = ? AND key = ?", k.UserID, k.Scope, k.Key)
}

// GetIdempotency returns the record for k that is still live at now, or
// ErrNotFound. A blank scope never matches.
func GetIdempotency(ctx context.Context, db *gorm.DB, k IdemKey, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(k.Scope) == "" {
		return nil, ErrNotFound
	}
	rec := new(domain.Idempotency)
	if err := k.where(db.WithContext(ctx)).Where("expires_at > ?", now).Take(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveIdempotency remembers resourceID and status under k for ttl. A second
// save for the same key yields ErrDuplicate.
func SaveIdempotency(ctx context.Context, db *gorm.DB, k IdemKey, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     k.UserID,
		Scope:      k.Scope,
		Key:        k.Key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	err := db.WithContext(ctx).Create(rec).Error
	switch {
	case err == nil:
		return rec, nil
	case isUniqueViolation(err):
		return nil, ErrDuplicate
	default:
		return nil, err
	}
}

// PurgeExpiredIdempotency deletes records that are no longer live at now.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
