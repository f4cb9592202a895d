package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

func TestCreateTalk_LinksCategories(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	tk := seedTalk(t, db, "multi", true, fx.backend.ID, fx.web.ID)

	var links int64
	db.Model(&domain.TalkCategory{}).Where("talk_id = ?", tk.ID).Count(&links)
	if links != 2 {
		t.Fatalf("expected 2 category links, got %d", links)
	}
	got, err := GetTalk(context.Background(), db, tk.ID)
	if err != nil {
		t.Fatalf("GetTalk: %v", err)
	}
	if got.State != domain.TalkProposed || !got.IsAnonymized {
		t.Fatalf("unexpected talk: %+v", got)
	}
}

func TestGetTalk_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := GetTalk(context.Background(), db, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// withdraw marks a talk withdrawn the way the proposals system would.
func withdraw(t *testing.T, db *gorm.DB, id uint) {
	t.Helper()
	if err := db.Model(&domain.Talk{}).Where("id = ?", id).Update("state", domain.TalkWithdrawn).Error; err != nil {
		t.Fatalf("withdraw talk %d: %v", id, err)
	}
}
