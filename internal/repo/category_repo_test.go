package repo

import (
	"context"
	"errors"
	"testing"
)

func TestCreateCategory_DuplicateNamePerConference(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	ctx := context.Background()

	if _, err := CreateCategory(ctx, db, fx.conf.ID, "backend"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	other, err := EnsureConference(ctx, db, ConferenceSettings{Name: "Other"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateCategory(ctx, db, other.ID, "backend"); err != nil {
		t.Fatalf("same name in another conference should be allowed: %v", err)
	}
}

func TestGetCategory_ScopedToConference(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	ctx := context.Background()

	got, err := GetCategory(ctx, db, fx.conf.ID, fx.web.ID)
	if err != nil || got.Name != "web" {
		t.Fatalf("GetCategory: %+v %v", got, err)
	}
	if _, err := GetCategory(ctx, db, fx.conf.ID+1, fx.web.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign conference, got %v", err)
	}
}

func TestListCategoryProgress(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	ctx := context.Background()

	a := seedTalk(t, db, "a", true, fx.backend.ID)
	b := seedTalk(t, db, "b", true, fx.backend.ID)
	c := seedTalk(t, db, "c", true, fx.backend.ID)
	seedTalk(t, db, "hidden", false, fx.backend.ID)
	seedTalk(t, db, "w", true, fx.web.ID)

	// voted a, skipped b, reserved c: only a stops counting.
	va, _ := CreateVote(ctx, db, "u1", a.ID)
	decide(t, db, va, intPtr(1), boolPtr(false))
	vb, _ := CreateVote(ctx, db, "u1", b.ID)
	decide(t, db, vb, nil, boolPtr(true))
	if _, err := CreateVote(ctx, db, "u1", c.ID); err != nil {
		t.Fatal(err)
	}

	got, err := ListCategoryProgress(ctx, db, fx.conf.ID, "u1")
	if err != nil {
		t.Fatalf("ListCategoryProgress: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %+v", got)
	}
	if got[0].Name != "backend" || got[0].Remaining != 2 {
		t.Fatalf("unexpected backend progress: %+v", got[0])
	}
	if got[1].Name != "web" || got[1].Remaining != 1 {
		t.Fatalf("unexpected web progress: %+v", got[1])
	}
}
