package sqlitestore

import (
	"context"
	"errors"
	"testing"

	"github.com/aegisgate/identityd/internal/domain/auth"
)

func TestGroupStore_UpsertAndGet(t *testing.T) {
	db := openTestDB(t)
	s := db.Groups()
	ctx := context.Background()

	g := &auth.Group{ID: "grp_1", DisplayName: "admins", Members: []auth.Member{{Value: "usr_1"}}}
	if err := s.Upsert(ctx, g); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get(ctx, "grp_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.DisplayName != "admins" || len(got.Members) != 1 {
		t.Errorf("got = %+v", got)
	}
}

func TestGroupStore_GetNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Groups().Get(context.Background(), "missing")
	if !errors.Is(err, auth.ErrGroupNotFound) {
		t.Fatalf("err = %v, want ErrGroupNotFound", err)
	}
}

func TestGroupStore_FindByDisplayNameCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	s := db.Groups()
	ctx := context.Background()
	_ = s.Upsert(ctx, &auth.Group{ID: "grp_1", DisplayName: "Admins"})

	got, err := s.FindByDisplayName(ctx, "admins")
	if err != nil {
		t.Fatalf("FindByDisplayName: %v", err)
	}
	if got.ID != "grp_1" {
		t.Errorf("ID = %q, want grp_1", got.ID)
	}
}

func TestGroupStore_UpsertDuplicateDisplayNameIsConflict(t *testing.T) {
	db := openTestDB(t)
	s := db.Groups()
	ctx := context.Background()
	_ = s.Upsert(ctx, &auth.Group{ID: "grp_1", DisplayName: "admins"})

	err := s.Upsert(ctx, &auth.Group{ID: "grp_2", DisplayName: "ADMINS"})
	if !errors.Is(err, auth.ErrDuplicateDisplayName) {
		t.Fatalf("err = %v, want ErrDuplicateDisplayName", err)
	}
}

func TestGroupStore_ListUnsupportedFilterIsBadFilter(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Groups().List(context.Background(), auth.Filter{Attr: "members", Value: "u1"})
	if !errors.Is(err, auth.ErrBadFilter) {
		t.Fatalf("err = %v, want ErrBadFilter", err)
	}
}

func TestGroupStore_Delete(t *testing.T) {
	db := openTestDB(t)
	s := db.Groups()
	ctx := context.Background()
	_ = s.Upsert(ctx, &auth.Group{ID: "grp_1", DisplayName: "admins"})

	if err := s.Delete(ctx, "grp_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "grp_1"); !errors.Is(err, auth.ErrGroupNotFound) {
		t.Fatalf("Get after Delete = %v, want ErrGroupNotFound", err)
	}
}

func TestGroupStore_DeleteNotFound(t *testing.T) {
	db := openTestDB(t)
	if err := db.Groups().Delete(context.Background(), "missing"); !errors.Is(err, auth.ErrGroupNotFound) {
		t.Fatalf("err = %v, want ErrGroupNotFound", err)
	}
}
