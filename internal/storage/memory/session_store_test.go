package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/models"
)

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore(common.GetLogger())
	ctx := context.Background()

	creds := &models.MotorCredentials{
		PublicKey:          "pk-1",
		ApiTokenKey:        "tk-1",
		ApiTokenValue:      "tv-1",
		ApiTokenExpiration: time.Now().Add(time.Hour).Format(time.RFC3339),
		CookieString:       "AuthUserInfo=abc; session=1",
	}

	id, err := store.Create(ctx, creds)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id == "" {
		t.Fatal("Create() returned empty id")
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PublicKey != "pk-1" || got.CookieString != creds.CookieString {
		t.Errorf("Get() = %+v", got)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 1 {
		t.Errorf("Count() = %d, %v, want 1", count, err)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("Get() after delete = %v, want ErrSessionNotFound", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	store := NewSessionStore(common.GetLogger())

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("Get(unknown) = %v, want ErrSessionNotFound", err)
	}
}

func TestDeleteUnknownSession(t *testing.T) {
	store := NewSessionStore(common.GetLogger())

	if err := store.Delete(context.Background(), "nope"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("Delete(unknown) = %v, want ErrSessionNotFound", err)
	}
}

func TestExpiredSessionDeletedOnRead(t *testing.T) {
	store := NewSessionStore(common.GetLogger())
	ctx := context.Background()

	creds := &models.MotorCredentials{
		PublicKey:          "pk-old",
		ApiTokenExpiration: time.Now().Add(-time.Minute).Format(time.RFC3339),
	}

	id, err := store.Create(ctx, creds)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// First read hits the expired entry and removes it.
	if _, err := store.Get(ctx, id); !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("Get(expired) = %v, want ErrSessionNotFound", err)
	}

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("Count() after expired read = %d, want 0", count)
	}
}

func TestCreateRequiresCredentials(t *testing.T) {
	store := NewSessionStore(common.GetLogger())

	if _, err := store.Create(context.Background(), nil); err == nil {
		t.Error("Create(nil) should fail")
	}
}
