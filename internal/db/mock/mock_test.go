package mock

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"homedeck/internal/access"
	"homedeck/models"
)

func TestNewSeedsExpectedRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, "file:mock-seed-test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("mock database initialization failed: %v", err)
	}

	var account models.Account
	if err := db.WithContext(ctx).Where("email = ?", OwnerEmail).First(&account).Error; err != nil {
		t.Fatalf("query owner account: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(SeedPassword)); err != nil {
		t.Fatalf("unexpected password hash: %v", err)
	}

	var owner models.Profile
	if err := db.WithContext(ctx).First(&owner, "id = ?", account.ID).Error; err != nil {
		t.Fatalf("query owner profile: %v", err)
	}
	if owner.AccessLevel != access.LevelOwner {
		t.Fatalf("owner access level = %q", owner.AccessLevel)
	}
	if len(owner.Apps) != 3 {
		t.Fatalf("expected seeded shortcuts, got %d", len(owner.Apps))
	}

	var visits int64
	if err := db.WithContext(ctx).Model(&models.Visit{}).Count(&visits).Error; err != nil {
		t.Fatalf("count visits: %v", err)
	}
	if visits == 0 {
		t.Fatal("expected seeded visits")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := "file:mock-idempotent-test?mode=memory&cache=shared"
	first, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := Open(ctx, dsn); err != nil {
		t.Fatalf("second open: %v", err)
	}

	var accounts int64
	if err := first.WithContext(ctx).Model(&models.Account{}).Count(&accounts).Error; err != nil {
		t.Fatalf("count accounts: %v", err)
	}
	if accounts != 2 {
		t.Fatalf("expected 2 accounts after reopening, got %d", accounts)
	}
}
