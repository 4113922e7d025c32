package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"huddled/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "huddled.db")
	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := Migrate(context.Background(), database); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return database
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
users:
  - deviceToken: tok-1
    name: Ada
groups:
  - inviteCode: abcd1234
    modelId: m1
    creator: tok-1
    title: Demo
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	file, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile() error = %v", err)
	}
	if len(file.Users) != 1 || file.Users[0].DeviceToken != "tok-1" {
		t.Errorf("users = %+v", file.Users)
	}
	if len(file.Groups) != 1 || file.Groups[0].InviteCode != "abcd1234" {
		t.Errorf("groups = %+v", file.Groups)
	}
}

func TestSeed(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	file := &SeedFile{
		Users: []SeedUser{
			{DeviceToken: "tok-1", Name: "Ada"},
			{DeviceToken: "tok-2", Name: "Grace"},
		},
		Groups: []SeedGroup{
			{InviteCode: "abcd1234", ModelID: "m1", Creator: "tok-1", Members: []string{"tok-2"}},
		},
	}

	if err := Seed(ctx, database, file); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	var group models.Group
	if err := database.Preload("Members").Where(&models.Group{InviteCode: "abcd1234"}).First(&group).Error; err != nil {
		t.Fatalf("load seeded group: %v", err)
	}
	if len(group.Members) != 2 {
		t.Errorf("seeded members = %d, want creator plus one", len(group.Members))
	}

	// Seeding again must not duplicate rows.
	if err := Seed(ctx, database, file); err != nil {
		t.Fatalf("Seed() second run error = %v", err)
	}

	var count int64
	if err := database.Model(&models.GroupMember{}).Count(&count).Error; err != nil {
		t.Fatalf("count members: %v", err)
	}
	if count != 2 {
		t.Errorf("membership rows after reseed = %d, want 2", count)
	}
}

func TestSeedUnknownCreator(t *testing.T) {
	database := newTestDB(t)

	file := &SeedFile{
		Groups: []SeedGroup{
			{InviteCode: "abcd1234", ModelID: "m1", Creator: "ghost"},
		},
	}

	if err := Seed(context.Background(), database, file); err == nil {
		t.Fatal("Seed() expected error for unknown creator")
	}
}
