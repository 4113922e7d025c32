package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"huddled/internal/models"
)

// SeedFile describes demo data loaded by the seed command.
type SeedFile struct {
	Users  []SeedUser  `yaml:"users"`
	Groups []SeedGroup `yaml:"groups"`
}

// SeedUser declares a user keyed by device token.
type SeedUser struct {
	DeviceToken string `yaml:"deviceToken"`
	Name        string `yaml:"name"`
}

// SeedGroup declares a group with a fixed invite code and its members
// referenced by device token. The creator is always enrolled.
type SeedGroup struct {
	InviteCode      string   `yaml:"inviteCode"`
	ModelID         string   `yaml:"modelId"`
	Creator         string   `yaml:"creator"`
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	ExpirationHours *float64 `yaml:"expirationHours"`
	Members         []string `yaml:"members"`
}

// LoadSeedFile parses a YAML seed file from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &file, nil
}

// Seed inserts the declared users, groups, and memberships. Existing rows
// with the same unique keys are left untouched.
func Seed(ctx context.Context, database *gorm.DB, file *SeedFile) error {
	if file == nil {
		return nil
	}

	users := make(map[string]uuid.UUID, len(file.Users))

	return database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, su := range file.Users {
			if su.DeviceToken == "" {
				return fmt.Errorf("seed user without deviceToken")
			}
			user := models.User{ID: uuid.New(), DeviceToken: su.DeviceToken, Name: su.Name}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
				return err
			}
			var stored models.User
			if err := tx.Where(&models.User{DeviceToken: su.DeviceToken}).First(&stored).Error; err != nil {
				return err
			}
			users[su.DeviceToken] = stored.ID
		}

		for _, sg := range file.Groups {
			creatorID, ok := users[sg.Creator]
			if !ok {
				return fmt.Errorf("seed group %q references unknown creator %q", sg.InviteCode, sg.Creator)
			}

			group := models.Group{
				ID:          uuid.New(),
				InviteCode:  sg.InviteCode,
				ModelID:     sg.ModelID,
				CreatorID:   creatorID,
				Title:       sg.Title,
				Description: sg.Description,
			}
			if sg.ExpirationHours != nil {
				expires := time.Now().UTC().Add(time.Duration(*sg.ExpirationHours * float64(time.Hour)))
				group.ExpiresAt = &expires
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&group).Error; err != nil {
				return err
			}
			var stored models.Group
			if err := tx.Where(&models.Group{InviteCode: sg.InviteCode}).First(&stored).Error; err != nil {
				return err
			}

			members := append([]string{sg.Creator}, sg.Members...)
			for _, token := range members {
				userID, ok := users[token]
				if !ok {
					return fmt.Errorf("seed group %q references unknown member %q", sg.InviteCode, token)
				}
				member := models.GroupMember{ID: uuid.New(), UserID: userID, GroupID: stored.ID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
}
