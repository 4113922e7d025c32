package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"huddled/internal/metrics"
	"huddled/internal/models"
	"huddled/pkg/db"
)

// codeAllocAttempts bounds both the check loop and insert retries for
// invite code allocation. The code space (36^8) dwarfs any plausible row
// count, so exhausting this budget means something is badly wrong.
const codeAllocAttempts = 8

// Store holds external dependencies required by the group service. ORM
// carries all domain reads and writes; DB is an optional raw pool used
// for aggregate statistics. Now is an injectable clock for expiry checks.
type Store struct {
	DB  *pgxpool.Pool
	ORM *gorm.DB
	Now func() time.Time
}

// New wires a Store over the provided GORM handle and optional raw pool.
func New(orm *gorm.DB, pool *pgxpool.Pool) *Store {
	return &Store{DB: pool, ORM: orm}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// EnsureUser resolves an opaque device token to its user row, creating
// one on first sight. A duplicate-key error from a concurrent first
// request is resolved by re-reading the winner's row.
func (s *Store) EnsureUser(ctx context.Context, deviceToken string) (*models.User, error) {
	orm := s.ORM.WithContext(ctx)

	var user models.User
	err := orm.Where(&models.User{DeviceToken: deviceToken}).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{ID: uuid.New(), DeviceToken: deviceToken}
	err = orm.Create(&user).Error
	if err == nil {
		return &user, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var existing models.User
		if err := orm.Where(&models.User{DeviceToken: deviceToken}).First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return nil, err
}

// UserByToken looks up a user without creating one.
func (s *Store) UserByToken(ctx context.Context, deviceToken string) (*models.User, error) {
	var user models.User
	err := s.ORM.WithContext(ctx).Where(&models.User{DeviceToken: deviceToken}).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// allocateCode produces an invite code not currently held by any group.
// This is only the fast path: the unique index on invite_code remains
// the authoritative guard, and CreateGroup retries on insert conflicts.
func (s *Store) allocateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeAllocAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}

		var count int64
		err = s.ORM.WithContext(ctx).
			Model(&models.Group{}).
			Where("invite_code = ?", code).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
		metrics.InviteCodeCollisions.Inc()
	}
	return "", ErrCodeExhausted
}

// CreateGroupParams carries the caller-supplied fields for CreateGroup.
// Title, Description, and Metadata are free-form and unvalidated.
type CreateGroupParams struct {
	DeviceToken     string
	ModelID         string
	Title           string
	Description     string
	ExpirationHours *float64
	Metadata        map[string]any
}

// CreateGroup creates a group and enrolls its creator as the first
// member inside a single transaction, so a failed membership insert
// cannot leave an orphan group behind.
func (s *Store) CreateGroup(ctx context.Context, p CreateGroupParams) (*models.Group, error) {
	creator, err := s.EnsureUser(ctx, p.DeviceToken)
	if err != nil {
		return nil, fmt.Errorf("ensure creator: %w", err)
	}

	var expiresAt *time.Time
	if p.ExpirationHours != nil {
		expires := s.now().Add(time.Duration(*p.ExpirationHours * float64(time.Hour)))
		expiresAt = &expires
	}

	var metadata datatypes.JSONMap
	if p.Metadata != nil {
		metadata = datatypes.JSONMap(p.Metadata)
	}

	var groupID uuid.UUID
	for attempt := 0; attempt < codeAllocAttempts; attempt++ {
		code, err := s.allocateCode(ctx)
		if err != nil {
			return nil, err
		}

		group := models.Group{
			ID:          uuid.New(),
			InviteCode:  code,
			ModelID:     p.ModelID,
			CreatorID:   creator.ID,
			Title:       p.Title,
			Description: p.Description,
			Metadata:    metadata,
			ExpiresAt:   expiresAt,
		}

		err = s.ORM.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&group).Error; err != nil {
				return err
			}
			member := models.GroupMember{
				ID:       uuid.New(),
				UserID:   creator.ID,
				GroupID:  group.ID,
				JoinedAt: s.now(),
			}
			return tx.Create(&member).Error
		})
		if err == nil {
			groupID = group.ID
			break
		}
		// Another allocation won the code between check and insert.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			metrics.InviteCodeCollisions.Inc()
			continue
		}
		return nil, err
	}
	if groupID == uuid.Nil {
		return nil, ErrCodeExhausted
	}

	metrics.GroupsCreated.Inc()
	metrics.MembersJoined.Inc()
	return s.groupByID(ctx, groupID)
}

// JoinGroup adds the user behind deviceToken to the group identified by
// the invite code. The membership existence check is a fast path; the
// (user, group) unique index catches concurrent joins.
func (s *Store) JoinGroup(ctx context.Context, deviceToken, code string) (*models.Group, error) {
	user, err := s.EnsureUser(ctx, deviceToken)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	group, err := s.GroupByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var count int64
	err = s.ORM.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("user_id = ? AND group_id = ?", user.ID, group.ID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyMember
	}

	member := models.GroupMember{
		ID:       uuid.New(),
		UserID:   user.ID,
		GroupID:  group.ID,
		JoinedAt: s.now(),
	}
	if err := s.ORM.WithContext(ctx).Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	metrics.MembersJoined.Inc()
	// Reload so the member count reflects the state after the insert.
	return s.groupByID(ctx, group.ID)
}

// GroupByCode returns the full group graph for an invite code, or
// ErrGroupNotFound / ErrGroupExpired.
func (s *Store) GroupByCode(ctx context.Context, code string) (*models.Group, error) {
	var group models.Group
	err := s.ORM.WithContext(ctx).
		Preload("Creator").
		Preload("Members.User").
		Where(&models.Group{InviteCode: code}).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	if group.Expired(s.now()) {
		return nil, ErrGroupExpired
	}
	return &group, nil
}

func (s *Store) groupByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	err := s.ORM.WithContext(ctx).
		Preload("Creator").
		Preload("Members.User").
		First(&group, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GroupsForUser lists groups the user belongs to, through the
// membership relation. Unknown tokens map to ErrUserNotFound.
func (s *Store) GroupsForUser(ctx context.Context, deviceToken string) ([]models.Group, error) {
	user, err := s.UserByToken(ctx, deviceToken)
	if err != nil {
		return nil, err
	}

	var groups []models.Group
	err = s.ORM.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", user.ID).
		Order("group_members.joined_at").
		Preload("Creator").
		Preload("Members.User").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupsCreatedBy lists groups whose creator is the user behind the
// device token.
func (s *Store) GroupsCreatedBy(ctx context.Context, deviceToken string) ([]models.Group, error) {
	user, err := s.UserByToken(ctx, deviceToken)
	if err != nil {
		return nil, err
	}

	var groups []models.Group
	err = s.ORM.WithContext(ctx).
		Where(&models.Group{CreatorID: user.ID}).
		Order("created_at").
		Preload("Creator").
		Preload("Members.User").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Stats holds row counts reported by the stats endpoint.
type Stats struct {
	Users   int64        `db:"users" json:"users"`
	Groups  int64        `db:"groups" json:"groups"`
	Members int64        `db:"members" json:"members"`
	Models  []ModelCount `db:"-" json:"models"`
}

// ModelCount is the number of groups referencing one external model.
type ModelCount struct {
	ModelID string `db:"model_id" json:"modelId"`
	Groups  int64  `db:"groups" json:"groups"`
}

// ErrStatsUnavailable is returned when no raw pool is configured.
var ErrStatsUnavailable = errors.New("stats unavailable: no database pool")

// CountStats reports table row counts and a per-model breakdown through
// the raw pool.
func (s *Store) CountStats(ctx context.Context) (Stats, error) {
	if s.DB == nil {
		return Stats{}, ErrStatsUnavailable
	}

	var stats Stats
	query := `
        SELECT
            (SELECT count(*) FROM users) AS users,
            (SELECT count(*) FROM groups) AS groups,
            (SELECT count(*) FROM group_members) AS members;
    `
	if err := db.Get(ctx, s.DB, &stats, query); err != nil {
		return Stats{}, err
	}

	modelQuery := `
        SELECT model_id, count(*) AS groups
        FROM groups
        GROUP BY model_id
        ORDER BY groups DESC, model_id;
    `
	if err := db.Select(ctx, s.DB, &stats.Models, modelQuery); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
