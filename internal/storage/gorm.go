package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"outpost/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Profile struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex"`
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	IsAdmin      bool
	IsApproved   bool
	Permissions  string
	Clearance    int
	XP           int
	CreatedAt    time.Time
}

type GlobalConfigRow struct {
	ID               int `gorm:"primaryKey"`
	SiteName         string
	Tagline          string
	IsEmergency      bool
	IsTerminal       bool
	IsIntel          bool
	CountdownEnabled bool
	CountdownTarget  time.Time
	CountdownTitle   string
	McssURL          string
}

type Notification struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	Body      string
	Level     string
	CreatedAt time.Time
}

type NotificationRead struct {
	UserID         string `gorm:"primaryKey"`
	NotificationID string `gorm:"primaryKey"`
}

type RoadmapItem struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	Body      string
	Phase     string
	Done      bool
	SortOrder int
	CreatedAt time.Time
}

type McssConfig struct {
	Key    string `gorm:"primaryKey"`
	APIKey string
}

type IntelAsset struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Code         string `gorm:"uniqueIndex"`
	MinClearance int
}

type UserUnlock struct {
	UserID  string `gorm:"primaryKey"`
	AssetID string `gorm:"primaryKey"`
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(path string) (*GormStore, error) {
	newLogger := gormlogger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		gormlogger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Error,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&Profile{},
		&GlobalConfigRow{},
		&Notification{},
		&NotificationRead{},
		&RoadmapItem{},
		&McssConfig{},
		&IntelAsset{},
		&UserUnlock{},
	)
	if err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	store := &GormStore{db: db}

	if err := store.initGlobalConfig(); err != nil {
		return nil, fmt.Errorf("error initializing global config: %w", err)
	}

	return store, nil
}

// initGlobalConfig seeds the single config row (id=1) on first run.
func (s *GormStore) initGlobalConfig() error {
	var row GlobalConfigRow
	result := s.db.First(&row, "id = ?", 1)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			defaults := domain.DefaultGlobalConfig()
			return s.db.Create(&GlobalConfigRow{
				ID:         1,
				SiteName:   defaults.SiteName,
				IsTerminal: defaults.TerminalEnabled,
				IsIntel:    defaults.IntelEnabled,
			}).Error
		}
		return result.Error
	}
	return nil
}

func encodePermissions(perms map[string]bool) string {
	if perms == nil {
		perms = map[string]bool{}
	}
	data, _ := json.Marshal(perms)
	return string(data)
}

func decodePermissions(raw string) map[string]bool {
	perms := make(map[string]bool)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &perms); err != nil {
			return make(map[string]bool)
		}
	}
	return perms
}

func (s *GormStore) toIdentity(p *Profile) (*domain.Identity, error) {
	readIDs, err := s.ListReadIDs(p.ID)
	if err != nil {
		return nil, err
	}

	identity := &domain.Identity{
		ID:            p.ID,
		Email:         p.Email,
		DisplayName:   p.DisplayName,
		AvatarURL:     p.AvatarURL,
		IsAdmin:       p.IsAdmin,
		IsApproved:    p.IsApproved,
		Permissions:   decodePermissions(p.Permissions),
		ReadBannerIDs: readIDs,
		Clearance:     p.Clearance,
		XP:            p.XP,
	}
	identity.Normalize()
	return identity, nil
}

func (s *GormStore) CreateProfile(identity *domain.Identity, passwordHash string) error {
	return s.db.Create(&Profile{
		ID:           identity.ID,
		Email:        identity.Email,
		DisplayName:  identity.DisplayName,
		AvatarURL:    identity.AvatarURL,
		PasswordHash: passwordHash,
		IsAdmin:      identity.IsAdmin,
		IsApproved:   identity.IsApproved,
		Permissions:  encodePermissions(identity.Permissions),
		Clearance:    identity.Clearance,
		XP:           identity.XP,
		CreatedAt:    time.Now(),
	}).Error
}

func (s *GormStore) GetProfileByID(id string) (*domain.Identity, error) {
	var p Profile
	result := s.db.First(&p, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying profile: %w", result.Error)
	}
	return s.toIdentity(&p)
}

func (s *GormStore) GetProfileByEmail(email string) (*domain.Identity, error) {
	var p Profile
	result := s.db.First(&p, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying profile: %w", result.Error)
	}
	return s.toIdentity(&p)
}

func (s *GormStore) GetPasswordHash(id string) (string, error) {
	var p Profile
	result := s.db.First(&p, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("profile not found: %s", id)
		}
		return "", result.Error
	}
	return p.PasswordHash, nil
}

// UpdateProfile applies a partial update. Map keys use column names
// (display_name, avatar_url, permissions, clearance, xp, is_approved...).
func (s *GormStore) UpdateProfile(id string, fields map[string]any) error {
	if len(fields) == 0 {
		return errors.New("no fields to update")
	}
	if perms, ok := fields["permissions"].(map[string]bool); ok {
		fields["permissions"] = encodePermissions(perms)
	}
	return s.db.Model(&Profile{}).Where("id = ?", id).Updates(fields).Error
}

func (s *GormStore) UpdatePasswordHash(id string, hash string) error {
	return s.db.Model(&Profile{}).Where("id = ?", id).Update("password_hash", hash).Error
}

// GetGlobalConfig returns the single config row as raw backend field names,
// the shape the config synchronizer normalizes from.
func (s *GormStore) GetGlobalConfig() (map[string]any, error) {
	var row GlobalConfigRow
	result := s.db.First(&row, "id = ?", 1)
	if result.Error != nil {
		return nil, fmt.Errorf("error querying global config: %w", result.Error)
	}

	return map[string]any{
		"site_name":            row.SiteName,
		"tagline":              row.Tagline,
		"is_emergency_enabled": row.IsEmergency,
		"is_terminal_enabled":  row.IsTerminal,
		"is_intel_enabled":     row.IsIntel,
		"countdown_enabled":    row.CountdownEnabled,
		"countdown_target":     row.CountdownTarget,
		"countdown_title":      row.CountdownTitle,
		"mcss_url":             row.McssURL,
	}, nil
}

var configColumns = map[string]string{
	"site_name":            "site_name",
	"tagline":              "tagline",
	"is_emergency_enabled": "is_emergency",
	"is_terminal_enabled":  "is_terminal",
	"is_intel_enabled":     "is_intel",
	"countdown_enabled":    "countdown_enabled",
	"countdown_target":     "countdown_target",
	"countdown_title":      "countdown_title",
	"mcss_url":             "mcss_url",
}

// UpdateGlobalConfig writes only the keys present in the patch. Unknown
// keys are rejected so a typo cannot silently no-op.
func (s *GormStore) UpdateGlobalConfig(patch map[string]any) error {
	if len(patch) == 0 {
		return errors.New("no fields to update")
	}

	updates := make(map[string]any, len(patch))
	for key, value := range patch {
		column, ok := configColumns[key]
		if !ok {
			return fmt.Errorf("unknown config field: %s", key)
		}
		updates[column] = value
	}

	return s.db.Model(&GlobalConfigRow{}).Where("id = ?", 1).Updates(updates).Error
}

func (s *GormStore) getKey(key string) (string, error) {
	var cfg McssConfig
	result := s.db.First(&cfg, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return cfg.APIKey, nil
}

func (s *GormStore) setKey(key string, apiKey string) error {
	var cfg McssConfig
	result := s.db.First(&cfg, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return s.db.Create(&McssConfig{Key: key, APIKey: apiKey}).Error
		}
		return result.Error
	}
	return s.db.Model(&cfg).Update("api_key", apiKey).Error
}

func (s *GormStore) GetMasterKey(tier string) (string, error) {
	return s.getKey("tier:" + tier)
}

func (s *GormStore) SetMasterKey(tier string, key string) error {
	return s.setKey("tier:"+tier, key)
}

func (s *GormStore) GetUserKey(userID string) (string, error) {
	return s.getKey("user:" + userID)
}

func (s *GormStore) SetUserKey(userID string, key string) error {
	return s.setKey("user:"+userID, key)
}

func (s *GormStore) ListNotifications() ([]domain.Notification, error) {
	var rows []Notification
	if err := s.db.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, domain.Notification{
			ID:        row.ID,
			Title:     row.Title,
			Body:      row.Body,
			Level:     row.Level,
			CreatedAt: row.CreatedAt,
		})
	}
	return notifications, nil
}

func (s *GormStore) CreateNotification(n *domain.Notification) error {
	return s.db.Create(&Notification{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Level:     n.Level,
		CreatedAt: n.CreatedAt,
	}).Error
}

// DeleteNotification removes every read-receipt referencing the
// notification before removing the row itself, so no user's read-list
// keeps a dangling id.
func (s *GormStore) DeleteNotification(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&NotificationRead{}, "notification_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Notification{}, "id = ?", id).Error
	})
}

func (s *GormStore) MarkRead(userID, notificationID string) error {
	var existing NotificationRead
	result := s.db.First(&existing, "user_id = ? AND notification_id = ?", userID, notificationID)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return s.db.Create(&NotificationRead{UserID: userID, NotificationID: notificationID}).Error
}

func (s *GormStore) MarkAllRead(userID string, notificationIDs []string) error {
	for _, id := range notificationIDs {
		if err := s.MarkRead(userID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) ListReadIDs(userID string) ([]string, error) {
	var rows []NotificationRead
	if err := s.db.Find(&rows, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.NotificationID)
	}
	return ids, nil
}

func (s *GormStore) ListRoadmapItems() ([]domain.RoadmapItem, error) {
	var rows []RoadmapItem
	if err := s.db.Order("sort_order asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]domain.RoadmapItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.RoadmapItem{
			ID:        row.ID,
			Title:     row.Title,
			Body:      row.Body,
			Phase:     row.Phase,
			Done:      row.Done,
			SortOrder: row.SortOrder,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func (s *GormStore) CreateRoadmapItem(item *domain.RoadmapItem) error {
	return s.db.Create(&RoadmapItem{
		ID:        item.ID,
		Title:     item.Title,
		Body:      item.Body,
		Phase:     item.Phase,
		Done:      item.Done,
		SortOrder: item.SortOrder,
		CreatedAt: item.CreatedAt,
	}).Error
}

func (s *GormStore) UpdateRoadmapItem(id string, fields map[string]any) error {
	if len(fields) == 0 {
		return errors.New("no fields to update")
	}
	return s.db.Model(&RoadmapItem{}).Where("id = ?", id).Updates(fields).Error
}

func (s *GormStore) DeleteRoadmapItem(id string) error {
	return s.db.Delete(&RoadmapItem{}, "id = ?", id).Error
}

func (s *GormStore) ListAssets() ([]domain.IntelAsset, error) {
	var rows []IntelAsset
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}

	assets := make([]domain.IntelAsset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, domain.IntelAsset{
			ID:           row.ID,
			Name:         row.Name,
			Code:         row.Code,
			MinClearance: row.MinClearance,
		})
	}
	return assets, nil
}

func (s *GormStore) GetAssetByCode(code string) (*domain.IntelAsset, error) {
	var row IntelAsset
	result := s.db.First(&row, "code = ?", code)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &domain.IntelAsset{
		ID:           row.ID,
		Name:         row.Name,
		Code:         row.Code,
		MinClearance: row.MinClearance,
	}, nil
}

func (s *GormStore) CreateAsset(asset *domain.IntelAsset) error {
	return s.db.Create(&IntelAsset{
		ID:           asset.ID,
		Name:         asset.Name,
		Code:         asset.Code,
		MinClearance: asset.MinClearance,
	}).Error
}

func (s *GormStore) ListUnlockedAssetIDs(userID string) ([]string, error) {
	var rows []UserUnlock
	if err := s.db.Find(&rows, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.AssetID)
	}
	return ids, nil
}

func (s *GormStore) AddUnlock(userID, assetID string) error {
	var existing UserUnlock
	result := s.db.First(&existing, "user_id = ? AND asset_id = ?", userID, assetID)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return s.db.Create(&UserUnlock{UserID: userID, AssetID: assetID}).Error
}

// CountReadsFor reports how many read-receipts still reference the
// notification. Used by admin cleanup checks.
func (s *GormStore) CountReadsFor(notificationID string) (int64, error) {
	var count int64
	err := s.db.Model(&NotificationRead{}).Where("notification_id = ?", notificationID).Count(&count).Error
	return count, err
}
