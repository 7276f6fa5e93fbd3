package domain

type ProfileRepository interface {
	CreateProfile(identity *Identity, passwordHash string) error
	GetProfileByID(id string) (*Identity, error)
	GetProfileByEmail(email string) (*Identity, error)
	GetPasswordHash(id string) (string, error)
	UpdateProfile(id string, fields map[string]any) error
	UpdatePasswordHash(id string, hash string) error
}

type ConfigRepository interface {
	GetGlobalConfig() (map[string]any, error)
	UpdateGlobalConfig(patch map[string]any) error
	GetMasterKey(tier string) (string, error)
	SetMasterKey(tier string, key string) error
	GetUserKey(userID string) (string, error)
	SetUserKey(userID string, key string) error
}

type NotificationRepository interface {
	ListNotifications() ([]Notification, error)
	CreateNotification(n *Notification) error
	DeleteNotification(id string) error
	MarkRead(userID, notificationID string) error
	MarkAllRead(userID string, notificationIDs []string) error
	ListReadIDs(userID string) ([]string, error)
}

type RoadmapRepository interface {
	ListRoadmapItems() ([]RoadmapItem, error)
	CreateRoadmapItem(item *RoadmapItem) error
	UpdateRoadmapItem(id string, fields map[string]any) error
	DeleteRoadmapItem(id string) error
}

type IntelRepository interface {
	ListAssets() ([]IntelAsset, error)
	GetAssetByCode(code string) (*IntelAsset, error)
	ListUnlockedAssetIDs(userID string) ([]string, error)
	AddUnlock(userID, assetID string) error
}

type Repository interface {
	ProfileRepository
	ConfigRepository
	NotificationRepository
	RoadmapRepository
	IntelRepository
}
