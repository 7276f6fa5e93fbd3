package domain

type Identity struct {
	ID            string          `json:"id"`
	Email         string          `json:"email"`
	DisplayName   string          `json:"displayName"`
	AvatarURL     string          `json:"avatarUrl"`
	IsAdmin       bool            `json:"isAdmin"`
	IsApproved    bool            `json:"isApproved"`
	Permissions   map[string]bool `json:"permissions"`
	ReadBannerIDs []string        `json:"readBannerIds"`
	Clearance     int             `json:"clearance"`
	XP            int             `json:"xp"`
}

// NewIdentity returns an empty identity with non-nil collections so
// consumers never have to nil-check permissions or read ids.
func NewIdentity() *Identity {
	return &Identity{
		Permissions:   make(map[string]bool),
		ReadBannerIDs: []string{},
	}
}

// Normalize backfills nil collections on identities hydrated from storage.
func (i *Identity) Normalize() {
	if i.Permissions == nil {
		i.Permissions = make(map[string]bool)
	}
	if i.ReadBannerIDs == nil {
		i.ReadBannerIDs = []string{}
	}
}

func (i *Identity) HasRead(bannerID string) bool {
	for _, id := range i.ReadBannerIDs {
		if id == bannerID {
			return true
		}
	}
	return false
}
