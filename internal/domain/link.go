package domain

import "time"

// LifecycleState describes where a Link sits in its three-state lifecycle.
// Legal transitions: Active -> SoftDeleted -> Destroyed, Active -> Destroyed.
type LifecycleState string

const (
	StateActive      LifecycleState = "active"
	StateSoftDeleted LifecycleState = "soft_deleted"
	// StateDestroyed is never observed on a loaded row: a destroyed Link has
	// no row at all. It exists so the state machine can be named in full.
	StateDestroyed LifecycleState = "destroyed"
)

// Link maps a short code to a destination URL. The short code is unique
// across all rows, soft-deleted included, so a retired code can never be
// reassigned.
type Link struct {
	ID               int64      `gorm:"primaryKey;column:id" json:"id"`
	ShortCode        string     `gorm:"column:short_code;uniqueIndex;size:32;not null" json:"shortCode"`
	OriginalURL      string     `gorm:"column:original_url;type:text;not null" json:"originalUrl"`
	Title            *string    `gorm:"column:title;size:255" json:"title,omitempty"`
	Description      *string    `gorm:"column:description;type:text" json:"description,omitempty"`
	ClickCount       int64      `gorm:"column:click_count;not null;default:0" json:"clicks"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
	ExpiresAt        *time.Time `gorm:"column:expires_at" json:"expiresAt,omitempty"`
	IsActive         bool       `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatorIP        *string    `gorm:"column:creator_ip;size:45" json:"userIp,omitempty"`
	CreatorUserAgent *string    `gorm:"column:creator_user_agent;type:text" json:"userAgent,omitempty"`

	// Relationships
	ClickEvents []ClickEvent `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name used by GORM.
func (Link) TableName() string {
	return "links"
}

// State reports the lifecycle state of a loaded row.
func (l *Link) State() LifecycleState {
	if l.IsActive {
		return StateActive
	}
	return StateSoftDeleted
}

// IsExpired reports whether the link is past its expiry as of now. Expiry is
// a presentation-time policy: expired links stay visible to admin tooling.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
