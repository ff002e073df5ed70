package domain

import "time"

// UserAccount is a registered casino player
type UserAccount struct {
	UserID       int64     `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Username     string    `json:"username,omitempty"`
	Nickname     string    `json:"nickname"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Balance      int64     `json:"balance"`
	RegisteredAt time.Time `json:"registered_at"`
}

// UserProfile is a restaurant customer
type UserProfile struct {
	UserID        int64     `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	Username      string    `json:"username,omitempty"`
	MinecraftName string    `json:"minecraft_name"`
	Banned        bool      `json:"banned"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// Staff sections used as forum topics in the staff group
const (
	SectionOrders       = "orders"
	SectionSponsors     = "sponsors"
	SectionApplications = "applications"
	SectionUsers        = "users"
)

// StaffSettings configures where moderator notifications go
type StaffSettings struct {
	GroupID          int64          `json:"group_id"`
	Topics           map[string]int `json:"topics,omitempty"`
	SponsorChannelID int64          `json:"sponsor_channel_id,omitempty"`
}

// Admin is a member of the moderator set
type Admin struct {
	UserID  int64     `json:"user_id"`
	AddedBy int64     `json:"added_by,omitempty"`
	AddedAt time.Time `json:"added_at"`
}
