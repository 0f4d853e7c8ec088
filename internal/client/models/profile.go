package models

import "time"

// Tier is the subscription level of a profile.
type Tier string

const (
	TierFree         Tier = "free"
	TierPremium      Tier = "premium"
	TierProfessional Tier = "professional"
	TierElite        Tier = "elite"
)

// AccountType and Role always move together: a profile is either a creator
// or a member on both axes. SwitchRole toggles the pair.
type AccountType string

const (
	AccountTypeCreator AccountType = "creator"
	AccountTypeMember  AccountType = "member"
)

type Role string

const (
	RoleCreator Role = "creator"
	RoleMember  Role = "member"
)

// Profile is the application-level user row, one per auth identity. It is
// created by a server-side trigger on sign-up and only mirrored here.
type Profile struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Tier          Tier        `json:"tier"`
	LoyaltyPoints int         `json:"loyalty_points"`
	ProfileImage  string      `json:"profile_image,omitempty"`
	AccountType   AccountType `json:"account_type"`
	Role          Role        `json:"role"`
	IsVerified    bool        `json:"is_verified"`
	JoinedDate    time.Time   `json:"joined_date"`
}

// AppUser is a Profile joined with the auth identity's email. It exists only
// while a session is active.
type AppUser struct {
	Profile
	Email string `json:"email"`
}

// ProfileFromRow decodes a profiles row. Missing fields decode to their
// zero values.
func ProfileFromRow(row map[string]any) Profile {
	return Profile{
		ID:            stringVal(row, "id"),
		Name:          stringVal(row, "name"),
		Tier:          Tier(stringVal(row, "tier")),
		LoyaltyPoints: intVal(row, "loyalty_points"),
		ProfileImage:  stringVal(row, "profile_image"),
		AccountType:   AccountType(stringVal(row, "account_type")),
		Role:          Role(stringVal(row, "role")),
		IsVerified:    boolVal(row, "is_verified"),
		JoinedDate:    timeVal(row, "joined_date"),
	}
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Name         *string      `json:"name,omitempty"`
	ProfileImage *string      `json:"profile_image,omitempty"`
	AccountType  *AccountType `json:"account_type,omitempty"`
	Role         *Role        `json:"role,omitempty"`
}

// Fields returns the set columns as an update map.
func (p ProfilePatch) Fields() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.ProfileImage != nil {
		m["profile_image"] = *p.ProfileImage
	}
	if p.AccountType != nil {
		m["account_type"] = string(*p.AccountType)
	}
	if p.Role != nil {
		m["role"] = string(*p.Role)
	}
	return m
}
