package domain

import "time"

type Organization struct {
	ID        string
	Name      string
	Domain    string
	Plan      string
	Settings  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership joins a user to an organization with a role scoped to it.
// Inactive memberships take no part in role resolution.
type Membership struct {
	ID             string
	UserID         string
	OrganizationID string
	Role           Role
	InvitedBy      *string
	IsActive       bool
	CreatedAt      time.Time
}

const DefaultPlan = "starter"
