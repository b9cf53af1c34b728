package domain

import "slices"

// Principal is the resolved view of an authenticated caller. Permissions
// are always derived from Role at verification time.
type Principal struct {
	UserID         string
	Email          string
	FirstName      string
	LastName       string
	Role           Role
	OrganizationID string
	Permissions    []string
	MFAEnabled     bool
	SessionID      string
}

// NewPrincipal builds the caller view for u bound to sessionID.
func NewPrincipal(u User, sessionID string) Principal {
	role := u.EffectiveRole()
	return Principal{
		UserID:         u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           role,
		OrganizationID: u.OrganizationID(),
		Permissions:    role.Permissions(),
		MFAEnabled:     u.MFAEnabled,
		SessionID:      sessionID,
	}
}

func (p Principal) SubjectID() string { return p.UserID }

func (p Principal) HasPermission(perm string) bool {
	return slices.Contains(p.Permissions, perm)
}
