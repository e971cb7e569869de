package model

type Role string

const (
	RoleArtist Role = "artist"
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"
)

type PrincipalStatus string

const (
	PrincipalActive    PrincipalStatus = "active"
	PrincipalSuspended PrincipalStatus = "suspended"
)

// Principal is the authenticated caller, decoded once at the HTTP boundary
// and passed explicitly to every operation.
type Principal struct {
	ID     string          `json:"id"`
	Role   Role            `json:"role"`
	Status PrincipalStatus `json:"status"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsActive() bool {
	return p.Status == PrincipalActive
}

func (r Role) IsValid() bool {
	return r == RoleArtist || r == RoleHost || r == RoleAdmin
}
