package entity

import "time"

// Role determines workflow eligibility: only Manager and Admin users may act
// as approvers.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
)

var validRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleManager:  true,
	RoleEmployee: true,
}

// IsValid returns true if the role is one of the known roles.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanApprove returns true if users with this role may appear as approvers.
func (r Role) CanApprove() bool {
	return r == RoleAdmin || r == RoleManager
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// User is a registered member of a company.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CompanyID    string    `json:"company_id"`
	ManagerID    string    `json:"manager_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
