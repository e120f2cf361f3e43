package users

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/medix-console/internal/utils"
)

// Role is the permission class of a console user
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RolePharmacist   Role = "PHARMACIST"
	RoleDoctor       Role = "DOCTOR"
	RoleReceptionist Role = "RECEPTIONIST"
	RolePatient      Role = "PATIENT"
)

// AllRoles lists every role in display order
var AllRoles = []Role{RoleAdmin, RolePharmacist, RoleDoctor, RoleReceptionist, RolePatient}

// ParseRole converts a raw role name into a Role, rejecting unknown values
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// In reports whether the role is a member of roles
func (r Role) In(roles []Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

// User is the authenticated identity returned by the profile endpoint.
// It is never decoded from the access token.
type User struct {
	ID             int64   `json:"id"`                        // Remote user ID
	Email          string  `json:"email"`                     // Login email
	FirstName      string  `json:"first_name"`                // First name of the user
	LastName       string  `json:"last_name"`                 // Last name of the user
	Role           Role    `json:"role"`                      // Permission class
	FullName       string  `json:"full_name"`                 // Display name computed by the server
	ProfilePicture *string `json:"profile_picture,omitempty"` // Optional avatar URL
}

// DisplayName falls back to the first and last name when the server omitted full_name
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Avatar returns the profile picture URL, empty when the user has none
func (u *User) Avatar() string {
	if u == nil {
		return ""
	}
	return utils.Deref(u.ProfilePicture)
}

func (u *User) IsAdmin() bool {
	return u.hasRole(RoleAdmin)
}

func (u *User) IsPharmacist() bool {
	return u.hasRole(RolePharmacist)
}

func (u *User) IsDoctor() bool {
	return u.hasRole(RoleDoctor)
}

func (u *User) IsReceptionist() bool {
	return u.hasRole(RoleReceptionist)
}

func (u *User) IsPatient() bool {
	return u.hasRole(RolePatient)
}

func (u *User) hasRole(role Role) bool {
	return u != nil && u.Role == role
}
