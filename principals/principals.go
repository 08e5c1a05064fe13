package principals

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType identifies which of the three principal variants a record is.
type RoleType string

const (
	// RoleDiner is an end customer placing orders.
	RoleDiner RoleType = "diner"
	// RoleRestaurantOwner manages a single restaurant (tenant).
	RoleRestaurantOwner RoleType = "restaurant_owner"
	// RoleSuperadmin is platform staff with access to every tenant.
	RoleSuperadmin RoleType = "superadmin"
)

// Valid reports whether r is one of the three known roles.
func (r RoleType) Valid() bool {
	switch r {
	case RoleDiner, RoleRestaurantOwner, RoleSuperadmin:
		return true
	}
	return false
}

// Principal is an authenticable identity. A principal holds at most one live
// session marker at a time; rotating it invalidates every token minted under
// the previous marker, expired or not.
type Principal struct {
	ID            string    `json:"id,omitempty"`
	Email         string    `json:"email,omitempty"`
	Name          string    `json:"name,omitempty"`
	Role          RoleType  `json:"role,omitempty"`
	PasswordHash  string    `json:"-"` // never serialize
	SessionMarker string    `json:"-"` // empty means no live session
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Summary is the client-safe projection returned alongside a freshly issued
// token.
type Summary struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  RoleType `json:"role"`
}

// Summary returns the client-safe projection of p.
func (p *Principal) Summary() Summary {
	return Summary{ID: p.ID, Email: p.Email, Name: p.Name, Role: p.Role}
}

// ValidatePasswordStrength checks if a password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

// HashPassword hashes a password with bcrypt at the given cost. bcrypt is
// salted and deliberately slow, and its comparison is constant-time.
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPasswordHash verifies a submitted secret against a stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
