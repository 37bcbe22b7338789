package models

import (
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// Role is the coarse access level of an allowlisted user.
type Role string

const (
	RoleAdmin  Role = "admin"  // every module, read and write
	RoleStaff  Role = "staff"  // modules granted by [Permissions], read and write
	RoleViewer Role = "viewer" // modules granted by [Permissions], read only
)

// Module names an area of the application guarded by a permission flag.
type Module string

const (
	ModuleReservations Module = "reservations"
	ModuleKitchen      Module = "kitchen"
	ModuleMaintenance  Module = "maintenance"
	ModuleCheffing     Module = "cheffing"
	ModuleAdmin        Module = "admin"
)

// Modules lists every guarded module.
var Modules = []Module{ModuleReservations, ModuleKitchen, ModuleMaintenance, ModuleCheffing, ModuleAdmin}

// Permissions holds the per-module allowlist flags.
type Permissions struct {
	Reservations bool `json:"reservations"`
	Kitchen      bool `json:"kitchen"`
	Maintenance  bool `json:"maintenance"`
	Cheffing     bool `json:"cheffing"`
	Admin        bool `json:"admin"`
}

// Allows reports whether the flag for m is set.
func (p Permissions) Allows(m Module) bool {
	switch m {
	case ModuleReservations:
		return p.Reservations
	case ModuleKitchen:
		return p.Kitchen
	case ModuleMaintenance:
		return p.Maintenance
	case ModuleCheffing:
		return p.Cheffing
	case ModuleAdmin:
		return p.Admin
	default:
		return false
	}
}

// AllowedUser is an allowlist entry: the only emails that may use the application.
type AllowedUser struct {
	Meta
	Email       string      `json:"email" validate:"required,email,max=254"`
	DisplayName string      `json:"display_name" validate:"max=120"`
	Role        Role        `json:"role" validate:"required,oneof=admin staff viewer"`
	Permissions Permissions `json:"permissions"`
	Active      bool        `json:"active"`
}

// NewAllowedUser creates an active allowlist entry with no module flags set.
func NewAllowedUser(email, displayName string, role Role) *AllowedUser {
	u := &AllowedUser{
		Email:       shared.NormalizeEmail(email),
		DisplayName: displayName,
		Role:        role,
		Active:      true,
	}
	u.Touch(time.Now())
	return u
}

// Validate implements [Model].
func (u *AllowedUser) Validate() error {
	u.Email = shared.NormalizeEmail(u.Email)
	return Validate(u)
}

// CanAccess reports whether the user may open module m. Admins pass every module.
func (u *AllowedUser) CanAccess(m Module) bool {
	if !u.Active {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	return u.Permissions.Allows(m)
}

// CanWrite reports whether the user may perform mutating requests.
func (u *AllowedUser) CanWrite() bool {
	return u.Active && u.Role != RoleViewer
}

// IsAdmin reports whether the user may manage the allowlist.
func (u *AllowedUser) IsAdmin() bool {
	return u.CanAccess(ModuleAdmin)
}
