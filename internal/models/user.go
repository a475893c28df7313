package models

import "strings"

// Role represents a user's position in the organisation
type Role string

const (
	RoleColaborador Role = "colaborador"
	RoleGestor      Role = "gestor"
	RoleRH          Role = "rh"
	RoleDiretoria   Role = "diretoria"
)

var roleLabels = map[Role]string{
	RoleColaborador: "Colaborador",
	RoleGestor:      "Gestor",
	RoleRH:          "RH",
	RoleDiretoria:   "Diretoria",
}

// Label returns the display label for the role, or the raw value when unknown
func (r Role) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return string(r)
}

// User is the profile returned by the HR service
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Initials returns the avatar initials for the user
func (u *User) Initials() string {
	if u == nil {
		return "U"
	}
	if u.FirstName != "" && u.LastName != "" {
		return strings.ToUpper(firstRune(u.FirstName) + firstRune(u.LastName))
	}
	if u.Username != "" {
		return strings.ToUpper(firstRune(u.Username))
	}
	return "U"
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
