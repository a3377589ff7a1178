// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxDisplayNameLen = 64

var (
	ErrUnknownRole      = errors.New("unknown role")
	ErrDisplayNameEmpty = errors.New("display name empty")
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole rejects anything outside the three platform roles so a
// forged claim never reaches room logic.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return Role(s), nil
	}
	return "", ErrUnknownRole
}

type PrincipalID string

// Principal is the authenticated identity of a connection.
// Resolved once at authentication time, immutable afterwards.
type Principal struct {
	ID          PrincipalID `json:"id"`
	DisplayName string      `json:"name"`
	Role        Role        `json:"role"`
}

// NewPrincipal is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewPrincipal(id, name string, role Role) (Principal, error) {
	if name == "" {
		return Principal{}, ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		name = name[:MaxDisplayNameLen]
	}
	return Principal{ID: PrincipalID(id), DisplayName: name, Role: role}, nil
}
