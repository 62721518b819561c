package goAttend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goAttend/role"
)

// User is the authenticated employee profile returned by the backend.
//
// The backend identifies users by "_id" on most endpoints and by "id" in the
// login response; both are accepted, as strings or numbers.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       role.Role `json:"role"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	EmployeeID string    `json:"employeeId,omitempty"`
	Address    string    `json:"address,omitempty"`
	IsActive   *bool     `json:"isActive,omitempty"`
}

type userWire struct {
	ID         json.RawMessage `json:"id"`
	MongoID    json.RawMessage `json:"_id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       string          `json:"role"`
	Department string          `json:"department"`
	Position   string          `json:"position"`
	Phone      string          `json:"phone"`
	EmployeeID string          `json:"employeeId"`
	Address    string          `json:"address"`
	IsActive   *bool           `json:"isActive"`
}

// UnmarshalJSON accepts both id spellings and normalizes the role string.
// Shape checks happen in Validate.
func (u *User) UnmarshalJSON(data []byte) error {
	var w userWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id, err := decodeID(w.ID)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if id == "" {
		if id, err = decodeID(w.MongoID); err != nil {
			return fmt.Errorf("_id: %w", err)
		}
	}

	*u = User{
		ID:         id,
		Name:       w.Name,
		Email:      w.Email,
		Role:       role.Role(strings.ToLower(strings.TrimSpace(w.Role))),
		Department: w.Department,
		Position:   w.Position,
		Phone:      w.Phone,
		EmployeeID: w.EmployeeID,
		Address:    w.Address,
		IsActive:   w.IsActive,
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.New("must be a string or number")
	}
	return n.String(), nil
}

// Validate checks the fields every page depends on.
func (u *User) Validate() error {
	if u == nil {
		return ErrInvalidUser
	}
	if u.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidUser)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: role %q: %v", ErrInvalidUser, u.Role, role.ErrUnknownRole)
	}
	return nil
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.IsActive != nil {
		active := *u.IsActive
		out.IsActive = &active
	}
	return &out
}

// Phase is the position of a Session in its state machine.
type Phase uint8

const (
	PhaseUnresolved Phase = iota
	PhaseRecovering
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnresolved:
		return "unresolved"
	case PhaseRecovering:
		return "recovering"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is a point-in-time snapshot of a Session. User is non-nil iff the
// session is authenticated; Resolved is false only before Recovery finishes.
type State struct {
	User     *User
	Resolved bool
	Phase    Phase
}

// Authenticated reports whether the snapshot carries a user.
func (s State) Authenticated() bool {
	return s.User != nil
}

// Role returns the user's role, or "" when anonymous.
func (s State) Role() role.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s State) IsAdmin() bool    { return s.Role() == role.Admin }
func (s State) IsManager() bool  { return s.Role() == role.Manager }
func (s State) IsHR() bool       { return s.Role() == role.HR }
func (s State) IsEmployee() bool { return s.Role() == role.Employee }
