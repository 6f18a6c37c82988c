package model

// Role is the viewer role supplied by the identity provider.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleUser    Role = "user"
)

// Identity is the {userId, role} pair produced by authentication.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// Privileged reports whether the role bypasses the timing gates.
// Every role other than user is privileged.
func (i Identity) Privileged() bool {
	return i.Role != RoleUser
}

// Owns reports whether the identity is the owner of the session.
func (i Identity) Owns(s *QuizSession) bool {
	return s != nil && s.UserID == i.UserID
}
