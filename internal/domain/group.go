package domain

import "time"

// Group is a named set of members. Membership only grows.
type Group struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	City       string    `json:"city,omitempty"`
	Site       string    `json:"site,omitempty"`
	Members    []string  `json:"members"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// CreateGroupRequest carries the fields of a new group.
type CreateGroupRequest struct {
	Name       string   `json:"name" validate:"required,max=120"`
	Department string   `json:"department" validate:"max=120"`
	City       string   `json:"city" validate:"max=120"`
	Site       string   `json:"site" validate:"max=120"`
	MemberIDs  []string `json:"member_ids" validate:"dive,required"`
}
