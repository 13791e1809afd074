package domain

// Member is a read-only view of a present user (no transport fields).
type Member struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user User) Member {
	return Member{ID: user.ID, Username: user.Username}
}
