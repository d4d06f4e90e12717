package models

// Identity is what the identity service vouches for when a connection authenticates.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
	IsGuest   bool   `json:"isGuest"`
}
