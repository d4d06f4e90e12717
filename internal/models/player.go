package models

import "time"

// PlayerSession is the identity-scoped record of a connected player. It outlives rooms and
// reconnects; CurrentSocketID is rebound on every connection.
type PlayerSession struct {
	UserID          string    `json:"userId"`
	UserSessionID   string    `json:"userSessionId"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	CurrentSocketID string    `json:"currentSocketId,omitempty"`
	CurrentRoom     string    `json:"currentRoom,omitempty"`
	LastSeen        time.Time `json:"lastSeen"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
}
