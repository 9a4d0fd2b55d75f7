package model

import "time"

// Interview is a saved conversation transcript.
type Interview struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	History   []Turn    `json:"history"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a state notification published on the event bus.
type Event struct {
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"` // "state", "transcript", "reply", "error"
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}
