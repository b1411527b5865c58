package models

import "time"

// User is the chat participant who owns subjects, notes and templates.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subject is a person or recurring meeting notes are written about.
type Subject struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Prompt    *string   `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PromptTemplate is a reusable analysis instruction.
type PromptTemplate struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
