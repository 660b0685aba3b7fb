package models

import "time"

type Turn struct {
	ID        string    `json:"id" db:"id"`
	Message   string    `json:"message" db:"message"`
	Answer    string    `json:"answer" db:"answer"`
	Status    bool      `json:"status" db:"status"`
	ToolCalls int       `json:"tool_calls" db:"tool_calls"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
