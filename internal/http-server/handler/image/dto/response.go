package dto

import "time"

type NamesResponse struct {
	Names []string `json:"names"`
}

type WarmResponse struct {
	TaskID    string    `json:"task_id"`
	File      string    `json:"file"`
	Width     string    `json:"width"`
	Height    string    `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error     string   `json:"error"`
	Message   string   `json:"message"`
	Details   string   `json:"details,omitempty"`
	Available []string `json:"available,omitempty"`
}
