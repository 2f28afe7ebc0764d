package store

import (
	"encoding/json"
	"time"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"` // Do not expose this in JSON responses
	FullName          string     `json:"full_name"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	Phone             *string    `json:"phone,omitempty"`
	PreferredLanguage string     `json:"preferred_language"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ChatSession struct {
	ID          string    `json:"id"` // UUID
	UserID      string    `json:"user_id"`
	SessionName string    `json:"session_name"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionSummary is a session annotated with its message count.
type SessionSummary struct {
	ChatSession
	MessageCount int `json:"message_count"`
}

type Message struct {
	ID          string          `json:"id"` // UUID
	SessionID   string          `json:"session_id"`
	UserID      string          `json:"user_id"`
	Content     string          `json:"content"`
	Sender      string          `json:"sender"` // "user" or "bot"
	Language    string          `json:"language"`
	MessageType string          `json:"message_type"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TranslationCacheEntry struct {
	SourceText         string    `json:"source_text"`
	SourceLanguage     string    `json:"source_language"`
	TargetLanguage     string    `json:"target_language"`
	TranslatedText     string    `json:"translated_text"`
	TranslationService string    `json:"translation_service"`
	CreatedAt          time.Time `json:"created_at"`
}
