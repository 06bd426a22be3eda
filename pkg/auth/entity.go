package auth

import (
	"time"

	"github.com/google/uuid"
)

// User — владелец пула опыта и откликов.
type User struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
}
