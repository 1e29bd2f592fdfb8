package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the persisted account record. PasswordHash never leaves the
// backend; handlers convert to PublicUser before responding.
type User struct {
	ID           int       `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the client-facing subset of User.
type PublicUser struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Public returns the client-facing view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// FavoriteCoin is one user -> coin favorite row. Uniqueness is enforced
// on (user_id, symbol, slug).
type FavoriteCoin struct {
	ID        uuid.UUID `json:"id"`
	UserID    int       `json:"user_id"`
	CoinName  string    `json:"coin_name"`
	Symbol    string    `json:"symbol"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// SignupRequest is the POST /signup body.
type SignupRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest is the POST /login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both signup and login.
type AuthResponse struct {
	Message string     `json:"message"`
	User    PublicUser `json:"user"`
	Token   string     `json:"token"`
}

// AddFavoriteRequest is the POST /favorite/:name body.
type AddFavoriteRequest struct {
	CoinName string `json:"coinName"`
	Symbol   string `json:"symbol"`
	Slug     string `json:"slug"`
}

// RemoveFavoriteRequest is the DELETE /favorite/:name body.
type RemoveFavoriteRequest struct {
	Symbol string `json:"symbol"`
	Slug   string `json:"slug"`
}
