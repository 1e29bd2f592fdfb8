package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cryptodash/coin-backend/models"
	"github.com/cryptodash/coin-backend/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// UserService handles account creation and credential checks.
type UserService struct {
	db     *sql.DB
	logger *logrus.Entry
}

// NewUserService creates a new user service
func NewUserService(db *sql.DB) *UserService {
	return &UserService{
		db:     db,
		logger: logrus.WithField("component", "UserService"),
	}
}

// Signup registers a new account. The email is lowercased before storage
// so lookups stay case-insensitive.
func (s *UserService) Signup(ctx context.Context, firstName, lastName, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "USER_CHECK", "user-service", "Signup", true)
	}

	if exists {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryConflict,
			"EMAIL_EXISTS",
			"email already registered",
			"user-service",
			"Signup",
			false,
			nil,
		)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryValidation, "PASSWORD_HASH", "user-service", "Signup", false)
	}

	user := &models.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		firstName, lastName, email, string(hash),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "USER_INSERT", "user-service", "Signup", true)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   email,
	}).Info("User registered")

	return user, nil
}

// Login verifies credentials and returns the stored account. Unknown
// email and wrong password report the same error so the response does
// not leak which one failed.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, password, created_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, invalidCredentialsError()
	}
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "USER_QUERY", "user-service", "Login", true)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalidCredentialsError()
	}

	return &user, nil
}

func invalidCredentialsError() *shared.ServiceError {
	return shared.NewServiceError(
		shared.ErrorCategoryAuthentication,
		"INVALID_CREDENTIALS",
		"invalid email or password",
		"user-service",
		"Login",
		false,
		nil,
	)
}
