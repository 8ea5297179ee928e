package mailbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LokeshkumarVD/Voice-email-system/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

const defaultCost = bcrypt.DefaultCost

// Account is a registered mailbox owner.
type Account struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// DisplayName joins first and last name.
func (a Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Registration carries the fields collected by the sign-up dialogue.
type Registration struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Username  string `validate:"required,username"`
	Password  string `validate:"required,password"`
	Domain    string `validate:"required,hostname"`
}

// Address returns the mailbox address a registration will own.
func (r Registration) Address() string {
	return normalizeAddress(r.Username + "@" + r.Domain)
}

// CreateAccount registers a new account with a bcrypt-hashed password.
func (s *Store) CreateAccount(ctx context.Context, reg Registration) (Account, error) {
	if err := validate.Struct(reg); err != nil {
		return Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.stamp()
	account := Account{
		Email:     reg.Address(),
		Username:  reg.Username,
		FirstName: strings.TrimSpace(reg.FirstName),
		LastName:  strings.TrimSpace(reg.LastName),
		CreatedAt: timeFromMillis(now),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (email, username, first_name, last_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, account.Email, account.Username, account.FirstName, account.LastName, hash, now, now)
	if isUniqueViolation(err) {
		return Account{}, ErrUsernameTaken
	}
	if err != nil {
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return account, nil
}

// Account looks up an account by address.
func (s *Store) Account(ctx context.Context, email string) (Account, error) {
	account, _, err := s.accountWithHash(ctx, email)
	return account, err
}

// Authenticate checks email and password. Unknown addresses and wrong passwords
// both return ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email string, password string) (Account, error) {
	account, hash, err := s.accountWithHash(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// ResetPassword replaces the password hash for an existing account.
func (s *Store) ResetPassword(ctx context.Context, email string, password string) error {
	if !validate.Password(password) {
		return ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET password_hash = ?, updated_at = ? WHERE email = ?
	`, hash, s.stamp(), normalizeAddress(email))
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *Store) accountWithHash(ctx context.Context, email string) (Account, []byte, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT email, username, first_name, last_name, password_hash, created_at
		FROM accounts
		WHERE email = ?
	`, normalizeAddress(email))

	var (
		account   Account
		hash      []byte
		createdAt int64
	)
	if err := row.Scan(&account.Email, &account.Username, &account.FirstName, &account.LastName, &hash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, nil, ErrAccountNotFound
		}
		return Account{}, nil, fmt.Errorf("scan account: %w", err)
	}
	account.CreatedAt = timeFromMillis(createdAt)
	return account, hash, nil
}
