package session

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Role is a dashboard user role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleResearcher Role = "researcher"
	RoleStudent    Role = "student"
	RoleGuest      Role = "guest"
)

// User is an account without its secret.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// Account pairs a user with a plaintext password for directory construction.
type Account struct {
	User
	Password string
}

// DefaultAccounts are the fixed demo accounts.
func DefaultAccounts() []Account {
	return []Account{
		{User: User{ID: "1", Name: "Admin", Email: "admin@rwandaorbitguard.rw", Role: RoleAdmin}, Password: "admin123"},
		{User: User{ID: "2", Name: "Researcher", Email: "researcher@rwandaorbitguard.rw", Role: RoleResearcher}, Password: "researcher123"},
		{User: User{ID: "3", Name: "Alex Student", Email: "student@rwandaorbitguard.rw", Role: RoleStudent}, Password: "student123"},
		{
			User: User{
				ID: "4", Name: "Guest User", Email: "guest@rwandaorbitguard.rw", Role: RoleGuest,
				Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=guest",
			},
			Password: "guest123",
		},
	}
}

type entry struct {
	user User
	hash []byte
}

// Directory is a fixed set of accounts with bcrypt-hashed passwords.
type Directory struct {
	users map[string]entry
}

// NewDirectory hashes each account's password at cost. A cost of zero uses
// bcrypt.DefaultCost.
func NewDirectory(cost int, accounts ...Account) (*Directory, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	d := &Directory{users: make(map[string]entry, len(accounts))}
	for _, a := range accounts {
		key := normalizeEmail(a.Email)
		if key == "" {
			return nil, fmt.Errorf("account %q: empty email", a.ID)
		}
		if _, dup := d.users[key]; dup {
			return nil, fmt.Errorf("account %q: duplicate email %s", a.ID, a.Email)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a.ID, err)
		}
		d.users[key] = entry{user: a.User, hash: hash}
	}
	return d, nil
}

// Authenticate returns the user for email when password matches.
func (d *Directory) Authenticate(email, password string) (User, error) {
	e, ok := d.users[normalizeEmail(email)]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(e.hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return e.user, nil
}

// Len returns the number of accounts.
func (d *Directory) Len() int { return len(d.users) }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
