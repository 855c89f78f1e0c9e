package staff

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers unknown usernames, wrong passwords, and
// deactivated accounts alike so the login endpoint leaks nothing.
var ErrInvalidCredentials = errors.New("invalid credentials")

var validRoles = map[string]bool{
	RoleNurse: true, RolePhysician: true, RoleAdmin: true,
}

type Service struct {
	repo StaffRepository
}

func NewService(repo StaffRepository) *Service {
	return &Service{repo: repo}
}

// Authenticate verifies a username/password pair against the stored
// bcrypt hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Staff, error) {
	member, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup staff %s: %w", username, err)
	}
	if !member.Active {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return member, nil
}

// CreateStaff hashes the given plaintext password and stores the account.
func (s *Service) CreateStaff(ctx context.Context, member *Staff, password string) error {
	if member.Username == "" {
		return fmt.Errorf("username is required")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if !validRoles[member.Role] {
		return fmt.Errorf("invalid role: %s", member.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	member.PasswordHash = string(hash)
	member.Active = true
	return s.repo.Create(ctx, member)
}

func (s *Service) ListStaff(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	return s.repo.List(ctx, limit, offset)
}
