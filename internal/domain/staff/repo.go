package staff

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no staff row matches.
var ErrNotFound = errors.New("staff not found")

type StaffRepository interface {
	GetByUsername(ctx context.Context, username string) (*Staff, error)
	Create(ctx context.Context, s *Staff) error
	List(ctx context.Context, limit, offset int) ([]*Staff, int, error)
}
