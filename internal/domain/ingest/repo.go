package ingest

import (
	"context"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, m *InboundMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*InboundMessage, error)
	List(ctx context.Context, limit, offset int) ([]*InboundMessage, int, error)
}
