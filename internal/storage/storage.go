package storage

import (
	"context"
	"time"

	"github.com/shohag/nrfcloud/internal/models"
)

type Storage interface {
	CreateMessage(ctx context.Context, msg *models.DeviceMessage) error
	ListMessages(ctx context.Context, filter MessageFilter) ([]models.DeviceMessage, bool, error)
	Close() error
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// MessageFilter selects a window of messages. Zero values match everything.
type MessageFilter struct {
	AppID    string
	DeviceID string
	Topic    string
	Start    time.Time
	End      time.Time
	Sort     SortOrder
	Limit    int
	Offset   int
}
