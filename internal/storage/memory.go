package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/shohag/nrfcloud/internal/models"
)

const defaultLimit = 100

type MemoryStorage struct {
	mu   sync.RWMutex
	msgs []models.DeviceMessage
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) CreateMessage(ctx context.Context, msg *models.DeviceMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, *msg)
	return nil
}

// ListMessages returns the matching window and whether more messages follow it.
func (s *MemoryStorage) ListMessages(ctx context.Context, filter MessageFilter) ([]models.DeviceMessage, bool, error) {
	s.mu.RLock()
	var matched []models.DeviceMessage
	for _, m := range s.msgs {
		if matches(m, filter) {
			matched = append(matched, m)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if filter.Sort == SortAsc {
			return matched[i].ReceivedAt.Before(matched[j].ReceivedAt)
		}
		return matched[i].ReceivedAt.After(matched[j].ReceivedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if filter.Offset >= len(matched) {
		return nil, false, nil
	}
	end := filter.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], end < len(matched), nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func matches(m models.DeviceMessage, f MessageFilter) bool {
	if f.AppID != "" && m.AppID != f.AppID {
		return false
	}
	if f.DeviceID != "" && m.DeviceID != f.DeviceID {
		return false
	}
	if f.Topic != "" && m.Topic != f.Topic {
		return false
	}
	if !f.Start.IsZero() && m.ReceivedAt.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && m.ReceivedAt.After(f.End) {
		return false
	}
	return true
}
