package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatter/application/ports"
	"chatter/domain/core/valueobjects"
	"chatter/domain/services"

	"github.com/goccy/go-json"
)

// MemoryScoreBoardStore keeps encoded boards in process memory with a TTL
type MemoryScoreBoardStore struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

type cacheItem struct {
	userID    string
	category  valueobjects.Category
	value     []byte
	expiresAt time.Time
}

// NewMemoryScoreBoardStore creates a store and starts its cleanup loop
func NewMemoryScoreBoardStore(ttl time.Duration) *MemoryScoreBoardStore {
	s := &MemoryScoreBoardStore{
		items: make(map[string]cacheItem),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	go s.cleanupExpired()

	return s
}

var _ ports.ScoreBoardStore = (*MemoryScoreBoardStore)(nil)

func (s *MemoryScoreBoardStore) Get(ctx context.Context, userID string, category valueobjects.Category) (*services.ScoreBoard, bool, error) {
	s.mu.RLock()
	item, exists := s.items[boardKey(userID, category)]
	s.mu.RUnlock()

	if !exists || time.Now().After(item.expiresAt) {
		return nil, false, nil
	}

	board := services.NewScoreBoard()
	if err := json.Unmarshal(item.value, board); err != nil {
		return nil, false, err
	}
	return board, true, nil
}

func (s *MemoryScoreBoardStore) Save(ctx context.Context, userID string, category valueobjects.Category, board *services.ScoreBoard) error {
	data, err := json.Marshal(board)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[boardKey(userID, category)] = cacheItem{
		userID:    userID,
		category:  category,
		value:     data,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryScoreBoardStore) Delete(ctx context.Context, userID string, category valueobjects.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, boardKey(userID, category))
	return nil
}

func (s *MemoryScoreBoardStore) Users(ctx context.Context, category valueobjects.Category) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var users []string
	for _, item := range s.items {
		if item.category == category && now.Before(item.expiresAt) {
			users = append(users, item.userID)
		}
	}
	sort.Strings(users)
	return users, nil
}

// Close stops the cleanup loop
func (s *MemoryScoreBoardStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryScoreBoardStore) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for key, item := range s.items {
				if now.After(item.expiresAt) {
					delete(s.items, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
