package main

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/ttd2089/ring-queue/internal/messages"
	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

var errUnknownKey = errors.New("unknown key")

// recentStore keeps the most recent messages for each message key. The buffers are not safe for
// concurrent use, so every access goes through mu; the consume loop and the HTTP handlers share
// the store.
type recentStore struct {
	capacity    int
	newObserver func(key string) ringbuf.Observer

	mu      sync.Mutex
	buffers map[string]*ringbuf.Buffer[messages.Message]
}

func newRecentStore(capacity int, newObserver func(key string) ringbuf.Observer) (*recentStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("recent capacity %d: %w", capacity, ringbuf.ErrInvalidCapacity)
	}
	return &recentStore{
		capacity:    capacity,
		newObserver: newObserver,
		buffers:     map[string]*ringbuf.Buffer[messages.Message]{},
	}, nil
}

func (s *recentStore) Add(msg messages.Message) error {
	key := msg.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers[key]
	if !ok {
		var opts []ringbuf.Option
		if s.newObserver != nil {
			opts = append(opts, ringbuf.WithObserver(s.newObserver(key)))
		}
		var err error
		b, err = ringbuf.New[messages.Message](s.capacity, opts...)
		if err != nil {
			return fmt.Errorf("create buffer for %q: %w", key, err)
		}
		s.buffers[key] = b
	}
	b.Enqueue(msg)
	return nil
}

func (s *recentStore) Keys() []string {
	s.mu.Lock()
	keys := maps.Keys(s.buffers)
	s.mu.Unlock()

	slices.Sort(keys)
	return keys
}

func (s *recentStore) Snapshot(key string) ([]messages.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers[key]
	if !ok {
		return nil, fmt.Errorf("snapshot %q: %w", key, errUnknownKey)
	}
	return b.Snapshot(), nil
}

func (s *recentStore) All() map[string][]messages.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make(map[string][]messages.Message, len(s.buffers))
	for key, b := range s.buffers {
		all[key] = b.Snapshot()
	}
	return all
}

func (s *recentStore) Render(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers[key]
	if !ok {
		return "", fmt.Errorf("render %q: %w", key, errUnknownKey)
	}
	return b.String(), nil
}

func (s *recentStore) Resize(key string, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers[key]
	if !ok {
		return fmt.Errorf("resize %q: %w", key, errUnknownKey)
	}
	return b.Resize(capacity)
}

func (s *recentStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers[key]
	if !ok {
		return fmt.Errorf("clear %q: %w", key, errUnknownKey)
	}
	b.Clear()
	return nil
}
