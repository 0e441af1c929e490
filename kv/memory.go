package kv

import (
	"context"
	"errors"
	"sync"
)

var errInjected = errors.New("injected failure")

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string

	failReads  bool
	failWrites bool
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failReads {
		return "", false, ioError("get "+key, errInjected)
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return ioError("set "+key, errInjected)
	}
	m.data[key] = value
	return nil
}

// FailReads makes subsequent Get calls fail with ErrIO while on is true.
func (m *Memory) FailReads(on bool) {
	m.mu.Lock()
	m.failReads = on
	m.mu.Unlock()
}

// FailWrites makes subsequent Set calls fail with ErrIO while on is true.
func (m *Memory) FailWrites(on bool) {
	m.mu.Lock()
	m.failWrites = on
	m.mu.Unlock()
}

func (m *Memory) Close() error {
	return nil
}
