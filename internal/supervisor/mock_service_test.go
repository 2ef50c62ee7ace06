// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// mockService is a controllable suture.Service.
type mockService struct {
	name       string
	startCount atomic.Int32
	stopCount  atomic.Int32
	failCount  atomic.Int32
	maxFails   int32
	panics     int32
	mu         sync.Mutex
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	defer m.stopCount.Add(1)

	m.mu.Lock()
	maxFails := m.maxFails
	panics := m.panics
	m.mu.Unlock()

	if maxFails > 0 || panics > 0 {
		current := m.failCount.Add(1)
		if current <= panics {
			panic("simulated panic")
		}
		if current <= maxFails {
			return errors.New("simulated failure")
		}
	}

	<-ctx.Done()
	return ctx.Err()
}

// setFailCount makes the first n calls to Serve return an error.
func (m *mockService) setFailCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxFails = int32(n)
}

// setPanicCount makes the first n calls to Serve panic.
func (m *mockService) setPanicCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics = int32(n)
}

func (m *mockService) starts() int32 { return m.startCount.Load() }

func (m *mockService) String() string { return m.name }
