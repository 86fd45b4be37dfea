package storage

import (
	"context"
	"errors"
)

var (
	ErrNoAdapter        = errors.New("no adapter registered for connection type")
	ErrNoDriver         = errors.New("no driver registered for dialect")
	ErrNotStarted       = errors.New("storage: manager not started")
	ErrArtifactNotFound = errors.New("storage: artifact not found")
)

type Manager struct {
	adapter Adapter
	driver  Driver
}

func NewManager() *Manager {
	return &Manager{}
}

// Start resolves conn to an adapter and driver. A nil conn leaves the
// manager unstarted, which callers treat as memory-only.
func (m *Manager) Start(conn any) error {
	if conn == nil {
		return nil
	}
	a, err := RegistryAdapter(conn)
	if err != nil {
		return err
	}
	d, err := RegistryDriver(a)
	if err != nil {
		return err
	}
	m.adapter = a
	m.driver = d
	return nil
}

func (m *Manager) Adapter() Adapter { return m.adapter }
func (m *Manager) Driver() Driver   { return m.driver }
func (m *Manager) Started() bool    { return m.driver != nil }

func (m *Manager) Dialect() string {
	if m.adapter == nil {
		return ""
	}
	return m.adapter.Dialect()
}

// Build runs pending migrations.
func (m *Manager) Build(ctx context.Context) error {
	if m.driver == nil {
		return nil
	}
	return m.driver.Migrate(ctx)
}

func (m *Manager) Repos() (Repos, error) {
	if m.driver == nil {
		return nil, ErrNotStarted
	}
	return m.driver, nil
}
