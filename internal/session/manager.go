package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yousuf/builder-typegen/internal/client"
	"github.com/yousuf/builder-typegen/internal/codegen"
	"github.com/yousuf/builder-typegen/internal/config"
)

// Manager manages session contexts
type Manager struct {
	sessions map[string]*Context
	mu       sync.RWMutex
	config   *config.Config
	hub      *client.McpClientHub
	log      logrus.FieldLogger
}

// NewManager creates a new session manager. hub may be nil when no upstream
// model source is configured.
func NewManager(cfg *config.Config, hub *client.McpClientHub, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		sessions: make(map[string]*Context),
		config:   cfg,
		hub:      hub,
		log:      log,
	}
}

// Config returns the configuration sessions are created with.
func (m *Manager) Config() *config.Config {
	return m.config
}

// Hub returns the upstream client hub, or nil.
func (m *Manager) Hub() *client.McpClientHub {
	return m.hub
}

// GeneratorOptions returns the generator settings derived from the config.
func (m *Manager) GeneratorOptions() codegen.Options {
	return codegen.Options{
		OutputDir:       m.config.OutputDir,
		InterfacePrefix: m.config.UseInterfacePrefix(),
		ReferenceImport: m.config.ReferenceImport,
		GeneratedImport: m.config.GeneratedImport,
		Concurrency:     m.config.Concurrency,
		Logger:          m.log,
	}
}

// GetOrCreateSession gets an existing session or creates a new one
func (m *Manager) GetOrCreateSession(ctx context.Context, sessionID string) (*Context, error) {
	m.mu.RLock()
	session, exists := m.sessions[sessionID]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if session, exists := m.sessions[sessionID]; exists {
		return session, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := m.GeneratorOptions()
	opts.Logger = m.log.WithField("session", sessionID)
	session = NewContext(sessionID, codegen.NewTypeScriptGenerator(opts))
	m.sessions[sessionID] = session

	m.log.WithField("session", sessionID).Debug("Created session")
	return session, nil
}

// GetSession retrieves an existing session
func (m *Manager) GetSession(sessionID string) *Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

// DeleteSession removes a session and drops its generated files.
func (m *Manager) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return fmt.Errorf("session %q not found", sessionID)
	}

	delete(m.sessions, sessionID)
	return nil
}

// ReapIdle deletes sessions unused for longer than maxIdle and returns how
// many were removed.
func (m *Manager) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if session.LastAccessed().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		m.log.WithField("removed", removed).Info("Reaped idle sessions")
	}
	return removed
}

// CloseAll drops every session and closes the upstream connections.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	m.sessions = make(map[string]*Context)
	m.mu.Unlock()

	if m.hub != nil {
		if err := m.hub.Close(); err != nil {
			return fmt.Errorf("errors closing upstream clients: %w", err)
		}
	}
	return nil
}
