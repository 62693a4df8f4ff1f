package session

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yousuf/builder-typegen/internal/codegen"
)

// Context represents a session context with its associated resources.
// Each session owns its generator, so model indexes set by one client
// never leak into another.
type Context struct {
	SessionID string
	Generator *codegen.TypeScriptGenerator

	mu           sync.RWMutex
	lastAccessed time.Time
	files        map[string]*codegen.GeneratedInterface // by file name
	index        string
}

// NewContext creates a new session context
func NewContext(sessionID string, generator *codegen.TypeScriptGenerator) *Context {
	return &Context{
		SessionID:    sessionID,
		Generator:    generator,
		lastAccessed: time.Now(),
		files:        make(map[string]*codegen.GeneratedInterface),
	}
}

// UpdateLastAccessed marks the session as used now.
func (c *Context) UpdateLastAccessed() {
	c.mu.Lock()
	c.lastAccessed = time.Now()
	c.mu.Unlock()
}

// LastAccessed returns when the session was last used.
func (c *Context) LastAccessed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastAccessed
}

// StoreBatch replaces the session's generated files with a batch.
func (c *Context) StoreBatch(batch *codegen.BatchResult) {
	files := make(map[string]*codegen.GeneratedInterface, len(batch.Interfaces))
	for _, gi := range batch.Interfaces {
		files[filepath.Base(gi.FilePath)] = gi
	}

	c.mu.Lock()
	c.files = files
	c.index = batch.Index
	c.mu.Unlock()
}

// StoreInterface adds or replaces a single generated file and rebuilds the index.
func (c *Context) StoreInterface(gi *codegen.GeneratedInterface) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.files[filepath.Base(gi.FilePath)] = gi
	c.index = c.Generator.GenerateIndexFile(c.sortedLocked())
}

// Generated returns the stored interfaces ordered by file name.
func (c *Context) Generated() []*codegen.GeneratedInterface {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedLocked()
}

func (c *Context) sortedLocked() []*codegen.GeneratedInterface {
	names := make([]string, 0, len(c.files))
	for name := range c.files {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*codegen.GeneratedInterface, 0, len(names))
	for _, name := range names {
		out = append(out, c.files[name])
	}
	return out
}

// ReadFile returns the content of a generated file. The name may carry
// leading slashes or directories; only its base name is used.
func (c *Context) ReadFile(name string) (string, bool) {
	name = filepath.Base(filepath.FromSlash(strings.TrimSpace(name)))

	c.mu.RLock()
	defer c.mu.RUnlock()

	if name == "index.ts" {
		return c.index, c.index != ""
	}
	gi, ok := c.files[name]
	if !ok {
		return "", false
	}
	return gi.Content, true
}
