package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

// Registrar hands one plugin at a time to the classification engine.
type Registrar interface {
	Register(ctx context.Context, p Plugin) error
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns the file name a plugin is written under.
func FileName(semanticType string) string {
	return unsafeFileChars.ReplaceAllString(semanticType, "_") + ".json"
}

// DirectoryRegistrar writes each plugin as a single-element JSON array into
// a directory the engine loads plugins from.
type DirectoryRegistrar struct {
	dir    string
	logger *zap.Logger
}

// NewDirectoryRegistrar creates dir if needed.
func NewDirectoryRegistrar(dir string, logger *zap.Logger) (*DirectoryRegistrar, error) {
	if dir == "" {
		return nil, fmt.Errorf("plugin directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plugin directory: %w", err)
	}
	return &DirectoryRegistrar{dir: dir, logger: logger.Named("plugin-dir")}, nil
}

func (r *DirectoryRegistrar) Register(ctx context.Context, p Plugin) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent([]Plugin{p}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plugin %s: %w", p.SemanticType(), err)
	}

	path := filepath.Join(r.dir, FileName(p.SemanticType()))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write plugin %s: %w", p.SemanticType(), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("install plugin %s: %w", p.SemanticType(), err)
	}

	r.logger.Debug("Wrote plugin definition",
		zap.String("semantic_type", p.SemanticType()),
		zap.String("path", path))
	return nil
}

// MemoryRegistrar keeps registered plugins in memory.
type MemoryRegistrar struct {
	mu      sync.Mutex
	plugins map[string]Plugin
	order   []string
}

// NewMemoryRegistrar creates an empty MemoryRegistrar.
func NewMemoryRegistrar() *MemoryRegistrar {
	return &MemoryRegistrar{plugins: make(map[string]Plugin)}
}

func (r *MemoryRegistrar) Register(ctx context.Context, p Plugin) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[p.SemanticType()]; !ok {
		r.order = append(r.order, p.SemanticType())
	}
	r.plugins[p.SemanticType()] = p
	return nil
}

// Plugins returns registered plugins in first-registration order.
func (r *MemoryRegistrar) Plugins() []Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Plugin, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.plugins[name])
	}
	return out
}

// Get returns the plugin registered under name.
func (r *MemoryRegistrar) Get(name string) (Plugin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plugins[name]
	return p, ok
}

var (
	_ Registrar = (*DirectoryRegistrar)(nil)
	_ Registrar = (*MemoryRegistrar)(nil)
)
