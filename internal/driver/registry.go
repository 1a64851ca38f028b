// internal/driver/registry.go
package driver

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry manages camera profile registration and lookup
type Registry struct {
	profiles map[string]Profile
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewRegistry creates a new profile registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		profiles: make(map[string]Profile),
		logger:   logger,
	}
}

// Register registers a profile under its model name
func (r *Registry) Register(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[key(p.Model)] = p
	r.logger.Debug("Camera profile registered",
		zap.String("model", p.Model),
		zap.String("vendor", p.Vendor),
	)
}

// Lookup returns the profile of a model. Names are case-insensitive.
func (r *Registry) Lookup(model string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[key(model)]
	if !ok {
		return Profile{}, fmt.Errorf("no profile for camera model %q", model)
	}
	return p, nil
}

// IsSupported checks if a model has a profile
func (r *Registry) IsSupported(model string) bool {
	_, err := r.Lookup(model)
	return err == nil
}

// List returns all profiles sorted by model name
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Model < list[j].Model })
	return list
}

func key(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}
