package compositor

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Interfaces the player binds from the server registry.
const (
	InterfaceCompositor = "wl_compositor"
	InterfaceShell      = "wl_shell"
)

// ErrMissingCapability is returned when a required server object was never advertised.
var ErrMissingCapability = errors.New("compositor: required capability not advertised")

// MissingCapabilityError lists every required interface absent from the registry
type MissingCapabilityError struct {
	Interfaces []string
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("compositor: required capability not advertised: %s", strings.Join(e.Interfaces, ", "))
}

// Unwrap makes errors.Is(err, ErrMissingCapability) hold
func (e *MissingCapabilityError) Unwrap() error {
	return ErrMissingCapability
}

// Global is an object advertised by the server through wl_registry.global
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry records the globals advertised by the server.
//
// Announce and Withdraw are called from registry listeners during dispatch;
// Find and Require may be called from any goroutine.
type Registry struct {
	mu     sync.RWMutex
	byName map[uint32]Global
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[uint32]Global)}
}

// Announce records a global advertised by the server
func (r *Registry) Announce(g Global) {
	r.mu.Lock()
	r.byName[g.Name] = g
	r.mu.Unlock()

	slog.Debug("compositor: global announced",
		"name", g.Name,
		"interface", g.Interface,
		"version", g.Version,
	)
}

// Withdraw forgets a global removed by the server
func (r *Registry) Withdraw(name uint32) {
	r.mu.Lock()
	g, ok := r.byName[name]
	delete(r.byName, name)
	r.mu.Unlock()

	if ok {
		slog.Debug("compositor: global withdrawn", "name", name, "interface", g.Interface)
	}
}

// Find returns the first global implementing iface (lowest name wins)
func (r *Registry) Find(iface string) (Global, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found Global
		ok    bool
	)
	for _, g := range r.byName {
		if g.Interface != iface {
			continue
		}
		if !ok || g.Name < found.Name {
			found, ok = g, true
		}
	}
	return found, ok
}

// Require checks that every interface was advertised.
//
// Returns a *MissingCapabilityError naming all absent interfaces (sorted).
func (r *Registry) Require(ifaces ...string) error {
	var missing []string
	for _, iface := range ifaces {
		if _, ok := r.Find(iface); !ok {
			missing = append(missing, iface)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingCapabilityError{Interfaces: missing}
}

// Len returns the number of globals currently advertised
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
