// Package hooks is the name- and address-keyed registry of installed
// detours, grounded on the original engine's HookManager.{hpp,cpp}.
package hooks

import (
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memengine/detour"
	"memengine/memaccess"
	"memengine/memcore"
	"memengine/scanner"
)

var log = logger.NewLogger(coloransi.Color(coloransi.Yellow, coloransi.ColorOrange, "hooks"))

// Registry tracks every installed hook by name and by target address.
type Registry struct {
	mu           sync.Mutex
	acc          *memaccess.Accessor
	byName       map[string]*detour.Hook
	byAddress    map[memcore.Address]string
}

// New builds an empty registry around acc, used for every install/remove.
func New(acc *memaccess.Accessor) *Registry {
	return &Registry{
		acc:       acc,
		byName:    make(map[string]*detour.Hook),
		byAddress: make(map[memcore.Address]string),
	}
}

// Install installs a detour named name at target, redirecting to detourAddr.
func (r *Registry) Install(name string, target, detourAddr memcore.Address, hookType memcore.HookType, bits int) (memcore.HookInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return memcore.HookInfo{}, fmt.Errorf("install hook %q: %w", name, memcore.ErrDuplicateName)
	}
	if _, hooked := r.byAddress[target]; hooked {
		return memcore.HookInfo{}, fmt.Errorf("install hook %q at %s: %w", name, target, memcore.ErrAlreadyHooked)
	}

	h, err := detour.Install(r.acc, target, detourAddr, hookType, bits)
	if err != nil {
		return memcore.HookInfo{}, fmt.Errorf("install hook %q: %w", name, err)
	}

	r.byName[name] = h
	r.byAddress[target] = name
	log.Infoln("registered hook ", name, " at ", target.String())
	return h.Info(name), nil
}

// InstallByPattern AOB-scans for target via s, then installs a hook at the
// first match, per HookManager::InstallHookByPattern.
func (r *Registry) InstallByPattern(name string, s *scanner.Scanner, pattern memcore.Pattern, detourAddr memcore.Address, hookType memcore.HookType, bits int, opts memcore.ScanOptions) (memcore.HookInfo, error) {
	addr, found, err := s.PatternScanFirst(pattern, opts)
	if err != nil {
		return memcore.HookInfo{}, fmt.Errorf("install hook %q by pattern: %w", name, err)
	}
	if !found {
		return memcore.HookInfo{}, fmt.Errorf("install hook %q by pattern: pattern not found", name)
	}
	return r.Install(name, addr, detourAddr, hookType, bits)
}

// Remove uninstalls the named hook, restoring the target's original bytes.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("remove hook %q: %w", name, memcore.ErrNoSuchHook)
	}
	if err := h.Remove(r.acc); err != nil {
		return fmt.Errorf("remove hook %q: %w", name, err)
	}
	delete(r.byName, name)
	delete(r.byAddress, h.Target)
	log.Infoln("unregistered hook ", name)
	return nil
}

// RemoveAll uninstalls every hook, continuing past individual failures and
// returning the names that could not be removed.
func (r *Registry) RemoveAll() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.Unlock()

	var failed []string
	for _, name := range names {
		if err := r.Remove(name); err != nil {
			log.Warn("failed to remove hook ", name, ": ", err)
			failed = append(failed, name)
		}
	}
	return failed
}

// Enable re-installs the named hook's redirect.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("enable hook %q: %w", name, memcore.ErrNoSuchHook)
	}
	return h.Enable(r.acc)
}

// Disable temporarily restores the target's original bytes without
// releasing the trampoline.
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("disable hook %q: %w", name, memcore.ErrNoSuchHook)
	}
	return h.Disable(r.acc)
}

// Toggle flips the named hook's active state.
func (r *Registry) Toggle(name string) error {
	r.mu.Lock()
	h, ok := r.byName[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("toggle hook %q: %w", name, memcore.ErrNoSuchHook)
	}
	if h.Active() {
		return r.Disable(name)
	}
	return r.Enable(name)
}

// List returns a snapshot of every registered hook's state.
func (r *Registry) List() []memcore.HookInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]memcore.HookInfo, 0, len(r.byName))
	for name, h := range r.byName {
		out = append(out, h.Info(name))
	}
	return out
}

// Get returns the named hook's current state.
func (r *Registry) Get(name string) (memcore.HookInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byName[name]
	if !ok {
		return memcore.HookInfo{}, fmt.Errorf("get hook %q: %w", name, memcore.ErrNoSuchHook)
	}
	return h.Info(name), nil
}

// VTableFunction reads the function pointer at index within the vtable
// pointed to by the first pointerWidth bytes at objectPtr, per
// HookManager::GetVTableFunction.
func VTableFunction(acc *memaccess.Accessor, objectPtr memcore.Address, index int, pointerWidth memcore.Size) (memcore.Address, error) {
	vtableRaw, err := acc.Read(objectPtr, pointerWidth)
	if err != nil {
		return 0, fmt.Errorf("vtable function: read vtable pointer: %w", err)
	}
	vtable := memcore.Address(decodePointerWidth(vtableRaw, pointerWidth))

	slot := vtable + memcore.Address(int64(index)*int64(pointerWidth))
	fnRaw, err := acc.Read(slot, pointerWidth)
	if err != nil {
		return 0, fmt.Errorf("vtable function: read slot %d: %w", index, err)
	}
	return memcore.Address(decodePointerWidth(fnRaw, pointerWidth)), nil
}

func decodePointerWidth(raw []byte, width memcore.Size) uint64 {
	var v uint64
	for i := memcore.Size(0); i < width && int(i) < len(raw); i++ {
		v |= uint64(raw[i]) << (8 * i)
	}
	return v
}
