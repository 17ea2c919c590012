// Package command implements the engine's fixed command surface: a single
// Initialize()/Shutdown() handle (deliberately not an ambient singleton,
// unlike the teacher's lastOpenProcess package global) wrapping the
// region cache, accessor, scanner, and hook registry, dispatched through
// a static method table keyed by command name.
package command

import (
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memengine/hooks"
	"memengine/introspect"
	"memengine/memaccess"
	"memengine/memcore"
	"memengine/scanner"
)

// Params is the string-keyed parameter bundle a command receives,
// following the wire conventions in §6: hex addresses, decimal sizes,
// bracketed hex offset lists, space-separated hex pattern strings.
type Params map[string]string

// Result is a command's success payload, serialized verbatim by the
// transport into the response envelope's "data" field.
type Result map[string]interface{}

// Handler is one command table entry.
type Handler func(*Engine, Params) (Result, error)

// Engine is the live handle returned by Initialize. All command
// dispatch goes through an Engine value; there is no package-level
// default instance.
type Engine struct {
	mu       sync.Mutex
	bits     int
	cache    *introspect.Cache
	acc      *memaccess.Accessor
	scan     *scanner.Scanner
	registry *hooks.Registry
	allocs   map[memcore.Address][]byte
	scans    map[string]memcore.ScanResult
	log      *logger.Logger
}

// Initialize builds a new engine handle for the current process, wired
// to bits-bit pointer/instruction decoding (32 or 64).
func Initialize(bits int) *Engine {
	cache := introspect.NewCache(introspect.NewSource())
	acc := memaccess.New(cache)
	s := scanner.New(cache, acc)
	reg := hooks.New(acc)

	e := &Engine{
		bits:     bits,
		cache:    cache,
		acc:      acc,
		scan:     s,
		registry: reg,
		allocs:   make(map[memcore.Address][]byte),
		scans:    make(map[string]memcore.ScanResult),
		log:      logger.NewLogger(coloransi.Color(coloransi.BrightGreen, coloransi.ColorOrange, "engine")),
	}
	e.log.Infoln("engine initialized")
	return e
}

// Shutdown releases every hook and allocation the engine owns. The
// handle must not be used afterward.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if failed := e.registry.RemoveAll(); len(failed) > 0 {
		e.log.Warn("shutdown: failed to remove hooks: ", failed)
	}
	for addr, b := range e.allocs {
		if err := freeRegion(b); err != nil {
			e.log.Warn("shutdown: failed to free region at ", addr.String(), ": ", err)
		}
	}
	e.allocs = make(map[memcore.Address][]byte)
	e.log.Infoln("engine shut down")
}

// Dispatch executes the named command with the given parameters against
// the method table. Any failure, including a command name not present in
// the table, is returned as a Go error; the transport turns it into a
// {success:false, error:"..."} response.
func (e *Engine) Dispatch(command string, params Params) (Result, error) {
	handler, ok := methodTable[command]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", command)
	}
	return handler(e, params)
}

// Commands lists every command name in the fixed table, for discovery.
func Commands() []string {
	names := make([]string, 0, len(methodTable))
	for name := range methodTable {
		names = append(names, name)
	}
	return names
}
