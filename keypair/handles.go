package keypair

import (
	"fmt"
	"sync"

	"tee-signer/shared"

	"go.uber.org/zap"
)

// Handle is an opaque token for a live KeyPair. The zero value is the null
// handle.
//
// A handle is a capability owned by exactly one caller. It is valid from
// Create until Destroy; passing a destroyed or never-issued handle to any
// Registry method is a contract violation and panics.
type Handle uintptr

// NullHandle is never issued
const NullHandle Handle = 0

// InvalidHandleError is the panic value for a destroyed or unknown handle
type InvalidHandleError struct {
	Handle Handle
	Op     string
}

func (e *InvalidHandleError) Error() string {
	return fmt.Sprintf("keypair: %s on invalid handle %d", e.Op, e.Handle)
}

// Registry issues and destroys handles
type Registry struct {
	gen    *Generator
	logger *shared.Logger

	mu   sync.Mutex
	next Handle
	keys map[Handle]*KeyPair
}

// NewRegistry creates an empty registry
func NewRegistry(gen *Generator, logger *shared.Logger) *Registry {
	if gen == nil {
		gen = NewGenerator(nil)
	}
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Registry{
		gen:    gen,
		logger: logger,
		keys:   make(map[Handle]*KeyPair),
	}
}

// Create generates a keypair and returns a new handle for it. Handle values
// are never reused within a process.
func (r *Registry) Create() (Handle, error) {
	kp, err := r.gen.Generate()
	if err != nil {
		return NullHandle, err
	}

	r.mu.Lock()
	r.next++
	h := r.next
	r.keys[h] = kp
	r.mu.Unlock()

	r.logger.WithHandle(kp.ID()).Debug("Keypair created", zap.Uint64("handle", uint64(h)))
	return h, nil
}

// Destroy wipes the key and retires the handle. Destroying NullHandle is a
// no-op; destroying any other handle twice panics.
func (r *Registry) Destroy(h Handle) {
	if h == NullHandle {
		return
	}

	r.mu.Lock()
	kp, ok := r.keys[h]
	delete(r.keys, h)
	r.mu.Unlock()

	if !ok {
		panic(&InvalidHandleError{Handle: h, Op: "destroy"})
	}

	id := kp.ID()
	kp.Destroy()
	r.logger.WithHandle(id).Debug("Keypair destroyed", zap.Uint64("handle", uint64(h)))
}

// Resolve returns the live keypair behind h. The caller must not retain it
// past Destroy.
func (r *Registry) Resolve(h Handle) *KeyPair {
	r.mu.Lock()
	kp, ok := r.keys[h]
	r.mu.Unlock()

	if !ok {
		panic(&InvalidHandleError{Handle: h, Op: "resolve"})
	}
	return kp
}

// Len returns the number of live handles
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
