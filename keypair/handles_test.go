package keypair

import (
	"sync"
	"testing"

	"tee-signer/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRegistry(t *testing.T) *Registry {
	logger := shared.WrapLogger(zaptest.NewLogger(t), shared.LoggerConfig{ServiceName: "keypair-test"})
	return NewRegistry(NewGenerator(nil), logger)
}

func TestRegistryLifecycle(t *testing.T) {
	r := newTestRegistry(t)

	h, err := r.Create()
	require.NoError(t, err)
	assert.NotEqual(t, NullHandle, h)
	assert.Equal(t, 1, r.Len())

	kp := r.Resolve(h)
	assert.Regexp(t, lowerHex64, kp.PublicKeyHex())
	assert.Same(t, kp, r.Resolve(h))

	r.Destroy(h)
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, kp.public, "destroy must wipe the resolved keypair")
}

func TestRegistryHandlesAreNotReused(t *testing.T) {
	r := newTestRegistry(t)

	first, err := r.Create()
	require.NoError(t, err)
	r.Destroy(first)

	second, err := r.Create()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestRegistryDestroyNullHandle(t *testing.T) {
	r := newTestRegistry(t)
	assert.NotPanics(t, func() { r.Destroy(NullHandle) })
	assert.NotPanics(t, func() { r.Destroy(NullHandle) })
}

func TestRegistryContractViolations(t *testing.T) {
	r := newTestRegistry(t)

	h, err := r.Create()
	require.NoError(t, err)
	r.Destroy(h)

	assert.PanicsWithError(t, "keypair: destroy on invalid handle 1", func() { r.Destroy(h) })
	assert.PanicsWithError(t, "keypair: resolve on invalid handle 1", func() { r.Resolve(h) })
	assert.PanicsWithError(t, "keypair: resolve on invalid handle 99", func() { r.Resolve(99) })
}

func TestRegistryIndependentHandlesConcurrently(t *testing.T) {
	r := newTestRegistry(t)

	const workers = 8
	var wg sync.WaitGroup
	keys := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := r.Create()
			if err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			keys[i] = r.Resolve(h).PublicKeyHex()
			r.Destroy(h)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k])
		seen[k] = true
	}
}
