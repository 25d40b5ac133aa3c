// Package shadercache wraps an external shader compiler with a
// content-addressed cache of compiled binary artifacts.
//
// Compilation is a pure function of (source, stage), so the cache never
// needs to invalidate entries; identical input always yields an equivalent
// artifact. The underlying store tolerates concurrent access because
// shader-pack loading may warm programs from worker threads before the
// render thread needs them.
package shadercache

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Cache errors.
var (
	// ErrNoCompiler is returned by Compile when the cache was created
	// without a compiler.
	ErrNoCompiler = errors.New("shadercache: no compiler configured")
)

// Key identifies one compiled artifact: a content hash of the transformed
// source combined with the stage tag, so identical source compiled for
// different stages never collides.
type Key uint64

// NewKey computes the cache key for a source/stage pair.
func NewKey(source string, stage gputypes.ShaderStage) Key {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return Key(h.Sum64() ^ stageTag(stage))
}

// stageTag spreads the stage value across the key's bits so that stages
// differing in one bit do not collapse adjacent source hashes.
func stageTag(stage gputypes.ShaderStage) uint64 {
	return uint64(stage) * 0x9E3779B97F4A7C15
}

// Compiler is the external compile operation the cache wraps. It must be
// pure: the result may depend only on its arguments. name is a debug label
// for diagnostics, source is the transformed shader text.
type Compiler func(name, source string, stage gputypes.ShaderStage) ([]byte, error)

// Cache is a content-addressed store of compiled shader artifacts.
//
// The store is a sync.Map, so concurrent readers and writers never block
// each other. Two callers that miss on the same key concurrently both
// invoke the compiler; because compilation is deterministic and
// side-effect-free the duplicate work costs time, not correctness, and the
// store keeps whichever result lands last.
type Cache struct {
	compiler Compiler
	entries  sync.Map // Key -> *Artifact

	// Statistics, atomic for lock-free reads.
	hits     atomic.Uint64
	misses   atomic.Uint64
	size     atomic.Int64
	failures atomic.Uint64
}

// New creates a cache around the given compiler.
func New(compiler Compiler) *Cache {
	return &Cache{compiler: compiler}
}

// Compile returns the cached artifact for the source/stage pair, compiling
// on first use.
//
// On a compilation failure the error is an *Error carrying the compiler's
// diagnostic plus an annotated source listing; failures are not cached, so
// a later call retries the compile.
func (c *Cache) Compile(name, source string, stage gputypes.ShaderStage) (*Artifact, error) {
	key := NewKey(source, stage)

	if cached, ok := c.entries.Load(key); ok {
		c.hits.Add(1)
		return cached.(*Artifact), nil
	}
	c.misses.Add(1)

	if c.compiler == nil {
		return nil, ErrNoCompiler
	}
	binary, err := c.compiler(name, source, stage)
	if err != nil {
		c.failures.Add(1)
		return nil, &Error{
			Name:       name,
			Stage:      stage,
			Diagnostic: err.Error(),
			Listing:    annotateListing(source, err.Error()),
		}
	}

	artifact := &Artifact{key: key, name: name, stage: stage, binary: binary}
	if _, loaded := c.entries.Swap(key, artifact); !loaded {
		c.size.Add(1)
	}
	slogger().Debug("shader compiled", "name", name, "stage", stage, "bytes", len(binary))
	return artifact, nil
}

// Get returns the cached artifact for a key without compiling.
func (c *Cache) Get(key Key) (*Artifact, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Artifact), true
}

// Size returns the number of cached artifacts.
func (c *Cache) Size() int {
	return int(c.size.Load())
}

// Clear drops every cached artifact and resets the statistics.
func (c *Cache) Clear() {
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
	c.size.Store(0)
	c.hits.Store(0)
	c.misses.Store(0)
	c.failures.Store(0)
}

// Stats reports cache counters.
type Stats struct {
	// Size is the number of cached artifacts.
	Size int

	// Hits is the number of cache hits.
	Hits uint64

	// Misses is the number of cache misses.
	Misses uint64

	// Failures is the number of failed compiles.
	Failures uint64
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Size:     c.Size(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
	}
}

// Artifact is one compiled shader binary plus its identity.
// Artifacts are immutable; the binary is shared, not copied.
type Artifact struct {
	key    Key
	name   string
	stage  gputypes.ShaderStage
	binary []byte
}

// Key returns the artifact's cache key.
func (a *Artifact) Key() Key { return a.key }

// Name returns the debug label the artifact was compiled under.
func (a *Artifact) Name() string { return a.name }

// Stage returns the shader stage the artifact was compiled for.
func (a *Artifact) Stage() gputypes.ShaderStage { return a.stage }

// Binary returns the compiled bytes. Callers must not modify the slice.
func (a *Artifact) Binary() []byte { return a.binary }

// Words repacks the binary as little-endian 32-bit SPIR-V words for
// pipeline builders that consume word slices. A trailing partial word is
// dropped.
func (a *Artifact) Words() []uint32 {
	words := make([]uint32, len(a.binary)/4)
	for i := range words {
		words[i] = uint32(a.binary[i*4]) |
			uint32(a.binary[i*4+1])<<8 |
			uint32(a.binary[i*4+2])<<16 |
			uint32(a.binary[i*4+3])<<24
	}
	return words
}

// Error is a compilation failure with enough context to debug it: the
// external compiler's diagnostic plus a line-numbered source listing
// windowed around every line the diagnostic mentions.
type Error struct {
	// Name is the shader's debug label.
	Name string

	// Stage is the stage that was being compiled.
	Stage gputypes.ShaderStage

	// Diagnostic is the external compiler's error text.
	Diagnostic string

	// Listing is the annotated source listing.
	Listing string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("shadercache: compile %s failed: %s\n%s", e.Name, e.Diagnostic, e.Listing)
}
