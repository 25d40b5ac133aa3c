package fbcache

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Cache errors.
var (
	// ErrTargetDestroyed is returned when binding a destroyed target.
	ErrTargetDestroyed = errors.New("fbcache: target has been destroyed")

	// ErrNoAttachments is returned when binding a target with no
	// attachments assigned.
	ErrNoAttachments = errors.New("fbcache: target has no attachments")
)

// Factory creates and destroys the host renderer's framebuffer objects.
// The cache never interprets the returned handle; it only stores it and
// hands it back on bind and destroy.
type Factory interface {
	// CreateFramebuffer builds a framebuffer for an attachment set.
	CreateFramebuffer(set *AttachmentSet) (any, error)

	// DestroyFramebuffer releases a framebuffer previously created by
	// CreateFramebuffer. Called exactly once per handle, when the last
	// reference detaches.
	DestroyFramebuffer(handle any)
}

// BeginFunc is invoked when a bind actually changes the active
// framebuffer/pass combination. Consecutive binds resolving to the pass
// already active never invoke it: that is the cache's no-redundant-restart
// guarantee.
type BeginFunc func(fb *Framebuffer, pass *hal.RenderPassDescriptor)

// Framebuffer is a shared, reference-counted cache entry: the host
// framebuffer handle plus the two precomputed pass variants. Every logical
// target whose attachment set fingerprints equally attaches to the same
// Framebuffer.
type Framebuffer struct {
	fingerprint uint64
	handle      any
	clearPass   *hal.RenderPassDescriptor
	loadPass    *hal.RenderPassDescriptor
	refs        int
}

// Fingerprint returns the attachment-set fingerprint the entry is keyed by.
func (f *Framebuffer) Fingerprint() uint64 { return f.fingerprint }

// Native returns the host framebuffer handle.
func (f *Framebuffer) Native() any { return f.handle }

// RefCount returns the number of targets attached to the entry.
func (f *Framebuffer) RefCount() int { return f.refs }

// ClearPass returns the pass variant that clears the depth attachment.
func (f *Framebuffer) ClearPass() *hal.RenderPassDescriptor { return f.clearPass }

// LoadPass returns the pass variant that preserves all attachments.
func (f *Framebuffer) LoadPass() *hal.RenderPassDescriptor { return f.loadPass }

// Cache owns the fingerprint-keyed framebuffer entries, the per-depth
// clear state, and the identity of the currently active entry.
//
// Cache is not safe for concurrent use: refcount bookkeeping assumes the
// single render thread mutates it.
type Cache struct {
	factory Factory
	begin   BeginFunc

	entries map[uint64]*Framebuffer
	clears  map[uint64]uint64 // depth image ID -> last cleared frame

	current     *Framebuffer
	currentPass *hal.RenderPassDescriptor

	created    uint64
	destroyed  uint64
	passBegins uint64
}

// Stats reports cache counters.
type Stats struct {
	// Entries is the number of live framebuffer entries.
	Entries int

	// Created counts framebuffer creations over the cache's lifetime.
	Created uint64

	// Destroyed counts framebuffer destructions.
	Destroyed uint64

	// PassBegins counts binds that actually changed the active pass.
	// Binds resolving to the already-active entry do not count.
	PassBegins uint64
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:    len(c.entries),
		Created:    c.created,
		Destroyed:  c.destroyed,
		PassBegins: c.passBegins,
	}
}

// NewCache creates an empty cache. begin may be nil when the host polls
// the bind result instead of being called back.
func NewCache(factory Factory, begin BeginFunc) *Cache {
	return &Cache{
		factory: factory,
		begin:   begin,
		entries: make(map[uint64]*Framebuffer),
		clears:  make(map[uint64]uint64),
	}
}

// Len returns the number of live cache entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Current returns the currently active entry, or nil.
func (c *Cache) Current() *Framebuffer {
	return c.current
}

// CurrentPass returns the pass variant the active entry was begun with, or
// nil when nothing is bound. Hosts that restart their command encoder
// mid-frame re-begin from this descriptor.
func (c *Cache) CurrentPass() *hal.RenderPassDescriptor {
	return c.currentPass
}

// NewTarget creates an unbound logical render target attached to the cache.
func (c *Cache) NewTarget() *Target {
	return &Target{cache: c}
}

// acquire returns the entry for a fingerprint, creating it on first miss,
// and takes one reference.
func (c *Cache) acquire(set *AttachmentSet) (*Framebuffer, error) {
	fp := set.Fingerprint()
	if entry, ok := c.entries[fp]; ok {
		entry.refs++
		return entry, nil
	}

	snapshot := set.clone()
	handle, err := c.factory.CreateFramebuffer(snapshot)
	if err != nil {
		return nil, fmt.Errorf("fbcache: create framebuffer: %w", err)
	}
	clearPass, loadPass := buildPasses(snapshot)
	entry := &Framebuffer{
		fingerprint: fp,
		handle:      handle,
		clearPass:   clearPass,
		loadPass:    loadPass,
		refs:        1,
	}
	c.entries[fp] = entry
	c.created++
	slogger().Debug("framebuffer created", "fingerprint", fp, "colors", set.Len(), "depth", set.Depth() != nil)
	return entry, nil
}

// release drops one reference and destroys the entry when the last
// detaches. Shared state referenced by other targets is never destroyed.
func (c *Cache) release(entry *Framebuffer) {
	entry.refs--
	if entry.refs > 0 {
		return
	}
	delete(c.entries, entry.fingerprint)
	if c.current == entry {
		c.current = nil
		c.currentPass = nil
	}
	c.factory.DestroyFramebuffer(entry.handle)
	c.destroyed++
	slogger().Debug("framebuffer destroyed", "fingerprint", entry.fingerprint)
}

// shouldClear reports whether a depth image still needs its once-per-frame
// clear, and records the clear when it does. Independent targets sharing
// one depth image therefore observe exactly one clear per frame between
// them, in whatever order they bind.
func (c *Cache) shouldClear(depthID, frame uint64) bool {
	if last, ok := c.clears[depthID]; ok && last == frame {
		return false
	}
	c.clears[depthID] = frame
	return true
}

// buildPasses precomputes the entry's two render-pass variants. The clear
// variant clears the depth attachment and loads color; the load variant
// preserves everything. Color clears are the host's business (it clears
// specific logical textures, not whole framebuffers).
func buildPasses(set *AttachmentSet) (clearPass, loadPass *hal.RenderPassDescriptor) {
	colors := make([]hal.RenderPassColorAttachment, 0, set.Len())
	for _, slot := range set.slots() {
		att, _ := set.Color(slot)
		colors = append(colors, hal.RenderPassColorAttachment{
			View:    att.View,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		})
	}

	clearPass = &hal.RenderPassDescriptor{Label: "fbcache_clear", ColorAttachments: colors}
	loadPass = &hal.RenderPassDescriptor{Label: "fbcache_load", ColorAttachments: colors}

	if d := set.Depth(); d != nil {
		clearPass.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            d.View,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1.0,
			StencilLoadOp:   gputypes.LoadOpClear,
			StencilStoreOp:  gputypes.StoreOpStore,
		}
		loadPass.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:           d.View,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		}
	}
	return clearPass, loadPass
}
