package fbcache

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// fakeView is a test double for hal.TextureView.
type fakeView struct {
	label string
}

func (v *fakeView) Destroy() {}

func (v *fakeView) NativeHandle() uintptr { return 0 }

// countingFactory records framebuffer creations and destructions.
type countingFactory struct {
	created   int
	destroyed int
	live      map[any]bool
}

func newCountingFactory() *countingFactory {
	return &countingFactory{live: make(map[any]bool)}
}

func (f *countingFactory) CreateFramebuffer(set *AttachmentSet) (any, error) {
	f.created++
	handle := new(int)
	*handle = f.created
	f.live[handle] = true
	return handle, nil
}

func (f *countingFactory) DestroyFramebuffer(handle any) {
	if !f.live[handle] {
		panic("destroy of unknown or already destroyed framebuffer")
	}
	delete(f.live, handle)
	f.destroyed++
}

func colorAtt(id uint64) Attachment {
	return Attachment{
		View:   &fakeView{label: "color"},
		ID:     id,
		Format: gputypes.TextureFormatRGBA8Unorm,
	}
}

func depthAtt(id uint64) Attachment {
	return Attachment{
		View:   &fakeView{label: "depth"},
		ID:     id,
		Format: gputypes.TextureFormatDepth24PlusStencil8,
	}
}

func TestTargetsWithEqualAttachmentsShareEntry(t *testing.T) {
	factory := newCountingFactory()
	cache := NewCache(factory, nil)

	a := cache.NewTarget()
	a.SetColor(0, colorAtt(10))
	a.SetDepth(depthAtt(20))

	b := cache.NewTarget()
	b.SetColor(0, colorAtt(10))
	b.SetDepth(depthAtt(20))

	entryA, err := a.Bind(1)
	if err != nil {
		t.Fatalf("bind a: %v", err)
	}
	entryB, err := b.Bind(1)
	if err != nil {
		t.Fatalf("bind b: %v", err)
	}

	if entryA != entryB {
		t.Error("targets with identical attachments got distinct framebuffers")
	}
	if factory.created != 1 {
		t.Errorf("created = %d, want 1", factory.created)
	}
	if got := entryA.RefCount(); got != 2 {
		t.Errorf("refcount = %d, want 2", got)
	}
	if cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", cache.Len())
	}
}

func TestDifferentAttachmentsGetDistinctEntries(t *testing.T) {
	factory := newCountingFactory()
	cache := NewCache(factory, nil)

	a := cache.NewTarget()
	a.SetColor(0, colorAtt(10))

	b := cache.NewTarget()
	b.SetColor(0, colorAtt(11))

	entryA, _ := a.Bind(1)
	entryB, _ := b.Bind(1)
	if entryA == entryB {
		t.Fatal("targets with different backing images shared a framebuffer")
	}
	if factory.created != 2 {
		t.Errorf("created = %d, want 2", factory.created)
	}
}

func TestDestroyDecrementsByExactlyOne(t *testing.T) {
	factory := newCountingFactory()
	cache := NewCache(factory, nil)

	a := cache.NewTarget()
	a.SetColor(0, colorAtt(10))
	b := cache.NewTarget()
	b.SetColor(0, colorAtt(10))

	entry, _ := a.Bind(1)
	if _, err := b.Bind(1); err != nil {
		t.Fatalf("bind b: %v", err)
	}

	a.Destroy()
	if got := entry.RefCount(); got != 1 {
		t.Errorf("refcount after one destroy = %d, want 1", got)
	}
	if factory.destroyed != 0 {
		t.Error("shared framebuffer destroyed while still referenced")
	}

	// Destroy is idempotent; a second call must not decrement again.
	a.Destroy()
	if got := entry.RefCount(); got != 1 {
		t.Errorf("refcount after repeated destroy = %d, want 1", got)
	}

	b.Destroy()
	if factory.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", factory.destroyed)
	}
	if cache.Len() != 0 {
		t.Errorf("cache len = %d, want 0", cache.Len())
	}
}

func TestBindAfterDestroyFails(t *testing.T) {
	cache := NewCache(newCountingFactory(), nil)
	tgt := cache.NewTarget()
	tgt.SetColor(0, colorAtt(1))
	tgt.Destroy()
	if _, err := tgt.Bind(1); err != ErrTargetDestroyed {
		t.Errorf("err = %v, want ErrTargetDestroyed", err)
	}
	if got := tgt.State(); got != TargetDestroyed {
		t.Errorf("state = %v, want destroyed", got)
	}
}

func TestBindWithoutAttachmentsFails(t *testing.T) {
	cache := NewCache(newCountingFactory(), nil)
	tgt := cache.NewTarget()
	if _, err := tgt.Bind(1); err != ErrNoAttachments {
		t.Errorf("err = %v, want ErrNoAttachments", err)
	}
}

func TestDepthClearedOncePerFrame(t *testing.T) {
	// Two targets share one depth image but differ in color attachments.
	// Whichever binds first within a frame gets the clearing pass variant;
	// the other must load.
	run := func(t *testing.T, firstColor, secondColor uint64) {
		factory := newCountingFactory()
		var passes []string
		cache := NewCache(factory, func(fb *Framebuffer, pass *hal.RenderPassDescriptor) {
			passes = append(passes, pass.Label)
		})

		depth := depthAtt(99)
		first := cache.NewTarget()
		first.SetColor(0, colorAtt(firstColor))
		first.SetDepth(depth)
		second := cache.NewTarget()
		second.SetColor(0, colorAtt(secondColor))
		second.SetDepth(depth)

		if _, err := first.Bind(1); err != nil {
			t.Fatalf("bind first: %v", err)
		}
		if _, err := second.Bind(1); err != nil {
			t.Fatalf("bind second: %v", err)
		}

		want := []string{"fbcache_clear", "fbcache_load"}
		if len(passes) != len(want) {
			t.Fatalf("passes = %v, want %v", passes, want)
		}
		for i := range want {
			if passes[i] != want[i] {
				t.Errorf("pass %d = %q, want %q", i, passes[i], want[i])
			}
		}

		// Next frame the clear state resets.
		passes = nil
		if _, err := first.Bind(2); err != nil {
			t.Fatalf("rebind first: %v", err)
		}
		if len(passes) != 1 || passes[0] != "fbcache_clear" {
			t.Errorf("frame 2 passes = %v, want clear", passes)
		}
	}

	t.Run("order_ab", func(t *testing.T) { run(t, 10, 11) })
	t.Run("order_ba", func(t *testing.T) { run(t, 11, 10) })
}

func TestRedundantBindDoesNotRestartPass(t *testing.T) {
	factory := newCountingFactory()
	var begins int
	cache := NewCache(factory, func(*Framebuffer, *hal.RenderPassDescriptor) { begins++ })

	tgt := cache.NewTarget()
	tgt.SetColor(0, colorAtt(10))
	tgt.SetDepth(depthAtt(20))

	for i := 0; i < 5; i++ {
		if _, err := tgt.Bind(1); err != nil {
			t.Fatalf("bind %d: %v", i, err)
		}
	}
	if begins != 1 {
		t.Errorf("begin calls = %d, want 1", begins)
	}

	// A second target resolving to the same entry must also be a no-op.
	other := cache.NewTarget()
	other.SetColor(0, colorAtt(10))
	other.SetDepth(depthAtt(20))
	if _, err := other.Bind(1); err != nil {
		t.Fatalf("bind other: %v", err)
	}
	if begins != 1 {
		t.Errorf("begin calls after aliased bind = %d, want 1", begins)
	}

	stats := cache.Stats()
	if stats.PassBegins != 1 || stats.Created != 1 || stats.Entries != 1 {
		t.Errorf("stats = %+v, want 1 begin, 1 created, 1 entry", stats)
	}
}

func TestReallocationChangesFingerprint(t *testing.T) {
	factory := newCountingFactory()
	cache := NewCache(factory, nil)

	tgt := cache.NewTarget()
	tgt.SetColor(0, colorAtt(10))
	first, _ := tgt.Bind(1)

	// Same slot, same format, new backing image: a resize reallocated the
	// texture behind the stable logical id.
	tgt.SetColor(0, colorAtt(42))
	second, err := tgt.Bind(2)
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if first == second {
		t.Error("reallocated backing image reused the stale framebuffer")
	}
	if factory.destroyed != 1 {
		t.Errorf("stale framebuffer destroy count = %d, want 1", factory.destroyed)
	}
}

func TestUsageParticipatesInFingerprint(t *testing.T) {
	cache := NewCache(newCountingFactory(), nil)

	a := cache.NewTarget()
	a.SetColor(0, colorAtt(10))
	a.SetUsage(UsageTexture)
	b := cache.NewTarget()
	b.SetColor(0, colorAtt(10))
	b.SetUsage(UsagePresent)

	entryA, _ := a.Bind(1)
	entryB, _ := b.Bind(1)
	if entryA == entryB {
		t.Error("different usage tags shared a framebuffer")
	}
}

func TestStateTransitions(t *testing.T) {
	cache := NewCache(newCountingFactory(), nil)

	a := cache.NewTarget()
	a.SetColor(0, colorAtt(1))
	b := cache.NewTarget()
	b.SetColor(0, colorAtt(2))

	if got := a.State(); got != TargetUnbound {
		t.Errorf("initial state = %v, want unbound", got)
	}
	if a.Entry() != nil {
		t.Error("fresh target already holds a cache entry")
	}
	if _, err := a.Bind(1); err != nil {
		t.Fatalf("bind a: %v", err)
	}
	if got := a.State(); got != TargetBound {
		t.Errorf("state after bind = %v, want bound", got)
	}
	if _, err := b.Bind(1); err != nil {
		t.Fatalf("bind b: %v", err)
	}
	if got := a.State(); got != TargetCached {
		t.Errorf("state after other bind = %v, want cached", got)
	}
	if got := b.State(); got != TargetBound {
		t.Errorf("b state = %v, want bound", got)
	}
	a.Destroy()
	if got := a.State(); got != TargetDestroyed {
		t.Errorf("state after destroy = %v, want destroyed", got)
	}
}

func TestAttachmentChangeReleasesOldEntryOnRebind(t *testing.T) {
	factory := newCountingFactory()
	cache := NewCache(factory, nil)

	tgt := cache.NewTarget()
	tgt.SetColor(0, colorAtt(1))
	if _, err := tgt.Bind(1); err != nil {
		t.Fatalf("bind: %v", err)
	}

	tgt.SetColor(0, colorAtt(2))
	if got := tgt.State(); got != TargetUnbound {
		t.Errorf("state after mutation = %v, want unbound", got)
	}
	// Old entry stays alive until the rebind resolves the new one.
	if factory.destroyed != 0 {
		t.Error("entry destroyed before rebind")
	}
	if _, err := tgt.Bind(1); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if factory.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", factory.destroyed)
	}
	if cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", cache.Len())
	}
}

func TestPassVariants(t *testing.T) {
	var set AttachmentSet
	set.SetColor(0, colorAtt(1))
	set.SetDepth(depthAtt(2))

	clearPass, loadPass := buildPasses(&set)

	if len(clearPass.ColorAttachments) != 1 || len(loadPass.ColorAttachments) != 1 {
		t.Fatal("missing color attachments in pass variants")
	}
	if clearPass.ColorAttachments[0].LoadOp != gputypes.LoadOpLoad {
		t.Error("clear variant must not clear color attachments")
	}
	if clearPass.DepthStencilAttachment == nil || loadPass.DepthStencilAttachment == nil {
		t.Fatal("missing depth attachment in pass variants")
	}
	if clearPass.DepthStencilAttachment.DepthLoadOp != gputypes.LoadOpClear {
		t.Error("clear variant must clear depth")
	}
	if clearPass.DepthStencilAttachment.DepthClearValue != 1.0 {
		t.Errorf("depth clear value = %v, want 1.0", clearPass.DepthStencilAttachment.DepthClearValue)
	}
	if loadPass.DepthStencilAttachment.DepthLoadOp != gputypes.LoadOpLoad {
		t.Error("load variant must preserve depth")
	}
}

func TestFingerprintIgnoresInsertionOrder(t *testing.T) {
	var a AttachmentSet
	a.SetColor(0, colorAtt(1))
	a.SetColor(1, colorAtt(2))

	var b AttachmentSet
	b.SetColor(1, colorAtt(2))
	b.SetColor(0, colorAtt(1))

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprint depends on assignment order")
	}
}
