package fbcache

// TargetState tracks where a logical target is in its lifecycle.
type TargetState int

const (
	// TargetUnbound means the target has never been bound since its
	// creation or its last attachment change.
	TargetUnbound TargetState = iota

	// TargetBound means the target is the currently active one.
	TargetBound

	// TargetCached means the target holds a cache entry but another
	// target is active.
	TargetCached

	// TargetDestroyed means the target released its entry and can no
	// longer be bound.
	TargetDestroyed
)

func (s TargetState) String() string {
	switch s {
	case TargetUnbound:
		return "unbound"
	case TargetBound:
		return "bound"
	case TargetCached:
		return "cached"
	case TargetDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Target is a logical render target: a mutable attachment set plus a
// reference to the shared cache entry it currently resolves to. Two
// targets with identical attachment sets share one entry.
type Target struct {
	cache    *Cache
	set      AttachmentSet
	entry    *Framebuffer
	resolved bool
	dead     bool
}

// State returns the target's lifecycle state. A target that resolved an
// entry is Bound while that entry is the cache's active one and Cached
// once another target takes over.
func (t *Target) State() TargetState {
	switch {
	case t.dead:
		return TargetDestroyed
	case !t.resolved:
		return TargetUnbound
	case t.cache.current == t.entry:
		return TargetBound
	default:
		return TargetCached
	}
}

// Entry returns the cache entry the target resolved to on its last bind,
// or nil while unbound.
func (t *Target) Entry() *Framebuffer {
	if !t.resolved {
		return nil
	}
	return t.entry
}

// SetColor assigns a color attachment. A change invalidates the resolved
// entry; the old reference is released on the next bind, not immediately,
// so the entry stays alive for any targets still sharing it.
func (t *Target) SetColor(slot uint32, att Attachment) {
	t.set.SetColor(slot, att)
	t.resolved = false
}

// ClearColor removes a color attachment.
func (t *Target) ClearColor(slot uint32) {
	t.set.ClearColor(slot)
	t.resolved = false
}

// SetDepth assigns the depth attachment.
func (t *Target) SetDepth(att Attachment) {
	t.set.SetDepth(att)
	t.resolved = false
}

// ClearDepth removes the depth attachment.
func (t *Target) ClearDepth() {
	t.set.ClearDepth()
	t.resolved = false
}

// SetUsage sets the usage tag mixed into the fingerprint.
func (t *Target) SetUsage(u Usage) {
	t.set.SetUsage(u)
	t.resolved = false
}

// Bind resolves the target's attachment set to a cache entry and makes it
// the active framebuffer for the given frame.
//
// Binding the entry that is already active is a complete no-op: no pass is
// restarted and no clear state is consulted. When the active entry does
// change, the pass variant is chosen by the depth image's once-per-frame
// clear state, and the begin callback (if any) fires with the chosen
// variant.
func (t *Target) Bind(frame uint64) (*Framebuffer, error) {
	if t.dead {
		return nil, ErrTargetDestroyed
	}

	if !t.resolved {
		if t.set.Len() == 0 && t.set.Depth() == nil {
			return nil, ErrNoAttachments
		}
		entry, err := t.cache.acquire(&t.set)
		if err != nil {
			return nil, err
		}
		if t.entry == entry {
			// Re-resolved to the same entry; undo the double count.
			entry.refs--
		} else if t.entry != nil {
			t.cache.release(t.entry)
		}
		t.entry = entry
		t.resolved = true
	}

	c := t.cache
	if c.current == t.entry {
		return t.entry, nil
	}

	pass := t.entry.loadPass
	if d := t.set.Depth(); d != nil && c.shouldClear(d.ID, frame) {
		pass = t.entry.clearPass
	}
	c.current = t.entry
	c.currentPass = pass
	c.passBegins++
	if c.begin != nil {
		c.begin(t.entry, pass)
	}
	return t.entry, nil
}

// Destroy releases the target's reference to its cache entry. The entry
// itself is destroyed only when the last sharing target detaches.
func (t *Target) Destroy() {
	if t.dead {
		return
	}
	if t.entry != nil {
		t.cache.release(t.entry)
		t.entry = nil
	}
	t.resolved = false
	t.dead = true
}
