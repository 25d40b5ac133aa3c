// Package fbcache caches framebuffer objects and their render-pass
// variants by attachment identity.
//
// Many logical render targets describe the same physical attachment set;
// creating one framebuffer per logical target wastes GPU objects and, much
// worse, forces a render-pass restart between consecutive draws that (in
// physical terms) share a target. The cache keys framebuffers by a
// fingerprint over the live backing-image identities, reference-counts the
// shared objects, and tracks per-depth-image clear state so a depth buffer
// shared by several targets is cleared at most once per frame.
//
// The cache assumes a single mutator (the render thread); it performs no
// internal locking and must not be called from multiple goroutines without
// external synchronization.
package fbcache

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Usage tags the final layout/usage a framebuffer's attachments transition
// to when its pass ends. It participates in the fingerprint: two sets with
// identical images but different final usage need distinct pass objects.
type Usage uint8

const (
	// UsageTexture transitions attachments for subsequent sampling.
	UsageTexture Usage = iota

	// UsagePresent transitions attachments for presentation.
	UsagePresent
)

// Attachment is one backing image bound to a framebuffer slot.
type Attachment struct {
	// View is the live texture view bound to the slot.
	View hal.TextureView

	// ID is the backing image's identity from the host's texture
	// subsystem. It must change when the image is reallocated (e.g. on
	// resize) even if the logical texture keeps its id; the fingerprint
	// hashes this value, which is how silent reallocation is caught.
	ID uint64

	// Format is the image's texture format.
	Format gputypes.TextureFormat
}

// AttachmentSet is an unordered collection of color attachments by slot
// plus an optional depth attachment and the final usage tag.
type AttachmentSet struct {
	colors map[uint32]Attachment
	depth  *Attachment
	usage  Usage
}

// SetColor assigns an attachment to a color slot.
func (s *AttachmentSet) SetColor(slot uint32, att Attachment) {
	if s.colors == nil {
		s.colors = make(map[uint32]Attachment)
	}
	s.colors[slot] = att
}

// ClearColor removes the attachment from a color slot.
func (s *AttachmentSet) ClearColor(slot uint32) {
	delete(s.colors, slot)
}

// Color returns the attachment in a color slot.
func (s *AttachmentSet) Color(slot uint32) (Attachment, bool) {
	att, ok := s.colors[slot]
	return att, ok
}

// SetDepth assigns the depth attachment.
func (s *AttachmentSet) SetDepth(att Attachment) {
	s.depth = &att
}

// ClearDepth removes the depth attachment.
func (s *AttachmentSet) ClearDepth() {
	s.depth = nil
}

// Depth returns the depth attachment, or nil when the set has none.
func (s *AttachmentSet) Depth() *Attachment {
	return s.depth
}

// SetUsage sets the final usage tag.
func (s *AttachmentSet) SetUsage(u Usage) {
	s.usage = u
}

// Usage returns the final usage tag.
func (s *AttachmentSet) Usage() Usage {
	return s.usage
}

// Len returns the number of assigned color slots.
func (s *AttachmentSet) Len() int {
	return len(s.colors)
}

// slots returns the assigned color slot indices in ascending order.
func (s *AttachmentSet) slots() []uint32 {
	out := make([]uint32, 0, len(s.colors))
	for slot := range s.colors {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// clone returns a deep copy. Cache entries snapshot the set they were
// created from so later target mutations cannot alias into them.
func (s *AttachmentSet) clone() *AttachmentSet {
	c := &AttachmentSet{usage: s.usage}
	if len(s.colors) > 0 {
		c.colors = make(map[uint32]Attachment, len(s.colors))
		for slot, att := range s.colors {
			c.colors[slot] = att
		}
	}
	if s.depth != nil {
		d := *s.depth
		c.depth = &d
	}
	return c
}

// Fingerprint combines every identity-relevant member into the cache key:
// slot indices, the live backing-image IDs (not stable logical ids),
// formats, the depth image, and the usage tag. Two sets with equal
// fingerprints resolve to the same cached framebuffer regardless of which
// logical target describes them.
func (s *AttachmentSet) Fingerprint() uint64 {
	h := fnv.New64a()
	for _, slot := range s.slots() {
		att := s.colors[slot]
		hashUint32(h, slot)
		hashUint64(h, att.ID)
		hashUint32(h, uint32(att.Format))
	}
	if s.depth != nil {
		hashUint32(h, 0xFFFFFFFF) // depth marker, cannot collide with a slot run
		hashUint64(h, s.depth.ID)
		hashUint32(h, uint32(s.depth.Format))
	}
	_, _ = h.Write([]byte{byte(s.usage)})
	return h.Sum64()
}

// hashUint32 writes a uint32 to the hash.
func hashUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashUint64 writes a uint64 to the hash.
func hashUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}
