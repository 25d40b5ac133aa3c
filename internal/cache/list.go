package cache

// node is an element of the recency list. Nodes carry their key so an
// evicted tail can be deleted from the owning map in O(1).
type node[K comparable] struct {
	key        K
	prev, next *node[K]
}

// list orders keys by recency with the most recent at the front. It is
// not safe for concurrent use; the owning cache serializes access.
type list[K comparable] struct {
	front *node[K]
	back  *node[K]
}

func (l *list[K]) pushFront(key K) *node[K] {
	n := &node[K]{key: key, next: l.front}
	if l.front != nil {
		l.front.prev = n
	} else {
		l.back = n
	}
	l.front = n
	return n
}

func (l *list[K]) moveToFront(n *node[K]) {
	if n == l.front {
		return
	}
	l.unlink(n)
	n.next = l.front
	l.front.prev = n
	l.front = n
}

// popBack unlinks and returns the least recently used key.
func (l *list[K]) popBack() (K, bool) {
	if l.back == nil {
		var zero K
		return zero, false
	}
	key := l.back.key
	l.unlink(l.back)
	return key, true
}

func (l *list[K]) unlink(n *node[K]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.front = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.back = n.prev
	}
	n.prev, n.next = nil, nil
}
