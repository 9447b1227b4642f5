package ddlog

// allocate returns a handle on a free position. When the free list is
// empty a new position is created after the highest one; the file grows
// on the first write to it
func (l *DDLLog) allocate() *memoryEntry {
	entry := l.firstFree
	if entry == nil {
		l.numEntries++
		entry = &memoryEntry{pos: l.numEntries}
	} else {
		l.firstFree = entry.next
	}

	entry.prev = nil
	entry.nextActive = nil
	entry.next = l.firstUsed
	if l.firstUsed != nil {
		l.firstUsed.prev = entry
	}
	l.firstUsed = entry
	l.usedEntries++
	l.metrics.setUsedEntries(l.usedEntries)
	return entry
}

// release moves the handle from the used list back to the free list
func (l *DDLLog) release(entry *memoryEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		l.firstUsed = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	}

	entry.prev = nil
	entry.nextActive = nil
	entry.next = l.firstFree
	l.firstFree = entry
	l.usedEntries--
	l.metrics.setUsedEntries(l.usedEntries)
}

// releaseAll drops every handle and forgets all positions
func (l *DDLLog) releaseAll() {
	for entry := l.firstUsed; entry != nil; {
		next := entry.next
		entry.next, entry.prev, entry.nextActive = nil, nil, nil
		entry = next
	}
	for entry := l.firstFree; entry != nil; {
		next := entry.next
		entry.next = nil
		entry = next
	}
	l.firstUsed = nil
	l.firstFree = nil
	l.numEntries = 0
	l.usedEntries = 0
	l.metrics.setUsedEntries(0)
}

// freeCount returns the length of the free list
func (l *DDLLog) freeCount() int {
	count := 0
	for entry := l.firstFree; entry != nil; entry = entry.next {
		count++
	}
	return count
}
