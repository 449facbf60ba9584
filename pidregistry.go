package policy

// pidHashSize is the pid registry's bucket width (PA_POLICY_PID_HASH_MAX
// in the source). Must be a power of two.
const pidHashSize = 64
const pidHashMask = pidHashSize - 1

type pidEntry struct {
	pid      int
	stream   string // stream name; only meaningful when hasStrm is set
	hasStrm  bool   // false is the "no stream name" sentinel
	group    string
}

// pidRegistry is a short-chain hash keyed by (pid, stream-name) -> group,
// consulted as a fast override before stream rule-table matching. Bucket
// index is pid & pidHashMask, reproducing pid_hash_find's chaining
// without pointer arithmetic.
type pidRegistry struct {
	buckets [pidHashSize][]pidEntry
}

func pidBucket(pid int) int {
	return pid & pidHashMask
}

func (h *pidRegistry) find(pid int, stream string, hasStream bool) (int, bool) {
	b := h.buckets[pidBucket(pid)]
	for i, e := range b {
		if e.pid != pid {
			continue
		}
		if e.hasStrm != hasStream {
			continue
		}
		if hasStream && e.stream != stream {
			continue
		}
		return i, true
	}
	return -1, false
}

// Insert registers (pid, stream) -> group, overwriting any existing entry
// with the same (pid, stream) key. A zero pid or empty group is a no-op,
// matching pa_classify_register_pid's "if (pid && group)" guard.
func (h *pidRegistry) Insert(pid int, stream string, hasStream bool, group string) {
	if pid == 0 || group == "" {
		return
	}
	idx := pidBucket(pid)
	if i, ok := h.find(pid, stream, hasStream); ok {
		h.buckets[idx][i].group = group
		return
	}
	h.buckets[idx] = append(h.buckets[idx], pidEntry{pid: pid, stream: stream, hasStrm: hasStream, group: group})
}

// Remove unregisters (pid, stream); a no-op if pid is zero or no such
// entry exists.
func (h *pidRegistry) Remove(pid int, stream string, hasStream bool) {
	if pid == 0 {
		return
	}
	idx := pidBucket(pid)
	if i, ok := h.find(pid, stream, hasStream); ok {
		b := h.buckets[idx]
		h.buckets[idx] = append(b[:i], b[i+1:]...)
	}
}

// Lookup returns the group registered for (pid, stream), if any. A zero
// pid never matches.
func (h *pidRegistry) Lookup(pid int, stream string, hasStream bool) (string, bool) {
	if pid == 0 {
		return "", false
	}
	if i, ok := h.find(pid, stream, hasStream); ok {
		return h.buckets[pidBucket(pid)][i].group, true
	}
	return "", false
}
