package container

import (
	"errors"
	"hash/fnv"

	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// HashFunc computes a bucket hash for a key.
type HashFunc func(h *gc.Heap, v value.Value) uint64

// EqualFunc compares two keys for equality.
type EqualFunc func(h *gc.Heap, a, b value.Value) bool

// ErrHashKeyNotFound is raised (as ^rt-hash-key-not-found-error) when a lookup misses.
var ErrHashKeyNotFound = errors.New("hash: key not found")

type entry struct {
	key, val value.Value
	next     int // index into Hash.entries; -1 terminates the chain.
	used     bool
}

// Hash is an open-addressed table with chaining. Keys are compared using either C-equality
// (identity for symbols, content for strings — the default) or a user-supplied hash/equality pair.
type Hash struct {
	buckets  []int
	entries  []entry
	freeList []int
	count    int

	hashFn HashFunc
	eqFn   EqualFunc

	weakKeys bool
}

func (hh *Hash) Type() value.Type { return value.TypeHash }

func (hh *Hash) References() []value.Value {
	refs := make([]value.Value, 0, hh.count*2)

	for _, e := range hh.entries {
		if !e.used {
			continue
		}

		if !hh.weakKeys {
			refs = append(refs, e.key)
		}

		refs = append(refs, e.val)
	}

	return refs
}

// CEqual is the default key equality: content equality for strings/substrings, identity (raw
// Value equality — symbols are interned, so this is also content equality for them) otherwise.
func CEqual(h *gc.Heap, a, b value.Value) bool {
	if a == b {
		return true
	}

	if a.IsPointer() && b.IsPointer() {
		ta, _ := h.Object(a)
		tb, _ := h.Object(b)

		if (ta == value.TypeString || ta == value.TypeSubstring) &&
			(tb == value.TypeString || tb == value.TypeSubstring) {
			return Equal(h, a, b)
		}
	}

	return false
}

// CHash is the default hash function, matching CEqual's notion of equality.
func CHash(h *gc.Heap, v value.Value) uint64 {
	if v.IsPointer() {
		typ, _ := h.Object(v)
		if typ == value.TypeString || typ == value.TypeSubstring {
			f := fnv.New64a()

			for _, r := range Runes(h, v) {
				_, _ = f.Write([]byte{byte(r), byte(r >> 8), byte(r >> 16), byte(r >> 24)})
			}

			return f.Sum64()
		}
	}

	return uint64(v)
}

const initialBuckets = 16

// NewHash allocates a hash using the default C-equality hash/equal functions.
func NewHash(h *gc.Heap) value.Value {
	return NewHashFunc(h, CHash, CEqual)
}

// NewHashFunc allocates a hash with user-supplied hash and equality functions.
func NewHashFunc(h *gc.Heap, hashFn HashFunc, eqFn EqualFunc) value.Value {
	buckets := make([]int, initialBuckets)
	for i := range buckets {
		buckets[i] = -1
	}

	return h.Alloc(value.TypeHash, nil, &Hash{
		buckets: buckets,
		hashFn:  hashFn,
		eqFn:    eqFn,
	})
}

// NewWeakHash allocates a hash whose keys are weakly held: see [PurgeWeakHash].
func NewWeakHash(h *gc.Heap) value.Value {
	buckets := make([]int, initialBuckets)
	for i := range buckets {
		buckets[i] = -1
	}

	return h.Alloc(value.TypeHash, nil, &Hash{
		buckets:  buckets,
		hashFn:   CHash,
		eqFn:     CEqual,
		weakKeys: true,
	})
}

func asHash(h *gc.Heap, v value.Value) *Hash {
	typ, payload := h.Object(v)
	if typ != value.TypeHash {
		panic("container: not a hash: " + v.String())
	}

	return payload.(*Hash)
}

func (hh *Hash) bucketFor(h *gc.Heap, key value.Value) int {
	return int(hh.hashFn(h, key) % uint64(len(hh.buckets)))
}

// HashRef looks up key, returning ErrHashKeyNotFound if absent.
func HashRef(h *gc.Heap, v, key value.Value) (value.Value, error) {
	hh := asHash(h, v)

	b := hh.bucketFor(h, key)

	for i := hh.buckets[b]; i != -1; i = hh.entries[i].next {
		if hh.entries[i].used && hh.eqFn(h, hh.entries[i].key, key) {
			return hh.entries[i].val, nil
		}
	}

	return value.Value(0), ErrHashKeyNotFound
}

// HashSet inserts or updates key -> val.
func HashSet(h *gc.Heap, v, key, val value.Value) {
	hh := asHash(h, v)

	b := hh.bucketFor(h, key)

	for i := hh.buckets[b]; i != -1; i = hh.entries[i].next {
		if hh.entries[i].used && hh.eqFn(h, hh.entries[i].key, key) {
			hh.entries[i].val = val
			return
		}
	}

	if hh.count+1 > len(hh.buckets)*2 {
		hh.rehash(h, len(hh.buckets)*2)
		b = hh.bucketFor(h, key)
	}

	idx := hh.allocEntry()
	hh.entries[idx] = entry{key: key, val: val, next: hh.buckets[b], used: true}
	hh.buckets[b] = idx
	hh.count++
}

func (hh *Hash) allocEntry() int {
	if n := len(hh.freeList); n > 0 {
		idx := hh.freeList[n-1]
		hh.freeList = hh.freeList[:n-1]

		return idx
	}

	hh.entries = append(hh.entries, entry{})

	return len(hh.entries) - 1
}

func (hh *Hash) rehash(h *gc.Heap, newSize int) {
	buckets := make([]int, newSize)
	for i := range buckets {
		buckets[i] = -1
	}

	for i := range hh.entries {
		if !hh.entries[i].used {
			continue
		}

		b := int(hh.hashFn(h, hh.entries[i].key) % uint64(newSize))
		hh.entries[i].next = buckets[b]
		buckets[b] = i
	}

	hh.buckets = buckets
}

// HashDelete removes key, if present, returning whether it was found.
func HashDelete(h *gc.Heap, v, key value.Value) bool {
	hh := asHash(h, v)

	b := hh.bucketFor(h, key)
	prev := -1

	for i := hh.buckets[b]; i != -1; i = hh.entries[i].next {
		if hh.entries[i].used && hh.eqFn(h, hh.entries[i].key, key) {
			if prev == -1 {
				hh.buckets[b] = hh.entries[i].next
			} else {
				hh.entries[prev].next = hh.entries[i].next
			}

			hh.entries[i] = entry{}
			hh.freeList = append(hh.freeList, i)
			hh.count--

			return true
		}

		prev = i
	}

	return false
}

// HashCount returns the number of live keys.
func HashCount(h *gc.Heap, v value.Value) int {
	return asHash(h, v).count
}

// HashKeys returns every live key, in unspecified order.
func HashKeys(h *gc.Heap, v value.Value) []value.Value {
	hh := asHash(h, v)
	keys := make([]value.Value, 0, hh.count)

	for _, e := range hh.entries {
		if e.used {
			keys = append(keys, e.key)
		}
	}

	return keys
}

// PurgeWeakHash drops every entry whose key is no longer reachable, per the GC's most recent
// collection. It is meaningful only on a hash created with [NewWeakHash], and only immediately
// after a gc.Heap.Collect call.
func PurgeWeakHash(h *gc.Heap, v value.Value) {
	hh := asHash(h, v)
	if !hh.weakKeys {
		return
	}

	for i := range hh.entries {
		if hh.entries[i].used && hh.entries[i].key.IsPointer() && !h.Reachable(hh.entries[i].key) {
			hh.entries[i] = entry{}
			hh.freeList = append(hh.freeList, i)
			hh.count--
		}
	}

	// Rebuild buckets since chains were mutated in place.
	for b := range hh.buckets {
		hh.buckets[b] = -1
	}

	for i := range hh.entries {
		if hh.entries[i].used {
			b := hh.bucketFor(h, hh.entries[i].key)
			hh.entries[i].next = hh.buckets[b]
			hh.buckets[b] = i
		}
	}
}
