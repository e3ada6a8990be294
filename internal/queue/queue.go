// Package queue holds the playback queue and its cursor.
package queue

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/austinkregel/local-media/ampd/internal/metadata"
)

// LoopMode represents the loop behavior at end of media
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopAll
	LoopOne
)

// String returns the display name of the mode
func (m LoopMode) String() string {
	switch m {
	case LoopAll:
		return "All"
	case LoopOne:
		return "One"
	default:
		return "Off"
	}
}

// Next returns the mode after m in the cycle Off -> All -> One -> Off
func (m LoopMode) Next() LoopMode {
	return (m + 1) % 3
}

// ParseLoopMode parses "off", "all" or "one" (case-insensitive)
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LoopOff, nil
	case "all", "playlist":
		return LoopAll, nil
	case "one", "track":
		return LoopOne, nil
	}
	return LoopOff, fmt.Errorf("unknown loop mode %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (m LoopMode) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(m.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *LoopMode) UnmarshalText(b []byte) error {
	parsed, err := ParseLoopMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Queue is an ordered list of track paths plus the current index.
// Metadata is read lazily and cached per index until the queue is replaced.
// A Queue is not safe for concurrent use; the transport loop owns it.
type Queue struct {
	paths []string
	index int
	cache map[int]metadata.Metadata
}

// New creates an empty queue
func New() *Queue {
	return &Queue{
		paths: []string{},
		index: -1,
		cache: make(map[int]metadata.Metadata),
	}
}

// Replace swaps in a new list of paths. The cursor moves to the first track,
// or becomes inactive when paths is empty.
func (q *Queue) Replace(paths []string) {
	q.paths = make([]string, len(paths))
	copy(q.paths, paths)
	q.cache = make(map[int]metadata.Metadata)
	if len(q.paths) == 0 {
		q.index = -1
	} else {
		q.index = 0
	}
}

// Len returns the number of tracks
func (q *Queue) Len() int {
	return len(q.paths)
}

// Empty reports whether the queue has no tracks
func (q *Queue) Empty() bool {
	return len(q.paths) == 0
}

// Index returns the current index, or -1 when the queue is empty
func (q *Queue) Index() int {
	return q.index
}

// SetIndex moves the cursor. It panics on an out-of-range index.
func (q *Queue) SetIndex(i int) {
	q.mustInRange(i)
	q.index = i
}

// Path returns the path at index i. It panics on an out-of-range index.
func (q *Queue) Path(i int) string {
	q.mustInRange(i)
	return q.paths[i]
}

// Current returns the current path, or "" when the queue is empty
func (q *Queue) Current() string {
	if q.index < 0 {
		return ""
	}
	return q.paths[q.index]
}

// Paths returns a copy of the queued paths
func (q *Queue) Paths() []string {
	out := make([]string, len(q.paths))
	copy(out, q.paths)
	return out
}

// IndexOf returns the index of path, or -1
func (q *Queue) IndexOf(path string) int {
	return lo.IndexOf(q.paths, path)
}

// Append adds path to the end and returns its index
func (q *Queue) Append(path string) int {
	q.paths = append(q.paths, path)
	if q.index < 0 {
		q.index = 0
	}
	return len(q.paths) - 1
}

// Wrap returns (i + delta) modulo the queue length
func (q *Queue) Wrap(i, delta int) int {
	n := len(q.paths)
	if n == 0 {
		return -1
	}
	return ((i+delta)%n + n) % n
}

// Metadata returns the cached metadata for index i, reading it with r on
// first access.
func (q *Queue) Metadata(i int, r metadata.Reader) metadata.Metadata {
	q.mustInRange(i)
	if md, ok := q.cache[i]; ok {
		return md
	}
	md := r.Read(q.paths[i])
	q.cache[i] = md
	return md
}

func (q *Queue) mustInRange(i int) {
	if i < 0 || i >= len(q.paths) {
		panic(fmt.Sprintf("queue: index %d out of range [0,%d)", i, len(q.paths)))
	}
}
