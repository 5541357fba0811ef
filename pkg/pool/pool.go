// Package pool provides object pooling for corpusgraph to reduce allocations
// on the hot paths of graph construction and the document-stream merger.
//
// Object pooling reuses allocated objects instead of creating new ones,
// reducing GC pressure on the importer fan-in (many small event batches) and
// the merger's per-document DFS (one node-id stack and annotation snapshot
// map per ordering chain walked).
//
// Pooled objects, and where each is actually used:
//   - Update-log event batches (internal/pipeline's importer fan-in, and
//     internal/manipulator/merge's final event-list construction)
//   - Node-id stacks (internal/manipulator/merge's per-chain DFS walk)
//   - String builders (internal/stageid.ID.String's step-identity composition)
//   - Annotation snapshot maps (internal/manipulator/merge's fold step)
//   - Node-name path-segment slices (reserved for callers that need a scratch
//     buffer while splitting a node name; SplitNodeName itself returns
//     strings.Split's own allocation since its result is retained beyond the
//     call, not transient)
//
// Usage:
//
//	// Get a slice from pool
//	batch := pool.GetEventBatch()
//	defer pool.PutEventBatch(batch)
//
//	// Use the slice...
//	batch = append(batch, ev)
package pool

import (
	"sync"

	"github.com/orneryd/corpusgraph/internal/updatelog"
)

// Config configures object pooling behavior.
type Config struct {
	// Enabled controls whether pooling is active.
	Enabled bool

	// MaxSize is the largest capacity (slice pools) or entry count
	// (annotation snapshot maps) an object may have and still be returned
	// to its pool; larger objects are dropped. String builders use a fixed
	// 64 KiB limit instead.
	MaxSize int
}

var globalConfig = Config{
	Enabled: true,
	MaxSize: 1000,
}

// Configure sets global pool configuration. Should be called early during
// initialization, before any pipeline run starts.
func Configure(config Config) {
	globalConfig = config
	initPools()
}

func initPools() {
	eventBatchPool = sync.Pool{
		New: func() any {
			return make([]updatelog.Event, 0, 64)
		},
	}
	nodeIDStackPool = sync.Pool{
		New: func() any {
			return make([]uint64, 0, 64)
		},
	}
	stringBuilderPool = sync.Pool{
		New: func() any {
			return &StringBuilder{buf: make([]byte, 0, 256)}
		},
	}
	annoSnapshotPool = sync.Pool{
		New: func() any {
			return make(map[string]string, 8)
		},
	}
	pathSegmentPool = sync.Pool{
		New: func() any {
			return make([]string, 0, 16)
		},
	}
}

// IsEnabled returns whether pooling is enabled.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// =============================================================================
// Event Batch Pool (importer fan-in buffering)
// =============================================================================

var eventBatchPool = sync.Pool{
	New: func() any {
		return make([]updatelog.Event, 0, 64)
	},
}

// GetEventBatch returns an event batch from the pool. The returned slice has
// length 0 but may have spare capacity. Call PutEventBatch when done.
func GetEventBatch() []updatelog.Event {
	if !globalConfig.Enabled {
		return make([]updatelog.Event, 0, 64)
	}
	return eventBatchPool.Get().([]updatelog.Event)[:0]
}

// PutEventBatch returns an event batch to the pool.
func PutEventBatch(batch []updatelog.Event) {
	if !globalConfig.Enabled {
		return
	}
	if cap(batch) > globalConfig.MaxSize {
		return
	}
	eventBatchPool.Put(batch[:0])
}

// =============================================================================
// DFS Node-ID Stack Pool (ordering-chain and cycle-safe traversal)
// =============================================================================

var nodeIDStackPool = sync.Pool{
	New: func() any {
		return make([]uint64, 0, 64)
	},
}

// GetNodeIDStack returns a node-id stack from the pool, for use by a single
// depth-first walk of one ordering chain or dominance tree.
func GetNodeIDStack() []uint64 {
	if !globalConfig.Enabled {
		return make([]uint64, 0, 64)
	}
	return nodeIDStackPool.Get().([]uint64)[:0]
}

// PutNodeIDStack returns a node-id stack to the pool.
func PutNodeIDStack(stack []uint64) {
	if !globalConfig.Enabled {
		return
	}
	if cap(stack) > globalConfig.MaxSize {
		return
	}
	nodeIDStackPool.Put(stack[:0])
}

// =============================================================================
// String Builder Pool (node-name composition)
// =============================================================================

var stringBuilderPool = sync.Pool{
	New: func() any {
		return &StringBuilder{buf: make([]byte, 0, 256)}
	},
}

// StringBuilder is a poolable string builder, used to compose step-identity
// strings (internal/stageid.ID.String) without a fresh buffer per call.
type StringBuilder struct {
	buf []byte
}

// WriteString appends a string to the builder.
func (b *StringBuilder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a byte to the builder.
func (b *StringBuilder) WriteByte(c byte) {
	b.buf = append(b.buf, c)
}

// String returns the built string.
func (b *StringBuilder) String() string {
	return string(b.buf)
}

// Len returns the current length.
func (b *StringBuilder) Len() int {
	return len(b.buf)
}

// Reset clears the builder for reuse.
func (b *StringBuilder) Reset() {
	b.buf = b.buf[:0]
}

// GetStringBuilder returns a string builder from the pool.
func GetStringBuilder() *StringBuilder {
	if !globalConfig.Enabled {
		return &StringBuilder{buf: make([]byte, 0, 256)}
	}
	b := stringBuilderPool.Get().(*StringBuilder)
	b.Reset()
	return b
}

// PutStringBuilder returns a string builder to the pool.
func PutStringBuilder(b *StringBuilder) {
	if !globalConfig.Enabled || b == nil {
		return
	}
	if cap(b.buf) > 64*1024 {
		return
	}
	b.Reset()
	stringBuilderPool.Put(b)
}

// =============================================================================
// Annotation Snapshot Map Pool (merge fold step)
// =============================================================================

var annoSnapshotPool = sync.Pool{
	New: func() any {
		return make(map[string]string, 8)
	},
}

// GetAnnoSnapshot returns an annotation snapshot map from the pool, keyed by
// qualified annotation name, used while the merger copies an absorbed node's
// annotations onto the node it is folded into.
func GetAnnoSnapshot() map[string]string {
	if !globalConfig.Enabled {
		return make(map[string]string, 8)
	}
	m := annoSnapshotPool.Get().(map[string]string)
	for k := range m {
		delete(m, k)
	}
	return m
}

// PutAnnoSnapshot returns an annotation snapshot map to the pool.
func PutAnnoSnapshot(m map[string]string) {
	if !globalConfig.Enabled || m == nil {
		return
	}
	if len(m) > globalConfig.MaxSize {
		return
	}
	for k := range m {
		delete(m, k)
	}
	annoSnapshotPool.Put(m)
}

// =============================================================================
// Path Segment Slice Pool (node-name splitting)
// =============================================================================

var pathSegmentPool = sync.Pool{
	New: func() any {
		return make([]string, 0, 16)
	},
}

// GetPathSegments returns a path-segment slice from the pool.
func GetPathSegments() []string {
	if !globalConfig.Enabled {
		return make([]string, 0, 16)
	}
	return pathSegmentPool.Get().([]string)[:0]
}

// PutPathSegments returns a path-segment slice to the pool.
func PutPathSegments(s []string) {
	if !globalConfig.Enabled {
		return
	}
	if cap(s) > globalConfig.MaxSize {
		return
	}
	pathSegmentPool.Put(s[:0])
}
