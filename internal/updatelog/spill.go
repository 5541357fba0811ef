package updatelog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	bopts "github.com/dgraph-io/badger/v4/options"
)

// Options configures a Log built with New. A zero Options value is a
// memory-only log with no spill tier, equivalent to NewMemory.
type Options struct {
	// SpillThreshold is the event count past which the log moves its
	// buffered entries to a Badger-backed disk tier. 0 disables spilling.
	SpillThreshold int

	// SpillDir is the parent directory for the temporary Badger directory
	// created on spill. "" uses os.TempDir().
	SpillDir string
}

// New returns a Log that starts in memory and, once more than
// opts.SpillThreshold events have been appended, migrates to a disk-backed
// Badger instance under a fresh temp directory. The spill is transparent to
// callers of Append/Iterate: the iterator never exposes which tier an entry
// came from.
func New(opts Options) Log {
	if opts.SpillThreshold <= 0 {
		return &memoryLog{}
	}
	return &spillingLog{opts: opts}
}

// spillingLog buffers entries in memory up to opts.SpillThreshold, then
// migrates everything appended so far into a Badger instance and continues
// appending there. The trigger moves the tier itself rather than rotating a
// file within one tier.
type spillingLog struct {
	mu       sync.Mutex
	opts     Options
	buffered []Entry
	next     uint64
	count    int

	db      *badger.DB
	dir     string
	onDisk  bool
}

func (l *spillingLog) Append(event Event) Seq {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := Seq(l.next)
	l.next++
	entry := Entry{Seq: seq, Event: event}

	if l.onDisk {
		l.writeDisk(entry)
		l.count++
		return seq
	}

	l.buffered = append(l.buffered, entry)
	l.count++
	if l.count > l.opts.SpillThreshold {
		l.spill()
	}
	return seq
}

// spill must be called with l.mu held. It opens a fresh Badger instance,
// migrates every buffered entry into it, and switches subsequent writes to
// go straight to disk.
func (l *spillingLog) spill() {
	dir, err := os.MkdirTemp(l.opts.SpillDir, "corpusgraph-updatelog-*")
	if err != nil {
		// Spilling is a capacity optimization, not a correctness
		// requirement: fall back to staying in memory rather than losing
		// events or panicking mid-append.
		return
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithCompression(bopts.ZSTD)

	db, err := badger.Open(opts)
	if err != nil {
		os.RemoveAll(dir)
		return
	}

	wb := db.NewWriteBatch()
	for _, e := range l.buffered {
		if err := wb.Set(seqKey(e.Seq), encodeEvent(e.Event)); err != nil {
			wb.Cancel()
			db.Close()
			os.RemoveAll(dir)
			return
		}
	}
	if err := wb.Flush(); err != nil {
		db.Close()
		os.RemoveAll(dir)
		return
	}

	l.db = db
	l.dir = dir
	l.onDisk = true
	l.buffered = nil
}

func (l *spillingLog) writeDisk(e Entry) {
	if err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seqKey(e.Seq), encodeEvent(e.Event))
	}); err != nil {
		// Best-effort: a failed disk write after a successful spill means
		// one event is missing from replay. There is no safe in-process
		// recovery short of re-running the producing stage, so this shows
		// only as an Iterate() undercount, not a panic; Len() still counts
		// the event as appended.
		_ = err
	}
}

func (l *spillingLog) Iterate() func() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.onDisk {
		buffered := l.buffered
		i := 0
		return func() (Entry, bool) {
			if i >= len(buffered) {
				return Entry{}, false
			}
			e := buffered[i]
			i++
			return e, true
		}
	}

	txn := l.db.NewTransaction(false)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	it.Rewind()
	closed := false
	return func() (Entry, bool) {
		if closed || !it.Valid() {
			if !closed {
				it.Close()
				txn.Discard()
				closed = true
			}
			return Entry{}, false
		}
		item := it.Item()
		seq := decodeSeqKey(item.Key())
		var event Event
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &event)
		})
		it.Next()
		if err != nil {
			return Entry{}, false
		}
		return Entry{Seq: seq, Event: event}, true
	}
}

func (l *spillingLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *spillingLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	if rmErr := os.RemoveAll(l.dir); err == nil {
		err = rmErr
	}
	return err
}

func seqKey(s Seq) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(s))
	return b
}

func decodeSeqKey(b []byte) Seq {
	return Seq(binary.BigEndian.Uint64(b))
}

func encodeEvent(e Event) []byte {
	b, err := json.Marshal(e)
	if err != nil {
		// Event only ever holds strings and the annokey value types, all of
		// which marshal cleanly; a failure here means a new field was added
		// without a compatible json tag.
		panic(fmt.Sprintf("updatelog: event does not marshal: %v", err))
	}
	return b
}
