// Package enumerate implements a supporting manipulator that assigns a
// numeric annotation to a chosen match position across a list of queries,
// restarting the counter whenever a configured "group by" tuple changes
// between consecutive matches.
//
// A full query language is out of scope; this module's retrieval surface is
// a single qualified annotation key per query (each query string is a
// "ns::name" key wire form, matching every node that carries it) — the
// single-node-per-match case a configured query reduces to when it names
// exactly one annotation.
package enumerate

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/orneryd/corpusgraph/internal/annokey"
	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/stage"
	"github.com/orneryd/corpusgraph/internal/updatelog"
)

// Config is the enumerate manipulator's [graph_op.config] table. Each entry
// of Queries is a qualified annotation key wire form ("ns::name" or "name")
// naming the match position to enumerate.
type Config struct {
	Queries []string `toml:"queries"`
	// By is a list of qualified annotation key wire forms whose value tuple,
	// read from the same matched node, resets the counter when it changes
	// between consecutive (stably sorted) matches.
	By []string `toml:"by"`
	// Label is the qualified annotation key wire form written with the
	// counter value.
	Label string `toml:"label"`
	// Value is an optional qualified annotation key wire form whose value is
	// prepended to the written counter.
	Value string `toml:"value"`
	// Start offsets the counter.
	Start int `toml:"start"`
}

func (c Config) label() annokey.Key {
	if c.Label == "" {
		return annokey.New("", "i")
	}
	return annokey.ParseQName(c.Label)
}

// Manipulator is the enumerate stage.
type Manipulator struct {
	stage.Base
	Config Config
}

// New returns an enumerate manipulator with the given configuration.
func New(cfg Config) *Manipulator {
	return &Manipulator{Base: stage.Base{Module: "EnumerateMatches"}, Config: cfg}
}

var _ stage.Manipulator = (*Manipulator)(nil)

func (m *Manipulator) Manipulate(_ context.Context, g *graph.Graph, _ string, sink progress.Sender) error {
	events := Run(g, m.Config)
	if err := g.ApplyEvents(events, false); err != nil {
		return err
	}
	sink.Send(progress.NewInfo(fmt.Sprintf("enumerate: labeled %d match(es)", len(events))))
	return nil
}

// Run executes one enumerate pass and returns the AddNodeLabel events to
// apply. It never mutates g; the caller applies the result, matching the
// "read from graph, compose events, apply once" idiom every C8 manipulator
// shares.
func Run(g *graph.Graph, cfg Config) []updatelog.Event {
	label := cfg.label()
	byKeys := make([]annokey.Key, 0, len(cfg.By))
	for _, b := range cfg.By {
		byKeys = append(byKeys, annokey.ParseQName(b))
	}

	var events []updatelog.Event
	for _, q := range cfg.Queries {
		key := annokey.ParseQName(q)
		ids := collect(g, key)
		sort.Slice(ids, func(i, j int) bool {
			ni, _ := g.NodeByID(ids[i])
			nj, _ := g.NodeByID(ids[j])
			return ni.Name() < nj.Name()
		})
		sortByTuple(g, ids, byKeys)

		counter := cfg.Start
		var prevTuple []string
		for _, id := range ids {
			tuple := valueTuple(g, id, byKeys)
			if prevTuple != nil && !sameTuple(prevTuple, tuple) {
				counter = cfg.Start
			}
			prevTuple = tuple

			n, ok := g.NodeByID(id)
			if !ok {
				continue
			}
			text := strconv.Itoa(counter)
			if cfg.Value != "" {
				if v, ok := g.AnnotationValue(id, annokey.ParseQName(cfg.Value)); ok {
					text = v + text
				}
			}
			events = append(events, updatelog.NewAddNodeLabel(n.Name(), label, text))
			counter++
		}
	}
	return events
}

func collect(g *graph.Graph, key annokey.Key) []uint64 {
	var out []uint64
	next := g.NodesWithAnnotation(key, nil)
	for {
		id, ok := next()
		if !ok {
			break
		}
		out = append(out, id)
	}
	return out
}

func valueTuple(g *graph.Graph, id uint64, keys []annokey.Key) []string {
	tuple := make([]string, len(keys))
	for i, k := range keys {
		v, _ := g.AnnotationValue(id, k)
		tuple[i] = v
	}
	return tuple
}

func sameTuple(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortByTuple stable-sorts ids by the by-key value tuple, the first key
// ranking highest.
func sortByTuple(g *graph.Graph, ids []uint64, byKeys []annokey.Key) {
	if len(byKeys) == 0 {
		return
	}
	sort.SliceStable(ids, func(i, j int) bool {
		ti := valueTuple(g, ids[i], byKeys)
		tj := valueTuple(g, ids[j], byKeys)
		for k := range ti {
			if ti[k] != tj[k] {
				return ti[k] < tj[k]
			}
		}
		return false
	})
}
