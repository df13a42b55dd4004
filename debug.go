package savedata

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type DumpFlags uint64

const (
	DumpHeader = DumpFlags(1 << iota)
	DumpEntries
	DumpTree

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	indentStep = "  "
)

var dumpSep = strings.Repeat("=", 80)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Stats summarizes the store.
type Stats struct {
	Entries   int
	KeyBytes  int
	DataBytes int
}

func (s Stats) TotalBytes() int {
	return s.KeyBytes + s.DataBytes
}

// StoreStats computes entry counts and sizes. Stores that do not expose
// their entries only report Entries.
func (db *DB) StoreStats() Stats {
	st := Stats{Entries: db.store.Len()}
	if es, ok := db.store.(interface{ Entries() []Entry }); ok {
		for _, e := range es.Entries() {
			st.KeyBytes += len(e.Key)
			st.DataBytes += len(e.Value)
		}
	}
	return st
}

// Dump renders the store and, with DumpTree, the nodes of root (which may
// be nil).
func (db *DB) Dump(root Node, f DumpFlags) string {
	var buf strings.Builder
	if f.Contains(DumpHeader) {
		st := db.StoreStats()
		fmt.Fprintln(&buf, dumpSep)
		fmt.Fprintf(&buf, "store: entries = %d, key_bytes = %d, data_bytes = %d, encoding = %v\n", st.Entries, st.KeyBytes, st.DataBytes, db.enc)
	}
	if f.Contains(DumpEntries) {
		if es, ok := db.store.(interface{ Entries() []Entry }); ok {
			for i, e := range es.Entries() {
				fmt.Fprintf(&buf, "%d. %s = %s\n", i, e.Key, loggableValue(e.Value))
			}
		}
	}
	if f.Contains(DumpTree) && root != nil {
		dumpNode(&buf, "", root)
	}
	return buf.String()
}

func dumpNode(w *strings.Builder, indent string, n Node) {
	if g, ok := n.(interface{ Children() []Node }); ok {
		fmt.Fprintf(w, "%s%s/\n", indent, displayID(n))
		for _, c := range g.Children() {
			dumpNode(w, indent+indentStep, c)
		}
		return
	}
	index := -1
	if ix, ok := n.(interface{ Index() int }); ok {
		index = ix.Index()
	}
	var dirty string
	if d, ok := n.(interface{ Dirty() bool }); ok && d.Dirty() {
		dirty = " *"
	}
	if s, ok := n.(fmt.Stringer); ok {
		fmt.Fprintf(w, "%s%s [%d]%s %s\n", indent, displayID(n), index, dirty, s.String())
	} else {
		fmt.Fprintf(w, "%s%s [%d]%s\n", indent, displayID(n), index, dirty)
	}
}

func displayID(n Node) string {
	if n.ID() == "" {
		return "<root>"
	}
	return n.ID()
}

func loggableValue(v string) string {
	if utf8.ValidString(v) && !strings.ContainsFunc(v, isControl) {
		return fmt.Sprintf("%q", v)
	}
	return "0x" + hexstr([]byte(v))
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
