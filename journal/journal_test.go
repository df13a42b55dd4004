package journal

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testOptions(t *testing.T, clock *testClock) Options {
	return Options{
		FileName: "j*.wal",
		Now:      clock.Now,
		NoSync:   true,
		Logger:   zaptest.NewLogger(t),
		Verbose:  true,
	}
}

func openJournal(t *testing.T, dir string, o Options) *Journal {
	t.Helper()
	j, err := Open(dir, o)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func replayAll(t *testing.T, dir string, o Options) [][]string {
	t.Helper()
	var commits [][]string
	err := Replay(dir, o, func(c Commit) error {
		var recs []string
		for _, r := range c.Records {
			recs = append(recs, string(r))
		}
		commits = append(commits, recs)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return commits
}

func writeCommit(j *Journal, recs ...string) {
	for _, r := range recs {
		ensure(j.WriteRecord([]byte(r)))
	}
	ensure(j.Commit())
}

func TestJournalWriteReplay(t *testing.T) {
	dir := t.TempDir()
	clock := &testClock{start}
	o := testOptions(t, clock)
	j := openJournal(t, dir, o)

	writeCommit(j, "hello", "w")
	clock.Advance(1000 * time.Second)
	writeCommit(j, "orld")
	ensure(j.Commit())
	ensure(j.Close())

	deepEq(t, must(j.Segments()), []string{"j000000000001-20240101T000000-0000000000000001.wal"})
	deepEq(t, replayAll(t, dir, o), [][]string{{"hello", "w"}, {"orld"}})

	var times []time.Time
	ensure(Replay(dir, o, func(c Commit) error {
		times = append(times, c.Time)
		return nil
	}))
	deepEq(t, times, []time.Time{start, start.Add(1000 * time.Second)})
}

func TestJournalEmptyRecordIgnored(t *testing.T) {
	dir := t.TempDir()
	o := testOptions(t, &testClock{start})
	j := openJournal(t, dir, o)
	ensure(j.WriteRecord(nil))
	ensure(j.Commit())
	deepEq(t, len(must(j.Segments())), 0)
}

func TestJournalUncommittedRecordsAreTrimmed(t *testing.T) {
	dir := t.TempDir()
	o := testOptions(t, &testClock{start})
	j := openJournal(t, dir, o)
	writeCommit(j, "a")
	ensure(j.WriteRecord([]byte("b")))
	ensure(j.Close())

	deepEq(t, replayAll(t, dir, o), [][]string{{"a"}})

	j = openJournal(t, dir, o)
	writeCommit(j, "c")
	ensure(j.Close())
	deepEq(t, replayAll(t, dir, o), [][]string{{"a"}, {"c"}})
	deepEq(t, len(must(j.Segments())), 1)
}

func TestJournalRotation(t *testing.T) {
	dir := t.TempDir()
	o := testOptions(t, &testClock{start})
	o.MaxFileSize = 200
	j := openJournal(t, dir, o)

	rec := bytes.Repeat([]byte("x"), 100)
	for i := 0; i < 3; i++ {
		ensure(j.WriteRecord(rec))
		ensure(j.Commit())
	}
	ensure(j.Close())

	deepEq(t, must(j.Segments()), []string{
		"j000000000001-20240101T000000-0000000000000001.wal",
		"j000000000002-20240101T000000-0000000000000002.wal",
		"j000000000003-20240101T000000-0000000000000003.wal",
	})
	deepEq(t, len(replayAll(t, dir, o)), 3)

	j = openJournal(t, dir, o)
	ensure(j.WriteRecord(rec))
	ensure(j.Commit())
	segs := must(j.Segments())
	deepEq(t, segs[len(segs)-1], "j000000000004-20240101T000000-0000000000000004.wal")
}

func TestJournalTornTrailer(t *testing.T) {
	dir := t.TempDir()
	o := testOptions(t, &testClock{start})
	j := openJournal(t, dir, o)
	writeCommit(j, "a")
	writeCommit(j, "b")
	ensure(j.Close())

	fn := filepath.Join(dir, must(j.Segments())[0])
	flipLastByte(fn)
	deepEq(t, replayAll(t, dir, o), [][]string{{"a"}})

	j = openJournal(t, dir, o)
	writeCommit(j, "c")
	ensure(j.Close())
	deepEq(t, replayAll(t, dir, o), [][]string{{"a"}, {"c"}})
}

func TestJournalCorruptedOlderSegment(t *testing.T) {
	dir := t.TempDir()
	o := testOptions(t, &testClock{start})
	o.MaxFileSize = 1
	j := openJournal(t, dir, o)
	writeCommit(j, "a")
	writeCommit(j, "b")
	ensure(j.Close())

	flipLastByte(filepath.Join(dir, must(j.Segments())[0]))
	err := Replay(dir, o, func(Commit) error { return nil })
	if !errors.Is(err, ErrCorrupted) {
		t.Fatalf("Replay err = %v, wanted ErrCorrupted", err)
	}
}

func TestJournalCorruptedHeaderDeleted(t *testing.T) {
	dir := t.TempDir()
	o := testOptions(t, &testClock{start})
	o.MaxFileSize = 1
	j := openJournal(t, dir, o)
	writeCommit(j, "a")
	ensure(j.Close())

	bad := formatSegmentName("j", ".wal", 2, 0, 2)
	ensure(os.WriteFile(filepath.Join(dir, bad), []byte("garbage"), 0o644))

	j = openJournal(t, dir, o)
	deepEq(t, len(must(j.Segments())), 1)
	writeCommit(j, "b")
	deepEq(t, replayAll(t, dir, o), [][]string{{"a"}, {"b"}})
}

func TestJournalIncompatible(t *testing.T) {
	dir := t.TempDir()
	o := testOptions(t, &testClock{start})
	o.Invariant[0] = 1
	j := openJournal(t, dir, o)
	writeCommit(j, "a")
	ensure(j.Close())

	o.Invariant[0] = 2
	if _, err := Open(dir, o); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("Open err = %v, wanted ErrIncompatible", err)
	}
	if err := Replay(dir, o, func(Commit) error { return nil }); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("Replay err = %v, wanted ErrIncompatible", err)
	}
}

func TestJournalClosed(t *testing.T) {
	j := openJournal(t, t.TempDir(), testOptions(t, &testClock{start}))
	ensure(j.Close())
	if err := j.WriteRecord([]byte("x")); err != ErrClosed {
		t.Fatalf("WriteRecord err = %v, wanted ErrClosed", err)
	}
	if err := j.Commit(); err != ErrClosed {
		t.Fatalf("Commit err = %v, wanted ErrClosed", err)
	}
}

func TestParseName(t *testing.T) {
	seq, ts, rec, err := parseSegmentName("j000000000123-20230101T000000-11223344aabbccdd.wal", "j", ".wal")
	if err != nil {
		t.Fatal(err)
	}
	if e := uint32(123); seq != e {
		t.Errorf("seq = %v, expected %v", seq, e)
	}
	if e := uint32(1672531200); ts != e {
		t.Errorf("ts = %v, expected %v", ts, e)
	}
	if e := uint64(0x11223344_aabbccdd); rec != e {
		t.Errorf("rec = %x, expected %x", rec, e)
	}

	for _, name := range []string{"x000000000001-20230101T000000-1.wal", "j1.wal", "jx-20230101T000000-1.wal", "j1-2023-1.wal", "j1-20230101T000000-zz.wal"} {
		if _, _, _, err := parseSegmentName(name, "j", ".wal"); err == nil {
			t.Errorf("parseSegmentName(%q) succeeded, wanted error", name)
		}
	}
}

func TestFormatName(t *testing.T) {
	name := formatSegmentName("x", "y", 123, 1672531200, 0x11223344_aabbccdd)
	exp := "x000000000123-20230101T000000-11223344aabbccddy"
	if name != exp {
		t.Errorf("name = %q, expected %q", name, exp)
	}
}

func flipLastByte(fn string) {
	data := must(os.ReadFile(fn))
	data[len(data)-1] ^= 0xFF
	ensure(os.WriteFile(fn, data, 0o644))
}

func deepEq[T any](t testing.TB, a, e T) bool {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
		return false
	}
	return true
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}
