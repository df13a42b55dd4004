// Package journal implements append-only, segmented journal files.
//
// A journal is a directory of segment files named
// <prefix><ordinal>-<timestamp>-<first record><suffix>. Each segment starts
// with a fixed header and holds a sequence of records grouped into commits.
// A commit is only visible to readers once its trailer, a checksum over the
// whole segment so far, has been written. Anything after the last valid
// trailer is an interrupted commit and is trimmed when the journal is
// reopened for writing.
//
// File format:
//
//   - segment = header (record* trailer)*
//   - header = magic:64 version:8 pad:8 flags:16 pad:32 ordinal:32 timestamp:32 reserved:64 journalInvariant:256 segmentInvariant:256 reserved:64*3 checksum:64
//   - record = (size<<1):uvarint timestampDelta:uvarint bytes*
//   - trailer = (checksum|1):64
//
// Integers are little-endian. The low bit of the first byte tells a record
// (0) from a trailer (1).
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/hnb-rabear/RCore-sub006/mmap"
)

var (
	ErrIncompatible       = errors.New("incompatible journal")
	ErrUnsupportedVersion = errors.New("unsupported journal version")
	ErrCorrupted          = errors.New("corrupted journal segment")
	ErrClosed             = errors.New("journal closed")
)

type Options struct {
	FileName    string // e.g. "save-*.wal"
	MaxFileSize int64  // start a new segment once a commit crosses this size
	Now         func() time.Time
	Invariant   [32]byte

	// NoSync skips fdatasync after each commit (tests).
	NoSync bool

	Logger  *zap.Logger
	Verbose bool
}

const DefaultMaxFileSize = 4 * 1024 * 1024

const (
	magic          = 0x54414c4e52554f4a // "JOURNLAT" as little-endian uint64
	version0 uint8 = 0
)

const segmentHeaderSize = 16 * 8

type segmentHeader struct {
	Magic            uint64
	Version          uint8
	_                uint8
	Flags            uint16
	_                uint32
	SegmentOrdinal   uint32
	Timestamp        uint32
	_                uint64
	JournalInvariant [32]byte
	SegmentInvariant [32]byte
	_                [3]uint64
	Checksum         uint64
}

const (
	trailerFlag     byte = 1
	sizeShift            = 1
	trailerSize          = 8
	timestampFmt         = "20060102T150405"
	maxRecHeaderLen      = 2 * binary.MaxVarintLen64
)

// Journal appends records to the newest segment of a directory.
type Journal struct {
	dir         string
	prefix      string
	suffix      string
	maxFileSize int64
	now         func() time.Time
	invariant   [32]byte
	noSync      bool
	log         *zap.Logger
	verbose     bool

	mu      sync.Mutex
	err     error
	closed  bool
	nextSeg uint32
	nextRec uint64
	seg     *segmentWriter
}

func (o *Options) normalize() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.FileName == "" {
		o.FileName = "*"
	}
	if o.MaxFileSize == 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Open prepares dir for appending. The newest segment is validated and
// trimmed to its last complete commit; a segment with a damaged header is
// deleted.
func Open(dir string, o Options) (*Journal, error) {
	o.normalize()
	prefix, suffix, _ := strings.Cut(o.FileName, "*")
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, err
	}
	j := &Journal{
		dir:         dir,
		prefix:      prefix,
		suffix:      suffix,
		maxFileSize: o.MaxFileSize,
		now:         o.Now,
		invariant:   o.Invariant,
		noSync:      o.NoSync,
		log:         o.Logger.With(zap.String("journal", dir)),
		verbose:     o.Verbose,
		nextSeg:     1,
		nextRec:     1,
	}
	if err := j.resume(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) resume() error {
	for {
		names, err := listSegments(j.dir, j.prefix, j.suffix)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return nil
		}
		last := names[len(names)-1]
		seq, _, firstRec, err := parseSegmentName(last, j.prefix, j.suffix)
		if err != nil {
			return err
		}
		fn := filepath.Join(j.dir, last)

		sc, err := scanFile(fn, seq, j.invariant, nil)
		if errors.Is(err, ErrCorrupted) {
			j.log.Warn("deleting segment with corrupted header", zap.String("file", last))
			if err := os.Remove(fn); err != nil {
				return fmt.Errorf("journal: failed to delete corrupted segment: %w", err)
			}
			continue
		} else if err != nil {
			return err
		}
		if sc.end < sc.size {
			j.log.Warn("trimming interrupted commit", zap.String("file", last), zap.Int64("size", sc.size), zap.Int64("valid", sc.end))
		}

		j.nextSeg = seq + 1
		j.nextRec = firstRec + uint64(sc.records)
		if sc.end >= j.maxFileSize {
			if sc.end < sc.size {
				return os.Truncate(fn, sc.end)
			}
			return nil
		}

		f, err := os.OpenFile(fn, os.O_RDWR, 0o666)
		if err != nil {
			return err
		}
		if err := f.Truncate(sc.end); err != nil {
			f.Close()
			return err
		}
		if _, err := f.Seek(sc.end, 0); err != nil {
			f.Close()
			return err
		}
		j.seg = &segmentWriter{f: f, ts: sc.ts, size: sc.end, hash: sc.hash}
		j.nextSeg = seq
		if j.verbose {
			j.log.Debug("resumed segment", zap.String("file", last), zap.Int64("size", sc.end), zap.Uint64("next_record", j.nextRec))
		}
		return nil
	}
}

func (j *Journal) timestamp() uint32 {
	v := j.now().Unix()
	if v < 0 || uint64(v)&0xFFFF_FFFF_0000_0000 != 0 {
		panic("journal: timestamp out of range")
	}
	return uint32(v)
}

// WriteRecord appends data to the current commit. Records are invisible to
// readers until Commit.
func (j *Journal) WriteRecord(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if j.err != nil {
		return j.err
	}

	ts := j.timestamp()
	if j.seg == nil {
		sw, err := j.startSegment(ts)
		if err != nil {
			return j.fail(err)
		}
		j.seg = sw
	}
	j.nextRec++
	return j.fail(j.seg.writeRecord(ts, data))
}

// Commit seals the records written since the previous commit and syncs the
// segment. The segment is rotated once it exceeds MaxFileSize.
func (j *Journal) Commit() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if j.err != nil {
		return j.err
	}
	if j.seg == nil || !j.seg.uncommitted {
		return nil
	}
	if err := j.seg.commit(); err != nil {
		return j.fail(err)
	}
	if !j.noSync {
		if err := mmap.Fdatasync(j.seg.f); err != nil {
			return j.fail(err)
		}
	}
	if j.seg.size >= j.maxFileSize {
		if j.verbose {
			j.log.Debug("rotating segment", zap.Uint32("segment", j.nextSeg), zap.Int64("size", j.seg.size))
		}
		j.seg.close()
		j.seg = nil
		j.nextSeg++
	}
	return nil
}

// Close closes the current segment. Uncommitted records are dropped on the
// next Open.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if j.seg != nil {
		err := j.seg.close()
		j.seg = nil
		return err
	}
	return nil
}

// Segments returns the segment file names, oldest first.
func (j *Journal) Segments() ([]string, error) {
	return listSegments(j.dir, j.prefix, j.suffix)
}

// fail makes err sticky: after a failed write the segment tail is unknown,
// so further writes are refused until the journal is reopened.
func (j *Journal) fail(err error) error {
	if err == nil {
		return nil
	}
	j.log.Error("journal write failed", zap.Error(err))
	if j.seg != nil {
		j.seg.close()
		j.seg = nil
	}
	if j.err == nil {
		j.err = err
	}
	return err
}

func (j *Journal) startSegment(ts uint32) (*segmentWriter, error) {
	name := formatSegmentName(j.prefix, j.suffix, j.nextSeg, ts, j.nextRec)
	f, err := os.OpenFile(filepath.Join(j.dir, name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return nil, err
	}

	sw := &segmentWriter{f: f, ts: ts, size: segmentHeaderSize, hash: xxhash.New()}
	var hbuf [segmentHeaderSize]byte
	fillSegmentHeader(hbuf[:], j.nextSeg, ts, j.invariant, sw.hash)
	if _, err := f.Write(hbuf[:]); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	if j.verbose {
		j.log.Debug("started segment", zap.String("file", name))
	}
	return sw, nil
}

type segmentWriter struct {
	f           *os.File
	ts          uint32
	size        int64
	hash        *xxhash.Digest
	uncommitted bool
}

func (sw *segmentWriter) writeRecord(ts uint32, data []byte) error {
	var tsDelta uint32
	if ts > sw.ts {
		tsDelta = ts - sw.ts
		sw.ts = ts
	}
	sw.uncommitted = true

	var hbuf [maxRecHeaderLen]byte
	h := appendRecordHeader(hbuf[:0], len(data), tsDelta)
	sw.hash.Write(h)
	if _, err := sw.f.Write(h); err != nil {
		return err
	}
	sw.hash.Write(data)
	if _, err := sw.f.Write(data); err != nil {
		return err
	}
	sw.size += int64(len(h) + len(data))
	return nil
}

func (sw *segmentWriter) commit() error {
	var buf [trailerSize]byte
	binary.LittleEndian.PutUint64(buf[:], sw.hash.Sum64())
	buf[0] |= trailerFlag

	sw.hash.Write(buf[:])
	if _, err := sw.f.Write(buf[:]); err != nil {
		return err
	}
	sw.size += trailerSize
	sw.uncommitted = false
	return nil
}

func (sw *segmentWriter) close() error {
	if sw.f == nil {
		return nil
	}
	err := sw.f.Close()
	sw.f = nil
	return err
}

func fillSegmentHeader(buf []byte, seg, ts uint32, invariant [32]byte, hash *xxhash.Digest) {
	h := segmentHeader{
		Magic:            magic,
		Version:          version0,
		SegmentOrdinal:   seg,
		Timestamp:        ts,
		JournalInvariant: invariant,
	}
	n, err := binary.Encode(buf, binary.LittleEndian, &h)
	if err != nil {
		panic(err)
	}
	if n != segmentHeaderSize {
		panic("internal size mismatch")
	}
	hash.Write(buf[:segmentHeaderSize-8])
	binary.LittleEndian.PutUint64(buf[segmentHeaderSize-8:], hash.Sum64())
	hash.Write(buf[segmentHeaderSize-8:])
}

func appendRecordHeader(b []byte, size int, tsDelta uint32) []byte {
	b = binary.AppendUvarint(b, uint64(size)<<sizeShift)
	b = binary.AppendUvarint(b, uint64(tsDelta))
	return b
}

func listSegments(dir, prefix, suffix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, ent := range ents {
		name := ent.Name()
		if !ent.Type().IsRegular() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		if _, _, _, err := parseSegmentName(name, prefix, suffix); err != nil {
			continue
		}
		names = append(names, name)
	}
	// zero-padded ordinals sort lexically
	slices.Sort(names)
	return names, nil
}

func formatSegmentName(prefix, suffix string, seq, ts uint32, rec uint64) string {
	t := time.Unix(int64(ts), 0).UTC()
	return fmt.Sprintf("%s%012d-%s-%016x%s", prefix, seq, t.Format(timestampFmt), rec, suffix)
}

func parseSegmentName(name, prefix, suffix string) (seq, ts uint32, rec uint64, err error) {
	s, ok := strings.CutPrefix(name, prefix)
	if ok {
		s, ok = strings.CutSuffix(s, suffix)
	}
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q", name)
	}
	seqStr, rem, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q", name)
	}
	v, err := strconv.ParseUint(seqStr, 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q (invalid segment number)", name)
	}
	seq = uint32(v)

	tsStr, recStr, ok := strings.Cut(rem, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q", name)
	}
	t, err := time.ParseInLocation(timestampFmt, tsStr, time.UTC)
	if err != nil {
		return seq, 0, 0, fmt.Errorf("invalid segment file name %q (invalid timestamp)", name)
	}
	ts = uint32(t.Unix())

	rec, err = strconv.ParseUint(recStr, 16, 64)
	if err != nil {
		return seq, 0, 0, fmt.Errorf("invalid segment file name %q (invalid record number)", name)
	}
	return seq, ts, rec, nil
}
