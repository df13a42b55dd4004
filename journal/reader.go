package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/hnb-rabear/RCore-sub006/mmap"
)

// Commit is a group of records sealed by one Journal.Commit.
type Commit struct {
	Segment uint32
	Time    time.Time
	Records [][]byte
}

// Replay calls fn for every complete commit in dir, oldest first. A torn
// commit at the end of the newest segment is skipped; damage anywhere else
// fails with ErrCorrupted.
func Replay(dir string, o Options, fn func(c Commit) error) error {
	o.normalize()
	prefix, suffix, _ := strings.Cut(o.FileName, "*")
	names, err := listSegments(dir, prefix, suffix)
	if err != nil {
		return err
	}
	for i, name := range names {
		seq, _, _, err := parseSegmentName(name, prefix, suffix)
		if err != nil {
			return err
		}
		sc, err := scanFile(filepath.Join(dir, name), seq, o.Invariant, fn)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if sc.end < sc.size {
			if i < len(names)-1 {
				return fmt.Errorf("%s: %w at offset %d", name, ErrCorrupted, sc.end)
			}
			o.Logger.Warn("ignoring interrupted commit", zap.String("file", name), zap.Int64("valid", sc.end), zap.Int64("size", sc.size))
		}
	}
	return nil
}

type scanResult struct {
	size    int64 // file size
	end     int64 // offset just past the last complete commit
	records int   // records in complete commits
	ts      uint32
	hash    *xxhash.Digest
}

func scanFile(fn string, seq uint32, invariant [32]byte, visit func(Commit) error) (scanResult, error) {
	f, err := os.Open(fn)
	if err != nil {
		return scanResult{}, err
	}
	defer f.Close()

	buf, err := mmap.Map(f)
	if err != nil {
		return scanResult{}, err
	}
	defer mmap.Unmap(buf)

	return scanSegment(buf, seq, invariant, visit)
}

// scanSegment validates buf and reports every complete commit to visit.
// Records passed to visit are copies and outlive buf.
func scanSegment(buf []byte, seq uint32, invariant [32]byte, visit func(Commit) error) (scanResult, error) {
	sc := scanResult{size: int64(len(buf))}

	var h segmentHeader
	if err := readHeader(buf, &h, seq, invariant); err != nil {
		return sc, err
	}

	hash := xxhash.New()
	hash.Write(buf[:segmentHeaderSize])

	ts := h.Timestamp
	committedTS := ts
	sc.end = segmentHeaderSize
	var pending [][]byte

	p := segmentHeaderSize
	for p < len(buf) {
		if buf[p]&trailerFlag != 0 {
			if len(buf)-p < trailerSize {
				break
			}
			if binary.LittleEndian.Uint64(buf[p:]) != hash.Sum64()|uint64(trailerFlag) {
				break
			}
			hash.Write(buf[p : p+trailerSize])
			p += trailerSize

			if visit != nil && len(pending) > 0 {
				err := visit(Commit{Segment: seq, Time: time.Unix(int64(ts), 0).UTC(), Records: pending})
				if err != nil {
					return sc, err
				}
			}
			sc.records += len(pending)
			sc.end = int64(p)
			committedTS = ts
			pending = nil
			continue
		}

		start := p
		sizeAndFlags, n := binary.Uvarint(buf[p:])
		if n <= 0 {
			break
		}
		p += n
		delta, n := binary.Uvarint(buf[p:])
		if n <= 0 || delta > 0xFFFF_FFFF {
			break
		}
		p += n
		size := sizeAndFlags >> sizeShift
		if size > uint64(len(buf)-p) {
			break
		}
		hash.Write(buf[start:p])
		data := buf[p : p+int(size)]
		hash.Write(data)
		p += int(size)

		ts += uint32(delta)
		pending = append(pending, bytes.Clone(data))
	}

	sc.ts = committedTS
	sc.hash = xxhash.New()
	sc.hash.Write(buf[:sc.end])
	return sc, nil
}

func readHeader(buf []byte, h *segmentHeader, seq uint32, invariant [32]byte) error {
	if len(buf) < segmentHeaderSize {
		return ErrCorrupted
	}
	if _, err := binary.Decode(buf[:segmentHeaderSize], binary.LittleEndian, h); err != nil {
		return ErrCorrupted
	}
	if h.Magic != magic || xxhash.Sum64(buf[:segmentHeaderSize-8]) != h.Checksum {
		return ErrCorrupted
	}
	if h.SegmentOrdinal != seq {
		return ErrCorrupted
	}
	if h.Version > version0 {
		return ErrUnsupportedVersion
	}
	if h.JournalInvariant != invariant {
		return ErrIncompatible
	}
	return nil
}
