package savedata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Encoding serializes List and Object values into store blobs.
type Encoding int

const (
	MsgPack Encoding = iota
	JSON
	MsgPackSnappy

	defaultEncoding = MsgPack
)

func (enc Encoding) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	case MsgPackSnappy:
		return "msgpack+snappy"
	default:
		return fmt.Sprintf("encoding(%d)", int(enc))
	}
}

// ParseEncoding is the inverse of Encoding.String.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "msgpack":
		return MsgPack, nil
	case "json":
		return JSON, nil
	case "msgpack+snappy", "snappy":
		return MsgPackSnappy, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", s)
	}
}

// Encode serializes v. MsgPack sorts the keys of string-keyed generic maps;
// other maps are encoded in iteration order, so compare blobs through
// fingerprint rather than directly.
func (enc Encoding) Encode(v any) ([]byte, error) {
	switch enc {
	case MsgPack, MsgPackSnappy:
		var buf bytes.Buffer
		e := msgpack.GetEncoder()
		e.ResetDict(&buf, nil)
		e.SetSortMapKeys(true)
		err := e.Encode(v)
		msgpack.PutEncoder(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
		}
		if enc == MsgPackSnappy {
			return snappy.Encode(nil, buf.Bytes()), nil
		}
		return buf.Bytes(), nil
	case JSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %T to JSON: %w", v, err)
		}
		return raw, nil
	default:
		panic("unsupported encoding")
	}
}

// Decode deserializes data into the value pointed to by ptr.
func (enc Encoding) Decode(data []byte, ptr any) error {
	switch enc {
	case MsgPack, MsgPackSnappy:
		if enc == MsgPackSnappy {
			raw, err := snappy.Decode(nil, data)
			if err != nil {
				return dataErrf(data, err, "failed to decompress snappy blob")
			}
			data = raw
		}
		r := bytes.NewReader(data)
		d := msgpack.GetDecoder()
		d.ResetDict(r, nil)
		err := d.Decode(ptr)
		msgpack.PutDecoder(d)
		if err != nil {
			return dataErrf(data, err, "failed to decode msgpack into %T", ptr)
		}
		return nil
	case JSON:
		err := json.Unmarshal(data, ptr)
		if err != nil {
			return dataErrf(data, err, "failed to decode JSON into %T", ptr)
		}
		return nil
	default:
		panic("unsupported encoding")
	}
}

// fingerprint hashes the canonical msgpack form of v (see canonicalMsgPack).
func fingerprint(v any) (uint64, error) {
	_, sum, err := MsgPack.encodeFingerprinted(v)
	return sum, err
}

// encodeFingerprinted encodes v with enc and returns its fingerprint too.
// The msgpack encodings store the canonical form, so v is encoded once.
func (enc Encoding) encodeFingerprinted(v any) ([]byte, uint64, error) {
	blob, err := MsgPack.Encode(v)
	if err != nil {
		return nil, 0, err
	}
	canon, err := canonicalMsgPack(blob)
	if err != nil {
		return nil, 0, err
	}
	sum := xxhash.Sum64(canon)
	switch enc {
	case MsgPack:
		return canon, sum, nil
	case MsgPackSnappy:
		return snappy.Encode(nil, canon), sum, nil
	default:
		blob, err = enc.Encode(v)
		return blob, sum, err
	}
}

// canonicalMsgPack rewrites a msgpack blob with the entries of every map,
// whatever its key type, sorted by their encoded key. The encoder itself
// only sorts map[string]string and map[string]any.
func canonicalMsgPack(blob []byte) ([]byte, error) {
	var buf bytes.Buffer
	d := msgpack.NewDecoder(bytes.NewReader(blob))
	if err := canonicalValue(d, msgpack.NewEncoder(&buf)); err != nil {
		return nil, dataErrf(blob, err, "failed to canonicalize msgpack")
	}
	return buf.Bytes(), nil
}

func canonicalValue(d *msgpack.Decoder, e *msgpack.Encoder) error {
	c, err := d.PeekCode()
	if err != nil {
		return err
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := d.DecodeMapLen()
		if err != nil {
			return err
		}
		pairs := make([][2][]byte, n)
		for i := range pairs {
			if pairs[i][0], err = canonicalRaw(d); err != nil {
				return err
			}
			if pairs[i][1], err = canonicalRaw(d); err != nil {
				return err
			}
		}
		slices.SortFunc(pairs, func(a, b [2][]byte) int {
			return bytes.Compare(a[0], b[0])
		})
		if err := e.EncodeMapLen(n); err != nil {
			return err
		}
		for _, p := range pairs {
			if err := e.Encode(msgpack.RawMessage(p[0])); err != nil {
				return err
			}
			if err := e.Encode(msgpack.RawMessage(p[1])); err != nil {
				return err
			}
		}
		return nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := d.DecodeArrayLen()
		if err != nil {
			return err
		}
		if err := e.EncodeArrayLen(n); err != nil {
			return err
		}
		for range n {
			if err := canonicalValue(d, e); err != nil {
				return err
			}
		}
		return nil
	default:
		raw, err := d.DecodeRaw()
		if err != nil {
			return err
		}
		return e.Encode(raw)
	}
}

func canonicalRaw(d *msgpack.Decoder) ([]byte, error) {
	var buf bytes.Buffer
	if err := canonicalValue(d, msgpack.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
