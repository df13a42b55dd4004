package savedata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateID is returned by Group.Add when a sibling already uses the id.
	ErrDuplicateID = errors.New("duplicate sibling id")

	// ErrSweepActive is returned when an operation conflicts with an
	// in-flight async staging sweep.
	ErrSweepActive = errors.New("staging sweep in progress")

	errNotLoaded = errors.New("not loaded")
)

type DataError struct {
	Data []byte
	Err  error
	Msg  string
}

func dataErrf(data []byte, err error, format string, args ...any) error {
	return &DataError{data, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// LeafError describes a failure tied to a single node of the tree.
type LeafError struct {
	Key string
	Msg string
	Err error
}

func leafErrf(key string, err error, format string, args ...any) error {
	return &LeafError{key, fmt.Sprintf(format, args...), err}
}

func (e *LeafError) Unwrap() error {
	return e.Err
}

func (e *LeafError) Error() string {
	var buf strings.Builder
	if e.Key == "" {
		buf.WriteString("<unbound>")
	} else {
		buf.WriteString(e.Key)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
