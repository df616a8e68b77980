// Package relay writes chat fragments to a client as newline-delimited JSON
// units. The first unit has no delimiter; every later unit is preceded by a
// single '\n'. Each unit is tagged with a "kind" so a terminal error cannot
// be mistaken for generated output.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/davidbz/chatrelay/internal/domain"
)

// Unit kinds.
const (
	KindFragment = "fragment"
	KindError    = "error"
)

// ErrClosed is returned for writes after Close.
var ErrClosed = errors.New("relay closed")

type fragmentUnit struct {
	Kind string `json:"kind"`
	domain.Fragment
}

// Writer is a domain.FragmentSink over an io.Writer.
type Writer struct {
	mu      sync.Mutex
	out     io.Writer
	flusher http.Flusher
	units   int
	closed  bool
}

var _ domain.FragmentSink = (*Writer)(nil)

// NewWriter creates a relay writing to out. When out is an http.Flusher every
// unit is flushed as soon as it is written.
func NewWriter(out io.Writer) *Writer {
	flusher, _ := out.(http.Flusher)
	return &Writer{
		out:     out,
		flusher: flusher,
	}
}

// WriteFragment writes one fragment unit.
func (w *Writer) WriteFragment(fragment domain.Fragment) error {
	return w.writeUnit(fragmentUnit{Kind: KindFragment, Fragment: fragment})
}

// WriteError writes the terminal error unit.
func (w *Writer) WriteError(err error) error {
	return w.writeUnit(domain.ErrorEventFrom(err))
}

// Close ends the stream; later writes fail with ErrClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if closer, ok := w.out.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Units returns the number of units written.
func (w *Writer) Units() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.units
}

func (w *Writer) writeUnit(unit any) error {
	data, err := json.Marshal(unit)
	if err != nil {
		return fmt.Errorf("failed to encode unit: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	if w.units > 0 {
		data = append([]byte{'\n'}, data...)
	}

	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("failed to write unit: %w", err)
	}
	w.units++

	if w.flusher != nil {
		w.flusher.Flush()
	}

	return nil
}
