package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ugorji/go/codec"
)

// Bundle is a sequence dataset ready for training. X holds N sequences of
// TargetLength rows by len(Columns) features and Y the raw direction of
// each.
type Bundle struct {
	SchemaVersion string        `codec:"," json:"schema_version"`
	Columns       []string      `codec:"," json:"columns"`
	TargetLength  int           `codec:"," json:"target_length"`
	X             [][][]float64 `codec:"," json:"-"`
	Y             []int         `codec:"," json:"y"`
	KickIDs       []int64       `codec:"," json:"kick_ids"`
	Report        Report        `codec:"," json:"report"`
}

// Validate checks that the bundle's arrays agree in shape.
func (b *Bundle) Validate() error {
	if len(b.X) != len(b.Y) || len(b.X) != len(b.KickIDs) {
		return fmt.Errorf("bundle has %d sequences, %d labels and %d kick ids",
			len(b.X), len(b.Y), len(b.KickIDs))
	}
	for i, seq := range b.X {
		if len(seq) != b.TargetLength {
			return fmt.Errorf("sequence %d has %d rows, expected %d", i, len(seq), b.TargetLength)
		}
		for t, row := range seq {
			if len(row) != len(b.Columns) {
				return fmt.Errorf("sequence %d row %d has %d values, expected %d",
					i, t, len(row), len(b.Columns))
			}
		}
	}
	return nil
}

// Encode writes the bundle to w as msgpack.
func (b *Bundle) Encode(w io.Writer) error {
	var h codec.MsgpackHandle
	if err := codec.NewEncoder(w, &h).Encode(b); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return nil
}

// DecodeBundle reads a msgpack bundle from r and validates it.
func DecodeBundle(r io.Reader) (*Bundle, error) {
	var h codec.MsgpackHandle
	var b Bundle
	if err := codec.NewDecoder(r, &h).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Save writes the bundle to path.
func (b *Bundle) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bundle file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := b.Encode(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write bundle file: %w", err)
	}
	return f.Close()
}

// LoadBundle reads a bundle from path.
func LoadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle file: %w", err)
	}
	defer f.Close()

	return DecodeBundle(bufio.NewReader(f))
}
