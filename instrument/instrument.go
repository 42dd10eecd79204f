// Package instrument holds the compiled instrument: one execution
// graph per globals-product variant, plus the binary file container.
package instrument

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/viant/wavelang/execgraph"
	"github.com/viant/wavelang/nativemodule"
)

var formatIdentifier = [8]byte{'w', 'a', 'v', 'e', 'l', 'a', 'n', 'g'}

// FormatVersion of the instrument file layout.
const FormatVersion uint32 = 1

// Instrument is a set of compiled execution-graph variants.
type Instrument struct {
	variants []*execgraph.Graph
}

// New returns an empty instrument.
func New() *Instrument {
	return &Instrument{}
}

// AddVariant appends a compiled variant.
func (i *Instrument) AddVariant(graph *execgraph.Graph) {
	i.variants = append(i.variants, graph)
}

// VariantCount returns the number of variants.
func (i *Instrument) VariantCount() int {
	return len(i.variants)
}

// Variant returns the variant at index.
func (i *Instrument) Variant(index int) *execgraph.Graph {
	return i.variants[index]
}

// Validate validates every variant graph.
func (i *Instrument) Validate() error {
	for index, variant := range i.variants {
		if err := variant.Validate(); err != nil {
			return fmt.Errorf("variant %d: %w", index, err)
		}
	}
	return nil
}

// Save writes the instrument file: magic, version, variant count, and
// one execution-graph payload per variant.
func (i *Instrument) Save(w io.Writer) error {
	if err := i.Validate(); err != nil {
		return err
	}
	if _, err := w.Write(formatIdentifier[:]); err != nil {
		return err
	}
	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], FormatVersion)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(i.variants)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	for _, variant := range i.variants {
		if err := variant.Save(w); err != nil {
			return err
		}
	}
	return nil
}

// Load reads and validates an instrument file.
func Load(r io.Reader, registry *nativemodule.Registry) (*Instrument, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("invalid instrument header: %w", err)
	}
	if !bytes.Equal(magic[:], formatIdentifier[:]) {
		return nil, fmt.Errorf("invalid instrument format identifier")
	}
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("invalid instrument header: %w", err)
	}
	version := binary.LittleEndian.Uint32(header[0:4])
	if version != FormatVersion {
		return nil, fmt.Errorf("instrument format version mismatch: %d", version)
	}
	variantCount := binary.LittleEndian.Uint32(header[4:8])

	result := New()
	for index := uint32(0); index < variantCount; index++ {
		variant, err := execgraph.Load(r, registry)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", index, err)
		}
		result.AddVariant(variant)
	}
	return result, nil
}

// Requirements the runtime places on a variant.
type Requirements struct {
	SampleRate uint32
}

// VariantForRequirements picks the variant best matching the
// requirements. A variant with sample rate 0 matches any rate without
// increasing the match score.
func (i *Instrument) VariantForRequirements(requirements Requirements) (int, error) {
	bestScore := -1
	matches := 0
	bestIndex := 0
	for index, variant := range i.variants {
		globals := variant.Globals()
		score := 0
		if globals.SampleRate == 0 {
			// Matches any sample rate, contributes no score
		} else if globals.SampleRate == requirements.SampleRate {
			score++
		} else {
			continue
		}
		if score == bestScore {
			matches++
		} else if score > bestScore {
			bestScore = score
			matches = 1
			bestIndex = index
		}
	}
	if bestScore == -1 {
		return 0, fmt.Errorf("no variant matches the requirements")
	}
	if matches > 1 {
		return 0, fmt.Errorf("ambiguous variant match")
	}
	return bestIndex, nil
}
