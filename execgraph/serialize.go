package execgraph

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/viant/wavelang/nativemodule"
)

// Binary payload for one execution graph. Multi-byte integers are
// little-endian. The instrument container contributes the file header;
// this payload holds the globals record, node records, and edges.

func writeUint32(w io.Writer, value uint32) error {
	var buffer [4]byte
	binary.LittleEndian.PutUint32(buffer[:], value)
	_, err := w.Write(buffer[:])
	return err
}

func writeUint64(w io.Writer, value uint64) error {
	var buffer [8]byte
	binary.LittleEndian.PutUint64(buffer[:], value)
	_, err := w.Write(buffer[:])
	return err
}

func writeByte(w io.Writer, value byte) error {
	_, err := w.Write([]byte{value})
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buffer [4]byte
	if _, err := io.ReadFull(r, buffer[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buffer[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buffer [8]byte
	if _, err := io.ReadFull(r, buffer[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buffer[:]), nil
}

func readByte(r io.Reader) (byte, error) {
	var buffer [1]byte
	if _, err := io.ReadFull(r, buffer[:]); err != nil {
		return 0, err
	}
	return buffer[0], nil
}

// Save writes the graph payload. The graph must be validated and free
// of intermediate-value nodes.
func (g *Graph) Save(w io.Writer) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid graph: %w", err)
	}
	for index := range g.nodes {
		kind := g.nodes[index].kind
		if kind == NodeInvalid || kind == NodeIntermediateValue {
			return fmt.Errorf("refusing to save graph with construction-time node %d", index)
		}
	}

	globals := g.globals
	if err := writeUint32(w, globals.MaxVoices); err != nil {
		return err
	}
	if err := writeUint32(w, globals.SampleRate); err != nil {
		return err
	}
	if err := writeUint32(w, globals.ChunkSize); err != nil {
		return err
	}
	activate := byte(0)
	if globals.ActivateFXImmediately {
		activate = 1
	}
	if err := writeByte(w, activate); err != nil {
		return err
	}

	if err := writeUint32(w, uint32(len(g.nodes))); err != nil {
		return err
	}
	edgeCount := uint32(0)
	for index := range g.nodes {
		n := &g.nodes[index]
		edgeCount += uint32(len(n.outgoing))
		if err := writeUint32(w, uint32(n.kind)); err != nil {
			return err
		}
		switch n.kind {
		case NodeConstant:
			if err := writeUint32(w, uint32(n.constantType)); err != nil {
				return err
			}
			switch n.constantType {
			case ConstantReal:
				if err := writeUint32(w, math.Float32bits(n.realValue)); err != nil {
					return err
				}
			case ConstantBool:
				value := byte(0)
				if n.boolValue {
					value = 1
				}
				if err := writeByte(w, value); err != nil {
					return err
				}
			case ConstantString:
				if err := writeUint32(w, uint32(len(n.stringValue))); err != nil {
					return err
				}
				if _, err := w.Write([]byte(n.stringValue)); err != nil {
					return err
				}
			}
		case NodeNativeModuleCall:
			if err := writeUint64(w, uint64(n.moduleUID)); err != nil {
				return err
			}
		case NodeOutput:
			if err := writeUint32(w, uint32(n.outputIndex)); err != nil {
				return err
			}
		}
	}

	if err := writeUint32(w, edgeCount); err != nil {
		return err
	}
	for index := range g.nodes {
		for _, to := range g.nodes[index].outgoing {
			if err := writeUint32(w, uint32(index)); err != nil {
				return err
			}
			if err := writeUint32(w, uint32(to)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads one graph payload, validating node kinds, edge legality,
// acyclicity, output labels, and the absence of no-op calls.
func Load(r io.Reader, registry *nativemodule.Registry) (*Graph, error) {
	g := New(registry)
	noopName := registry.OperatorModule(nativemodule.OperatorNoop)

	maxVoices, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	sampleRate, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	chunkSize, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	activate, err := readByte(r)
	if err != nil {
		return nil, err
	}
	g.globals = nativemodule.InstrumentGlobals{
		MaxVoices:             maxVoices,
		SampleRate:            sampleRate,
		ChunkSize:             chunkSize,
		ActivateFXImmediately: activate != 0,
	}

	nodeCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for index := uint32(0); index < nodeCount; index++ {
		kindValue, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		var n node
		n.kind = NodeKind(kindValue)
		switch n.kind {
		case NodeConstant:
			typeValue, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			n.constantType = ConstantType(typeValue)
			switch n.constantType {
			case ConstantReal:
				bits, err := readUint32(r)
				if err != nil {
					return nil, err
				}
				n.realValue = math.Float32frombits(bits)
			case ConstantBool:
				value, err := readByte(r)
				if err != nil {
					return nil, err
				}
				n.boolValue = value != 0
			case ConstantString:
				length, err := readUint32(r)
				if err != nil {
					return nil, err
				}
				data := make([]byte, length)
				if _, err := io.ReadFull(r, data); err != nil {
					return nil, err
				}
				n.stringValue = string(data)
			default:
				return nil, fmt.Errorf("invalid constant type %d", typeValue)
			}
		case NodeNativeModuleCall:
			uidValue, err := readUint64(r)
			if err != nil {
				return nil, err
			}
			n.moduleUID = nativemodule.UID(uidValue)
			module := registry.ModuleByUID(n.moduleUID)
			if module == nil {
				return nil, fmt.Errorf("unknown native module %v", n.moduleUID)
			}
			if module.Name == noopName {
				return nil, fmt.Errorf("no-op call in serialized graph")
			}
		case NodeNativeModuleInput, NodeNativeModuleOutput:
		case NodeOutput:
			label, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			n.outputIndex = int(label)
		default:
			return nil, fmt.Errorf("invalid node kind %d", kindValue)
		}
		g.nodes = append(g.nodes, n)
	}

	edgeCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for index := uint32(0); index < edgeCount; index++ {
		from, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		to, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		if !g.addEdgeForLoad(int(from), int(to)) {
			return nil, fmt.Errorf("invalid edge (%d,%d)", from, to)
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
