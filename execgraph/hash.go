package execgraph

import (
	"encoding/binary"
	"math"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// fingerprint hashes a byte key for the dedup buckets.
func fingerprint(data []byte) uint64 {
	hash, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0
	}
	_, _ = hash.Write(data)
	return hash.Sum64()
}

// constantFingerprint buckets constant nodes by type and value.
// Values are compared exactly afterwards; the hash only narrows the
// candidate set.
func (g *Graph) constantFingerprint(index int) uint64 {
	n := &g.nodes[index]
	buffer := make([]byte, 0, 16+len(n.stringValue))
	buffer = append(buffer, byte(n.constantType))
	switch n.constantType {
	case ConstantReal:
		buffer = binary.LittleEndian.AppendUint32(buffer, math.Float32bits(n.realValue))
	case ConstantBool:
		if n.boolValue {
			buffer = append(buffer, 1)
		} else {
			buffer = append(buffer, 0)
		}
	case ConstantString:
		buffer = append(buffer, n.stringValue...)
	}
	return fingerprint(buffer)
}

// constantsEqual compares two constant nodes exactly; strings compare
// bytewise.
func (g *Graph) constantsEqual(a, b int) bool {
	nodeA, nodeB := &g.nodes[a], &g.nodes[b]
	if nodeA.constantType != nodeB.constantType {
		return false
	}
	switch nodeA.constantType {
	case ConstantReal:
		return nodeA.realValue == nodeB.realValue
	case ConstantBool:
		return nodeA.boolValue == nodeB.boolValue
	case ConstantString:
		return nodeA.stringValue == nodeB.stringValue
	}
	return false
}

// callFingerprint buckets call nodes by module UID and input sources.
func (g *Graph) callFingerprint(index int) uint64 {
	n := &g.nodes[index]
	buffer := make([]byte, 0, 8+8*len(n.incoming))
	buffer = binary.LittleEndian.AppendUint64(buffer, uint64(n.moduleUID))
	for _, inputSlot := range n.incoming {
		buffer = binary.LittleEndian.AppendUint64(buffer, uint64(g.InputSource(inputSlot)))
	}
	return fingerprint(buffer)
}
