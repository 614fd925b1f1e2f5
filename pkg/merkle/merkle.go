package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	PositionLeft  = "left"
	PositionRight = "right"
)

// ProofStep is one sibling on the path from a leaf to the root. Position says
// on which side of the running hash the sibling is concatenated.
type ProofStep struct {
	Position string `json:"position"`
	Data     string `json:"data"`
}

// Tree keeps every level so proofs can be read without rehashing.
// levels[0] holds the leaves and the last level holds the root.
type Tree struct {
	levels [][][]byte
}

func HashLeaf(payload []byte) []byte {
	sum := sha256.Sum256(payload)
	return sum[:]
}

func HashNode(left, right []byte) []byte {
	payload := make([]byte, 0, len(left)+len(right))
	payload = append(payload, left...)
	payload = append(payload, right...)
	sum := sha256.Sum256(payload)
	return sum[:]
}

// LeafHashHex is the content address of a reading.
func LeafHashHex(payload string) string {
	return hex.EncodeToString(HashLeaf([]byte(payload)))
}

// Build constructs a tree from already-hashed leaves.
func Build(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("cannot build a merkle tree without leaves")
	}

	level := make([][]byte, len(leaves))
	for index, leaf := range leaves {
		if len(leaf) != sha256.Size {
			return nil, fmt.Errorf("leaf %d must be %d bytes, got %d", index, sha256.Size, len(leaf))
		}
		level[index] = append([]byte(nil), leaf...)
	}

	levels := [][][]byte{level}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for index := 0; index < len(level); index += 2 {
			if index+1 == len(level) {
				next = append(next, level[index])
				continue
			}
			next = append(next, HashNode(level[index], level[index+1]))
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels: levels}, nil
}

// BuildFromPayloads hashes each payload and builds the tree in the given order.
func BuildFromPayloads(payloads []string) (*Tree, error) {
	leaves := make([][]byte, 0, len(payloads))
	for _, payload := range payloads {
		leaves = append(leaves, HashLeaf([]byte(payload)))
	}
	return Build(leaves)
}

func (t *Tree) Root() []byte {
	top := t.levels[len(t.levels)-1]
	return append([]byte(nil), top[0]...)
}

func (t *Tree) RootHex() string {
	return hex.EncodeToString(t.Root())
}

func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

func (t *Tree) Leaf(index int) []byte {
	return append([]byte(nil), t.levels[0][index]...)
}

// Proof returns the sibling path for the leaf at index.
func (t *Tree) Proof(index int) ([]ProofStep, error) {
	if index < 0 || index >= t.LeafCount() {
		return nil, fmt.Errorf("leaf index %d out of range [0,%d)", index, t.LeafCount())
	}

	steps := make([]ProofStep, 0, len(t.levels)-1)
	position := index
	for _, level := range t.levels[:len(t.levels)-1] {
		if position%2 == 1 {
			steps = append(steps, ProofStep{Position: PositionLeft, Data: hex.EncodeToString(level[position-1])})
		} else if position+1 < len(level) {
			steps = append(steps, ProofStep{Position: PositionRight, Data: hex.EncodeToString(level[position+1])})
		}
		position /= 2
	}

	return steps, nil
}

// VerifyProof recomputes the root from a leaf hash and its path. Malformed
// input never verifies.
func VerifyProof(leafHashHex string, proof []ProofStep, rootHex string) bool {
	current, err := hex.DecodeString(strings.TrimSpace(leafHashHex))
	if err != nil || len(current) != sha256.Size {
		return false
	}
	root, err := hex.DecodeString(strings.TrimSpace(rootHex))
	if err != nil || len(root) != sha256.Size {
		return false
	}

	for _, step := range proof {
		sibling, err := hex.DecodeString(step.Data)
		if err != nil || len(sibling) != sha256.Size {
			return false
		}
		switch step.Position {
		case PositionLeft:
			current = HashNode(sibling, current)
		case PositionRight:
			current = HashNode(current, sibling)
		default:
			return false
		}
	}

	return bytes.Equal(current, root)
}

// RecomputeRoot rebuilds the root over a window of readings with the same
// rules used when anchoring.
func RecomputeRoot(payloads []string) (string, error) {
	tree, err := BuildFromPayloads(payloads)
	if err != nil {
		return "", err
	}
	return tree.RootHex(), nil
}
