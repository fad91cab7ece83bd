// Package vector provides the semantic index: exact nearest-neighbour search over
// recipe embeddings by squared Euclidean distance.
package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/hyperjump/mise/pkg/utils"
)

const (
	flatMagic    = "MVEC"
	flatVersion  = uint32(1)
	maxStringLen = 1 << 16
)

// Neighbor is a stored vector id with its squared distance to a query.
type Neighbor struct {
	ID       string
	Distance float64
}

// FlatIndex is a brute-force vector index. Vectors are added once while building;
// after that the index is read-only and safe for concurrent searches.
type FlatIndex struct {
	dimension int
	model     string
	ids       []string
	vectors   [][]float32
	pos       map[string]int
}

// NewFlatIndex creates an empty index for vectors of the given dimension produced by model.
func NewFlatIndex(dimension int, model string) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{
		dimension: dimension,
		model:     model,
		pos:       make(map[string]int),
	}, nil
}

// Add appends vectors with the given ids. Ids must be unique.
func (f *FlatIndex) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for i, id := range ids {
		if len(vectors[i]) != f.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), f.dimension)
		}
		if _, dup := f.pos[id]; dup {
			return fmt.Errorf("duplicate vector id %q", id)
		}
		vec := make([]float32, f.dimension)
		copy(vec, vectors[i])
		f.pos[id] = len(f.ids)
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, vec)
	}
	return nil
}

// Search returns the k stored vectors nearest to query, by ascending squared
// distance and then ascending id. Fewer than k are returned when the index is smaller.
func (f *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimension)
	}
	if k <= 0 || len(f.ids) == 0 {
		return []Neighbor{}, nil
	}
	all := make([]Neighbor, len(f.ids))
	for i, vec := range f.vectors {
		all[i] = Neighbor{ID: f.ids[i], Distance: utils.SquaredL2(query, vec)}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].ID < all[j].ID
	})
	if k > len(all) {
		k = len(all)
	}
	return all[:k], nil
}

// Vector returns the stored vector for id.
func (f *FlatIndex) Vector(id string) ([]float32, bool) {
	i, ok := f.pos[id]
	if !ok {
		return nil, false
	}
	return f.vectors[i], true
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	return len(f.ids)
}

// Dimension returns the vector dimension.
func (f *FlatIndex) Dimension() int {
	return f.dimension
}

// Model returns the identifier of the embedding model the vectors came from.
func (f *FlatIndex) Model() string {
	return f.model
}

// IDs returns the stored ids in ascending order.
func (f *FlatIndex) IDs() []string {
	ids := append([]string(nil), f.ids...)
	sort.Strings(ids)
	return ids
}

// Encode writes the index in a little-endian binary format: magic, version,
// dimension, model, count, then per vector its id and dimension*4 bytes of float32.
func (f *FlatIndex) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(flatMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	for _, v := range []uint32{flatVersion, uint32(f.dimension)} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := writeString(bw, f.model); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(f.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	buf := make([]byte, f.dimension*4)
	for i, id := range f.ids {
		if err := writeString(bw, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		for j, v := range f.vectors[i] {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return bw.Flush()
}

// DecodeFlat reads an index written by Encode. The stored dimension and model must
// equal the expected ones and the stored ids must be exactly roster.
func DecodeFlat(r io.Reader, dimension int, model string, roster []string) (*FlatIndex, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(flatMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != flatMagic {
		return nil, errors.New("not a vector index")
	}
	var version, dim uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != flatVersion {
		return nil, fmt.Errorf("unsupported vector index version %d", version)
	}
	if err := binary.Read(br, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != dimension {
		return nil, fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, dimension)
	}
	storedModel, err := readString(br)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	if storedModel != model {
		return nil, fmt.Errorf("model mismatch: file has %q, index expects %q", storedModel, model)
	}
	var n uint32
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if int(n) != len(roster) {
		return nil, fmt.Errorf("vector index has %d vectors, roster has %d", n, len(roster))
	}
	known := make(map[string]struct{}, len(roster))
	for _, id := range roster {
		known[id] = struct{}{}
	}

	f, err := NewFlatIndex(dimension, model)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, dimension*4)
	for i := uint32(0); i < n; i++ {
		id, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("vector index references unknown recipe %q", id)
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		vec := make([]float32, dimension)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		if err := f.Add([]string{id}, [][]float32{vec}); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds limit", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
