package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// vectorIndexMagic identifies the binary vector index file format.
var vectorIndexMagic = [4]byte{'R', 'L', 'V', '1'}

// vectorIndexVersion versions the on-disk layout (header + vector-record
// section + graph blob framing). Bump whenever any of those change
// incompatibly.
const vectorIndexVersion uint32 = 2

// VectorIndex is an approximate nearest neighbor index over cosine-
// normalized float32 vectors. The ANN graph itself is github.com/coder/hnsw
// (the teacher's pure-Go HNSW implementation); this type owns only what the
// on-disk format requires full control over: the fixed header and the flat
// vector-record section (§6.1). The trailing graph section is the graph
// library's own opaque export, framed with a length prefix, plus the
// label<->embedding_id bijection gob-encoded alongside it.
type VectorIndex struct {
	mu sync.RWMutex

	dims        int
	maxElements int
	params      GraphParams

	graph   *hnsw.Graph[uint64]
	vectors map[uint32][]float32 // label -> normalized vector, for the flat record section

	labelOf   map[string]uint32 // embedding_id -> label
	idOf      map[uint32]string // label -> embedding_id
	nextLabel uint32

	orphans int // nodes left in the graph by removeLocked, still counted by graph.Search

	closed bool
}

// hnswBijection is gob-encoded after the graph library's own export bytes:
// the label<->embedding_id mapping the graph itself knows nothing about, plus
// the orphan count so overfetching in Search survives a save/load round trip.
type hnswBijection struct {
	IDOf      map[uint32]string
	NextLabel uint32
	Orphans   int
}

// NewVectorIndex constructs an empty index over vectors of the given
// dimensionality.
func NewVectorIndex(dims, maxElements int, params GraphParams) *VectorIndex {
	if params.M == 0 {
		params = DefaultGraphParams()
	}
	return &VectorIndex{
		dims:        dims,
		maxElements: maxElements,
		params:      params,
		graph:       newGraph(params),
		vectors:     make(map[uint32][]float32),
		labelOf:     make(map[string]uint32),
		idOf:        make(map[uint32]string),
	}
}

// newGraph constructs a coder/hnsw graph tuned by params, cosine distance
// (our vectors are normalized on insertion and query).
func newGraph(params GraphParams) *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = params.M
	g.EfSearch = params.EfSearch
	g.Ml = 0.25 // default level generation factor, per coder/hnsw's own recommendation
	return g
}

func normalizeCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	normalizeVectorInPlace(out)
	return out
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// Add inserts a vector under embeddingID, assigning it a fresh label. If
// embeddingID already has a label, its old label is orphaned (lazy
// deletion, see removeLocked) and a new one is assigned.
func (v *VectorIndex) Add(embeddingID string, vec []float32) (uint32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return 0, fmt.Errorf("vector index is closed")
	}
	if len(vec) != v.dims {
		return 0, ErrDimensionMismatch{Expected: v.dims, Got: len(vec)}
	}

	if existing, ok := v.labelOf[embeddingID]; ok {
		v.removeLocked(existing)
	}

	label := v.nextLabel
	v.nextLabel++

	normalized := normalizeCopy(vec)
	v.graph.Add(hnsw.MakeNode(uint64(label), normalized))
	v.vectors[label] = normalized
	v.labelOf[embeddingID] = label
	v.idOf[label] = embeddingID

	return label, nil
}

// removeLocked orphans a label: its id mapping and record-section vector are
// dropped, but the node stays in the graph. coder/hnsw's Delete can corrupt
// the graph when the removed node is its last one, so, like the teacher's
// HNSWStore, deletion here is lazy — orphaned nodes are simply filtered out
// of Search results and never written back into the vector-record section.
func (v *VectorIndex) removeLocked(label uint32) {
	if id, ok := v.idOf[label]; ok {
		delete(v.labelOf, id)
		delete(v.idOf, label)
		v.orphans++
	}
	delete(v.vectors, label)
}

// Delete removes embeddingID from the index, if present.
func (v *VectorIndex) Delete(embeddingID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if label, ok := v.labelOf[embeddingID]; ok {
		v.removeLocked(label)
	}
}

// Search finds the k nearest neighbors to query, returning embedding ids in
// nearest-first order. Orphaned (lazily-deleted) graph nodes are filtered
// out of the results.
func (v *VectorIndex) Search(query []float32, k int) ([]*VectorResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, fmt.Errorf("vector index is closed")
	}
	if len(query) != v.dims {
		return nil, ErrDimensionMismatch{Expected: v.dims, Got: len(query)}
	}
	if len(v.labelOf) == 0 {
		return []*VectorResult{}, nil
	}

	q := normalizeCopy(query)

	// Overfetch to compensate for orphaned nodes the graph still returns.
	fetch := k + v.orphans
	nodes := v.graph.Search(q, fetch)

	results := make([]*VectorResult, 0, k)
	for _, n := range nodes {
		id, ok := v.idOf[uint32(n.Key)]
		if !ok {
			continue
		}
		dist := v.graph.Distance(q, n.Value)
		results = append(results, &VectorResult{
			EmbeddingID: id,
			Distance:    dist,
			Score:       1 - dist/2,
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// Count returns the number of live vectors in the index.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.labelOf)
}

// Contains reports whether embeddingID has a vector in the index.
func (v *VectorIndex) Contains(embeddingID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.labelOf[embeddingID]
	return ok
}

// Save writes the binary vector index file: a 24-byte header, a
// current_size u32, current_size (label, vector) records for every live
// embedding, then the graph section — an 8-byte length prefix, the graph
// library's own exported bytes, and the gob-encoded label<->embedding_id
// bijection. Publication is via write-temp-then-rename so the file is never
// partially observable (I7, §6.1).
func (v *VectorIndex) Save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	w := bufio.NewWriter(f)

	header := make([]byte, 24)
	copy(header[0:4], vectorIndexMagic[:])
	binary.LittleEndian.PutUint32(header[4:8], vectorIndexVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(v.dims))
	binary.LittleEndian.PutUint32(header[12:16], uint32(v.maxElements))
	binary.LittleEndian.PutUint16(header[16:18], uint16(v.params.M))
	binary.LittleEndian.PutUint16(header[18:20], uint16(v.params.EfConstruction))
	binary.LittleEndian.PutUint32(header[20:24], v.params.Seed)
	if _, err := w.Write(header); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write header: %w", err)
	}

	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, uint32(len(v.vectors)))
	if _, err := w.Write(sizeBuf); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write current_size: %w", err)
	}

	recBuf := make([]byte, 4+v.dims*4)
	for label, vec := range v.vectors {
		binary.LittleEndian.PutUint32(recBuf[0:4], label)
		for i, x := range vec {
			binary.LittleEndian.PutUint32(recBuf[4+i*4:8+i*4], math.Float32bits(x))
		}
		if _, err := w.Write(recBuf); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("write vector record: %w", err)
		}
	}

	var graphBuf bytes.Buffer
	if err := v.graph.Export(&graphBuf); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	lenBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(lenBuf, uint64(graphBuf.Len()))
	if _, err := w.Write(lenBuf); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write graph length: %w", err)
	}
	if _, err := w.Write(graphBuf.Bytes()); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write graph bytes: %w", err)
	}

	enc := gob.NewEncoder(w)
	if err := enc.Encode(hnswBijection{IDOf: v.idOf, NextLabel: v.nextLabel, Orphans: v.orphans}); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode bijection: %w", err)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

// LoadVectorIndex reads a binary vector index file written by Save.
func LoadVectorIndex(path string) (*VectorIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	header := make([]byte, 24)
	if _, err := ioReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var magic [4]byte
	copy(magic[:], header[0:4])
	if magic != vectorIndexMagic {
		return nil, fmt.Errorf("not a vector index file: bad magic")
	}
	version := binary.LittleEndian.Uint32(header[4:8])
	if version != vectorIndexVersion {
		return nil, fmt.Errorf("unsupported vector index version %d", version)
	}
	dims := int(binary.LittleEndian.Uint32(header[8:12]))
	maxElements := int(binary.LittleEndian.Uint32(header[12:16]))
	params := GraphParams{
		M:              int(binary.LittleEndian.Uint16(header[16:18])),
		EfConstruction: int(binary.LittleEndian.Uint16(header[18:20])),
		Seed:           binary.LittleEndian.Uint32(header[20:24]),
	}
	params.EfSearch = DefaultGraphParams().EfSearch

	sizeBuf := make([]byte, 4)
	if _, err := ioReadFull(r, sizeBuf); err != nil {
		return nil, fmt.Errorf("read current_size: %w", err)
	}
	currentSize := binary.LittleEndian.Uint32(sizeBuf)

	v := NewVectorIndex(dims, maxElements, params)

	recBuf := make([]byte, 4+dims*4)
	for i := uint32(0); i < currentSize; i++ {
		if _, err := ioReadFull(r, recBuf); err != nil {
			return nil, fmt.Errorf("read vector record %d: %w", i, err)
		}
		label := binary.LittleEndian.Uint32(recBuf[0:4])
		vec := make([]float32, dims)
		for j := 0; j < dims; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(recBuf[4+j*4 : 8+j*4]))
		}
		v.vectors[label] = vec
	}

	lenBuf := make([]byte, 8)
	if _, err := ioReadFull(r, lenBuf); err != nil {
		return nil, fmt.Errorf("read graph length: %w", err)
	}
	graphLen := binary.LittleEndian.Uint64(lenBuf)
	graphBytes := make([]byte, graphLen)
	if _, err := ioReadFull(r, graphBytes); err != nil {
		return nil, fmt.Errorf("read graph bytes: %w", err)
	}
	if err := v.graph.Import(bytes.NewReader(graphBytes)); err != nil {
		return nil, fmt.Errorf("import graph: %w", err)
	}

	var bij hnswBijection
	dec := gob.NewDecoder(r)
	if err := dec.Decode(&bij); err != nil {
		return nil, fmt.Errorf("decode bijection: %w", err)
	}
	v.idOf = bij.IDOf
	v.nextLabel = bij.NextLabel
	v.orphans = bij.Orphans
	v.labelOf = make(map[string]uint32, len(bij.IDOf))
	for label, id := range bij.IDOf {
		v.labelOf[id] = label
	}

	return v, nil
}

func ioReadFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Close releases the index. The graph has no external resources to release,
// so this only marks the index unusable.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}
