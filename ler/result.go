package ler

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/relate/cluster"
)

// Result is the stored outcome of one LER computation.
type Result struct {
	Collection string `json:"collection"`
	// Entities in traversal order.
	Entities []string `json:"entities"`
	// Offsets[i] is the global ordinal of entity i's first vector; the last
	// element is the total vector count.
	Offsets []int `json:"offsets"`
	// Prototypes in insertion order, seed first.
	Prototypes []cluster.Prototype `json:"prototypes"`
	// Alphabet lists prototype positions in histogram-axis order.
	Alphabet []int `json:"alphabet"`
	// Counts[i][j] is the number of entity i's vectors assigned to Alphabet[j].
	Counts [][]int `json:"counts"`
	// Histograms[i] is Counts[i] divided by entity i's vector count.
	Histograms [][]float64 `json:"histograms"`
	// Members[j] holds the global ordinals assigned to Alphabet[j].
	Members Membership `json:"members"`
}

// Info is the auxiliary information stored with a result's metadata.
type Info struct {
	Alphabet   []string `json:"alphabet"`
	Counts     [][]int  `json:"counts"`
	Prototypes int      `json:"prototypes"`
	Vectors    int      `json:"vectors"`
	Params     string   `json:"params"`
}

// DescriptionInfo is stored with per-entity LER descriptions.
type DescriptionInfo struct {
	Collection string `json:"collection"`
	Counts     []int  `json:"counts"`
}

func (r *Result) info(paramsKey string) Info {
	return Info{
		Alphabet:   r.AlphabetIDs(),
		Counts:     r.Counts,
		Prototypes: len(r.Prototypes),
		Vectors:    r.Offsets[len(r.Offsets)-1],
		Params:     paramsKey,
	}
}

// AlphabetIDs returns the prototype ids along the histogram axis.
func (r *Result) AlphabetIDs() []string {
	out := make([]string, len(r.Alphabet))
	for j, p := range r.Alphabet {
		out[j] = r.Prototypes[p].ID.String()
	}
	return out
}

func (r *Result) entityIndex(id string) (int, bool) {
	for i, e := range r.Entities {
		if e == id {
			return i, true
		}
	}
	return 0, false
}

// Histogram returns the LER vector of entity id.
func (r *Result) Histogram(id string) ([]float64, bool) {
	i, ok := r.entityIndex(id)
	if !ok {
		return nil, false
	}
	return r.Histograms[i], true
}

// ClusterOf returns the prototype the i-th vector of entity id was assigned to.
func (r *Result) ClusterOf(id string, i int) (cluster.PrototypeID, bool) {
	e, ok := r.entityIndex(id)
	if !ok || i < 0 || r.Offsets[e]+i >= r.Offsets[e+1] {
		return cluster.PrototypeID{}, false
	}

	ordinal := uint32(r.Offsets[e] + i)
	for j, m := range r.Members {
		if m.Contains(ordinal) {
			return r.Prototypes[r.Alphabet[j]].ID, true
		}
	}
	return cluster.PrototypeID{}, false
}

// VectorRef names one vector of one entity.
type VectorRef struct {
	Entity string
	Index  int
}

// Cluster returns the vectors assigned to the j-th alphabet entry in
// traversal order.
func (r *Result) Cluster(j int) []VectorRef {
	if j < 0 || j >= len(r.Members) {
		return nil
	}

	var (
		out []VectorRef
		e   int
	)
	it := r.Members[j].Iterator()
	for it.HasNext() {
		ordinal := int(it.Next())
		for ordinal >= r.Offsets[e+1] {
			e++
		}
		out = append(out, VectorRef{Entity: r.Entities[e], Index: ordinal - r.Offsets[e]})
	}
	return out
}

// Membership is a list of roaring bitmaps encoded as portable byte strings.
type Membership []*roaring.Bitmap

// MarshalJSON implements json.Marshaler.
func (m Membership) MarshalJSON() ([]byte, error) {
	raw := make([][]byte, len(m))
	for i, b := range m {
		data, err := b.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("ler: encode membership %d: %w", i, err)
		}
		raw[i] = data
	}
	return gojson.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Membership) UnmarshalJSON(data []byte) error {
	var raw [][]byte
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Membership, len(raw))
	for i, b := range raw {
		out[i] = roaring.New()
		if err := out[i].UnmarshalBinary(b); err != nil {
			return fmt.Errorf("ler: decode membership %d: %w", i, err)
		}
	}
	*m = out
	return nil
}
