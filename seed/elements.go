package seed

import (
	"fmt"
	"math"
	"sort"
)

// Lattice is a crystal structure type.
type Lattice int

const (
	FCC Lattice = iota
	BCC
	HCP
)

func (l Lattice) String() string {
	switch l {
	case FCC:
		return "FaceCenteredCubic"
	case BCC:
		return "BodyCenteredCubic"
	case HCP:
		return "HexagonalClosedPacked"
	default:
		return fmt.Sprintf("Lattice(%d)", int(l))
	}
}

// Element holds tabulated lattice data.
type Element struct {
	Symbol  string
	Lattice Lattice
	// A is the lattice constant in Å.
	A float64
	// CoverA is the c/a ratio of hexagonal lattices.
	CoverA float64
	// Z is the atomic number.
	Z int
	// Basis lists the indices of symmetry-distinct atoms in the unit cell.
	Basis []int
}

var elements = map[string]Element{
	"Ni": {Symbol: "Ni", Lattice: FCC, A: 3.52, Z: 28, Basis: []int{0}},
	"Al": {Symbol: "Al", Lattice: FCC, A: 4.05, Z: 13, Basis: []int{0}},
	"Cr": {Symbol: "Cr", Lattice: BCC, A: 2.91, Z: 24, Basis: []int{0, 1}},
	"Mg": {Symbol: "Mg", Lattice: HCP, A: 3.21, CoverA: 1.633, Z: 12, Basis: []int{0, 1}},
}

// Lookup returns the tabulated element.
func Lookup(symbol string) (Element, bool) {
	el, ok := elements[symbol]
	return el, ok
}

// Symbols returns the tabulated element symbols, sorted.
func Symbols() []string {
	out := make([]string, 0, len(elements))
	for s := range elements {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Structure is a periodic atomic structure.
type Structure struct {
	Symbol    string
	Numbers   []int
	Positions [][3]float64 // Cartesian, Å
	Cell      [3][3]float64
	PBC       [3]bool
}

// Crystal builds the conventional unit cell of the element.
func (el Element) Crystal() (Structure, error) {
	var (
		cell [3][3]float64
		frac [][3]float64
	)

	a := el.A
	switch el.Lattice {
	case FCC:
		cell = [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
		frac = [][3]float64{{0, 0, 0}, {0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}}
	case BCC:
		cell = [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
		frac = [][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}}
	case HCP:
		c := a * el.CoverA
		cell = [3][3]float64{{a, 0, 0}, {-a / 2, a * math.Sqrt(3) / 2, 0}, {0, 0, c}}
		frac = [][3]float64{{0, 0, 0}, {1.0 / 3, 2.0 / 3, 0.5}}
	default:
		return Structure{}, fmt.Errorf("seed: unsupported lattice %v", el.Lattice)
	}

	s := Structure{
		Symbol:    el.Symbol,
		Numbers:   make([]int, len(frac)),
		Positions: make([][3]float64, len(frac)),
		Cell:      cell,
		PBC:       [3]bool{true, true, true},
	}
	for i, f := range frac {
		s.Numbers[i] = el.Z
		for k := 0; k < 3; k++ {
			s.Positions[i][k] = f[0]*cell[0][k] + f[1]*cell[1][k] + f[2]*cell[2][k]
		}
	}
	return s, nil
}
