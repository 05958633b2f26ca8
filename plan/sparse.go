package plan

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrBadPattern is returned when a CSR pattern is structurally invalid
// (wrong pointer length, non-monotone pointers, unsorted or out-of-range
// column indices, or a value slice of the wrong length).
var ErrBadPattern = errors.New("plan: malformed sparsity pattern")

// ErrPatternMismatch is returned when a binary operation is attempted
// between couplings that do not share the same sparsity pattern.
var ErrPatternMismatch = errors.New("plan: sparsity patterns differ")

// Sparse is a fixed-pattern n×m coupling in CSR form with an auxiliary
// CSC permutation for column reductions. The pattern (rowPtr, colInd
// and the derived CSC index) is immutable after construction; only the
// values change.
type Sparse struct {
	rows, cols int
	rowPtr     []int // len rows+1
	colInd     []int // len nnz, sorted strictly increasing within a row
	val        []float64

	// CSC view of the same pattern.
	colPtr []int // len cols+1
	cscVal []int // len nnz; cscVal[k] = position in val of the k-th entry in column order
}

// NewSparse builds a coupling from a CSR pattern and optional initial
// values. val may be nil, in which case all stored entries start at 0;
// otherwise it must have exactly one value per pattern entry and is
// copied.
//
// The pattern is validated: rowPtr must have len rows+1, start at 0,
// be non-decreasing and end at len(colInd); column indices must be
// strictly increasing within each row and lie in [0, cols).
//
// Complexity: O(nnz + rows + cols).
func NewSparse(rows, cols int, rowPtr, colInd []int, val []float64) (*Sparse, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrBadPattern
	}
	if len(rowPtr) != rows+1 || rowPtr[0] != 0 || rowPtr[rows] != len(colInd) {
		return nil, ErrBadPattern
	}
	for i := 0; i < rows; i++ {
		if rowPtr[i] > rowPtr[i+1] {
			return nil, ErrBadPattern
		}
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			j := colInd[k]
			if j < 0 || j >= cols {
				return nil, ErrBadPattern
			}
			if k > rowPtr[i] && colInd[k-1] >= j {
				return nil, ErrBadPattern
			}
		}
	}
	if val != nil && len(val) != len(colInd) {
		return nil, ErrBadPattern
	}

	s := &Sparse{
		rows:   rows,
		cols:   cols,
		rowPtr: append([]int(nil), rowPtr...),
		colInd: append([]int(nil), colInd...),
		val:    make([]float64, len(colInd)),
	}
	if val != nil {
		copy(s.val, val)
	}
	s.buildCSC()

	return s, nil
}

// FromDense captures the pattern and values of every entry of d whose
// absolute value exceeds tol. Useful for deriving a warm-start coupling
// or a test fixture from an explicit matrix.
//
// Complexity: O(rows·cols).
func FromDense(d mat.Matrix, tol float64) *Sparse {
	rows, cols := d.Dims()
	rowPtr := make([]int, rows+1)
	var colInd []int
	var val []float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := d.At(i, j)
			if v > tol || v < -tol {
				colInd = append(colInd, j)
				val = append(val, v)
			}
		}
		rowPtr[i+1] = len(colInd)
	}

	s := &Sparse{
		rows:   rows,
		cols:   cols,
		rowPtr: rowPtr,
		colInd: colInd,
		val:    val,
	}
	s.buildCSC()

	return s
}

// buildCSC derives the column-ordered permutation from the CSR pattern
// via a counting pass.
func (s *Sparse) buildCSC() {
	s.colPtr = make([]int, s.cols+1)
	for _, j := range s.colInd {
		s.colPtr[j+1]++
	}
	for j := 0; j < s.cols; j++ {
		s.colPtr[j+1] += s.colPtr[j]
	}
	s.cscVal = make([]int, len(s.colInd))
	next := append([]int(nil), s.colPtr...)
	for i := 0; i < s.rows; i++ {
		for k := s.rowPtr[i]; k < s.rowPtr[i+1]; k++ {
			j := s.colInd[k]
			s.cscVal[next[j]] = k
			next[j]++
		}
	}
}

// Rows returns the number of rows.
func (s *Sparse) Rows() int { return s.rows }

// Cols returns the number of columns.
func (s *Sparse) Cols() int { return s.cols }

// NNZ returns the number of stored entries.
func (s *Sparse) NNZ() int { return len(s.colInd) }

// RowPtr exposes the CSR row pointer. The returned slice is live and
// must be treated as read-only.
func (s *Sparse) RowPtr() []int { return s.rowPtr }

// ColInd exposes the CSR column indices. Read-only.
func (s *Sparse) ColInd() []int { return s.colInd }

// Values exposes the stored entry values in CSR order. The slice is
// live: mutating it mutates the coupling, which is the intended
// hot-path access for solvers. Length and order never change.
func (s *Sparse) Values() []float64 { return s.val }

// ColPtr exposes the CSC column pointer. Read-only.
func (s *Sparse) ColPtr() []int { return s.colPtr }

// CSCIndex returns, for the k-th entry in column order, its position in
// Values. Read-only.
func (s *Sparse) CSCIndex() []int { return s.cscVal }

// At returns the entry at (i, j), or 0 when (i, j) is outside the
// pattern. O(log nnz(row i)) via binary search; intended for tests and
// inspection, not hot loops.
func (s *Sparse) At(i, j int) float64 {
	if i < 0 || i >= s.rows || j < 0 || j >= s.cols {
		return 0
	}
	lo, hi := s.rowPtr[i], s.rowPtr[i+1]
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s.colInd[mid] < j:
			lo = mid + 1
		case s.colInd[mid] > j:
			hi = mid
		default:
			return s.val[mid]
		}
	}

	return 0
}

// Clone returns a coupling with copied values and a shared (aliased)
// pattern, so SamePattern(clone) is O(1).
func (s *Sparse) Clone() *Sparse {
	c := *s
	c.val = append([]float64(nil), s.val...)

	return &c
}

// SamePattern reports whether o shares s's sparsity pattern. Aliased
// patterns (clones) compare in O(1); otherwise the index structure is
// compared entrywise.
func (s *Sparse) SamePattern(o *Sparse) bool {
	if s.rows != o.rows || s.cols != o.cols || len(s.colInd) != len(o.colInd) {
		return false
	}
	if len(s.colInd) > 0 && &s.colInd[0] == &o.colInd[0] {
		return true
	}
	for i, p := range s.rowPtr {
		if o.rowPtr[i] != p {
			return false
		}
	}
	for k, j := range s.colInd {
		if o.colInd[k] != j {
			return false
		}
	}

	return true
}

// Sum returns the total mass of the coupling.
func (s *Sparse) Sum() float64 { return floats.Sum(s.val) }

// RowSums writes the row marginal into dst (allocated when nil) and
// returns it. len(dst) must equal Rows when non-nil.
func (s *Sparse) RowSums(dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, s.rows)
	} else {
		for i := range dst {
			dst[i] = 0
		}
	}
	for i := 0; i < s.rows; i++ {
		var acc float64
		for k := s.rowPtr[i]; k < s.rowPtr[i+1]; k++ {
			acc += s.val[k]
		}
		dst[i] = acc
	}

	return dst
}

// ColSums writes the column marginal into dst (allocated when nil) and
// returns it. len(dst) must equal Cols when non-nil.
func (s *Sparse) ColSums(dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, s.cols)
	} else {
		for j := range dst {
			dst[j] = 0
		}
	}
	for k, j := range s.colInd {
		dst[j] += s.val[k]
	}

	return dst
}

// Scale multiplies every stored entry by c in place.
func (s *Sparse) Scale(c float64) {
	floats.Scale(c, s.val)
}

// ToDense materializes the coupling as an explicit matrix. Intended for
// small problems, tests and inspection.
func (s *Sparse) ToDense() *mat.Dense {
	d := mat.NewDense(s.rows, s.cols, nil)
	for i := 0; i < s.rows; i++ {
		for k := s.rowPtr[i]; k < s.rowPtr[i+1]; k++ {
			d.Set(i, s.colInd[k], s.val[k])
		}
	}

	return d
}
