package metric

import (
	"github.com/proteingym/pg2-benchmark/internal/ordered"
)

// Set maps metric names to values in the order they were computed. It is the
// on-disk shape of a per-fold metric file.
type Set = ordered.Map[Value]

func NewSet() *Set {
	return ordered.New[Value]()
}
