package state

import (
	"maps"
	"slices"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// cartEntity is the Applied key of cart-wide actions.
const cartEntity = "cart"

// CartState mirrors the backend cart. Applied holds the highest sequence
// applied per entity ("cart" or "line:<id>").
type CartState struct {
	Lines   []domain.CartLine `json:"lines"`
	Error   string            `json:"error,omitempty"`
	Applied map[string]int64  `json:"applied,omitempty"`
}

// CartAction is an event reduced by ReduceCart. Seq is the request sequence
// assigned when the request that produced the action started.
type CartAction interface {
	Sequence() int64
	cartAction()
}

type (
	// CartLoaded replaces every line with the backend's view.
	CartLoaded struct {
		Seq   int64
		Lines []domain.CartLine
	}
	// LineAdded inserts a line, replacing one with the same ID or product.
	LineAdded struct {
		Seq  int64
		Line domain.CartLine
	}
	// LineUpdated replaces the line with the same ID.
	LineUpdated struct {
		Seq  int64
		Line domain.CartLine
	}
	// LineRemoved drops a line.
	LineRemoved struct {
		Seq    int64
		LineID string
	}
	// CartCleared empties the cart.
	CartCleared struct{ Seq int64 }
	// CartFailed records a failed cart request.
	CartFailed struct {
		Seq     int64
		Message string
	}
)

func (a CartLoaded) Sequence() int64  { return a.Seq }
func (a LineAdded) Sequence() int64   { return a.Seq }
func (a LineUpdated) Sequence() int64 { return a.Seq }
func (a LineRemoved) Sequence() int64 { return a.Seq }
func (a CartCleared) Sequence() int64 { return a.Seq }
func (a CartFailed) Sequence() int64  { return a.Seq }

func (CartLoaded) cartAction()  {}
func (LineAdded) cartAction()   {}
func (LineUpdated) cartAction() {}
func (LineRemoved) cartAction() {}
func (CartCleared) cartAction() {}
func (CartFailed) cartAction()  {}

func lineEntity(id string) string { return "line:" + id }

// lineKey returns the Applied key of a line action, or "" for cart-wide ones.
func lineKey(a CartAction) string {
	switch a := a.(type) {
	case LineAdded:
		return lineEntity(a.Line.ID)
	case LineUpdated:
		return lineEntity(a.Line.ID)
	case LineRemoved:
		return lineEntity(a.LineID)
	}
	return ""
}

// CartStale reports whether a is older than something already applied. A
// line action is stale against its own line and against cart-wide actions;
// a cart-wide action is stale against anything newer.
func CartStale(s CartState, a CartAction) bool {
	seq := a.Sequence()
	if key := lineKey(a); key != "" {
		return seq < s.Applied[key] || seq < s.Applied[cartEntity]
	}
	return seq < maxApplied(s.Applied)
}

func maxApplied(m map[string]int64) int64 {
	var hi int64
	for _, v := range m {
		hi = max(hi, v)
	}
	return hi
}

// ReduceCart returns the state that follows s after a. Stale actions leave s
// unchanged. s is never mutated.
func ReduceCart(s CartState, a CartAction) CartState {
	if CartStale(s, a) {
		return s
	}

	next := CartState{
		Lines:   slices.Clone(s.Lines),
		Error:   s.Error,
		Applied: maps.Clone(s.Applied),
	}
	if next.Applied == nil {
		next.Applied = make(map[string]int64)
	}

	switch a := a.(type) {
	case CartLoaded:
		next.Lines = slices.Clone(a.Lines)
		next.Applied = map[string]int64{cartEntity: a.Seq}
		next.Error = ""
		return next
	case CartCleared:
		next.Lines = nil
		next.Applied = map[string]int64{cartEntity: a.Seq}
		next.Error = ""
		return next
	case CartFailed:
		next.Error = a.Message
		return next
	case LineAdded:
		if i := domain.FindLine(next.Lines, a.Line.ID, a.Line.Product.ID); i >= 0 {
			next.Lines[i] = a.Line
		} else {
			next.Lines = append(next.Lines, a.Line)
		}
	case LineUpdated:
		if i := domain.FindLine(next.Lines, a.Line.ID, ""); i >= 0 {
			next.Lines[i] = a.Line
		}
	case LineRemoved:
		next.Lines = slices.DeleteFunc(next.Lines, func(l domain.CartLine) bool { return l.ID == a.LineID })
	}

	next.Applied[lineKey(a)] = a.Sequence()
	next.Error = ""
	return next
}
