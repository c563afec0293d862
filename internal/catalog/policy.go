package catalog

import (
	"fmt"
	"strings"

	"github.com/safar/retail-store/internal/errs"
)

// StockPolicy decides what happens when a stock adjustment would take the
// quantity below zero.
type StockPolicy int

const (
	// AllowNegative applies the delta as is.
	AllowNegative StockPolicy = iota
	// RejectNegative fails the adjustment with errs.ErrInvalidState.
	RejectNegative
	// ClampAtZero floors the result at zero.
	ClampAtZero
)

func (p StockPolicy) String() string {
	switch p {
	case AllowNegative:
		return "allow"
	case RejectNegative:
		return "reject"
	case ClampAtZero:
		return "clamp"
	}
	return fmt.Sprintf("StockPolicy(%d)", int(p))
}

func ParseStockPolicy(name string) (StockPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "allow":
		return AllowNegative, nil
	case "reject":
		return RejectNegative, nil
	case "clamp":
		return ClampAtZero, nil
	}
	return AllowNegative, fmt.Errorf("unknown stock policy %q", name)
}

// Apply returns the stock level after adding delta to current.
func (p StockPolicy) Apply(current, delta int) (int, error) {
	next := current + delta
	if next >= 0 {
		return next, nil
	}
	switch p {
	case RejectNegative:
		return current, errs.InvalidStatef("stock %d cannot absorb adjustment %d", current, delta)
	case ClampAtZero:
		return 0, nil
	}
	return next, nil
}
