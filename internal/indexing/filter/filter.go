// Package filter implements the zero-cost prefilter applied to every
// scanned transaction before any calldata is decoded.
package filter

import (
	"bytes"
	"strings"

	"github.com/vietddude/firstbuy/internal/core/domain"
)

// SelectorLen is the length of an EVM method selector.
const SelectorLen = 4

// Filter decides whether a transaction is a candidate for decoding.
type Filter interface {
	Match(tx *domain.Transaction) bool
}

// CallFilter matches calls to one contract with one method selector.
type CallFilter struct {
	contract string
	selector [SelectorLen]byte
}

// NewCallFilter creates a filter for contract (any case) and selector.
func NewCallFilter(contract string, selector [SelectorLen]byte) *CallFilter {
	return &CallFilter{
		contract: strings.ToLower(contract),
		selector: selector,
	}
}

// Match reports whether tx is sent to the contract and its input starts with the selector.
func (f *CallFilter) Match(tx *domain.Transaction) bool {
	if tx == nil || tx.To == "" {
		return false
	}
	if !strings.EqualFold(tx.To, f.contract) {
		return false
	}
	return len(tx.Input) >= SelectorLen && bytes.Equal(tx.Input[:SelectorLen], f.selector[:])
}

// Contract returns the tracked contract address in lowercase.
func (f *CallFilter) Contract() string {
	return f.contract
}

// Selector returns the tracked method selector.
func (f *CallFilter) Selector() [SelectorLen]byte {
	return f.selector
}
