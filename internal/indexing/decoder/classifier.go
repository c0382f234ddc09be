package decoder

import (
	"errors"
	"math/big"
	"strings"

	"github.com/vietddude/firstbuy/internal/core/domain"
	"github.com/vietddude/firstbuy/internal/indexing/filter"
)

var one = big.NewInt(1)

// Outcome is the classification of a single transaction.
type Outcome int

const (
	// OutcomeIgnored: failed the static filter, nothing was decoded.
	OutcomeIgnored Outcome = iota
	// OutcomeSkipped: matched the filter but calldata was malformed.
	OutcomeSkipped
	// OutcomeRejected: decoded but failed the first-buy predicate.
	OutcomeRejected
	// OutcomeQualified: a first buy.
	OutcomeQualified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRejected:
		return "rejected"
	case OutcomeQualified:
		return "qualified"
	default:
		return "unknown"
	}
}

// Classifier applies the static filter, the decoder and the first-buy predicate.
type Classifier struct {
	filter  filter.Filter
	decoder CalldataDecoder
}

// NewClassifier creates a classifier for calls to contract decoded by dec.
func NewClassifier(contract string, dec CalldataDecoder) *Classifier {
	return &Classifier{
		filter:  filter.NewCallFilter(contract, dec.Selector()),
		decoder: dec,
	}
}

// Classify returns the decoded call when tx qualifies.
// Only a decode failure other than malformed calldata is returned as an error,
// wrapped in *DecodeError.
func (c *Classifier) Classify(tx *domain.Transaction) (domain.BuyCall, Outcome, error) {
	if !c.filter.Match(tx) {
		return domain.BuyCall{}, OutcomeIgnored, nil
	}

	call, err := c.decoder.Decode(tx.Input[filter.SelectorLen:])
	if err != nil {
		if errors.Is(err, ErrMalformedCalldata) {
			return domain.BuyCall{}, OutcomeSkipped, nil
		}
		return domain.BuyCall{}, OutcomeIgnored, &DecodeError{TxHash: tx.Hash, Err: err}
	}

	if !IsFirstBuy(tx, call) {
		return call, OutcomeRejected, nil
	}
	return call, OutcomeQualified, nil
}

// IsFirstBuy holds when the sender buys exactly one unit of its own subject
// and attaches no native value.
func IsFirstBuy(tx *domain.Transaction, call domain.BuyCall) bool {
	if !strings.EqualFold(tx.From, call.Subject) {
		return false
	}
	if call.Amount == nil || call.Amount.Cmp(one) != 0 {
		return false
	}
	return tx.Value == nil || tx.Value.Sign() == 0
}
