package decoder

import (
	"errors"
	"math/big"
	"testing"

	"github.com/vietddude/firstbuy/internal/core/domain"
	"github.com/vietddude/firstbuy/internal/indexing/filter"
)

const (
	testContract = "0xcf205808ed36593aa40a44f10c7f7c2f67d4a4d4"
	testSubject  = "0x0000000000000000000000000000000000000abc"
)

var buySelector = []byte{0x69, 0x45, 0xb1, 0x23}

// spyDecoder counts Decode calls and delegates to an optional func.
type spyDecoder struct {
	calls  int
	decode func(args []byte) (domain.BuyCall, error)
}

func (s *spyDecoder) Selector() [filter.SelectorLen]byte {
	return [filter.SelectorLen]byte{0x69, 0x45, 0xb1, 0x23}
}

func (s *spyDecoder) Decode(args []byte) (domain.BuyCall, error) {
	s.calls++
	if s.decode != nil {
		return s.decode(args)
	}
	return domain.BuyCall{Subject: testSubject, Amount: big.NewInt(1)}, nil
}

func buyTx(from string, subject string, amount, value int64) *domain.Transaction {
	return &domain.Transaction{
		Hash:  "0xtx",
		From:  from,
		To:    testContract,
		Input: append(append([]byte{}, buySelector...), encodeArgs(subject, amount)...),
		Value: big.NewInt(value),
	}
}

func TestClassifier_StaticFilterSkipsDecoder(t *testing.T) {
	spy := &spyDecoder{}
	c := NewClassifier(testContract, spy)

	txs := []*domain.Transaction{
		{To: "0x0000000000000000000000000000000000000001", Input: append([]byte{}, buySelector...)},
		{To: testContract, Input: []byte{0xb5, 0x1d, 0x05, 0x34, 0x00}},
		{To: "", Input: append([]byte{}, buySelector...)},
	}
	for _, tx := range txs {
		_, outcome, err := c.Classify(tx)
		if err != nil || outcome != OutcomeIgnored {
			t.Errorf("expected ignored, got %v (err=%v)", outcome, err)
		}
	}
	if spy.calls != 0 {
		t.Errorf("expected 0 decode calls, got %d", spy.calls)
	}
}

func TestClassifier_Predicate(t *testing.T) {
	d, _ := New(DefaultSignature, "")
	c := NewClassifier("0xCF205808Ed36593aa40a44F10c7f7C2F67d4A4d4", d)

	other := "0x0000000000000000000000000000000000000def"

	tests := []struct {
		name string
		tx   *domain.Transaction
		want Outcome
	}{
		{"qualifies", buyTx(testSubject, testSubject, 1, 0), OutcomeQualified},
		{"qualifies mixed case sender", buyTx("0x0000000000000000000000000000000000000ABC", testSubject, 1, 0), OutcomeQualified},
		{"sender is not subject", buyTx(other, testSubject, 1, 0), OutcomeRejected},
		{"amount two", buyTx(testSubject, testSubject, 2, 0), OutcomeRejected},
		{"amount zero", buyTx(testSubject, testSubject, 0, 0), OutcomeRejected},
		{"value attached", buyTx(testSubject, testSubject, 1, 1), OutcomeRejected},
	}

	for _, tt := range tests {
		_, got, err := c.Classify(tt.tx)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClassifier_MalformedIsSkipped(t *testing.T) {
	d, _ := New(DefaultSignature, "")
	c := NewClassifier(testContract, d)

	tx := buyTx(testSubject, testSubject, 1, 0)
	tx.Input = tx.Input[:4+40]

	_, outcome, err := c.Classify(tx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("expected skipped, got %v", outcome)
	}
}

func TestClassifier_OtherDecodeFailurePropagates(t *testing.T) {
	inner := errors.New("abi: improperly formatted output")
	spy := &spyDecoder{decode: func([]byte) (domain.BuyCall, error) {
		return domain.BuyCall{}, inner
	}}
	c := NewClassifier(testContract, spy)

	tx := buyTx(testSubject, testSubject, 1, 0)
	tx.Hash = "0xbad"

	_, _, err := c.Classify(tx)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decErr.TxHash != "0xbad" || !errors.Is(err, inner) {
		t.Errorf("unexpected error %+v", decErr)
	}
}

func TestIsFirstBuy_NilValue(t *testing.T) {
	tx := &domain.Transaction{From: testSubject}
	call := domain.BuyCall{Subject: testSubject, Amount: big.NewInt(1)}
	if !IsFirstBuy(tx, call) {
		t.Error("nil value should count as zero")
	}
	if IsFirstBuy(tx, domain.BuyCall{Subject: testSubject}) {
		t.Error("nil amount must not qualify")
	}
}
