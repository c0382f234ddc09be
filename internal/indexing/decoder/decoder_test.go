package decoder

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// encodeArgs ABI-encodes (address, uint256) as two 32-byte words.
func encodeArgs(subject string, amount int64) []byte {
	out := make([]byte, 64)
	copy(out[12:32], common.HexToAddress(subject).Bytes())
	big.NewInt(amount).FillBytes(out[32:64])
	return out
}

func TestNew_SelectorFromSignature(t *testing.T) {
	d, err := New(DefaultSignature, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel := d.Selector()
	if got := hexutil.Encode(sel[:]); got != "0x6945b123" {
		t.Errorf("expected selector 0x6945b123, got %s", got)
	}
}

func TestNew_SelectorOverride(t *testing.T) {
	if _, err := New(DefaultSignature, "0x6945B123"); err != nil {
		t.Errorf("matching override rejected: %v", err)
	}
	if _, err := New(DefaultSignature, "0xb51d0534"); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature for mismatching selector, got %v", err)
	}
	if _, err := New(DefaultSignature, "0x69"); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature for short selector, got %v", err)
	}
}

func TestNew_InvalidSignatures(t *testing.T) {
	for _, sig := range []string{
		"buyShares",
		"buyShares(address)",
		"buyShares(uint256,address)",
		"buyShares(address,uint256,uint256)",
		"buyShares(address,notatype)",
		"(address,uint256)",
	} {
		if _, err := New(sig, ""); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("New(%q): expected ErrInvalidSignature, got %v", sig, err)
		}
	}
}

func TestDecoder_Decode(t *testing.T) {
	d, _ := New(DefaultSignature, "")

	call, err := d.Decode(encodeArgs("0x0000000000000000000000000000000000000AbC", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.Subject != "0x0000000000000000000000000000000000000abc" {
		t.Errorf("expected lowercase subject, got %s", call.Subject)
	}
	if call.Amount.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("expected amount 1, got %s", call.Amount)
	}
}

func TestDecoder_DecodeSmallUint(t *testing.T) {
	d, err := New("buyShares(address,uint32)", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, err := d.Decode(encodeArgs("0x01", 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.Amount.Int64() != 7 {
		t.Errorf("expected 7, got %s", call.Amount)
	}
}

func TestDecoder_MalformedCalldata(t *testing.T) {
	d, _ := New(DefaultSignature, "")
	full := encodeArgs("0xabc", 1)

	for name, args := range map[string][]byte{
		"empty":     nil,
		"one word":  full[:32],
		"truncated": full[:50],
		"few bytes": full[:3],
	} {
		_, err := d.Decode(args)
		if !errors.Is(err, ErrMalformedCalldata) {
			t.Errorf("%s: expected ErrMalformedCalldata, got %v", name, err)
		}
	}
}

func TestDecoder_ValueOutOfRange(t *testing.T) {
	d, _ := New(DefaultSignature, "")

	dirty := encodeArgs("0xab", 1)
	for i := 0; i < 12; i++ {
		dirty[i] = 0xff
	}
	if call, err := d.Decode(dirty); !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("dirty address word: expected ErrValueOutOfRange, got call=%+v err=%v", call, err)
	}
	if _, err := d.Decode(dirty); errors.Is(err, ErrMalformedCalldata) {
		t.Error("dirty address word must not be treated as malformed")
	}

	small, _ := New("buyShares(address,uint32)", "")
	wide := encodeArgs("0x01", 1<<40)
	if _, err := small.Decode(wide); !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("uint32 overflow: expected ErrValueOutOfRange, got %v", err)
	}

	full := encodeArgs("0x01", 0)
	for i := 32; i < 64; i++ {
		full[i] = 0xff
	}
	if _, err := d.Decode(full); err != nil {
		t.Errorf("max uint256 rejected: %v", err)
	}
}

func TestDecodeError(t *testing.T) {
	inner := errors.New("boom")
	err := &DecodeError{TxHash: "0xtx", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected DecodeError to unwrap")
	}
	if !strings.Contains(err.Error(), "0xtx") {
		t.Errorf("expected tx hash in message, got %s", err.Error())
	}
}
