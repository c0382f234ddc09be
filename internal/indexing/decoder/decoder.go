// Package decoder turns tracked-method calldata into typed parameters and
// classifies transactions as first buys.
package decoder

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/firstbuy/internal/core/domain"
	"github.com/vietddude/firstbuy/internal/indexing/filter"
)

// DefaultSignature is the tracked buy method.
const DefaultSignature = "buyShares(address,uint256)"

const wordSize = 32

var (
	// ErrMalformedCalldata marks argument bytes that are empty or too short for
	// the method's parameter tuple. Such a call is taken to have reverted.
	ErrMalformedCalldata = errors.New("malformed calldata")

	// ErrValueOutOfRange marks a word with bits set beyond its type's width,
	// such as a dirty address word. Solidity reverts such a call, but unlike
	// short calldata it is not skipped.
	ErrValueOutOfRange = errors.New("value exceeds type width")

	// ErrInvalidSignature is returned for a signature the decoder cannot serve.
	ErrInvalidSignature = errors.New("invalid method signature")
)

// DecodeError is any decode failure other than malformed calldata.
type DecodeError struct {
	TxHash string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.TxHash == "" {
		return fmt.Sprintf("decode calldata: %v", e.Err)
	}
	return fmt.Sprintf("decode calldata of %s: %v", e.TxHash, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CalldataDecoder decodes the argument bytes that follow the selector.
type CalldataDecoder interface {
	Selector() [filter.SelectorLen]byte
	Decode(args []byte) (domain.BuyCall, error)
}

// Decoder decodes calldata of a method taking (address, uintN).
type Decoder struct {
	signature string
	selector  [filter.SelectorLen]byte
	args      abi.Arguments
}

// New builds a decoder for signature, e.g. "buyShares(address,uint256)".
// A non-empty selectorHex must equal keccak256(signature)[:4].
func New(signature, selectorHex string) (*Decoder, error) {
	if signature == "" {
		signature = DefaultSignature
	}
	args, err := parseSignature(signature)
	if err != nil {
		return nil, err
	}

	d := &Decoder{signature: signature, args: args}
	copy(d.selector[:], crypto.Keccak256([]byte(signature))[:filter.SelectorLen])

	if selectorHex != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(selectorHex), "0x"))
		if err != nil || len(raw) != filter.SelectorLen {
			return nil, fmt.Errorf("%w: bad selector %q", ErrInvalidSignature, selectorHex)
		}
		var override [filter.SelectorLen]byte
		copy(override[:], raw)
		if override != d.selector {
			return nil, fmt.Errorf("%w: selector %s does not match %s (0x%x)",
				ErrInvalidSignature, selectorHex, signature, d.selector)
		}
	}
	return d, nil
}

// parseSignature accepts "name(address,uintN)" and returns its argument list.
func parseSignature(signature string) (abi.Arguments, error) {
	open := strings.IndexByte(signature, '(')
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSignature, signature)
	}
	params := strings.Split(signature[open+1:len(signature)-1], ",")
	if len(params) != 2 {
		return nil, fmt.Errorf("%w: %q must take exactly (address, uint)", ErrInvalidSignature, signature)
	}

	names := []string{"subject", "amount"}
	args := make(abi.Arguments, 0, len(params))
	for i, p := range params {
		p = strings.TrimSpace(p)
		typ, err := abi.NewType(p, "", nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSignature, p, err)
		}
		args = append(args, abi.Argument{Name: names[i], Type: typ})
	}
	if args[0].Type.T != abi.AddressTy || args[1].Type.T != abi.UintTy {
		return nil, fmt.Errorf("%w: %q must take exactly (address, uint)", ErrInvalidSignature, signature)
	}
	return args, nil
}

// Signature returns the canonical method signature.
func (d *Decoder) Signature() string {
	return d.signature
}

// Selector returns keccak256(signature)[:4].
func (d *Decoder) Selector() [filter.SelectorLen]byte {
	return d.selector
}

// Decode unpacks args (calldata without the selector).
// Empty or truncated data yields ErrMalformedCalldata; a word wider than its
// type yields ErrValueOutOfRange.
func (d *Decoder) Decode(args []byte) (domain.BuyCall, error) {
	if err := d.checkWidths(args); err != nil {
		return domain.BuyCall{}, err
	}
	values, err := d.args.Unpack(args)
	if err != nil {
		if isMalformed(err) {
			return domain.BuyCall{}, fmt.Errorf("%w: %v", ErrMalformedCalldata, err)
		}
		return domain.BuyCall{}, err
	}
	return toBuyCall(values)
}

// checkWidths rejects head words whose padding is not zero. abi.Unpack
// silently truncates an address word to its low 20 bytes.
func (d *Decoder) checkWidths(args []byte) error {
	if len(args) < len(d.args)*wordSize {
		return nil // left to Unpack, which reports it as malformed
	}
	subject := args[:wordSize]
	for _, b := range subject[:wordSize-common.AddressLength] {
		if b != 0 {
			return fmt.Errorf("%w: subject 0x%x", ErrValueOutOfRange, subject)
		}
	}
	amount := args[wordSize : 2*wordSize]
	if bits := new(big.Int).SetBytes(amount).BitLen(); bits > d.args[1].Type.Size {
		return fmt.Errorf("%w: amount 0x%x does not fit uint%d", ErrValueOutOfRange, amount, d.args[1].Type.Size)
	}
	return nil
}

func toBuyCall(values []any) (domain.BuyCall, error) {
	if len(values) != 2 {
		return domain.BuyCall{}, fmt.Errorf("expected 2 values, got %d", len(values))
	}
	subject, ok := values[0].(common.Address)
	if !ok {
		return domain.BuyCall{}, fmt.Errorf("subject: unexpected type %T", values[0])
	}
	amount, err := toBigInt(values[1])
	if err != nil {
		return domain.BuyCall{}, fmt.Errorf("amount: %w", err)
	}
	return domain.BuyCall{
		Subject: strings.ToLower(subject.Hex()),
		Amount:  amount,
	}, nil
}

// toBigInt widens the Go types abi uses for uintN.
func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

// isMalformed matches the abi package's insufficient-data failures.
func isMalformed(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "length insufficient") ||
		strings.Contains(msg, "unmarshal an empty string") ||
		strings.Contains(msg, "out of bounds")
}
