package domain

import "math/big"

// Transaction is a transaction as returned inside a block.
// Addresses are lowercase hex; To is empty for contract creations.
type Transaction struct {
	Hash        string
	BlockNumber uint64
	Index       int
	From        string
	To          string
	Input       []byte
	Value       *big.Int
}

// BuyCall holds the decoded parameters of a tracked buy call.
type BuyCall struct {
	Subject string
	Amount  *big.Int
}

// FirstBuy is a qualifying transaction: a buy of exactly one unit of the
// caller's own subject with no native value attached.
type FirstBuy struct {
	Transaction    *Transaction
	Call           BuyCall
	BlockTimestamp uint64
}
