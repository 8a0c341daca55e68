package domain

// Cursor identifies the most recently folded transaction. It only advances
// forward between rebuilds.
type Cursor struct {
	LastBlockNumber uint64 `json:"last_block_number"`
	LastTxIndex     uint64 `json:"last_tx_index"`
	LastTxHash      string `json:"last_tx_hash"`
}

// Zero reports whether the cursor is the genesis cursor (no transaction
// folded yet).
func (c Cursor) Zero() bool {
	return c.LastBlockNumber == 0 && c.LastTxIndex == 0 && c.LastTxHash == ""
}

// Compare orders cursors by (block, txIndex). Returns -1, 0 or 1.
func (c Cursor) Compare(other Cursor) int {
	if c.LastBlockNumber != other.LastBlockNumber {
		if c.LastBlockNumber < other.LastBlockNumber {
			return -1
		}
		return 1
	}
	if c.LastTxIndex != other.LastTxIndex {
		if c.LastTxIndex < other.LastTxIndex {
			return -1
		}
		return 1
	}
	return 0
}

// After reports whether c is strictly newer than other.
func (c Cursor) After(other Cursor) bool {
	return c.Compare(other) > 0
}

// Matches reports whether a transaction is the one the cursor points at.
// Hash is included so a reorg-replaced transaction at the same position is
// not mistaken for the stored one.
func (c Cursor) Matches(tx *Transaction) bool {
	return tx.BlockNumber == c.LastBlockNumber &&
		tx.TxIndex == c.LastTxIndex &&
		tx.Hash == c.LastTxHash
}
