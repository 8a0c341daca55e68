package domain

import "strings"

// Transaction represents a single transaction as reported by the explorer API.
type Transaction struct {
	Hash        string   `json:"hash"`
	Timestamp   int64    `json:"timestamp"` // Unix seconds, UTC
	BlockNumber uint64   `json:"block_number"`
	TxIndex     uint64   `json:"tx_index"`
	Method      string   `json:"method"`
	Fee         string   `json:"fee"`
	To          string   `json:"to_address"`
	Status      TxStatus `json:"status"`
}

type TxStatus string

const (
	TxStatusOK     TxStatus = "ok"
	TxStatusFailed TxStatus = "failed"
)

// Countable reports whether the transaction counts toward the monitored
// address's aggregates. Non-countable transactions still advance the cursor.
func (t *Transaction) Countable(monitoredAddress string) bool {
	return t.Status == TxStatusOK && strings.EqualFold(t.To, monitoredAddress)
}

// Position returns the cursor pointing at this transaction.
func (t *Transaction) Position() Cursor {
	return Cursor{
		LastBlockNumber: t.BlockNumber,
		LastTxIndex:     t.TxIndex,
		LastTxHash:      t.Hash,
	}
}
