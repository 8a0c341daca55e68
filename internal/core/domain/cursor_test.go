package domain

import "testing"

func TestCursorCompare(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Cursor
		expect int
	}{
		{"earlier block", Cursor{LastBlockNumber: 100}, Cursor{LastBlockNumber: 200}, -1},
		{"later block", Cursor{LastBlockNumber: 300}, Cursor{LastBlockNumber: 200}, 1},
		{"same block earlier index", Cursor{LastBlockNumber: 100, LastTxIndex: 1}, Cursor{LastBlockNumber: 100, LastTxIndex: 5}, -1},
		{"same block later index", Cursor{LastBlockNumber: 100, LastTxIndex: 7}, Cursor{LastBlockNumber: 100, LastTxIndex: 5}, 1},
		{"same position", Cursor{LastBlockNumber: 100, LastTxIndex: 5}, Cursor{LastBlockNumber: 100, LastTxIndex: 5}, 0},
		{"hash does not order", Cursor{LastBlockNumber: 100, LastTxHash: "a"}, Cursor{LastBlockNumber: 100, LastTxHash: "b"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.expect {
				t.Errorf("Compare = %d, want %d", got, tt.expect)
			}
		})
	}
}

func TestCursorAfter(t *testing.T) {
	a := Cursor{LastBlockNumber: 200, LastTxIndex: 0}
	b := Cursor{LastBlockNumber: 100, LastTxIndex: 9}

	if !a.After(b) {
		t.Error("higher block should be after")
	}
	if b.After(a) {
		t.Error("lower block should not be after")
	}
	if a.After(a) {
		t.Error("cursor is not after itself")
	}
}

func TestCursorZero(t *testing.T) {
	if !(Cursor{}).Zero() {
		t.Error("empty cursor should be zero")
	}
	if (Cursor{LastTxHash: "h"}).Zero() {
		t.Error("cursor with hash should not be zero")
	}
	if (Cursor{LastBlockNumber: 1}).Zero() {
		t.Error("cursor with block should not be zero")
	}
}

func TestCursorMatches(t *testing.T) {
	cursor := Cursor{LastBlockNumber: 100, LastTxIndex: 2, LastTxHash: "abc"}

	match := Transaction{Hash: "abc", BlockNumber: 100, TxIndex: 2}
	if !cursor.Matches(&match) {
		t.Error("expected match at identical position and hash")
	}

	// Same position, different hash: a reorg replaced the transaction.
	replaced := Transaction{Hash: "def", BlockNumber: 100, TxIndex: 2}
	if cursor.Matches(&replaced) {
		t.Error("hash mismatch at same position must not match")
	}

	moved := Transaction{Hash: "abc", BlockNumber: 100, TxIndex: 3}
	if cursor.Matches(&moved) {
		t.Error("position mismatch must not match")
	}
}

func TestTransactionCountable(t *testing.T) {
	const addr = "0x5EB715d5A1B1B8F67e84AC40a320B0d8936cB5a5"

	tests := []struct {
		name   string
		tx     Transaction
		expect bool
	}{
		{"ok to monitored", Transaction{To: addr, Status: TxStatusOK}, true},
		{"case-insensitive address", Transaction{To: "0x5eb715d5a1b1b8f67e84ac40a320b0d8936cb5a5", Status: TxStatusOK}, true},
		{"failed to monitored", Transaction{To: addr, Status: TxStatusFailed}, false},
		{"ok to other address", Transaction{To: "0x0000000000000000000000000000000000000001", Status: TxStatusOK}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.Countable(addr); got != tt.expect {
				t.Errorf("Countable = %v, want %v", got, tt.expect)
			}
		})
	}
}
