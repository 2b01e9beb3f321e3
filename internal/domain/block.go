package domain

import "time"

type BlockInfo struct {
	Number           uint64   `json:"number"`
	Timestamp        uint64   `json:"timestamp"`
	Hash             string   `json:"hash"`
	TransactionCount *uint32  `json:"transaction_count,omitempty"`
	GasUsed          *uint64  `json:"gas_used,omitempty"`
	BaseFeeGwei      *float64 `json:"base_fee_gwei,omitempty"`
}

// LiveBlockUpdate is one frame of the live block feed.
type LiveBlockUpdate struct {
	Block      BlockInfo `json:"block"`
	ReceivedAt time.Time `json:"received_at"`
}

type SourceStatus struct {
	Name      string     `json:"name"`
	Healthy   bool       `json:"healthy"`
	LastFetch *time.Time `json:"last_fetch,omitempty"`
	Error     string     `json:"error,omitempty"`
	ItemCount *int       `json:"item_count,omitempty"`
}
