package index

import (
	"time"

	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

// settings
type RequestSettings struct {
	Timeout  time.Duration
	MaxDepth int
}

const DefaultMaxDepth = 512

// requests
type TraceRequest struct {
	MsgHash      HashType            `query:"msg_hash" json:"msg_hash"`
	Emulated     bool                `query:"emulated" json:"emulated"`
	AllowedCodes *trace.AllowedCodes `query:"-" json:"allowed_codes,omitempty"`
}

type AllowedCodesRequest struct {
	Address *AccountAddress `query:"address"`
}
