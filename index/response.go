package index

import (
	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

// responses
type TraceResponse struct {
	Trace           *trace.Node           `json:"trace"`
	RevertedBranch  *trace.RevertedBranch `json:"reverted_branch"`
	RevertedMsgHash *string               `json:"reverted_msg_hash"`
	HasError        bool                  `json:"has_error"`
	Nodes           int                   `json:"nodes"`
} // @name TraceResponse

type AllowedCodesResponse struct {
	AllowedCodes trace.AllowedCodes `json:"allowed_codes"`
	Effective    *trace.CodeList    `json:"effective,omitempty"`
} // @name AllowedCodesResponse

func NewTraceResponse(res *trace.TraceResult) TraceResponse {
	resp := TraceResponse{
		Trace:          res.Root,
		RevertedBranch: res.RevertedBranch,
		HasError:       res.HasError(),
		Nodes:          res.Nodes,
	}
	if b := res.RevertedBranch; b != nil && b.Node != nil {
		hash := b.Node.Message.Hash
		resp.RevertedMsgHash = &hash
	}
	return resp
}
