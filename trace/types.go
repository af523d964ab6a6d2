package trace

import (
	"github.com/toncenter/ton-indexer/ton-tracing-go/abi"
)

type MessageKind string

const (
	MsgInternal MessageKind = "int"
	MsgExtIn    MessageKind = "ext_in"
	MsgExtOut   MessageKind = "ext_out"
)

type ComputeStatus string

const (
	ComputeNormal  ComputeStatus = "normal"
	ComputeSkipped ComputeStatus = "skipped"
)

type TraceType string

const (
	TypeFunctionCall          TraceType = "function_call"
	TypeFunctionReturn        TraceType = "function_return"
	TypeDeploy                TraceType = "deploy"
	TypeEvent                 TraceType = "event"
	TypeEventOrFunctionReturn TraceType = "event_or_return"
	TypeBounce                TraceType = "bounce"
	TypeTransfer              TraceType = "transfer"
)

type Phase string

const (
	PhaseCompute Phase = "compute"
	PhaseAction  Phase = "action"
)

type ComputeResult struct {
	Success  bool          `json:"success"`
	Status   ComputeStatus `json:"status"`
	ExitCode int32         `json:"exit_code"`
}

type ActionResult struct {
	Success    bool  `json:"success"`
	ResultCode int32 `json:"result_code"`
}

// TransactionOutcome is the result of the transaction a message was delivered
// into.
type TransactionOutcome struct {
	Hash    string        `json:"hash,omitempty"`
	Compute ComputeResult `json:"compute"`
	Aborted bool          `json:"aborted"`
	Action  *ActionResult `json:"action,omitempty"`
}

// MessageRecord is one message together with its destination transaction and
// the messages that transaction produced, in creation order. Addresses are in
// raw upper-case form ("0:ABCD..."); the source of an inbound external and the
// destination of an outbound external message are empty.
type MessageRecord struct {
	Hash         string              `json:"hash"`
	Source       string              `json:"source,omitempty"`
	Destination  string              `json:"destination,omitempty"`
	Kind         MessageKind         `json:"msg_type"`
	InitCodeHash *string             `json:"init_code_hash,omitempty"`
	Bounced      bool                `json:"bounced"`
	Body         []byte              `json:"body,omitempty"`
	Transaction  *TransactionOutcome `json:"dst_transaction,omitempty"`
	Children     []*MessageRecord    `json:"-"`
}

func (m *MessageRecord) HasBody() bool {
	return len(m.Body) > 0
}

type Contract struct {
	Name     string        `json:"name"`
	CodeHash string        `json:"code_hash,omitempty"`
	Abi      *abi.Contract `json:"-"`
}

type DecodedMessage struct {
	Method string         `json:"method"`
	Value  map[string]any `json:"value"`
}

// AnswerID reports the answerId parameter of a responsible call.
func (d *DecodedMessage) AnswerID() (string, bool) {
	if d == nil || d.Value == nil {
		return "", false
	}
	v, ok := d.Value["answerId"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

type Failure struct {
	Phase   Phase `json:"phase"`
	Code    int32 `json:"code"`
	Ignored bool  `json:"ignored"`
}

// Node is the analyzed counterpart of a MessageRecord. A node is fully
// populated by the end of a build and read-only afterwards.
type Node struct {
	Message        *MessageRecord  `json:"msg"`
	Contract       *Contract       `json:"contract,omitempty"`
	Type           TraceType       `json:"type,omitempty"`
	Decoded        *DecodedMessage `json:"decoded_msg,omitempty"`
	Error          *Failure        `json:"error,omitempty"`
	HasErrorInTree bool            `json:"has_error_in_tree"`
	Children       []*Node         `json:"out_traces"`

	parent *Node
}

// Parent is the node whose transaction produced this message, nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) hasOwnError() bool {
	return n.Error != nil && !n.Error.Ignored
}

// Walk visits the subtree in depth-first pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
