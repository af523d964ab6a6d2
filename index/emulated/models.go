package emulated

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

type trComputePhaseSkipped struct {
	Reason int `msgpack:"reason" json:"reason"`
}

type trComputePhaseVm struct {
	Success  bool   `msgpack:"success" json:"success"`
	GasUsed  uint64 `msgpack:"gas_used" json:"gas_used"`
	ExitCode int32  `msgpack:"exit_code" json:"exit_code"`
	ExitArg  *int32 `msgpack:"exit_arg" json:"exit_arg"`
	VmSteps  uint32 `msgpack:"vm_steps" json:"vm_steps"`
}

type trActionPhase struct {
	Success    bool   `msgpack:"success" json:"success"`
	Valid      bool   `msgpack:"valid" json:"valid"`
	NoFunds    bool   `msgpack:"no_funds" json:"no_funds"`
	ResultCode *int32 `msgpack:"result_code" json:"result_code"`
	ResultArg  *int32 `msgpack:"result_arg" json:"result_arg"`
	TotActions *int32 `msgpack:"tot_actions" json:"tot_actions"`
}

type trMessage struct {
	Hash         hash    `msgpack:"hash" json:"hash"`
	Source       *string `msgpack:"source" json:"source"`
	Destination  *string `msgpack:"destination" json:"destination"`
	Value        *uint64 `msgpack:"value" json:"value"`
	CreatedLt    *uint64 `msgpack:"created_lt" json:"created_lt"`
	Bounced      *bool   `msgpack:"bounced" json:"bounced"`
	BodyBoc      string  `msgpack:"body_boc" json:"body_boc"`
	InitStateBoc *string `msgpack:"init_state_boc" json:"init_state_boc"`
}

type transactionDescr struct {
	ComputePh computePhaseVar `msgpack:"compute_ph" json:"compute_ph"`
	Action    *trActionPhase  `msgpack:"action" json:"action"`
	Aborted   bool            `msgpack:"aborted" json:"aborted"`
	Destroyed bool            `msgpack:"destroyed" json:"destroyed"`
}

type transaction struct {
	Hash        hash             `msgpack:"hash" json:"-"`
	Account     string           `msgpack:"account" json:"account"`
	Lt          uint64           `msgpack:"lt" json:"lt,string"`
	Now         uint32           `msgpack:"now" json:"now"`
	InMsg       *trMessage       `msgpack:"in_msg" json:"in_msg"`
	OutMsgs     []trMessage      `msgpack:"out_msgs" json:"out_msgs"`
	Description transactionDescr `msgpack:"description" json:"description"`
}

// TraceNode is one emulated transaction keyed in the trace hash by the
// base64 hash of its inbound message.
type TraceNode struct {
	Transaction transaction `msgpack:"transaction"`
	Emulated    bool        `msgpack:"emulated"`
	CodeHash    *hash       `msgpack:"code_hash"`
	Key         string      `msgpack:"-"`
}

const (
	computeSkipped uint8 = 0
	computeVm      uint8 = 1
)

type computePhaseVar struct {
	Type uint8
	Data interface{} // Can be trComputePhaseSkipped or trComputePhaseVm
}

var _ msgpack.CustomDecoder = (*computePhaseVar)(nil)
var _ msgpack.CustomEncoder = (*computePhaseVar)(nil)

func (v *computePhaseVar) DecodeMsgpack(dec *msgpack.Decoder) error {
	length, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if length != 2 {
		return fmt.Errorf("invalid variant array length: %d", length)
	}

	index, err := dec.DecodeUint8()
	if err != nil {
		return err
	}

	switch index {
	case computeSkipped:
		var a trComputePhaseSkipped
		err = dec.Decode(&a)
		v.Data = a
	case computeVm:
		var b trComputePhaseVm
		err = dec.Decode(&b)
		v.Data = b
	default:
		return fmt.Errorf("unknown variant index: %d", index)
	}

	v.Type = index
	return err
}

func (v computePhaseVar) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(v.Type); err != nil {
		return err
	}
	return enc.Encode(v.Data)
}

type hash [32]byte

func (h hash) MarshalText() (data []byte, err error) {
	return []byte(base64.StdEncoding.EncodeToString(h[:])), nil
}

// MarshalJSON implements json.Marshaler interface
func (h hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(h[:]))
}

// EncodeMsgpack implements msgpack.CustomEncoder interface
func (h hash) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(h[:])
}

// DecodeMsgpack implements msgpack.CustomDecoder interface
func (h *hash) DecodeMsgpack(dec *msgpack.Decoder) error {
	bytes, err := dec.DecodeBytes()
	if err != nil {
		return err
	}

	if len(bytes) != 32 {
		return fmt.Errorf("invalid hash length: expected 32 bytes, got %d", len(bytes))
	}

	copy(h[:], bytes)
	return nil
}

func (h hash) String() string {
	return base64.StdEncoding.EncodeToString(h[:])
}

// Trace is a decoded emulated trace hash.
type Trace struct {
	Key     string
	RootKey string
	Nodes   map[string]*TraceNode
}

// ConvertHSet decodes every node of a raw trace hash. Fields that are not
// nodes are skipped.
func ConvertHSet(traceHash map[string]string, traceKey string) (*Trace, error) {
	rootNodeId, exists := traceHash["root_node"]
	if !exists {
		return nil, fmt.Errorf("root_node not found in trace %s", traceKey)
	}
	if _, exists := traceHash[rootNodeId]; !exists {
		return nil, fmt.Errorf("key %s not found in trace %s", rootNodeId, traceKey)
	}

	res := &Trace{Key: traceKey, RootKey: rootNodeId, Nodes: make(map[string]*TraceNode)}
	queue := []string{rootNodeId}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		if _, seen := res.Nodes[key]; seen {
			continue
		}
		var node TraceNode
		if err := msgpack.Unmarshal([]byte(traceHash[key]), &node); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node %s: %w", key, err)
		}
		node.Key = key
		res.Nodes[key] = &node

		for _, outMsg := range node.Transaction.OutMsgs {
			nextKey := outMsg.Hash.String()
			if _, exists := traceHash[nextKey]; exists {
				queue = append(queue, nextKey)
			}
		}
	}
	return res, nil
}
