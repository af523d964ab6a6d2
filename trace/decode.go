package trace

import (
	"context"
	"errors"
	"fmt"

	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/toncenter/ton-indexer/ton-tracing-go/abi"
)

type DecodeInput struct {
	Body     []byte
	Kind     MessageKind
	Contract *Contract
	Type     TraceType
}

type DecodeResult struct {
	Decoded *DecodedMessage
	Type    TraceType
}

// Decoder decodes a message body against a contract. A body that does not
// match the contract is reported as (nil, err) and never fails a build.
type Decoder interface {
	Decode(ctx context.Context, in DecodeInput) (*DecodeResult, error)
}

type skipReason string

const (
	skipNone           skipReason = ""
	skipConsole        skipReason = "console"
	skipNoPayload      skipReason = "no_payload"
	skipZeroAnswerID   skipReason = "zero_answer_id"
	skipNoCallContract skipReason = "function_call_without_contract"
	skipUnknownFunc    skipReason = "unknown_function"
	skipNoContract     skipReason = "no_contract"
)

// decodeSkipReason applies the decode suppression rules in order.
func decodeSkipReason(n *Node, consoleAddress string) skipReason {
	if isConsole(n.Message, consoleAddress) {
		return skipConsole
	}
	if n.Type == TypeTransfer || n.Type == TypeBounce {
		return skipNoPayload
	}
	// responsible callback with answerId 0: the callee does not need it
	if n.Type == TypeFunctionCall && n.parent != nil {
		if id, ok := n.parent.Decoded.AnswerID(); ok && id == "0" {
			return skipZeroAnswerID
		}
	}
	if n.Type == TypeFunctionCall && n.Contract == nil {
		return skipNoCallContract
	}
	if n.Error != nil && n.Error.Phase == PhaseCompute && n.Error.Code == ExitCodeUnknownFunction {
		return skipUnknownFunc
	}
	if n.Contract == nil {
		return skipNoContract
	}
	return skipNone
}

func isConsole(msg *MessageRecord, consoleAddress string) bool {
	return consoleAddress != "" && msg.Destination == consoleAddress
}

// ABIDecoder decodes bodies with the contract ABI attached to a Contract.
type ABIDecoder struct{}

func (ABIDecoder) Decode(_ context.Context, in DecodeInput) (*DecodeResult, error) {
	if in.Contract == nil || in.Contract.Abi == nil {
		return nil, fmt.Errorf("no abi for contract")
	}
	if len(in.Body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	body, err := cell.FromBOC(in.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body boc: %w", err)
	}

	layout := abi.LayoutInternal
	switch in.Kind {
	case MsgExtIn:
		layout = abi.LayoutExternalIn
	case MsgExtOut:
		layout = abi.LayoutExternalOut
	}
	decoded, err := in.Contract.Abi.DecodeBody(body, layout)
	if err != nil {
		return nil, err
	}

	finalType := in.Type
	switch decoded.Kind {
	case abi.FunctionOutput:
		finalType = TypeFunctionReturn
	case abi.EventEntry:
		finalType = TypeEvent
	case abi.FunctionInput:
		if in.Type != TypeDeploy {
			finalType = TypeFunctionCall
		}
	}
	return &DecodeResult{
		Decoded: &DecodedMessage{Method: decoded.Name, Value: decoded.Value},
		Type:    finalType,
	}, nil
}

// IsUnknownID reports whether a decode error means the body id is not part of
// the contract ABI.
func IsUnknownID(err error) bool {
	return errors.Is(err, abi.ErrUnknownID)
}
