package abi

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

var (
	ErrUnknownID       = errors.New("abi: unknown function or event id")
	ErrUnsupportedType = errors.New("abi: unsupported parameter type")
)

// Layout selects how a message body is framed.
type Layout int

const (
	LayoutInternal Layout = iota
	LayoutExternalIn
	LayoutExternalOut
)

type EntryKind string

const (
	FunctionInput  EntryKind = "function_input"
	FunctionOutput EntryKind = "function_output"
	EventEntry     EntryKind = "event"
)

type Decoded struct {
	Name  string         `json:"name"`
	Kind  EntryKind      `json:"kind"`
	Value map[string]any `json:"value"`
}

// DecodeBody matches the body id against the contract and reads the
// parameters of the matched entry.
func (c *Contract) DecodeBody(body *cell.Cell, layout Layout) (*Decoded, error) {
	if body == nil {
		return nil, fmt.Errorf("empty body")
	}
	r := &reader{s: body.BeginParse()}
	if layout == LayoutExternalIn {
		if err := r.skipExternalHeader(c.Header); err != nil {
			return nil, err
		}
	}
	id, err := r.uint(32)
	if err != nil {
		return nil, fmt.Errorf("failed to read id: %w", err)
	}
	fid := uint32(id)

	var (
		name   string
		kind   EntryKind
		params []Param
	)
	switch layout {
	case LayoutExternalIn:
		f, ok := c.inputs[fid]
		if !ok {
			return nil, ErrUnknownID
		}
		name, kind, params = f.Name, FunctionInput, f.Inputs
	case LayoutExternalOut:
		if e, ok := c.events[fid]; ok {
			name, kind, params = e.Name, EventEntry, e.Inputs
		} else if f, ok := c.outputs[fid]; ok {
			name, kind, params = f.Name, FunctionOutput, f.Outputs
		} else {
			return nil, ErrUnknownID
		}
	default:
		if f, ok := c.inputs[fid]; ok {
			name, kind, params = f.Name, FunctionInput, f.Inputs
		} else if f, ok := c.outputs[fid]; ok {
			name, kind, params = f.Name, FunctionOutput, f.Outputs
		} else {
			return nil, ErrUnknownID
		}
	}

	value, err := r.params(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Decoded{Name: name, Kind: kind, Value: value}, nil
}

type reader struct {
	s *cell.Slice
	// after is the number of values that follow the one being read
	after int
}

// need switches to the continuation cell when the current one cannot hold
// the next value. The encoder always places the continuation as the last ref.
func (r *reader) need(bits uint, refs int) error {
	if r.s.BitsLeft() >= bits && int(r.s.RefsNum()) >= refs {
		return nil
	}
	if int(r.s.RefsNum()) != 1 {
		return fmt.Errorf("cell underflow: need %d bits and %d refs", bits, refs)
	}
	next, err := r.s.LoadRef()
	if err != nil {
		return err
	}
	r.s = next
	if r.s.BitsLeft() < bits || int(r.s.RefsNum()) < refs {
		return fmt.Errorf("cell underflow: need %d bits and %d refs", bits, refs)
	}
	return nil
}

func (r *reader) uint(bits uint) (uint64, error) {
	if err := r.need(bits, 0); err != nil {
		return 0, err
	}
	return r.s.LoadUInt(bits)
}

func (r *reader) skipExternalHeader(header []string) error {
	if err := r.need(1, 0); err != nil {
		return err
	}
	signed, err := r.s.LoadBoolBit()
	if err != nil {
		return err
	}
	if signed {
		if _, err := r.s.LoadSlice(512); err != nil {
			return fmt.Errorf("failed to skip signature: %w", err)
		}
	}
	for _, h := range header {
		switch h {
		case "time":
			if _, err := r.uint(64); err != nil {
				return fmt.Errorf("failed to read time header: %w", err)
			}
		case "expire":
			if _, err := r.uint(32); err != nil {
				return fmt.Errorf("failed to read expire header: %w", err)
			}
		case "pubkey":
			has, err := r.bool()
			if err != nil {
				return fmt.Errorf("failed to read pubkey header: %w", err)
			}
			if has {
				if err := r.need(256, 0); err != nil {
					return err
				}
				if _, err := r.s.LoadSlice(256); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: header %s", ErrUnsupportedType, h)
		}
	}
	return nil
}

func (r *reader) bool() (bool, error) {
	if err := r.need(1, 0); err != nil {
		return false, err
	}
	return r.s.LoadBoolBit()
}

func (r *reader) params(params []Param) (map[string]any, error) {
	res := make(map[string]any, len(params))
	outer := r.after
	defer func() { r.after = outer }()
	for i, p := range params {
		r.after = outer + valueCount(params[i+1:])
		v, err := r.value(p, p.Type)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Name, err)
		}
		res[p.Name] = v
	}
	return res, nil
}

// valueCount is the number of leaf values params encode to.
func valueCount(params []Param) int {
	n := 0
	for _, p := range params {
		if p.Type == "tuple" {
			n += valueCount(p.Components)
		} else {
			n++
		}
	}
	return n
}

func (r *reader) value(p Param, typ string) (any, error) {
	switch {
	case typ == "bool":
		return r.bool()
	case typ == "address":
		if err := r.need(2, 0); err != nil {
			return nil, err
		}
		addr, err := r.s.LoadAddr()
		if err != nil {
			return nil, err
		}
		return rawAddress(addr), nil
	case typ == "cell":
		ref, err := r.ref()
		if err != nil {
			return nil, err
		}
		return base64.StdEncoding.EncodeToString(ref.ToBOC()), nil
	case typ == "bytes":
		ref, err := r.ref()
		if err != nil {
			return nil, err
		}
		data, err := ref.BeginParse().LoadBinarySnake()
		if err != nil {
			return nil, err
		}
		return hex.EncodeToString(data), nil
	case typ == "string":
		ref, err := r.ref()
		if err != nil {
			return nil, err
		}
		return ref.BeginParse().LoadStringSnake()
	case strings.HasPrefix(typ, "optional(") && strings.HasSuffix(typ, ")"):
		has, err := r.bool()
		if err != nil {
			return nil, err
		}
		if !has {
			return nil, nil
		}
		return r.value(p, typ[len("optional("):len(typ)-1])
	case typ == "tuple":
		return r.params(p.Components)
	case strings.HasPrefix(typ, "varuint"):
		size, err := strconv.Atoi(strings.TrimPrefix(typ, "varuint"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
		}
		if err := r.need(lenBits(size), 0); err != nil {
			return nil, err
		}
		v, err := r.s.LoadVarUInt(uint(size))
		if err != nil {
			return nil, err
		}
		return v.String(), nil
	case strings.HasPrefix(typ, "uint"), strings.HasPrefix(typ, "int"):
		return r.integer(typ)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
}

func (r *reader) integer(typ string) (string, error) {
	signed := strings.HasPrefix(typ, "int")
	bits, err := strconv.Atoi(strings.TrimPrefix(strings.TrimPrefix(typ, "u"), "int"))
	if err != nil || bits <= 0 || bits > 256 {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}
	if err := r.need(uint(bits), 0); err != nil {
		return "", err
	}
	if signed {
		v, err := r.s.LoadBigInt(uint(bits))
		if err != nil {
			return "", err
		}
		return v.String(), nil
	}
	v, err := r.s.LoadBigUInt(uint(bits))
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (r *reader) ref() (*cell.Cell, error) {
	// a lone ref of a drained cell is the continuation when more values follow
	if r.s.BitsLeft() == 0 && r.s.RefsNum() == 1 && r.after > 0 {
		next, err := r.s.LoadRef()
		if err != nil {
			return nil, err
		}
		r.s = next
	}
	if int(r.s.RefsNum()) == 0 {
		return nil, fmt.Errorf("cell underflow: no refs left")
	}
	return r.s.LoadRefCell()
}

// lenBits is the width of the length prefix of a varuintN value.
func lenBits(size int) uint {
	var n uint
	for v := size - 1; v > 0; v >>= 1 {
		n++
	}
	return n
}

func rawAddress(addr *address.Address) string {
	if addr == nil || len(addr.Data()) == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%s", addr.Workchain(), strings.ToUpper(hex.EncodeToString(addr.Data())))
}
