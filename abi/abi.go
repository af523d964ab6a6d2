package abi

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Param struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Components []Param `json:"components,omitempty"`
}

type Function struct {
	Name    string  `json:"name"`
	ID      string  `json:"id,omitempty"`
	Inputs  []Param `json:"inputs"`
	Outputs []Param `json:"outputs"`
}

type Event struct {
	Name   string  `json:"name"`
	ID     string  `json:"id,omitempty"`
	Inputs []Param `json:"inputs"`
}

// Contract is a TVM contract ABI as emitted by the Solidity/TVM compilers.
type Contract struct {
	ABIVersion int        `json:"ABI version"`
	Version    string     `json:"version,omitempty"`
	Header     []string   `json:"header"`
	Functions  []Function `json:"functions"`
	Events     []Event    `json:"events"`

	inputs  map[uint32]*Function
	outputs map[uint32]*Function
	events  map[uint32]*Event
}

func Parse(data []byte) (*Contract, error) {
	var c Contract
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse abi: %w", err)
	}
	if c.ABIVersion == 0 {
		c.ABIVersion = 2
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Contract) index() error {
	c.inputs = make(map[uint32]*Function, len(c.Functions))
	c.outputs = make(map[uint32]*Function, len(c.Functions))
	c.events = make(map[uint32]*Event, len(c.Events))
	for i := range c.Functions {
		f := &c.Functions[i]
		in, err := f.InputID(c.ABIVersion)
		if err != nil {
			return err
		}
		c.inputs[in] = f
		c.outputs[in|0x80000000] = f
	}
	for i := range c.Events {
		e := &c.Events[i]
		id, err := e.EventID(c.ABIVersion)
		if err != nil {
			return err
		}
		c.events[id] = e
	}
	return nil
}

// InputID returns the function id used in call bodies. The output id is the
// same value with the high bit set.
func (f *Function) InputID(abiVersion int) (uint32, error) {
	if f.ID != "" {
		id, err := parseID(f.ID)
		if err != nil {
			return 0, fmt.Errorf("function %s: %w", f.Name, err)
		}
		return id & 0x7FFFFFFF, nil
	}
	sig := fmt.Sprintf("%s(%s)(%s)v%d", f.Name, signatureList(f.Inputs), signatureList(f.Outputs), abiVersion)
	return signatureID(sig), nil
}

func (f *Function) OutputID(abiVersion int) (uint32, error) {
	id, err := f.InputID(abiVersion)
	return id | 0x80000000, err
}

func (e *Event) EventID(abiVersion int) (uint32, error) {
	if e.ID != "" {
		id, err := parseID(e.ID)
		if err != nil {
			return 0, fmt.Errorf("event %s: %w", e.Name, err)
		}
		return id & 0x7FFFFFFF, nil
	}
	sig := fmt.Sprintf("%s(%s)v%d", e.Name, signatureList(e.Inputs), abiVersion)
	return signatureID(sig), nil
}

func signatureID(sig string) uint32 {
	sum := sha256.Sum256([]byte(sig))
	return binary.BigEndian.Uint32(sum[:4]) & 0x7FFFFFFF
}

func parseID(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return uint32(v), nil
}

func signatureList(params []Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.signature())
	}
	return strings.Join(parts, ",")
}

func (p Param) signature() string {
	if strings.HasPrefix(p.Type, "tuple") {
		return "(" + signatureList(p.Components) + ")" + strings.TrimPrefix(p.Type, "tuple")
	}
	return p.Type
}
