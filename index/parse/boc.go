package parse

import (
	b64 "encoding/base64"
	"fmt"

	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// MessageBody decodes a base64 body BOC. Empty cells carry no payload and
// yield nil.
func MessageBody(data string) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	boc, err := b64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	c, err := cell.FromBOC(boc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body: %w", err)
	}
	l := c.BeginParse()
	if l.BitsLeft() == 0 && l.RefsNum() == 0 {
		return nil, nil
	}
	return boc, nil
}

// InitCodeHash returns the base64 hash of the code cell carried in a
// StateInit BOC, nil when the state has no code.
func InitCodeHash(data string) (*string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	boc, err := b64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode init state: %w", err)
	}
	c, err := cell.FromBOC(boc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse init state: %w", err)
	}
	var state tlb.StateInit
	if err := tlb.LoadFromCell(&state, c.BeginParse()); err != nil {
		return nil, fmt.Errorf("failed to load init state: %w", err)
	}
	if state.Code == nil {
		return nil, nil
	}
	hash := b64.StdEncoding.EncodeToString(state.Code.Hash())
	return &hash, nil
}
