package trace

import (
	"context"
	"fmt"
	"sync"

	"github.com/xssnick/tonutils-go/tvm/cell"
)

const (
	addrA = "0:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	addrB = "0:BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	addrC = "0:CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
)

func bodyWithOp(op uint64) []byte {
	return cell.BeginCell().MustStoreUInt(op, 32).EndCell().ToBOC()
}

func okTx() *TransactionOutcome {
	return &TransactionOutcome{
		Compute: ComputeResult{Success: true, Status: ComputeNormal},
		Action:  &ActionResult{Success: true},
	}
}

func computeFailTx(code int32) *TransactionOutcome {
	return &TransactionOutcome{
		Compute: ComputeResult{Success: false, Status: ComputeNormal, ExitCode: code},
		Aborted: true,
	}
}

func actionFailTx(code int32) *TransactionOutcome {
	return &TransactionOutcome{
		Compute: ComputeResult{Success: true, Status: ComputeNormal},
		Aborted: true,
		Action:  &ActionResult{Success: false, ResultCode: code},
	}
}

func call(hash, src, dst string, tx *TransactionOutcome, children ...*MessageRecord) *MessageRecord {
	return &MessageRecord{
		Hash:        hash,
		Source:      src,
		Destination: dst,
		Kind:        MsgInternal,
		Body:        bodyWithOp(0x1234),
		Transaction: tx,
		Children:    children,
	}
}

// fakeResolver returns a contract for every address listed in contracts.
type fakeResolver struct {
	contracts map[string]*Contract
	err       error

	mu    sync.Mutex
	calls []string
}

func (r *fakeResolver) ResolveContract(_ context.Context, codeHash string, addr string) (*Contract, error) {
	r.mu.Lock()
	r.calls = append(r.calls, codeHash+"@"+addr)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.contracts[addr], nil
}

// fakeDecoder returns the configured result per message hash.
type fakeDecoder struct {
	results map[string]*DecodeResult
	errs    map[string]error

	mu    sync.Mutex
	calls []DecodeInput
}

func (d *fakeDecoder) Decode(_ context.Context, in DecodeInput) (*DecodeResult, error) {
	d.mu.Lock()
	d.calls = append(d.calls, in)
	d.mu.Unlock()
	key := string(in.Body)
	if err, ok := d.errs[key]; ok {
		return nil, err
	}
	if res, ok := d.results[key]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("no match")
}

func (d *fakeDecoder) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// memorySource is a DataSource over a fixed set of trees.
type memorySource struct {
	trees      map[string]*MessageRecord
	codeHashes map[string]string
	err        error
}

func (s *memorySource) FetchMessageTree(_ context.Context, msgHash string) (*MessageRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	root, ok := s.trees[msgHash]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return root, nil
}

func (s *memorySource) FetchCodeHashes(_ context.Context, addrs []string) (map[string]string, error) {
	res := map[string]string{}
	for _, a := range addrs {
		if h, ok := s.codeHashes[a]; ok {
			res[a] = h
		}
	}
	return res, nil
}
