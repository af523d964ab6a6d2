package emulated

import (
	"fmt"

	"github.com/toncenter/ton-indexer/ton-tracing-go/index/parse"
	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

// MessageTree returns the record of msgHash with everything it caused within
// the trace. The trace key itself stands for the root message. Out messages
// without a node are leaves without outcome.
func (t *Trace) MessageTree(msgHash string) (*trace.MessageRecord, error) {
	if node, ok := t.Nodes[msgHash]; ok {
		return t.nodeRecord(node, map[string]bool{})
	}
	if msgHash == t.Key {
		return t.nodeRecord(t.Nodes[t.RootKey], map[string]bool{})
	}
	for _, node := range t.Nodes {
		for i := range node.Transaction.OutMsgs {
			if m := &node.Transaction.OutMsgs[i]; m.Hash.String() == msgHash {
				return messageRecord(m)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", trace.ErrMessageNotFound, msgHash)
}

// CodeHashes returns the code hashes recorded on the trace nodes by account.
func (t *Trace) CodeHashes() map[string]string {
	res := make(map[string]string)
	for _, node := range t.Nodes {
		if node.CodeHash != nil {
			res[normalizeAddress(node.Transaction.Account)] = node.CodeHash.String()
		}
	}
	return res
}

func (t *Trace) nodeRecord(node *TraceNode, visited map[string]bool) (*trace.MessageRecord, error) {
	if visited[node.Key] {
		return nil, fmt.Errorf("cycle at node %s", node.Key)
	}
	visited[node.Key] = true
	if node.Transaction.InMsg == nil {
		return nil, fmt.Errorf("node %s has no inbound message", node.Key)
	}
	rec, err := messageRecord(node.Transaction.InMsg)
	if err != nil {
		return nil, err
	}
	rec.Hash = node.Key
	rec.Transaction = outcome(&node.Transaction)

	for i := range node.Transaction.OutMsgs {
		out := &node.Transaction.OutMsgs[i]
		var child *trace.MessageRecord
		if next, ok := t.Nodes[out.Hash.String()]; ok {
			child, err = t.nodeRecord(next, visited)
		} else {
			child, err = messageRecord(out)
		}
		if err != nil {
			return nil, err
		}
		rec.Children = append(rec.Children, child)
	}
	return rec, nil
}

func messageRecord(m *trMessage) (*trace.MessageRecord, error) {
	rec := &trace.MessageRecord{Hash: m.Hash.String()}
	src, dst := optional(m.Source), optional(m.Destination)
	switch {
	case src == "":
		rec.Kind = trace.MsgExtIn
	case dst == "":
		rec.Kind = trace.MsgExtOut
	default:
		rec.Kind = trace.MsgInternal
	}
	rec.Source = normalizeAddress(src)
	rec.Destination = normalizeAddress(dst)
	if m.Bounced != nil {
		rec.Bounced = *m.Bounced
	}

	body, err := parse.MessageBody(m.BodyBoc)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", rec.Hash, err)
	}
	rec.Body = body
	if m.InitStateBoc != nil {
		code_hash, err := parse.InitCodeHash(*m.InitStateBoc)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", rec.Hash, err)
		}
		rec.InitCodeHash = code_hash
	}
	return rec, nil
}

func outcome(tx *transaction) *trace.TransactionOutcome {
	descr := tx.Description
	res := &trace.TransactionOutcome{
		Hash:    tx.Hash.String(),
		Aborted: descr.Aborted,
		Compute: trace.ComputeResult{Status: trace.ComputeNormal},
	}
	switch ph := descr.ComputePh.Data.(type) {
	case trComputePhaseSkipped:
		res.Compute.Status = trace.ComputeSkipped
	case trComputePhaseVm:
		res.Compute.Success = ph.Success
		res.Compute.ExitCode = ph.ExitCode
	}
	if a := descr.Action; a != nil {
		res.Action = &trace.ActionResult{Success: a.Success}
		if a.ResultCode != nil {
			res.Action.ResultCode = *a.ResultCode
		}
	}
	return res
}

func optional(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func normalizeAddress(addr string) string {
	if addr == "" {
		return ""
	}
	if norm, err := trace.NormalizeAddress(addr); err == nil {
		return norm
	}
	return addr
}
