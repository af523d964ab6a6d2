package index

import (
	"fmt"

	"github.com/toncenter/ton-indexer/ton-tracing-go/index/parse"
	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

// AssembleMessageTree links flat rows into a message tree rooted at
// rows.Root. A message whose destination transaction is missing becomes a
// leaf without outcome.
func AssembleMessageTree(rows *TraceRows) (*trace.MessageRecord, error) {
	if _, ok := rows.Messages[rows.Root]; !ok {
		return nil, fmt.Errorf("%w: %s", trace.ErrMessageNotFound, rows.Root)
	}
	return assembleMessage(rows, rows.Root)
}

func assembleMessage(rows *TraceRows, hash string) (*trace.MessageRecord, error) {
	m := rows.Messages[hash]
	rec, err := MessageRecordFromRow(m)
	if err != nil {
		return nil, err
	}
	tx_hash, ok := rows.InTx[hash]
	if !ok {
		return rec, nil
	}
	if tx, ok := rows.Transactions[tx_hash]; ok {
		rec.Transaction = OutcomeFromRow(tx)
	}
	for _, child := range rows.OutMsgs[tx_hash] {
		c, err := assembleMessage(rows, child)
		if err != nil {
			return nil, err
		}
		rec.Children = append(rec.Children, c)
	}
	return rec, nil
}

func MessageRecordFromRow(m *Message) (*trace.MessageRecord, error) {
	rec := &trace.MessageRecord{Hash: m.MsgHash}
	switch {
	case m.Source == nil:
		rec.Kind = trace.MsgExtIn
	case m.Destination == nil:
		rec.Kind = trace.MsgExtOut
	default:
		rec.Kind = trace.MsgInternal
	}
	if m.Source != nil {
		rec.Source = *m.Source
	}
	if m.Destination != nil {
		rec.Destination = *m.Destination
	}
	if m.Bounced != nil {
		rec.Bounced = *m.Bounced
	}
	if m.Body != nil {
		body, err := parse.MessageBody(*m.Body)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", m.MsgHash, err)
		}
		rec.Body = body
	}
	if m.InitState != nil {
		code_hash, err := parse.InitCodeHash(*m.InitState)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", m.MsgHash, err)
		}
		rec.InitCodeHash = code_hash
	}
	return rec, nil
}

func OutcomeFromRow(tx *Transaction) *trace.TransactionOutcome {
	res := &trace.TransactionOutcome{
		Hash:    tx.Hash,
		Compute: trace.ComputeResult{Status: trace.ComputeNormal},
	}
	if tx.Aborted != nil {
		res.Aborted = *tx.Aborted
	}
	if tx.ComputeSkipped != nil && *tx.ComputeSkipped {
		res.Compute.Status = trace.ComputeSkipped
	}
	if tx.ComputeSuccess != nil {
		res.Compute.Success = *tx.ComputeSuccess
	}
	if tx.ComputeExitCode != nil {
		res.Compute.ExitCode = *tx.ComputeExitCode
	}
	if tx.ActionSuccess != nil {
		res.Action = &trace.ActionResult{Success: *tx.ActionSuccess}
		if tx.ActionResultCode != nil {
			res.Action.ResultCode = *tx.ActionResultCode
		}
	}
	return res
}
