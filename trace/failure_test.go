package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFailurePrecedence(t *testing.T) {
	cases := []struct {
		name string
		tx   *TransactionOutcome
		want *Failure
	}{
		{
			name: "no transaction",
			tx:   nil,
			want: nil,
		},
		{
			name: "compute success not aborted, failing action",
			tx: &TransactionOutcome{
				Compute: ComputeResult{Success: true, Status: ComputeNormal},
				Action:  &ActionResult{Success: false, ResultCode: 40},
			},
			want: &Failure{Phase: PhaseAction, Code: 40},
		},
		{
			name: "compute success not aborted, no action",
			tx: &TransactionOutcome{
				Compute: ComputeResult{Success: true, Status: ComputeNormal},
			},
			want: nil,
		},
		{
			name: "compute success but aborted with zero exit code, failing action",
			tx: &TransactionOutcome{
				Compute: ComputeResult{Success: true, Status: ComputeNormal},
				Aborted: true,
				Action:  &ActionResult{Success: false, ResultCode: 37},
			},
			want: &Failure{Phase: PhaseAction, Code: 37},
		},
		{
			name: "compute skipped not aborted",
			tx: &TransactionOutcome{
				Compute: ComputeResult{Status: ComputeSkipped, ExitCode: 0},
				Action:  &ActionResult{Success: true},
			},
			want: nil,
		},
		{
			name: "compute skipped and aborted with exit code",
			tx: &TransactionOutcome{
				Compute: ComputeResult{Status: ComputeSkipped, ExitCode: -14},
				Aborted: true,
			},
			want: &Failure{Phase: PhaseCompute, Code: -14},
		},
		{
			name: "compute failed",
			tx: &TransactionOutcome{
				Compute: ComputeResult{Success: false, Status: ComputeNormal, ExitCode: 51},
				Aborted: true,
			},
			want: &Failure{Phase: PhaseCompute, Code: 51},
		},
		{
			name: "compute failure wins over action failure",
			tx: &TransactionOutcome{
				Compute: ComputeResult{Success: false, Status: ComputeNormal, ExitCode: 100},
				Aborted: true,
				Action:  &ActionResult{Success: false, ResultCode: 34},
			},
			want: &Failure{Phase: PhaseCompute, Code: 100},
		},
		{
			name: "compute failed with zero exit code falls through to action",
			tx: &TransactionOutcome{
				Compute: ComputeResult{Success: false, Status: ComputeNormal},
				Aborted: true,
				Action:  &ActionResult{Success: false, ResultCode: 34},
			},
			want: &Failure{Phase: PhaseAction, Code: 34},
		},
		{
			name: "successful action is never reported",
			tx: &TransactionOutcome{
				Compute: ComputeResult{Success: true, Status: ComputeNormal},
				Aborted: true,
				Action:  &ActionResult{Success: true, ResultCode: 5},
			},
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := &MessageRecord{Kind: MsgInternal, Destination: addrA, Transaction: tc.tx}
			assert.Equal(t, tc.want, CheckFailure(msg, AllowedCodes{}))
		})
	}
}

func TestCheckFailureIgnored(t *testing.T) {
	policy := AllowedCodes{
		CodeList: CodeList{Compute: []int32{100}},
		Contracts: map[string]CodeList{
			addrA:       {Action: []int32{37}},
			AnyContract: {Compute: []int32{51}},
		},
	}

	f := CheckFailure(&MessageRecord{Destination: addrB, Transaction: computeFailTx(100)}, policy)
	require.NotNil(t, f)
	assert.True(t, f.Ignored, "global compute code")

	f = CheckFailure(&MessageRecord{Destination: addrA, Transaction: actionFailTx(37)}, policy)
	require.NotNil(t, f)
	assert.True(t, f.Ignored, "per-contract action code")

	f = CheckFailure(&MessageRecord{Destination: addrB, Transaction: actionFailTx(37)}, policy)
	require.NotNil(t, f)
	assert.False(t, f.Ignored, "action code allowed for another contract")

	f = CheckFailure(&MessageRecord{Destination: addrC, Transaction: computeFailTx(51)}, policy)
	require.NotNil(t, f)
	assert.True(t, f.Ignored, "wildcard compute code")

	f = CheckFailure(&MessageRecord{Destination: addrC, Transaction: actionFailTx(51)}, policy)
	require.NotNil(t, f)
	assert.False(t, f.Ignored, "codes are matched per phase")
}
