package trace

// exit code of the compute phase when no function matches the body id
const ExitCodeUnknownFunction int32 = 60

// CheckFailure inspects the destination transaction of msg. A compute failure
// takes precedence; the action phase is only checked when compute is skipped
// or succeeded.
func CheckFailure(msg *MessageRecord, policy AllowedCodes) *Failure {
	tx := msg.Transaction
	if tx == nil {
		return nil
	}

	skipCompute := (tx.Compute.Success || tx.Compute.Status == ComputeSkipped) && !tx.Aborted
	skipAction := tx.Action != nil && tx.Action.Success

	var f *Failure
	if !skipCompute && tx.Compute.ExitCode != 0 {
		f = &Failure{Phase: PhaseCompute, Code: tx.Compute.ExitCode}
	} else if !skipAction && tx.Action != nil && tx.Action.ResultCode != 0 {
		f = &Failure{Phase: PhaseAction, Code: tx.Action.ResultCode}
	}
	if f != nil {
		f.Ignored = policy.IsAllowed(f.Phase, f.Code, msg.Destination)
	}
	return f
}
