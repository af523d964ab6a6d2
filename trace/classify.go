package trace

// Classify returns the semantic role of msg. parent is the message whose
// transaction produced msg and is only consulted for outbound externals.
// Unknown message kinds yield the empty type.
func Classify(msg *MessageRecord, parent *MessageRecord) TraceType {
	switch msg.Kind {
	case MsgInternal:
		switch {
		case msg.InitCodeHash != nil:
			return TypeDeploy
		case msg.Bounced:
			return TypeBounce
		case !msg.HasBody():
			return TypeTransfer
		default:
			return TypeFunctionCall
		}
	case MsgExtIn:
		if msg.InitCodeHash != nil {
			return TypeDeploy
		}
		return TypeFunctionCall
	case MsgExtOut:
		// without the ABI a reply to an external call looks like an event
		if parent != nil && parent.Kind == MsgExtIn {
			return TypeEventOrFunctionReturn
		}
		return TypeEvent
	}
	return ""
}
