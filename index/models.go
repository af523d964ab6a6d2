package index

type HashType string       // @name HashType
type AccountAddress string // @name AccountAddress

type IndexError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e IndexError) Error() string {
	return e.Message
}

// models
type Message struct {
	TxHash        string
	TxLt          int64
	MsgHash       string
	Direction     string
	Source        *string
	Destination   *string
	CreatedLt     *int64
	Bounced       *bool
	BodyHash      *string
	InitStateHash *string
	Body          *string
	InitState     *string
}

type Transaction struct {
	Hash             string
	Lt               int64
	Account          string
	Aborted          *bool
	ComputeSkipped   *bool
	ComputeSuccess   *bool
	ComputeExitCode  *int32
	ActionSuccess    *bool
	ActionResultCode *int32
}

type MessageContent struct {
	Hash string
	Body *string
}

// TraceRows holds the flat rows of a message tree as read from the database.
type TraceRows struct {
	Root         string
	Messages     map[string]*Message
	InTx         map[string]string   // message hash -> destination transaction hash
	Transactions map[string]*Transaction
	OutMsgs      map[string][]string // transaction hash -> out message hashes by created_lt
}

func NewTraceRows(root string) *TraceRows {
	return &TraceRows{
		Root:         root,
		Messages:     map[string]*Message{},
		InTx:         map[string]string{},
		Transactions: map[string]*Transaction{},
		OutMsgs:      map[string][]string{},
	}
}
