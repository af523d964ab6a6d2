package index

import (
	"context"
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

const messageColumns = `M.tx_hash, M.tx_lt, M.msg_hash, M.direction, M.source, M.destination, ` +
	`M.created_lt, M.bounced, M.body_hash, M.init_state_hash`

const transactionColumns = `T.hash, T.lt, T.account, T.aborted, ` +
	`T.compute_skipped, T.compute_success, T.compute_exit_code, ` +
	`T.action_success, T.action_result_code`

type messageKey string

const (
	byMsgHash messageKey = "msg_hash"
	byTxHash  messageKey = "tx_hash"
)

// query builders
func buildMessagesQuery(key messageKey, direction string) string {
	query := `select ` + messageColumns + ` from messages as M`
	filter_list := []string{fmt.Sprintf("M.%s = ANY($1)", key)}
	orderby_query := ``

	if len(direction) > 0 {
		filter_list = append(filter_list, fmt.Sprintf("M.direction = '%s'", direction))
	}
	if key == byTxHash {
		orderby_query = ` order by M.tx_hash, M.created_lt asc, M.msg_hash`
	}

	query += ` where ` + strings.Join(filter_list, " and ")
	query += orderby_query
	return query
}

func buildTransactionsQuery() string {
	return `select ` + transactionColumns + ` from transactions as T where T.hash = ANY($1)`
}

func buildMessageContentsQuery() string {
	return `select hash, body from message_contents where hash = ANY($1)`
}

func buildCodeHashesQuery() string {
	return `select account, code_hash from latest_account_states where account = ANY($1) and code_hash is not null`
}

func queryMessagesImpl(ctx context.Context, query string, hashes []string, conn *pgxpool.Conn, settings RequestSettings) ([]*Message, error) {
	ctx, cancel_ctx := context.WithTimeout(ctx, settings.Timeout)
	defer cancel_ctx()
	rows, err := conn.Query(ctx, query, pq.Array(hashes))
	if err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	defer rows.Close()

	msgs := []*Message{}
	for rows.Next() {
		msg, err := ScanMessage(rows)
		if err != nil {
			return nil, IndexError{Code: 500, Message: err.Error()}
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	return msgs, nil
}

func queryTransactionsImpl(ctx context.Context, hashes []string, conn *pgxpool.Conn, settings RequestSettings) ([]*Transaction, error) {
	ctx, cancel_ctx := context.WithTimeout(ctx, settings.Timeout)
	defer cancel_ctx()
	rows, err := conn.Query(ctx, buildTransactionsQuery(), pq.Array(hashes))
	if err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	defer rows.Close()

	txs := []*Transaction{}
	for rows.Next() {
		tx, err := ScanTransaction(rows)
		if err != nil {
			return nil, IndexError{Code: 500, Message: err.Error()}
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	return txs, nil
}

// queryContentsImpl reads message contents by hash.
func queryContentsImpl(ctx context.Context, hashes []string, conn *pgxpool.Conn, settings RequestSettings) (map[string]*MessageContent, error) {
	ctx, cancel_ctx := context.WithTimeout(ctx, settings.Timeout)
	defer cancel_ctx()
	rows, err := conn.Query(ctx, buildMessageContentsQuery(), pq.Array(hashes))
	if err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	defer rows.Close()

	contents := map[string]*MessageContent{}
	for rows.Next() {
		mc, err := ScanMessageContent(rows)
		if err != nil {
			return nil, IndexError{Code: 500, Message: err.Error()}
		}
		contents[mc.Hash] = mc
	}
	if err := rows.Err(); err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	return contents, nil
}

// traceRowReader fetches the rows of one trace level.
type traceRowReader interface {
	Messages(ctx context.Context, key messageKey, direction string, hashes []string) ([]*Message, error)
	Transactions(ctx context.Context, hashes []string) ([]*Transaction, error)
	Contents(ctx context.Context, hashes []string) (map[string]*MessageContent, error)
}

type connRowReader struct {
	conn     *pgxpool.Conn
	settings RequestSettings
}

func (r connRowReader) Messages(ctx context.Context, key messageKey, direction string, hashes []string) ([]*Message, error) {
	return queryMessagesImpl(ctx, buildMessagesQuery(key, direction), hashes, r.conn, r.settings)
}

func (r connRowReader) Transactions(ctx context.Context, hashes []string) ([]*Transaction, error) {
	return queryTransactionsImpl(ctx, hashes, r.conn, r.settings)
}

func (r connRowReader) Contents(ctx context.Context, hashes []string) (map[string]*MessageContent, error) {
	return queryContentsImpl(ctx, hashes, r.conn, r.settings)
}

// fillContents attaches bodies and init states to msgs in one batch.
func fillContents(ctx context.Context, reader traceRowReader, msgs []*Message) error {
	content_set := mapset.NewThreadUnsafeSet[string]()
	for _, m := range msgs {
		if m.BodyHash != nil {
			content_set.Add(*m.BodyHash)
		}
		if m.InitStateHash != nil {
			content_set.Add(*m.InitStateHash)
		}
	}
	if content_set.Cardinality() == 0 {
		return nil
	}
	content_list := content_set.ToSlice()
	sort.Strings(content_list)

	contents, err := reader.Contents(ctx, content_list)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.BodyHash != nil {
			if c, ok := contents[*m.BodyHash]; ok {
				m.Body = c.Body
			}
		}
		if m.InitStateHash != nil {
			if c, ok := contents[*m.InitStateHash]; ok {
				m.InitState = c.Body
			}
		}
	}
	return nil
}

func createdLt(m *Message) int64 {
	if m.CreatedLt == nil {
		return 0
	}
	return *m.CreatedLt
}

// sortOutRows orders rows by transaction, then created_lt, then hash.
func sortOutRows(rows []*Message) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TxHash != b.TxHash {
			return a.TxHash < b.TxHash
		}
		if createdLt(a) != createdLt(b) {
			return createdLt(a) < createdLt(b)
		}
		return a.MsgHash < b.MsgHash
	})
}

// Methods

// QueryTraceRows reads the message msgHash and everything it caused, one tree
// level per round trip.
func (db *DbClient) QueryTraceRows(ctx context.Context, msgHash string, settings RequestSettings) (*TraceRows, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	defer conn.Release()

	return readTraceRows(ctx, connRowReader{conn: conn, settings: settings}, msgHash, settings.MaxDepth)
}

// readTraceRows walks the tree breadth first. A level counts towards maxDepth
// only when some of its messages have destination transactions.
func readTraceRows(ctx context.Context, reader traceRowReader, msgHash string, maxDepth int) (*TraceRows, error) {
	res := NewTraceRows(msgHash)
	root_rows, err := reader.Messages(ctx, byMsgHash, "", []string{msgHash})
	if err != nil {
		return nil, err
	}
	if len(root_rows) == 0 {
		return nil, fmt.Errorf("%w: %s", trace.ErrMessageNotFound, msgHash)
	}
	for _, m := range root_rows {
		if _, ok := res.Messages[m.MsgHash]; !ok || m.Direction == "in" {
			res.Messages[m.MsgHash] = m
		}
	}
	if err := fillContents(ctx, reader, []*Message{res.Messages[msgHash]}); err != nil {
		return nil, err
	}

	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	visited := mapset.NewThreadUnsafeSet[string](msgHash)
	frontier := []string{msgHash}
	for depth := 0; len(frontier) > 0; depth++ {
		// destination transactions of the current level
		in_rows, err := reader.Messages(ctx, byMsgHash, "in", frontier)
		if err != nil {
			return nil, err
		}
		tx_set := mapset.NewThreadUnsafeSet[string]()
		for _, m := range in_rows {
			res.InTx[m.MsgHash] = m.TxHash
			tx_set.Add(m.TxHash)
		}
		if tx_set.Cardinality() == 0 {
			break
		}
		if depth >= maxDepth {
			return nil, IndexError{Code: 422, Message: fmt.Sprintf("trace is deeper than %d levels", maxDepth)}
		}
		tx_list := tx_set.ToSlice()
		sort.Strings(tx_list)

		txs, err := reader.Transactions(ctx, tx_list)
		if err != nil {
			return nil, err
		}
		for _, tx := range txs {
			res.Transactions[tx.Hash] = tx
		}

		// messages they produced
		out_rows, err := reader.Messages(ctx, byTxHash, "out", tx_list)
		if err != nil {
			return nil, err
		}
		sortOutRows(out_rows)
		if err := fillContents(ctx, reader, out_rows); err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, m := range out_rows {
			if visited.Contains(m.MsgHash) {
				continue
			}
			visited.Add(m.MsgHash)
			res.Messages[m.MsgHash] = m
			res.OutMsgs[m.TxHash] = append(res.OutMsgs[m.TxHash], m.MsgHash)
			frontier = append(frontier, m.MsgHash)
		}
	}
	return res, nil
}

// QueryCodeHashes returns the current code hash of each account that has code.
func (db *DbClient) QueryCodeHashes(ctx context.Context, addrs []string, settings RequestSettings) (map[string]string, error) {
	res := map[string]string{}
	addr_set := mapset.NewThreadUnsafeSet[string](addrs...)
	addr_set.Remove("")
	if addr_set.Cardinality() == 0 {
		return res, nil
	}
	addr_list := addr_set.ToSlice()
	sort.Strings(addr_list)

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	defer conn.Release()

	ctx, cancel_ctx := context.WithTimeout(ctx, settings.Timeout)
	defer cancel_ctx()
	rows, err := conn.Query(ctx, buildCodeHashesQuery(), pq.Array(addr_list))
	if err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	defer rows.Close()

	for rows.Next() {
		var account, code_hash string
		if err := rows.Scan(&account, &code_hash); err != nil {
			return nil, IndexError{Code: 500, Message: err.Error()}
		}
		res[account] = code_hash
	}
	if err := rows.Err(); err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	return res, nil
}

// TraceSource adapts DbClient to trace.DataSource with fixed request settings.
type TraceSource struct {
	db       *DbClient
	settings RequestSettings
}

func (db *DbClient) TraceSource(settings RequestSettings) *TraceSource {
	return &TraceSource{db: db, settings: settings}
}

func (s *TraceSource) FetchMessageTree(ctx context.Context, msgHash string) (*trace.MessageRecord, error) {
	rows, err := s.db.QueryTraceRows(ctx, msgHash, s.settings)
	if err != nil {
		return nil, err
	}
	return AssembleMessageTree(rows)
}

func (s *TraceSource) FetchCodeHashes(ctx context.Context, addrs []string) (map[string]string, error) {
	return s.db.QueryCodeHashes(ctx, addrs, s.settings)
}
