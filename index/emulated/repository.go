package emulated

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

const accountCodeHashKey = "acc_code_hash"

type EmulatedTracesRepository struct {
	Rdb    *redis.Client
	Logger *logrus.Logger
}

func NewRepository(dsn string, logger *logrus.Logger) (*EmulatedTracesRepository, error) {
	options, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EmulatedTracesRepository{Rdb: redis.NewClient(options), Logger: logger}, nil
}

// LoadRawTrace returns the trace hash containing msgHash. msgHash is either
// the trace key itself or any message indexed under tr_in_msg.
func (receiver *EmulatedTracesRepository) LoadRawTrace(ctx context.Context, msgHash string) (map[string]string, string, error) {
	result, err := receiver.Rdb.HGetAll(ctx, msgHash).Result()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load trace %s: %w", msgHash, err)
	}
	if len(result) > 0 {
		return result, msgHash, nil
	}

	trace_key, err := receiver.Rdb.Get(ctx, "tr_in_msg:"+msgHash).Result()
	if errors.Is(err, redis.Nil) {
		return nil, "", fmt.Errorf("%w: %s", trace.ErrMessageNotFound, msgHash)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load trace key for %s: %w", msgHash, err)
	}
	result, err = receiver.Rdb.HGetAll(ctx, trace_key).Result()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load trace %s: %w", trace_key, err)
	}
	if len(result) == 0 {
		receiver.Logger.WithFields(logrus.Fields{
			"msg_hash":  msgHash,
			"trace_key": trace_key,
		}).Warn("trace expired before lookup")
		return nil, "", fmt.Errorf("%w: %s", trace.ErrMessageNotFound, msgHash)
	}
	return result, trace_key, nil
}

func (receiver *EmulatedTracesRepository) LoadTrace(ctx context.Context, msgHash string) (*Trace, error) {
	raw, trace_key, err := receiver.LoadRawTrace(ctx, msgHash)
	if err != nil {
		return nil, err
	}
	return ConvertHSet(raw, trace_key)
}

// AccountCodeHashes reads code hashes of emulated accounts in one HMGET.
func (receiver *EmulatedTracesRepository) AccountCodeHashes(ctx context.Context, addrs []string) (map[string]string, error) {
	res := make(map[string]string)
	if len(addrs) == 0 {
		return res, nil
	}
	values, err := receiver.Rdb.HMGet(ctx, accountCodeHashKey, addrs...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load code hashes: %w", err)
	}
	for i, v := range values {
		if s, ok := v.(string); ok && len(s) > 0 {
			res[addrs[i]] = s
		}
	}
	return res, nil
}

// TraceSource returns a trace.DataSource for a single request. Code hashes
// recorded on the loaded trace take precedence over the account hash.
func (receiver *EmulatedTracesRepository) TraceSource() *TraceSource {
	return &TraceSource{repo: receiver}
}

type TraceSource struct {
	repo   *EmulatedTracesRepository
	loaded *Trace
}

func (s *TraceSource) FetchMessageTree(ctx context.Context, msgHash string) (*trace.MessageRecord, error) {
	t, err := s.repo.LoadTrace(ctx, msgHash)
	if err != nil {
		return nil, err
	}
	s.loaded = t
	return t.MessageTree(msgHash)
}

func (s *TraceSource) FetchCodeHashes(ctx context.Context, addrs []string) (map[string]string, error) {
	res := make(map[string]string)
	var recorded map[string]string
	if s.loaded != nil {
		recorded = s.loaded.CodeHashes()
	}
	missing := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if h, ok := recorded[a]; ok {
			res[a] = h
		} else {
			missing = append(missing, a)
		}
	}
	stored, err := s.repo.AccountCodeHashes(ctx, missing)
	if err != nil {
		return nil, err
	}
	for a, h := range stored {
		res[a] = h
	}
	return res, nil
}
