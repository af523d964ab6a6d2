package trace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var ErrMessageNotFound = errors.New("message not found")

// DataSource provides message trees and account code hashes.
type DataSource interface {
	// FetchMessageTree returns the message with all transitive children.
	FetchMessageTree(ctx context.Context, msgHash string) (*MessageRecord, error)
	// FetchCodeHashes returns code hashes of the given accounts. Accounts
	// without code are absent from the result.
	FetchCodeHashes(ctx context.Context, addrs []string) (map[string]string, error)
}

type TraceParams struct {
	MsgHash      string
	AllowedCodes *AllowedCodes
}

type TraceResult struct {
	Root           *Node
	RevertedBranch *RevertedBranch
	Nodes          int
}

func (r *TraceResult) HasError() bool {
	return r.Root != nil && r.Root.HasErrorInTree
}

type TracerConfig struct {
	Resolver       ContractResolver
	Decoder        Decoder
	ConsoleAddress string
	AllowedCodes   AllowedCodes
	Logger         *logrus.Logger
}

// Tracer builds trace trees for messages. It owns the default allowed codes;
// every trace works on its own merged copy of them.
type Tracer struct {
	mu             sync.RWMutex
	allowedCodes   AllowedCodes
	resolver       ContractResolver
	decoder        Decoder
	consoleAddress string
	logger         *logrus.Logger
}

func NewTracer(cfg TracerConfig) *Tracer {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	console := cfg.ConsoleAddress
	if console == "" {
		console = DefaultConsoleAddress
	}
	decoder := cfg.Decoder
	if decoder == nil {
		decoder = ABIDecoder{}
	}
	return &Tracer{
		allowedCodes:   cfg.AllowedCodes.Clone(),
		resolver:       cfg.Resolver,
		decoder:        decoder,
		consoleAddress: console,
		logger:         logger,
	}
}

func (t *Tracer) AllowedCodes() AllowedCodes {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowedCodes.Clone()
}

// SetAllowedCodes adds codes to the defaults.
func (t *Tracer) SetAllowedCodes(codes AllowedCodes) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowedCodes = t.allowedCodes.Merge(codes)
}

func (t *Tracer) AllowCodesForAddress(addr string, codes CodeList) {
	t.SetAllowedCodes(AllowedCodes{Contracts: map[string]CodeList{addr: codes}})
}

func (t *Tracer) RemoveAllowedCodes(codes AllowedCodes) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowedCodes = t.allowedCodes.Remove(codes)
}

func (t *Tracer) RemoveAllowedCodesForAddress(addr string, codes CodeList) {
	t.RemoveAllowedCodes(AllowedCodes{Contracts: map[string]CodeList{addr: codes}})
}

func (t *Tracer) Trace(ctx context.Context, src DataSource, params TraceParams) (res *TraceResult, err error) {
	ctx, span := otel.Tracer("ton-tracing").Start(ctx, "Tracer.Trace",
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(attribute.String("msg_hash", params.MsgHash)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	policy := t.AllowedCodes()
	if params.AllowedCodes != nil {
		policy = policy.Merge(*params.AllowedCodes)
	}

	root, err := src.FetchMessageTree(ctx, params.MsgHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message tree: %w", err)
	}
	addrs := collectAddresses(root)
	codeHashes, err := src.FetchCodeHashes(ctx, addrs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch code hashes: %w", err)
	}

	b := &Builder{
		Resolver:       t.resolver,
		Decoder:        t.decoder,
		ConsoleAddress: t.consoleAddress,
		CodeHashes:     codeHashes,
		Logger:         t.logger,
	}
	tree, err := b.BuildTree(ctx, root, policy)
	if err != nil {
		return nil, err
	}

	res = &TraceResult{Root: tree}
	tree.Walk(func(*Node) { res.Nodes++ })
	if branch, ok := FindRevertedBranch(tree); ok {
		res.RevertedBranch = branch
	}
	span.SetAttributes(
		attribute.Int("nodes", res.Nodes),
		attribute.Bool("has_error", res.HasError()),
	)
	t.logger.WithFields(logrus.Fields{
		"msg_hash":  params.MsgHash,
		"nodes":     res.Nodes,
		"accounts":  len(addrs),
		"has_error": res.HasError(),
	}).Debug("trace built")
	return res, nil
}

// collectAddresses returns the sorted set of all accounts in the tree.
func collectAddresses(root *MessageRecord) []string {
	set := mapset.NewThreadUnsafeSet[string]()
	var walk func(m *MessageRecord)
	walk = func(m *MessageRecord) {
		if m.Source != "" {
			set.Add(m.Source)
		}
		if m.Destination != "" {
			set.Add(m.Destination)
		}
		for _, c := range m.Children {
			walk(c)
		}
	}
	walk(root)
	res := set.ToSlice()
	sort.Strings(res)
	return res
}
