package trace

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestTracerTrace(t *testing.T) {
	src := &memorySource{
		trees: map[string]*MessageRecord{
			"root": call("root", "", addrA, okTx(),
				call("a", addrA, addrB, okTx()),
				call("b", addrA, addrC, computeFailTx(100)),
			),
		},
		codeHashes: map[string]string{addrB: "HASH_B", addrC: "HASH_C"},
	}
	res := &fakeResolver{contracts: map[string]*Contract{addrC: {Name: "Game"}}}
	tracer := NewTracer(TracerConfig{Resolver: res, Decoder: &fakeDecoder{}, Logger: quietLogger()})

	out, err := tracer.Trace(context.Background(), src, TraceParams{MsgHash: "root"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Nodes)
	assert.True(t, out.HasError())
	require.NotNil(t, out.RevertedBranch)
	assert.Equal(t, "b", out.RevertedBranch.Node.Message.Hash)
	assert.Equal(t, []Breadcrumb{{ActionIdx: 1, TotalActions: 2, Trace: out.RevertedBranch.Node}}, out.RevertedBranch.Path)
	assert.Equal(t, "Game", out.Root.Children[1].Contract.Name)
	assert.Contains(t, res.calls, "HASH_C@"+addrC)

	// the request policy only applies to its own build
	allowed := AllowedCodes{Contracts: map[string]CodeList{addrC: {Compute: []int32{100}}}}
	out, err = tracer.Trace(context.Background(), src, TraceParams{MsgHash: "root", AllowedCodes: &allowed})
	require.NoError(t, err)
	assert.False(t, out.HasError())
	assert.Nil(t, out.RevertedBranch)
	assert.True(t, out.Root.Children[1].Error.Ignored)
	assert.True(t, tracer.AllowedCodes().ForAddress(addrC).IsEmpty())
}

func TestTracerDefaultPolicyMutators(t *testing.T) {
	tracer := NewTracer(TracerConfig{
		AllowedCodes: AllowedCodes{CodeList: CodeList{Action: []int32{37}}},
		Logger:       quietLogger(),
	})
	src := &memorySource{trees: map[string]*MessageRecord{
		"root": call("root", "", addrA, computeFailTx(100)),
	}}

	out, err := tracer.Trace(context.Background(), src, TraceParams{MsgHash: "root"})
	require.NoError(t, err)
	assert.True(t, out.HasError())

	tracer.AllowCodesForAddress(addrA, CodeList{Compute: []int32{100}})
	out, err = tracer.Trace(context.Background(), src, TraceParams{MsgHash: "root"})
	require.NoError(t, err)
	assert.False(t, out.HasError())

	tracer.RemoveAllowedCodesForAddress(addrA, CodeList{Compute: []int32{100}})
	assert.NotContains(t, tracer.AllowedCodes().Contracts, addrA)

	tracer.SetAllowedCodes(AllowedCodes{CodeList: CodeList{Compute: []int32{100}}})
	out, err = tracer.Trace(context.Background(), src, TraceParams{MsgHash: "root"})
	require.NoError(t, err)
	assert.False(t, out.HasError())

	tracer.RemoveAllowedCodes(AllowedCodes{CodeList: CodeList{Compute: []int32{100}, Action: []int32{37}}})
	assert.True(t, tracer.AllowedCodes().CodeList.IsEmpty())

	// snapshots are detached from the tracer state
	snapshot := tracer.AllowedCodes()
	snapshot.Compute = append(snapshot.Compute, 1)
	assert.Empty(t, tracer.AllowedCodes().Compute)
}

func TestTracerErrors(t *testing.T) {
	tracer := NewTracer(TracerConfig{Logger: quietLogger()})

	_, err := tracer.Trace(context.Background(), &memorySource{}, TraceParams{MsgHash: "missing"})
	assert.ErrorIs(t, err, ErrMessageNotFound)

	boom := errors.New("connection reset")
	_, err = tracer.Trace(context.Background(), &memorySource{err: boom}, TraceParams{MsgHash: "root"})
	assert.ErrorIs(t, err, boom)

	failing := NewTracer(TracerConfig{
		Resolver: ResolverFunc(func(context.Context, string, string) (*Contract, error) {
			return nil, boom
		}),
		Logger: quietLogger(),
	})
	src := &memorySource{trees: map[string]*MessageRecord{"root": call("root", "", addrA, okTx())}}
	_, err = failing.Trace(context.Background(), src, TraceParams{MsgHash: "root"})
	assert.ErrorIs(t, err, boom)
}

func TestCollectAddresses(t *testing.T) {
	root := call("root", "", addrB, okTx(),
		call("a", addrB, addrA, okTx()),
		call("b", addrB, addrA, okTx(), call("c", addrA, addrC, okTx())),
	)
	assert.Equal(t, []string{addrA, addrB, addrC}, collectAddresses(root))
}
