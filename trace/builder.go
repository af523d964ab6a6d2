package trace

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ContractResolver maps a code hash and an address to a contract definition.
// (nil, nil) means no contract is known; an error means the lookup itself
// failed and aborts the build.
type ContractResolver interface {
	ResolveContract(ctx context.Context, codeHash string, addr string) (*Contract, error)
}

type ResolverFunc func(ctx context.Context, codeHash string, addr string) (*Contract, error)

func (f ResolverFunc) ResolveContract(ctx context.Context, codeHash string, addr string) (*Contract, error) {
	return f(ctx, codeHash, addr)
}

// Builder turns a MessageRecord tree into a Node tree. It holds no state that
// changes during a build, so one Builder may serve concurrent builds.
type Builder struct {
	Resolver       ContractResolver
	Decoder        Decoder
	ConsoleAddress string
	// CodeHashes maps account addresses to their current code hash.
	CodeHashes map[string]string
	Logger     *logrus.Logger
}

func (b *Builder) BuildTree(ctx context.Context, root *MessageRecord, policy AllowedCodes) (*Node, error) {
	if root == nil {
		return nil, fmt.Errorf("nil root message")
	}
	return b.build(ctx, root, nil, policy)
}

func (b *Builder) build(ctx context.Context, msg *MessageRecord, parent *Node, policy AllowedCodes) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node := &Node{Message: msg, parent: parent}

	var parentMsg *MessageRecord
	if parent != nil {
		parentMsg = parent.Message
	}
	node.Type = Classify(msg, parentMsg)

	codeHash, addr := b.contractLocation(node)
	if b.Resolver != nil {
		contract, err := b.Resolver.ResolveContract(ctx, codeHash, addr)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve contract for message %s: %w", msg.Hash, err)
		}
		node.Contract = contract
	}

	if !isConsole(msg, b.ConsoleAddress) {
		node.Error = CheckFailure(msg, policy)
	}
	if err := b.decode(ctx, node); err != nil {
		return nil, err
	}

	node.Children = make([]*Node, len(msg.Children))
	g, gctx := errgroup.WithContext(ctx)
	for i, child := range msg.Children {
		g.Go(func() error {
			c, err := b.build(gctx, child, node, policy)
			if err != nil {
				return err
			}
			node.Children[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	node.HasErrorInTree = node.hasOwnError()
	for _, c := range node.Children {
		if c.HasErrorInTree {
			node.HasErrorInTree = true
		}
	}
	return node, nil
}

// contractLocation picks the account whose contract describes the message
// body: the deployed code for deploys, the emitter for outbound externals and
// the destination otherwise.
func (b *Builder) contractLocation(n *Node) (codeHash string, addr string) {
	msg := n.Message
	switch n.Type {
	case TypeDeploy:
		return *msg.InitCodeHash, msg.Destination
	case TypeEvent, TypeEventOrFunctionReturn:
		return b.CodeHashes[msg.Source], msg.Source
	default:
		return b.CodeHashes[msg.Destination], msg.Destination
	}
}

func (b *Builder) decode(ctx context.Context, n *Node) error {
	if reason := decodeSkipReason(n, b.ConsoleAddress); reason != skipNone {
		b.logger().WithFields(logrus.Fields{
			"msg_hash": n.Message.Hash,
			"reason":   reason,
		}).Trace("decode skipped")
		return nil
	}
	if b.Decoder == nil {
		return nil
	}
	res, err := b.Decoder.Decode(ctx, DecodeInput{
		Body:     n.Message.Body,
		Kind:     n.Message.Kind,
		Contract: n.Contract,
		Type:     n.Type,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		b.logger().WithError(err).WithFields(logrus.Fields{
			"msg_hash":   n.Message.Hash,
			"contract":   n.Contract.Name,
			"unknown_id": IsUnknownID(err),
			"trace_type": n.Type,
		}).Debug("message body not decoded")
		return nil
	}
	if res == nil {
		return nil
	}
	n.Decoded = res.Decoded
	if res.Type != "" {
		n.Type = res.Type
	}
	return nil
}

func (b *Builder) logger() *logrus.Logger {
	if b.Logger == nil {
		return logrus.StandardLogger()
	}
	return b.Logger
}
