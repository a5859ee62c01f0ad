// Package private maintains the group of handlers for operator and node
// to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/ledger/business/sys/metrics"
	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of private node endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	State   *state.State
	Metrics *metrics.Metrics
}

// Status returns the current view of the chain held by this node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := status{
		Consensus: h.State.Genesis().Consensus,
		Mempool:   h.State.MempoolLength(),
		Branches:  h.State.BranchCount(),
		Authority: h.State.SignerAuthority(),
	}

	if head, ok := h.State.Head(); ok {
		resp.HeadHash = head.Hash()
		resp.HeadNumber = head.Header.Number
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Branches returns the tip of every branch the node retains, heaviest first.
func (h Handlers) Branches(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tips := h.State.Branches()

	resp := make([]tip, len(tips))
	for i, block := range tips {
		resp[i] = tip{
			Hash:   block.Hash(),
			Number: block.Header.Number,
			Parent: block.Header.PrevBlockHash,
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock takes a block received from a peer or operator, validates it
// and if that passes, adds the block to the local chain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var blockData database.BlockData
	if err := web.Decode(r, &blockData); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	block, err := database.ToBlock(blockData)
	if err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode block: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("propose block", "traceid", v.TraceID, "hash", block.Hash(), "number", block.Header.Number)

	err = h.State.ProcessProposedBlock(block)
	h.Metrics.Blocks.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return v1.NewRuleError(err)
	}

	resp := struct {
		Status string           `json:"status"`
		Hash   signature.Digest `json:"hash"`
	}{
		Status: "block accepted",
		Hash:   block.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SealBlock seals a block from the mempool on top of the current head.
func (h Handlers) SealBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.SealNewBlock(ctx)
	switch {
	case errors.Is(err, state.ErrNoTransactions):
		return v1.NewRequestError(err, http.StatusConflict)
	case errors.Is(err, state.ErrNoSigner):
		return v1.NewRequestError(err, http.StatusForbidden)
	case err != nil:
		h.Metrics.Blocks.WithLabelValues(metrics.Result(err)).Inc()
		if database.IsRuleError(err) {
			return v1.NewRuleError(err)
		}
		return err
	}

	h.Metrics.Blocks.WithLabelValues(metrics.Result(nil)).Inc()

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}
