// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/business/sys/metrics"
	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/validate"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public ledger endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	State   *state.State
	NS      *nameservice.NameService
	WS      websocket.Upgrader
	Evts    *events.Events
	Metrics *metrics.Metrics
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain. The
	// filter query value limits the stream to messages with that prefix.
	ch := h.Evts.Acquire(v.TraceID, r.URL.Query().Get("filter"))
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a new transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx newTx
	if err := web.Decode(r, &ntx); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(ntx); err != nil {
		return err
	}

	tx, err := toDBTx(ntx)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", tx)

	err = h.State.UpsertMempool(tx)
	h.Metrics.Submissions.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return v1.NewRuleError(err)
	}

	resp := struct {
		Status string           `json:"status"`
		ID     signature.Digest `json:"id"`
	}{
		Status: "transaction added to mempool",
		ID:     tx.ID(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Head returns the block at the head of the chain.
func (h Handlers) Head(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	head, ok := h.State.Head()
	if !ok {
		return v1.NewRequestError(errors.New("chain has no genesis block"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, database.NewBlockData(head), http.StatusOK)
}

// Chain returns the blocks from the specified block back to genesis.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := signature.ToDigest(web.Param(r, "hash"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	blocks, err := h.State.GetChain(hash)
	if err != nil {
		return v1.NewRuleError(err)
	}

	resp := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		resp[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Block returns the block with the specified hash.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := signature.ToDigest(web.Param(r, "hash"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	block, err := h.State.Block(hash)
	if err != nil {
		return v1.NewRuleError(err)
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// Proof returns the merkle proof that a transaction is part of a block.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := signature.ToDigest(web.Param(r, "hash"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	txID, err := signature.ToDigest(web.Param(r, "txid"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	block, err := h.State.Block(hash)
	if err != nil {
		return v1.NewRuleError(err)
	}

	for _, tx := range block.Trans {
		if tx.ID() != txID {
			continue
		}

		path, order, err := block.TransProof(tx)
		if err != nil {
			return err
		}

		p := proof{
			Block: hash,
			TxID:  txID,
			Root:  block.CalcTransRoot(),
			Proof: make([]string, len(path)),
			Order: order,
		}
		for i, node := range path {
			p.Proof[i] = hexutil.Encode(node)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}

	return v1.NewRequestError(fmt.Errorf("transaction %s not in block %s", txID, hash), http.StatusNotFound)
}

// Balance returns the value an account can spend on the head chain.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	head, _ := h.State.Head()

	resp := balance{
		Account:  accountID,
		Name:     h.NS.Lookup(accountID),
		Balance:  h.State.Balance(accountID),
		HeadHash: head.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UTXO returns the outputs an account can spend on the head chain.
func (h Handlers) UTXO(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	utxos := h.State.UnspentFor(accountID)

	resp := make([]utxo, len(utxos))
	for i, u := range utxos {
		resp[i] = utxo{
			TxID:     u.TxID,
			Index:    u.Index,
			Sender:   u.Sender,
			Receiver: u.Receiver,
			Amount:   u.Amount,
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.Mempool()

	trans := make([]txInfo, len(mempool))
	for i, tx := range mempool {
		trans[i] = toTxInfo(tx)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}
