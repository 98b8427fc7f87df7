// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/validate"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of chain endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	State       *state.State
	Evts        *events.Events
	WS          websocket.Upgrader
	MineTimeout time.Duration
}

// Genesis returns the genesis block and the difficulty of the chain.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := genesis{
		Difficulty: h.State.RetrieveDifficulty(),
		Blocks:     h.State.RetrieveBlockCount(),
		Genesis:    toBlock(h.State.RetrieveGenesis()),
	}

	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Blocks returns every block in the chain in order.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks, err := h.State.RetrieveBlocks()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toBlocks(blocks), http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	qry := hashQuery{
		Hash: web.Param(r, "hash"),
	}
	if err := validate.Check(qry); err != nil {
		return err
	}

	blk, err := h.State.QueryBlockByHash(qry.Hash)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return errs.NewTrustedf(http.StatusNotFound, "hash %s not found in the blockchain", qry.Hash)
		}
		return err
	}

	return web.Respond(ctx, w, toBlock(blk), http.StatusOK)
}

// BlockByIndex returns the block stored at the specified index.
func (h Handlers) BlockByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid index: %w", err), http.StatusBadRequest)
	}

	blk, err := h.State.QueryBlockByIndex(index)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return errs.NewTrustedf(http.StatusNotFound, "index %d not found in the blockchain", index)
		}
		return err
	}

	return web.Respond(ctx, w, toBlock(blk), http.StatusOK)
}

// AddBlock mines a new block with the provided data and appends it to the
// chain. Mining is bounded by the configured timeout.
func (h Handlers) AddBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nb newBlock
	if err := web.Decode(r, &nb); err != nil {
		return errs.NewTrustedf(http.StatusBadRequest, "unable to decode payload: %s", err)
	}

	h.Log.Infow("add block", "traceid", web.GetTraceID(ctx), "data", nb.Data)

	ctx, cancel := context.WithTimeout(ctx, h.MineTimeout)
	defer cancel()

	blk, err := h.State.AppendBlock(ctx, nb.Data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return errs.NewTrustedf(http.StatusServiceUnavailable, "mining did not complete in %s", h.MineTimeout)
		}
		return err
	}

	return web.Respond(ctx, w, toBlock(blk), http.StatusCreated)
}

// Verify recomputes every block in the chain and reports the result.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := verification{
		Valid:  true,
		Blocks: h.State.RetrieveBlockCount(),
	}

	if err := h.State.Verify(); err != nil {
		var ie *state.IntegrityError
		if !errors.As(err, &ie) {
			return err
		}

		h.Log.Errorw("verify", "traceid", web.GetTraceID(ctx), "index", ie.Index, "ERROR", ie.Err)

		resp.Valid = false
		resp.Index = &ie.Index
		resp.Error = ie.Err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Events handles a web socket to provide mining events to a client.
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

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting to receive events and send them to the client.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
