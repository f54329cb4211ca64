package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sabbai/adapulse/service"
	"github.com/sabbai/adapulse/stream"
)

type handler struct {
	sessions *service.SessionService
	agg      *stream.Aggregator
}

func newHandler(sessions *service.SessionService, agg *stream.Aggregator) *handler {
	return &handler{sessions: sessions, agg: agg}
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type statusResponse struct {
	Connected     bool    `json:"connected"`
	LatestBlock   *uint64 `json:"latest_block,omitempty"`
	BlockCount    uint64  `json:"block_count"`
	TxCount       uint64  `json:"tx_count"`
	Authenticated bool    `json:"authenticated"`
	Address       string  `json:"address,omitempty"`
	SessionState  string  `json:"session_state"`
}

func (h *handler) status(c *gin.Context) {
	view := h.agg.Snapshot()

	resp := statusResponse{
		Connected:     view.Connected,
		LatestBlock:   view.LatestBlock,
		BlockCount:    view.BlockCount,
		TxCount:       view.TxCount,
		Authenticated: h.sessions.IsAuthenticated(),
		SessionState:  h.sessions.State().String(),
	}
	if user, ok := h.sessions.CurrentUser(); ok {
		resp.Address = user.Address
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) blocks(c *gin.Context) {
	view := h.agg.Snapshot()
	blocks := view.Blocks
	if limit, ok := parseLimit(c); ok && limit < len(blocks) {
		blocks = blocks[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

func (h *handler) transactions(c *gin.Context) {
	view := h.agg.Snapshot()
	txs := view.Transactions
	if limit, ok := parseLimit(c); ok && limit < len(txs) {
		txs = txs[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, false
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}
