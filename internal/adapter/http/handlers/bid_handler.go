package handlers

import (
	"context"
	"log"
	"net/http"

	request "mecanica_marketplace/internal/adapter/http/dto/request"
	response "mecanica_marketplace/internal/adapter/http/dto/response"
	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase"

	"github.com/gin-gonic/gin"
)

type BidHandler struct {
	usecase usecase.IBidUseCase
}

func NewBidHandler(uc usecase.IBidUseCase) *BidHandler {
	return &BidHandler{usecase: uc}
}

// SubmitBid godoc
// @Summary      Bid on an open job
// @Tags         bids
// @Accept       json
// @Produce      json
// @Param        job_id  path      string                    true  "Job id"
// @Param        bid     body      request.SubmitBidRequest  true  "Bid"
// @Success      201     {object}  response.CommandResponse
// @Failure      409     {object}  response.CommandResponse
// @Router       /jobs/{job_id}/bids [post]
func (h *BidHandler) SubmitBid(c *gin.Context) {
	var payload request.SubmitBidRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "bid", err)
		return
	}

	bid, err := h.usecase.SubmitBid(c.Request.Context(), payload.ToCommand(c.Param("job_id")))
	if err != nil {
		writeCommandError(c, "bid", err)
		return
	}
	log.Printf("[bid][handler] submitted bid_id=%s job_id=%s", bid.ID, bid.JobID)
	c.JSON(http.StatusCreated, response.Success(bid))
}

// GetBidsByJob godoc
// @Summary      List the bids of a job
// @Tags         bids
// @Produce      json
// @Param        job_id  path     string  true  "Job id"
// @Success      200     {array}  entities.Bid
// @Router       /jobs/{job_id}/bids [get]
func (h *BidHandler) GetBidsByJob(c *gin.Context) {
	bids, err := h.usecase.GetBidsByJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeCommandError(c, "bid", err)
		return
	}
	if bids == nil {
		bids = []entities.Bid{}
	}
	c.JSON(http.StatusOK, bids)
}

// AcceptBid godoc
// @Summary      Accept a bid
// @Description  Assigns the mechanic and declines every other pending bid of the job.
// @Tags         bids
// @Accept       json
// @Produce      json
// @Param        bid_id  path      string                      true  "Bid id"
// @Param        body    body      request.BidDecisionRequest  true  "Customer"
// @Success      200     {object}  response.CommandResponse
// @Failure      409     {object}  response.CommandResponse
// @Router       /bids/{bid_id}/accept [post]
func (h *BidHandler) AcceptBid(c *gin.Context) {
	h.decide(c, h.usecase.AcceptBid)
}

// RejectBid godoc
// @Summary      Reject a bid
// @Tags         bids
// @Accept       json
// @Produce      json
// @Param        bid_id  path      string                      true  "Bid id"
// @Param        body    body      request.BidDecisionRequest  true  "Customer"
// @Success      200     {object}  response.CommandResponse
// @Router       /bids/{bid_id}/reject [post]
func (h *BidHandler) RejectBid(c *gin.Context) {
	h.decide(c, h.usecase.RejectBid)
}

func (h *BidHandler) decide(c *gin.Context, fn func(ctx context.Context, bidID, customerID string) (entities.Bid, error)) {
	var payload request.BidDecisionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "bid", err)
		return
	}

	bid, err := fn(c.Request.Context(), c.Param("bid_id"), payload.CustomerID)
	if err != nil {
		writeCommandError(c, "bid", err)
		return
	}
	log.Printf("[bid][handler] resolved bid_id=%s status=%s", bid.ID, bid.Status)
	c.JSON(http.StatusOK, response.Success(bid))
}
