package handlers

import (
	"log"
	"net/http"

	request "mecanica_marketplace/internal/adapter/http/dto/request"
	response "mecanica_marketplace/internal/adapter/http/dto/response"
	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase"

	"github.com/gin-gonic/gin"
)

// ChangeOrderHandler serves change orders and their escrow payments.
type ChangeOrderHandler struct {
	usecase usecase.IChangeOrderUseCase
}

func NewChangeOrderHandler(uc usecase.IChangeOrderUseCase) *ChangeOrderHandler {
	return &ChangeOrderHandler{usecase: uc}
}

// CreateChangeOrder godoc
// @Summary      Raise a change order
// @Description  Pauses an in-progress job until the customer decides.
// @Tags         change-orders
// @Accept       json
// @Produce      json
// @Param        job_id        path      string                            true  "Job id"
// @Param        change_order  body      request.CreateChangeOrderRequest  true  "Change order"
// @Success      201           {object}  response.CommandResponse
// @Router       /jobs/{job_id}/change-orders [post]
func (h *ChangeOrderHandler) CreateChangeOrder(c *gin.Context) {
	var payload request.CreateChangeOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "change_order", err)
		return
	}

	co, err := h.usecase.CreateChangeOrder(c.Request.Context(), payload.ToCommand(c.Param("job_id")))
	if err != nil {
		writeCommandError(c, "change_order", err)
		return
	}
	log.Printf("[change_order][handler] created change_order_id=%s job_id=%s total=%.2f", co.ID, co.JobID, co.TotalAmount)
	c.JSON(http.StatusCreated, response.Success(co))
}

// GetChangeOrdersByJob godoc
// @Summary      List the change orders of a job
// @Tags         change-orders
// @Produce      json
// @Param        job_id  path     string  true  "Job id"
// @Success      200     {array}  entities.ChangeOrder
// @Router       /jobs/{job_id}/change-orders [get]
func (h *ChangeOrderHandler) GetChangeOrdersByJob(c *gin.Context) {
	orders, err := h.usecase.GetChangeOrdersByJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeCommandError(c, "change_order", err)
		return
	}
	if orders == nil {
		orders = []entities.ChangeOrder{}
	}
	c.JSON(http.StatusOK, orders)
}

// ApproveChangeOrder godoc
// @Summary      Approve a change order
// @Tags         change-orders
// @Accept       json
// @Produce      json
// @Param        change_order_id  path      string                              true  "Change order id"
// @Param        body             body      request.ChangeOrderDecisionRequest  true  "Customer"
// @Success      200              {object}  response.CommandResponse
// @Failure      409              {object}  response.CommandResponse
// @Router       /change-orders/{change_order_id}/approve [post]
func (h *ChangeOrderHandler) ApproveChangeOrder(c *gin.Context) {
	var payload request.ChangeOrderDecisionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "change_order", err)
		return
	}
	co, err := h.usecase.ApproveChangeOrder(c.Request.Context(), c.Param("change_order_id"), payload.CustomerID)
	h.write(c, co, err)
}

// RejectChangeOrder godoc
// @Summary      Reject a change order
// @Tags         change-orders
// @Accept       json
// @Produce      json
// @Param        change_order_id  path      string                              true  "Change order id"
// @Param        body             body      request.ChangeOrderDecisionRequest  true  "Customer"
// @Success      200              {object}  response.CommandResponse
// @Router       /change-orders/{change_order_id}/reject [post]
func (h *ChangeOrderHandler) RejectChangeOrder(c *gin.Context) {
	var payload request.ChangeOrderDecisionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "change_order", err)
		return
	}
	co, err := h.usecase.RejectChangeOrder(c.Request.Context(), c.Param("change_order_id"), payload.CustomerID, payload.Reason)
	h.write(c, co, err)
}

// CancelChangeOrder godoc
// @Summary      Withdraw a pending change order
// @Tags         change-orders
// @Accept       json
// @Produce      json
// @Param        change_order_id  path      string                            true  "Change order id"
// @Param        body             body      request.CancelChangeOrderRequest  true  "Mechanic"
// @Success      200              {object}  response.CommandResponse
// @Router       /change-orders/{change_order_id}/cancel [post]
func (h *ChangeOrderHandler) CancelChangeOrder(c *gin.Context) {
	var payload request.CancelChangeOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "change_order", err)
		return
	}
	co, err := h.usecase.CancelChangeOrder(c.Request.Context(), c.Param("change_order_id"), payload.MechanicID, payload.Reason)
	h.write(c, co, err)
}

// ProcessPayment godoc
// @Summary      Pay an approved change order into escrow
// @Description  Authorizes the funds with Mercado Pago without capturing them.
// @Tags         change-orders
// @Accept       json
// @Produce      json
// @Param        change_order_id  path      string                             true  "Change order id"
// @Param        payment          body      request.ChangeOrderPaymentRequest  true  "Payment"
// @Success      200              {object}  response.CommandResponse
// @Failure      502              {object}  response.CommandResponse
// @Router       /change-orders/{change_order_id}/payment [post]
func (h *ChangeOrderHandler) ProcessPayment(c *gin.Context) {
	var payload request.ChangeOrderPaymentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "payment", err)
		return
	}
	co, err := h.usecase.ProcessChangeOrderPayment(c.Request.Context(), c.Param("change_order_id"), payload.CustomerID, payload.Payload())
	h.write(c, co, err)
}

// ReleasePayment godoc
// @Summary      Release escrowed funds to the mechanic
// @Tags         change-orders
// @Produce      json
// @Param        change_order_id  path      string  true  "Change order id"
// @Success      200              {object}  response.CommandResponse
// @Router       /change-orders/{change_order_id}/release [post]
func (h *ChangeOrderHandler) ReleasePayment(c *gin.Context) {
	co, err := h.usecase.ReleaseEscrowPayment(c.Request.Context(), c.Param("change_order_id"))
	h.write(c, co, err)
}

func (h *ChangeOrderHandler) write(c *gin.Context, co entities.ChangeOrder, err error) {
	if err != nil {
		writeCommandError(c, "change_order", err)
		return
	}
	log.Printf("[change_order][handler] %s ok change_order_id=%s status=%s", c.FullPath(), co.ID, co.Status)
	c.JSON(http.StatusOK, response.Success(co))
}
