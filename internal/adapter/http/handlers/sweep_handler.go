package handlers

import (
	"log"
	"net/http"

	response "mecanica_marketplace/internal/adapter/http/dto/response"
	"mecanica_marketplace/internal/usecase"

	"github.com/gin-gonic/gin"
)

type SweepHandler struct {
	usecase usecase.ISweepUseCase
}

func NewSweepHandler(uc usecase.ISweepUseCase) *SweepHandler {
	return &SweepHandler{usecase: uc}
}

// RunExpirationSweep godoc
// @Summary      Run the expiration sweep now
// @Description  Cancels stale postings, flags jobs close to expiry and expires overdue change orders.
// @Tags         sweeps
// @Produce      json
// @Success      200  {object}  response.CommandResponse
// @Failure      502  {object}  response.CommandResponse
// @Router       /sweeps/expiration [post]
func (h *SweepHandler) RunExpirationSweep(c *gin.Context) {
	report, err := h.usecase.RunExpirationSweep(c.Request.Context())
	if err != nil {
		writeCommandError(c, "sweep", err)
		return
	}
	log.Printf("[sweep][handler] done expired=%d expiring=%d change_orders=%d failures=%d",
		len(report.ExpiredJobIDs), len(report.ExpiringJobIDs), len(report.ExpiredChangeOrderIDs), len(report.Failures))
	c.JSON(http.StatusOK, response.Success(report))
}
