package routes

import (
	"mecanica_marketplace/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
)

const (
	PathJobs         = "/jobs"
	PathBids         = "/bids"
	PathChangeOrders = "/change-orders"
	PathStats        = "/stats"
	PathSweeps       = "/sweeps"
)

func addJobRoutes(rg *gin.RouterGroup, h *handlers.JobHandler) {
	jobs := rg.Group(PathJobs)
	{
		jobs.POST("", h.CreateJob)
		jobs.GET("", h.ListJobs)
		jobs.GET("/:job_id", h.GetJob)
		jobs.DELETE("/:job_id", h.DeleteJob)
		jobs.POST("/:job_id/schedule", h.ScheduleJob)
		jobs.POST("/:job_id/start", h.StartJob)
		jobs.POST("/:job_id/complete", h.CompleteJob)
		jobs.POST("/:job_id/cancel", h.CancelJob)
	}

	rg.GET(PathStats+"/jobs", h.GetJobStats)
}

func addBidRoutes(rg *gin.RouterGroup, h *handlers.BidHandler) {
	rg.POST(PathJobs+"/:job_id/bids", h.SubmitBid)
	rg.GET(PathJobs+"/:job_id/bids", h.GetBidsByJob)

	bids := rg.Group(PathBids)
	{
		bids.POST("/:bid_id/accept", h.AcceptBid)
		bids.POST("/:bid_id/reject", h.RejectBid)
	}
}

func addChangeOrderRoutes(rg *gin.RouterGroup, h *handlers.ChangeOrderHandler) {
	rg.POST(PathJobs+"/:job_id/change-orders", h.CreateChangeOrder)
	rg.GET(PathJobs+"/:job_id/change-orders", h.GetChangeOrdersByJob)

	orders := rg.Group(PathChangeOrders)
	{
		orders.POST("/:change_order_id/approve", h.ApproveChangeOrder)
		orders.POST("/:change_order_id/reject", h.RejectChangeOrder)
		orders.POST("/:change_order_id/cancel", h.CancelChangeOrder)
		orders.POST("/:change_order_id/payment", h.ProcessPayment)
		orders.POST("/:change_order_id/release", h.ReleasePayment)
	}
}

func addSweepRoutes(rg *gin.RouterGroup, h *handlers.SweepHandler) {
	rg.POST(PathSweeps+"/expiration", h.RunExpirationSweep)
}
