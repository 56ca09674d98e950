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

// JobHandler serves the job state machine endpoints.
type JobHandler struct {
	usecase usecase.IJobUseCase
}

func NewJobHandler(uc usecase.IJobUseCase) *JobHandler {
	return &JobHandler{usecase: uc}
}

// CreateJob godoc
// @Summary      Post a job
// @Description  Posts a job for competitive bidding, or books a mechanic directly when direct_mechanic_id is set.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job  body      request.CreateJobRequest  true  "Job"
// @Success      201  {object}  response.CommandResponse
// @Failure      400  {object}  response.CommandResponse
// @Router       /jobs [post]
func (h *JobHandler) CreateJob(c *gin.Context) {
	var payload request.CreateJobRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "job", err)
		return
	}

	job, err := h.usecase.CreateJob(c.Request.Context(), payload.ToCommand())
	if err != nil {
		writeCommandError(c, "job", err)
		return
	}
	log.Printf("[job][handler] created job_id=%s status=%s", job.ID, job.Status)
	c.JSON(http.StatusCreated, response.Success(response.FromJob(job)))
}

// ListJobs godoc
// @Summary      List jobs
// @Tags         jobs
// @Produce      json
// @Param        customer_id  query     string  false  "Customer id"
// @Param        mechanic_id  query     string  false  "Mechanic id"
// @Param        status       query     string  false  "Comma separated statuses"
// @Success      200          {array}   response.JobResponse
// @Router       /jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	var q request.JobListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeInvalidPayload(c, "job", err)
		return
	}

	jobs, err := h.usecase.ListJobs(c.Request.Context(), q.ToFilter())
	if err != nil {
		writeCommandError(c, "job", err)
		return
	}
	c.JSON(http.StatusOK, response.FromJobs(jobs))
}

// GetJob godoc
// @Summary      Get a job
// @Tags         jobs
// @Produce      json
// @Param        job_id  path      string  true  "Job id"
// @Success      200     {object}  response.JobResponse
// @Failure      404     {object}  response.CommandResponse
// @Router       /jobs/{job_id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.usecase.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeCommandError(c, "job", err)
		return
	}
	c.JSON(http.StatusOK, response.FromJob(job))
}

// DeleteJob godoc
// @Summary      Delete a job and everything attached to it (admin)
// @Tags         jobs
// @Produce      json
// @Param        job_id  path      string  true  "Job id"
// @Success      200     {object}  response.CommandResponse
// @Router       /jobs/{job_id} [delete]
func (h *JobHandler) DeleteJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if err := h.usecase.DeleteJob(c.Request.Context(), jobID); err != nil {
		writeCommandError(c, "job", err)
		return
	}
	log.Printf("[job][handler] deleted job_id=%s", jobID)
	c.JSON(http.StatusOK, response.Success(nil))
}

// ScheduleJob godoc
// @Summary      Schedule an accepted job
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job_id    path      string                      true  "Job id"
// @Param        schedule  body      request.ScheduleJobRequest  true  "Schedule"
// @Success      200       {object}  response.CommandResponse
// @Failure      409       {object}  response.CommandResponse
// @Router       /jobs/{job_id}/schedule [post]
func (h *JobHandler) ScheduleJob(c *gin.Context) {
	var payload request.ScheduleJobRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "job", err)
		return
	}
	job, err := h.usecase.ScheduleJob(c.Request.Context(), payload.ToCommand(c.Param("job_id")))
	h.writeJob(c, job, err)
}

// StartJob godoc
// @Summary      Start a scheduled job
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job_id  path      string                   true  "Job id"
// @Param        body    body      request.StartJobRequest  true  "Mechanic"
// @Success      200     {object}  response.CommandResponse
// @Router       /jobs/{job_id}/start [post]
func (h *JobHandler) StartJob(c *gin.Context) {
	var payload request.StartJobRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "job", err)
		return
	}
	job, err := h.usecase.StartJob(c.Request.Context(), c.Param("job_id"), payload.MechanicID)
	h.writeJob(c, job, err)
}

// CompleteJob godoc
// @Summary      Complete an in-progress job
// @Description  Settles change orders: pending ones expire and escrowed funds are released.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job_id  path      string                      true  "Job id"
// @Param        body    body      request.CompleteJobRequest  true  "Completion"
// @Success      200     {object}  response.CommandResponse
// @Router       /jobs/{job_id}/complete [post]
func (h *JobHandler) CompleteJob(c *gin.Context) {
	var payload request.CompleteJobRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "job", err)
		return
	}
	job, err := h.usecase.CompleteJob(c.Request.Context(), payload.ToCommand(c.Param("job_id")))
	h.writeJob(c, job, err)
}

// CancelJob godoc
// @Summary      Cancel an open job
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job_id  path      string                    true  "Job id"
// @Param        body    body      request.CancelJobRequest  true  "Cancellation"
// @Success      200     {object}  response.CommandResponse
// @Router       /jobs/{job_id}/cancel [post]
func (h *JobHandler) CancelJob(c *gin.Context) {
	var payload request.CancelJobRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeInvalidPayload(c, "job", err)
		return
	}
	job, err := h.usecase.CancelJob(c.Request.Context(), c.Param("job_id"), payload.CustomerID, payload.Reason)
	h.writeJob(c, job, err)
}

// GetJobStats godoc
// @Summary      Job statistics
// @Tags         stats
// @Produce      json
// @Param        customer_id  query     string  false  "Customer id"
// @Param        mechanic_id  query     string  false  "Mechanic id"
// @Success      200          {object}  entities.JobStats
// @Router       /stats/jobs [get]
func (h *JobHandler) GetJobStats(c *gin.Context) {
	stats, err := h.usecase.GetJobStats(c.Request.Context(), c.Query("customer_id"), c.Query("mechanic_id"))
	if err != nil {
		writeCommandError(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *JobHandler) writeJob(c *gin.Context, job entities.Job, err error) {
	if err != nil {
		writeCommandError(c, "job", err)
		return
	}
	log.Printf("[job][handler] %s ok job_id=%s status=%s", c.FullPath(), job.ID, job.Status)
	c.JSON(http.StatusOK, response.Success(response.FromJob(job)))
}
