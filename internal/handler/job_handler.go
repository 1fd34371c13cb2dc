package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/damienbose/line-draw/internal/config"
	"github.com/damienbose/line-draw/internal/imaging"
	"github.com/damienbose/line-draw/internal/models"
	"github.com/damienbose/line-draw/internal/service"
	"github.com/damienbose/line-draw/pkg/response"
)

// JobHandler handles HTTP requests for simulation jobs.
type JobHandler struct {
	manager *service.Manager
	cfg     *config.Config
}

// NewJobHandler creates a new job handler.
func NewJobHandler(manager *service.Manager, cfg *config.Config) *JobHandler {
	return &JobHandler{manager: manager, cfg: cfg}
}

// Upload accepts a multipart image, decodes it to a luminance grid and
// creates a pending job.
// POST /api/images/upload
func (h *JobHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file field")
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", h.cfg.MaxUploadBytes))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		response.BadRequest(c, "failed to read upload")
		return
	}
	if int64(len(data)) > h.cfg.MaxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", h.cfg.MaxUploadBytes))
		return
	}

	grid, err := imaging.DecodeLuminance(data, h.cfg.MaxFieldSize)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	id := h.manager.Create(grid)
	response.Success(c, gin.H{"job_id": id})
}

// StartJobRequest is the request body for starting a job. Omitted
// parameters keep their reference defaults.
type StartJobRequest struct {
	Params models.SimulationParams `json:"params"`
}

// Start validates parameters and begins processing.
// POST /api/jobs/:id/start
func (h *JobHandler) Start(c *gin.Context) {
	req := StartJobRequest{Params: models.DefaultParams()}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}

	id := c.Param("id")
	if err := h.manager.Start(id, req.Params); err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"status": models.StatusProcessing})
}

// Status returns the latest published snapshot for a job.
// GET /api/jobs/:id
func (h *JobHandler) Status(c *gin.Context) {
	id := c.Param("id")
	snap, err := h.manager.Status(id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{
		"job_id":            snap.JobID,
		"status":            snap.Status,
		"progress":          snap.Progress,
		"current_iteration": snap.CurrentIteration,
		"total_iterations":  snap.TotalIterations,
		"trajectory_points": snap.TrajectoryPoints,
	}
	if snap.Status == models.StatusCompleted {
		body["result_url"] = fmt.Sprintf("/api/jobs/%s/result", snap.JobID)
	}
	if snap.Error != "" {
		body["error"] = snap.Error
	}
	response.Success(c, body)
}

// Result serves the final PNG of a completed job.
// GET /api/jobs/:id/result
func (h *JobHandler) Result(c *gin.Context) {
	id := c.Param("id")
	data, err := h.manager.Result(id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=line-drawing-%s.png", short))
	c.Data(http.StatusOK, "image/png", data)
}

// ResultBase64 serves the final PNG as a base64 JSON payload.
// GET /api/jobs/:id/result/base64
func (h *JobHandler) ResultBase64(c *gin.Context) {
	id := c.Param("id")
	data, err := h.manager.Result(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"image_base64": service.EncodeResult(data)})
}

// Cancel requests cooperative cancellation of a running job.
// POST /api/jobs/:id/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.Cancel(id); err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "cancellation requested"})
}

// Delete removes a job.
// DELETE /api/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.Delete(id); err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "job deleted"})
}

// respondError maps the service error taxonomy to HTTP status codes.
func (h *JobHandler) respondError(c *gin.Context, err error) {
	msg := strings.TrimSpace(err.Error())
	switch {
	case errors.Is(err, models.ErrJobNotFound):
		response.NotFound(c, msg)
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrJobState),
		errors.Is(err, models.ErrConfiguration):
		response.BadRequest(c, msg)
	default:
		response.InternalError(c, msg)
	}
}
