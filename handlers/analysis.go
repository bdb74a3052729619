package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-terrawatch/orchestrator"
	"go-terrawatch/types"
)

// AnalysisRequest is the submit payload. Lat/lon are pointers so a missing
// field is distinguishable from a legitimate zero coordinate.
type AnalysisRequest struct {
	Lat          *float64       `json:"lat" binding:"required"`
	Lon          *float64       `json:"lon" binding:"required"`
	Mode         types.TaskMode `json:"mode" binding:"required,oneof=flood deforestation"`
	RadiusMeters float64        `json:"radiusMeters"`
}

// SubmitAnalysis accepts an analysis request and returns 202 with the task
// id and its status endpoint. Validation failures are rejected here, before
// any external call happens.
func SubmitAnalysis(c *gin.Context, orch *orchestrator.Orchestrator) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID, err := orch.Submit(req.Mode, *req.Lat, *req.Lon, req.RadiusMeters)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidGeometry), errors.Is(err, orchestrator.ErrUnsupportedMode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": types.KindOf(err)})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": types.KindOf(err)})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":        "Analysis task submitted successfully.",
		"taskId":         taskID,
		"statusEndpoint": "/api/v1/tasks/" + taskID,
	})
}

// GetTaskStatus polls a task by id: current state plus, when terminal, the
// result or the stable error kind.
func GetTaskStatus(c *gin.Context, orch *orchestrator.Orchestrator) {
	task, err := orch.Status(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": types.KindTaskNotFound})
		return
	}
	c.JSON(http.StatusOK, task)
}

// CancelTask removes a pending task or requests cooperative cancellation
// of a running one.
func CancelTask(c *gin.Context, orch *orchestrator.Orchestrator) {
	err := orch.Cancel(c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"message": "Cancellation requested."})
	case errors.Is(err, types.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": types.KindTaskNotFound})
	default:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	}
}
