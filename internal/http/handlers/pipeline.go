package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clipforge-backend/internal/http/response"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

// PipelineHandler exposes every stage endpoint as GET /{endpoint}/{id}. The
// id names a request for request-bound endpoints and the entity itself for
// the rest; the controller sorts that out.
type PipelineHandler struct {
	log        *logger.Logger
	controller *pipeline.Controller
}

func NewPipelineHandler(log *logger.Logger, controller *pipeline.Controller) *PipelineHandler {
	return &PipelineHandler{log: log.With("handler", "PipelineHandler"), controller: controller}
}

// Handle returns the gin handler for one endpoint. Stages run synchronously;
// the dispatch worker's long-timeout client is the expected caller.
func (h *PipelineHandler) Handle(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		result, err := h.controller.Process(c.Request.Context(), endpoint, id)
		if err != nil {
			switch {
			case errors.Is(err, pipeline.ErrAlreadyProcessing):
				response.Error(c, http.StatusBadRequest, errors.New("Task already processing for this entity"))
			case errors.Is(err, pipeline.ErrNotFound):
				response.Error(c, http.StatusNotFound, err)
			default:
				h.log.Error("Stage failed", "endpoint", endpoint, "id", id, "error", err)
				response.Error(c, http.StatusInternalServerError, err)
			}
			return
		}
		response.Success(c, gin.H{
			"request_id": result.RequestID,
			"entity_id":  result.EntityID,
		}, result.Message)
	}
}
