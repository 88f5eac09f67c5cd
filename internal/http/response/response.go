package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the wire shape of every pipeline endpoint: success and failure
// responses are structurally identical, distinguished by Status.
type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func Success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, Envelope{Status: "success", Data: data, Message: message})
}

func Error(c *gin.Context, httpStatus int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(httpStatus, Envelope{Status: "error", Data: gin.H{}, Message: msg})
}
