package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

const modelUnavailableMessage = "ML model not available"

// writeError maps service errors to responses. Client mistakes carry their
// details; anything else is logged and answered with message alone.
func writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInsufficientData):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "details": err.Error()})
	case errors.Is(err, domain.ErrModelUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": modelUnavailableMessage})
	case errors.Is(err, domain.ErrNotSupported):
		c.JSON(http.StatusNotImplemented, gin.H{"error": message, "details": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
