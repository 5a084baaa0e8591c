package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aidchain/internal/errs"
)

// respondError maps the error taxonomy onto HTTP statuses. The payload
// tells clients whether a retry makes sense: validation and chain
// rejections are final, network failures are not.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	retryable := false

	if _, ok := errs.AsValidation(err); ok {
		status = http.StatusBadRequest
	} else if _, ok := errs.AsNotFound(err); ok {
		status = http.StatusNotFound
	} else if _, ok := errs.AsChain(err); ok {
		status = http.StatusUnprocessableEntity
	} else if errs.IsRetryable(err) {
		status = http.StatusBadGateway
		retryable = true
	}

	c.JSON(status, gin.H{"error": err.Error(), "retryable": retryable})
}
