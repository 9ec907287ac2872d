package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/voicegate/errors"
)

// RespondWithError writes err as the standard error envelope. AppErrors
// keep their status; anything else is a 500.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// WriteError is RespondWithError for handlers mounted outside Gin.
func WriteError(w http.ResponseWriter, err error) {
	appErr := apperrors.From(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr.ToResponse())
}
