package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/tutorbridge-backend/internal/http/response"
)

var (
	errNotAuthenticated = errors.New("not authenticated")
	errMissingSession   = errors.New("missing session id")
	errImportTooLarge   = errors.New("import body exceeds 1MB")
	errMissingProgress  = errors.New("progress must be an integer between 0 and 100")
)

// uuidParam writes a 400 and returns false when the path param is not a UUID.
func uuidParam(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		if err == nil {
			err = errors.New("nil uuid")
		}
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
