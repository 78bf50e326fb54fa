package httpapi

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/averos/fleamarket/internal/shared/problem"
)

// userHeader carries the authenticated user id. Authentication itself is
// handled upstream of this service.
const userHeader = "X-User-ID"

func parseIDParam(c *gin.Context, name string, responder *problem.Responder) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		responder.BadRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func userIDFrom(c *gin.Context, responder *problem.Responder) (int64, bool) {
	raw := strings.TrimSpace(c.GetHeader(userHeader))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		responder.BadRequest(c, userHeader+" header must carry a positive integer user id")
		return 0, false
	}
	return id, true
}
