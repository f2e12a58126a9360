package api

import (
	"net/http"

	"cvite-license-server/internal/license"

	"github.com/gin-gonic/gin"
)

type checkRequest struct {
	Key string `json:"key"`
}

// handleLicenseCheck verifies an activation key for the desktop application.
// All four verdicts come back as 200 with an ok flag; a non-JSON body is the
// only client error here.
func (s *Server) handleLicenseCheck(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   license.CodeValidation,
			"message": "invalid request body",
		})
		return
	}

	verdict, err := s.service.Verify(c.Request.Context(), req.Key, c.ClientIP())
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, verdict)
}
