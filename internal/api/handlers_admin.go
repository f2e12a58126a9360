package api

import (
	"net/http"
	"strconv"

	"cvite-license-server/internal/auth"
	"cvite-license-server/internal/license"

	"github.com/gin-gonic/gin"
)

// handleAdminLogin exchanges the admin password for a session token
func (s *Server) handleAdminLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   license.CodeValidation,
			"message": "password is required",
		})
		return
	}

	resp, err := s.authService.Login(req.Password)
	if err != nil {
		authErr, ok := err.(auth.AuthError)
		if !ok {
			authErr = auth.ErrUnauthorized
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   authErr.Code,
			"message": authErr.Message,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleListClients returns every client with event aggregates, newest first
func (s *Server) handleListClients(c *gin.Context) {
	clients, err := s.service.ListClients(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	successResponse(c, clients)
}

// handleCreateClient issues a new license
func (s *Server) handleCreateClient(c *gin.Context) {
	var req license.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   license.CodeValidation,
			"message": "name and a valid email are required",
		})
		return
	}

	client, err := s.service.Create(c.Request.Context(), req)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    client,
	})
}

type blockRequest struct {
	Reason string `json:"reason"`
}

// handleBlockClient disables a client immediately
func (s *Server) handleBlockClient(c *gin.Context) {
	var req blockRequest
	_ = c.ShouldBindJSON(&req) // empty body means default reason

	client, err := s.service.Block(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	successResponse(c, client)
}

type termRequest struct {
	Days int `json:"days"`
}

// handleUnblockClient re-enables a client, optionally restarting its term
func (s *Server) handleUnblockClient(c *gin.Context) {
	var req termRequest
	_ = c.ShouldBindJSON(&req)

	client, err := s.service.Unblock(c.Request.Context(), c.Param("id"), req.Days)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	successResponse(c, client)
}

// handleExtendClient adds days to a client's license term
func (s *Server) handleExtendClient(c *gin.Context) {
	var req termRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   license.CodeValidation,
			"message": "days is required",
		})
		return
	}

	client, err := s.service.Extend(c.Request.Context(), c.Param("id"), req.Days)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	successResponse(c, client)
}

// handleRenewKey rotates a client's activation key
func (s *Server) handleRenewKey(c *gin.Context) {
	key, err := s.service.RenewKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	successResponse(c, gin.H{"license_key": key})
}

// handleDeleteClient removes a client and its audit trail
func (s *Server) handleDeleteClient(c *gin.Context) {
	if err := s.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeServiceError(c, err)
		return
	}
	successResponse(c, gin.H{"deleted": true})
}

// handleClientEvents returns a client's audit trail, most recent first
func (s *Server) handleClientEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	eventList, err := s.service.ListEvents(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	successResponse(c, eventList)
}

// handleStats returns the aggregate license counters
func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.service.Stats(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	successResponse(c, stats)
}
