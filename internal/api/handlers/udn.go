package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/robcowart/udnm/internal/database/models"
	"github.com/robcowart/udnm/internal/udn"
	"go.uber.org/zap"
)

// UDNService is the set of pool operations exposed over HTTP
type UDNService interface {
	Assign(ctx context.Context, req *udn.AssignRequest) (*models.Assignment, bool, error)
	Revoke(ctx context.Context, mac string) (bool, error)
	RevokeUser(ctx context.Context, userID int64) (bool, error)
	MarkAuthenticated(ctx context.Context, mac string) (bool, error)
	LookupByMAC(ctx context.Context, mac string) (*models.Assignment, error)
	LookupByID(ctx context.Context, udnID int) (*models.Assignment, error)
	ListActive(ctx context.Context) ([]*models.Assignment, error)
	History(ctx context.Context, userID int64) ([]*models.Assignment, error)
	NextAvailable(ctx context.Context) (int, error)
	Status(ctx context.Context) (*udn.PoolStatus, error)
	RenderUsers(ctx context.Context) (string, error)
}

// UDNHandler handles UDN pool operations
type UDNHandler struct {
	udnService UDNService
	logger     *zap.Logger
}

// NewUDNHandler creates a new UDN handler
func NewUDNHandler(udnService UDNService, logger *zap.Logger) *UDNHandler {
	return &UDNHandler{
		udnService: udnService,
		logger:     logger,
	}
}

// AssignRequest represents a request to assign a UDN ID to a user
type AssignRequest struct {
	UserID     int64  `json:"user_id" binding:"required,gt=0"`
	MACAddress string `json:"mac_address"`
	UDNID      *int   `json:"udn_id"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	Unit       string `json:"unit"`
	NetworkID  string `json:"network_id"`
	SSIDNumber *int   `json:"ssid_number"`
	Note       string `json:"note"`
}

// writeError maps pool errors onto HTTP status codes
func (h *UDNHandler) writeError(c *gin.Context, err error, msg string) {
	var conflict *udn.AlreadyAssignedError

	switch {
	case errors.Is(err, udn.ErrInvalidFormat), errors.Is(err, udn.ErrOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		body := gin.H{"error": err.Error(), "udn_id": conflict.UDNID}
		if conflict.UserID != 0 {
			body["user_id"] = conflict.UserID
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, udn.ErrAlreadyAssigned):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, udn.ErrPoolExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, udn.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// Assign assigns a UDN ID to a user
// @Summary Assign UDN ID
// @Description Assign the lowest free UDN ID, or a specific one, to a user.
// @Description Returns 200 with the existing assignment when the user already has one.
// @Accept json
// @Produce json
// @Param request body AssignRequest true "Assignment request"
// @Success 201 {object} models.Assignment
// @Router /api/v1/udn/assignments [post]
func (h *UDNHandler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment, created, err := h.udnService.Assign(c.Request.Context(), &udn.AssignRequest{
		UserID:     req.UserID,
		MACAddress: req.MACAddress,
		SpecificID: req.UDNID,
		Metadata: udn.Metadata{
			UserName:   req.UserName,
			UserEmail:  req.UserEmail,
			Unit:       req.Unit,
			NetworkID:  req.NetworkID,
			SSIDNumber: req.SSIDNumber,
			Note:       req.Note,
		},
	})
	if err != nil {
		h.writeError(c, err, "failed to assign udn id")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, assignment)
}

// ListAssignments lists all active assignments
// @Summary List active assignments
// @Produce json
// @Success 200 {array} models.Assignment
// @Router /api/v1/udn/assignments [get]
func (h *UDNHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.udnService.ListActive(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to list assignments")
		return
	}
	if assignments == nil {
		assignments = []*models.Assignment{}
	}

	c.JSON(http.StatusOK, assignments)
}

// GetByID returns the active assignment holding a UDN ID
// @Summary Get assignment by UDN ID
// @Produce json
// @Param udn_id path int true "UDN ID"
// @Success 200 {object} models.Assignment
// @Router /api/v1/udn/assignments/{udn_id} [get]
func (h *UDNHandler) GetByID(c *gin.Context) {
	udnID, err := strconv.Atoi(c.Param("udn_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "udn_id must be an integer"})
		return
	}

	assignment, err := h.udnService.LookupByID(c.Request.Context(), udnID)
	if err != nil {
		h.writeError(c, err, "failed to look up udn id")
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// GetByMAC returns the active assignment for a MAC address
// @Summary Get assignment by MAC address
// @Produce json
// @Param mac path string true "MAC address in any common format"
// @Success 200 {object} models.Assignment
// @Router /api/v1/udn/mac/{mac} [get]
func (h *UDNHandler) GetByMAC(c *gin.Context) {
	assignment, err := h.udnService.LookupByMAC(c.Request.Context(), c.Param("mac"))
	if err != nil {
		h.writeError(c, err, "failed to look up mac address")
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// RevokeByMAC revokes every active assignment for a MAC address
// @Summary Revoke by MAC address
// @Produce json
// @Param mac path string true "MAC address"
// @Success 200 {object} map[string]bool
// @Router /api/v1/udn/mac/{mac} [delete]
func (h *UDNHandler) RevokeByMAC(c *gin.Context) {
	revoked, err := h.udnService.Revoke(c.Request.Context(), c.Param("mac"))
	if err != nil {
		h.writeError(c, err, "failed to revoke udn assignment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

// RevokeByUser revokes a user's active assignment
// @Summary Revoke by user
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Router /api/v1/udn/users/{user_id} [delete]
func (h *UDNHandler) RevokeByUser(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	revoked, err := h.udnService.RevokeUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "failed to revoke udn assignment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

// UserHistory lists every assignment a user has held
// @Summary Assignment history for a user
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {array} models.Assignment
// @Router /api/v1/udn/users/{user_id}/history [get]
func (h *UDNHandler) UserHistory(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	history, err := h.udnService.History(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "failed to load assignment history")
		return
	}
	if history == nil {
		history = []*models.Assignment{}
	}

	c.JSON(http.StatusOK, history)
}

// RecordAuth records a successful RADIUS authentication for a MAC address
// @Summary Record authentication
// @Produce json
// @Param mac path string true "MAC address"
// @Success 204
// @Router /api/v1/udn/mac/{mac}/auth [post]
func (h *UDNHandler) RecordAuth(c *gin.Context) {
	found, err := h.udnService.MarkAuthenticated(c.Request.Context(), c.Param("mac"))
	if err != nil {
		h.writeError(c, err, "failed to record authentication")
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": udn.ErrNotFound.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// NextAvailable previews the next automatically assigned UDN ID
// @Summary Next available UDN ID
// @Produce json
// @Success 200 {object} map[string]int
// @Router /api/v1/udn/next [get]
func (h *UDNHandler) NextAvailable(c *gin.Context) {
	next, err := h.udnService.NextAvailable(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to find next udn id")
		return
	}

	c.JSON(http.StatusOK, gin.H{"udn_id": next})
}

// Status reports pool utilisation
// @Summary Pool status
// @Produce json
// @Success 200 {object} udn.PoolStatus
// @Router /api/v1/udn/status [get]
func (h *UDNHandler) Status(c *gin.Context) {
	status, err := h.udnService.Status(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to get pool status")
		return
	}

	c.JSON(http.StatusOK, status)
}

// UsersFile renders the FreeRADIUS users file
// @Summary FreeRADIUS users file
// @Produce plain
// @Success 200 {string} string
// @Router /api/v1/udn/users-file [get]
func (h *UDNHandler) UsersFile(c *gin.Context) {
	content, err := h.udnService.RenderUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to render users file")
		return
	}

	c.String(http.StatusOK, content)
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a positive integer"})
		return 0, false
	}
	return userID, true
}
