package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"warehouse-system/internal/gateway/middleware"
	userhandler "warehouse-system/internal/services/user/handler"
)

type UserHTTPHandler struct {
	users         *userhandler.UserHandler
	adminPassword string
}

func NewUserHTTPHandler(users *userhandler.UserHandler, adminPassword string) *UserHTTPHandler {
	return &UserHTTPHandler{
		users:         users,
		adminPassword: adminPassword,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// --- Authentication ---

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(resp))
}

func (h *UserHTTPHandler) InitData(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.users.SeedDefaults(ctx, h.adminPassword)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(resp))
}

func (h *UserHTTPHandler) Me(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Authentication required"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.GetUser(ctx, claims.UserId)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(user))
}

// --- Users ---

func (h *UserHTTPHandler) ListUsers(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(users))
}

func (h *UserHTTPHandler) CreateUser(c *gin.Context) {
	var req userhandler.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.CreateUser(ctx, req, middleware.Actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(user))
}

func (h *UserHTTPHandler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.users.DeleteUser(ctx, id, middleware.Actor(c)); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse("User deleted successfully"))
}
