package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/api/middleware"
	"github.com/orrn/printqueue/internal/db"
)

type CreateUserRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=6"`
	FirstName string  `json:"firstName" binding:"required"`
	LastName  string  `json:"lastName"`
	Role      db.Role `json:"role"`
}

type UpdateUserRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	FirstName string  `json:"firstName" binding:"required"`
	LastName  string  `json:"lastName"`
	Role      db.Role `json:"role" binding:"required"`
	Password  string  `json:"password" binding:"omitempty,min=6"`
}

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := db.Users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = db.RoleUser
	}
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin or user"})
		return
	}

	hash, err := middleware.HashPassword(req.Password)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	u := &db.User{
		Email:        req.Email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         req.Role,
		PasswordHash: hash,
	}
	if err := db.Users.CreateUser(c.Request.Context(), u); err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	ctx := c.Request.Context()
	u, err := db.Users.GetUserByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "user")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin or user"})
		return
	}
	if u.ID == middleware.CurrentClaims(c).UserID() && req.Role != db.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot remove your own admin role"})
		return
	}

	u.Email = req.Email
	u.FirstName = strings.TrimSpace(req.FirstName)
	u.LastName = strings.TrimSpace(req.LastName)
	u.Role = req.Role
	if err := db.Users.UpdateUser(ctx, u); err != nil {
		respondError(c, err, "user")
		return
	}

	if req.Password != "" {
		hash, err := middleware.HashPassword(req.Password)
		if err != nil {
			respondError(c, err, "user")
			return
		}
		if err := db.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
			respondError(c, err, "user")
			return
		}
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.CurrentClaims(c).UserID() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}

	if err := db.Users.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err, "user")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
}
