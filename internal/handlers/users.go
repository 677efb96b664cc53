package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/middleware"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/utils"
)

var errUsernameTaken = apperr.Duplicate("El nombre de usuario ya está en uso")

func translateUserErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errUsernameTaken
	}
	return err
}

// UserHandler handles login management (admin operations).
type UserHandler struct {
	DB *gorm.DB
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName"`
	Role     string `json:"role" binding:"required,oneof=admin surgeon staff"`
}

// CreateUser handles creating a new login.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user := models.User{
		Username: strings.TrimSpace(req.Username),
		FullName: strings.TrimSpace(req.FullName),
		Role:     models.Role(req.Role),
		Active:   true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		utils.RespondError(c, translateUserErr(err))
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers handles fetching all users.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var users []models.User
	if err := h.DB.WithContext(c.Request.Context()).Order("username ASC").Find(&users).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	sanitizedUsers := make([]models.UserSanitized, len(users))
	for i := range users {
		sanitizedUsers[i] = users[i].Sanitize()
	}
	utils.Success(c, "Users fetched successfully", sanitizedUsers)
}

func (h *UserHandler) find(c *gin.Context) (models.User, bool) {
	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Usuario no encontrado")
		} else {
			utils.RespondError(c, err)
		}
		return models.User{}, false
	}
	return user, true
}

// GetUserByID handles fetching a single user by ID.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, ok := h.find(c)
	if !ok {
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
type UpdateUserRequest struct {
	FullName *string `json:"fullName"`
	Role     string  `json:"role" binding:"omitempty,oneof=admin surgeon staff"`
	Active   *bool   `json:"active"`
	Password string  `json:"password" binding:"omitempty,min=8"`
}

// UpdateUser handles updating a user by ID. Admins cannot demote or
// deactivate themselves.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, ok := h.find(c)
	if !ok {
		return
	}

	callerID, _ := middleware.GetUserIDFromContext(c)
	self := callerID == user.ID
	if self && ((req.Role != "" && models.Role(req.Role) != models.RoleAdmin) || (req.Active != nil && !*req.Active)) {
		utils.BadRequest(c, "No podés quitarte el rol de administrador ni desactivarte")
		return
	}

	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Role != "" {
		updates["role"] = req.Role
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.Password != "" {
		if err := user.SetPassword(req.Password); err != nil {
			utils.RespondError(c, err)
			return
		}
		updates["password"] = user.Password
	}
	if len(updates) > 0 {
		if err := h.DB.WithContext(c.Request.Context()).Model(&user).Updates(updates).Error; err != nil {
			utils.RespondError(c, err)
			return
		}
	}
	if err := h.DB.WithContext(c.Request.Context()).First(&user, "id = ?", user.ID).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser deletes a login and its refresh tokens.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	user, ok := h.find(c)
	if !ok {
		return
	}
	if callerID, _ := middleware.GetUserIDFromContext(c); callerID == user.ID {
		utils.BadRequest(c, "No podés eliminar tu propio usuario")
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", user.ID).Error
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User deleted successfully", gin.H{"ok": true})
}
