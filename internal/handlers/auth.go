package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/config"
	"surgical-records-server/internal/middleware"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
	// now is replaced in tests.
	now func() time.Time
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, now: time.Now}
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	utils.TokenPair
	User models.UserSanitized `json:"user"`
}

// Login checks credentials and issues an access and a refresh token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	err := h.DB.WithContext(c.Request.Context()).
		Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, err)
		return
	}
	if err != nil || !user.Active || !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Usuario o contraseña incorrectos")
		return
	}

	now := h.now()
	pair, ok := h.issue(c, &user, now)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Model(&user).Update("last_login_at", now).Error; err != nil {
		_ = c.Error(err)
	}
	user.LastLoginAt = &now

	utils.Success(c, "Login successful", LoginResponse{TokenPair: pair, User: user.Sanitize()})
}

// issue signs a token pair, stores the refresh token, and sets its cookie.
func (h *AuthHandler) issue(c *gin.Context, user *models.User, now time.Time) (utils.TokenPair, bool) {
	pair, err := utils.GenerateTokens(user, h.Cfg.JWT, now)
	if err != nil {
		utils.RespondError(c, err)
		return utils.TokenPair{}, false
	}
	stored := models.RefreshToken{
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&stored).Error; err != nil {
		utils.RespondError(c, err)
		return utils.TokenPair{}, false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, pair.RefreshToken, int(h.Cfg.JWT.RefreshTTL.Seconds()), "/", "", h.Cfg.IsProduction(), true)
	return pair, true
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) refreshTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(refreshCookie); err == nil && token != "" {
		return token
	}
	var req RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)
	return req.RefreshToken
}

// RefreshToken rotates a refresh token and issues a new access token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := h.refreshTokenFrom(c)
	if token == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}
	claims, err := utils.ValidateToken(token, h.Cfg.JWT.RefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	ctx := c.Request.Context()
	now := h.now()
	var stored models.RefreshToken
	err = h.DB.WithContext(ctx).Where("token = ? AND user_id = ?", token, claims.UserID).First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !stored.Usable(now)) {
		utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil || !user.Active {
		utils.Unauthorized(c, "User is no longer active")
		return
	}
	// Only the request that flips is_revoked may mint the next pair.
	res := h.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ? AND is_revoked = ?", stored.ID, false).
		Update("is_revoked", true)
	if res.Error != nil {
		utils.RespondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		return
	}

	pair, ok := h.issue(c, &user, now)
	if !ok {
		return
	}
	utils.Success(c, "Access token refreshed successfully", pair)
}

// Logout revokes the presented refresh token. Unknown tokens are accepted.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := h.refreshTokenFrom(c)
	if token != "" {
		err := h.DB.WithContext(c.Request.Context()).Model(&models.RefreshToken{}).
			Where("token = ? AND is_revoked = ?", token, false).
			Updates(map[string]any{"is_revoked": true, "expires_at": h.now()}).Error
		if err != nil {
			utils.RespondError(c, err)
			return
		}
	}
	c.SetCookie(refreshCookie, "", -1, "/", "", h.Cfg.IsProduction(), true)
	utils.Success(c, "Logout successful", gin.H{"ok": true})
}

// Verify returns the authenticated user; clients call it to check a stored
// access token.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	utils.Success(c, "Token is valid", user.Sanitize())
}

func (h *AuthHandler) currentUser(c *gin.Context) (models.User, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return models.User{}, false
	}
	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "User not found")
		} else {
			utils.RespondError(c, err)
		}
		return models.User{}, false
	}
	if !user.Active {
		utils.Unauthorized(c, "User is no longer active")
		return models.User{}, false
	}
	return user, true
}

// UpdateCredentialsRequest changes the caller's login.
type UpdateCredentialsRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewUsername     string `json:"newUsername"`
	NewPassword     string `json:"newPassword" binding:"omitempty,min=8"`
}

// UpdateCredentials changes the caller's username and/or password after
// checking the current password. Existing refresh tokens are revoked.
func (h *AuthHandler) UpdateCredentials(c *gin.Context) {
	var req UpdateCredentialsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !user.CheckPassword(req.CurrentPassword) {
		utils.Unauthorized(c, "La contraseña actual es incorrecta")
		return
	}
	newUsername := strings.TrimSpace(req.NewUsername)
	if newUsername == "" && req.NewPassword == "" {
		utils.BadRequest(c, "Nada para actualizar")
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if newUsername != "" && newUsername != user.Username {
			var taken int64
			if err := tx.Model(&models.User{}).Where("username = ? AND id <> ?", newUsername, user.ID).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return errUsernameTaken
			}
			updates["username"] = newUsername
		}
		if req.NewPassword != "" {
			if err := user.SetPassword(req.NewPassword); err != nil {
				return err
			}
			updates["password"] = user.Password
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND is_revoked = ?", user.ID, false).
			Update("is_revoked", true).Error
	})
	if err != nil {
		utils.RespondError(c, translateUserErr(err))
		return
	}
	if newUsername != "" {
		user.Username = newUsername
	}
	utils.Success(c, "Credentials updated successfully", user.Sanitize())
}
