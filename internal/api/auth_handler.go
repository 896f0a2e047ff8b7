package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskpulse/internal/model"
	"taskpulse/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Preferences model.Preferences `json:"preferences"`
}

func viewUser(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, Preferences: u.Preferences}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest("invalid request body"))
		return
	}
	user, token, err := h.auth.Signup(c.Request.Context(), service.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"token":   token,
		"user":    viewUser(user),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest("invalid request body"))
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), service.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    viewUser(user),
	})
}

// Logout is stateless; clients drop the token.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		_ = c.Error(badRequest("email is required"))
		return
	}
	token, err := h.auth.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}
	// No mailer is wired, so the token goes back to the caller.
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Password reset token generated",
		"resetToken": token,
	})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest("invalid request body"))
		return
	}
	_, token, err := h.auth.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successful", "token": token})
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "user": viewUser(currentUser(c))})
}

func (h *AuthHandler) UpdatePreferences(c *gin.Context) {
	var req struct {
		DarkMode       *bool  `json:"darkMode"`
		TelegramChatID *int64 `json:"telegramChatId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest("invalid request body"))
		return
	}

	user := currentUser(c)
	prefs := user.Preferences
	if req.DarkMode != nil {
		prefs.DarkMode = *req.DarkMode
	}
	if req.TelegramChatID != nil {
		prefs.TelegramChatID = *req.TelegramChatID
	}
	if err := h.auth.UpdatePreferences(c.Request.Context(), user, prefs); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": viewUser(user)})
}
