package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/healthhub/internal/db"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	sessionUserIDKey      = "user_id"
	sessionUsernameKey    = "username"
	sessionAccessTokenKey = "access_token"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 校验用户名密码，写入会话并返回访问令牌。
func (a *API) Login(c *gin.Context) {
	var payload loginRequest
	if !bindJSON(c, &payload, "Username and password are required") {
		return
	}

	username := strings.TrimSpace(payload.Username)
	if username == "" || payload.Password == "" {
		respondError(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	// 查找用户
	var user db.User
	if err := a.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			a.logger.Error("load user for login", zap.Error(err))
		}
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, expiresAt, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		a.logger.Error("issue access token", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Login failed, please try again later")
		return
	}

	// 设置会话
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	session.Set(sessionAccessTokenKey, token)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to save the session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"expiresAt":   expiresAt,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

// Logout 清空会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to save the session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// AuthRequired 要求请求已登录。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(sessionUserIDKey) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please log in first"})
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) *uint {
	session := sessions.Default(c)
	switch v := session.Get(sessionUserIDKey).(type) {
	case uint:
		return &v
	case int:
		id := uint(v)
		return &id
	default:
		return nil
	}
}

func sessionAccessToken(c *gin.Context) string {
	token, _ := sessions.Default(c).Get(sessionAccessTokenKey).(string)
	return token
}
