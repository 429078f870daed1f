package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClaimsKey 是 gin.Context 中保存令牌身份的键。
const ClaimsKey = "auth_claims"

// BearerRequired 要求请求携带有效的 Bearer 令牌。
func BearerRequired(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := issuer.Parse(BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by BearerRequired.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	value, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok
}
