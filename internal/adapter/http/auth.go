package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/YelzhanWeb/lunchbox/internal/config"
)

// PermKitchenRead guards the kitchen aggregate.
const PermKitchenRead = "kitchen.read"

// Authz verifies service-client bearer tokens.
type Authz struct {
	cfg config.SecurityConfig
}

func NewAuthz(cfg config.SecurityConfig) *Authz {
	return &Authz{cfg: cfg}
}

// Require checks the JWT and that every listed permission was granted.
func (a *Authz) Require(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(a.cfg.JWTSecret), nil
		},
			jwt.WithLeeway(30*time.Second),
			jwt.WithIssuer(a.cfg.Issuer),
			jwt.WithAudience(a.cfg.Audience),
		)
		if err != nil || !token.Valid {
			unauth(c, "invalid_token", "invalid jwt")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauth(c, "invalid_token", "claims parsing error")
			return
		}
		if !hasAll(extractPerms(claims), requiredPerms) {
			forbidden(c, "insufficient_scope", "missing required permissions")
			return
		}

		c.Set("client_id", claims["clientID"])
		c.Next()
	}
}

func extractPerms(claims jwt.MapClaims) map[string]bool {
	out := map[string]bool{}
	if arr, ok := claims["perms"].([]any); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok && s != "" {
				out[s] = true
			}
		}
	}
	return out
}

func hasAll(have map[string]bool, req []string) bool {
	for _, r := range req {
		if !have[r] {
			return false
		}
	}
	return true
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "error_description": desc})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code, "error_description": desc})
}

// TokenHandler exchanges a service client's credentials for a bearer token.
type TokenHandler struct {
	cfg     config.SecurityConfig
	clients map[string]config.ServiceClient
	now     func() time.Time
}

func NewTokenHandler(cfg config.SecurityConfig) *TokenHandler {
	clients := make(map[string]config.ServiceClient, len(cfg.Clients))
	for _, cl := range cfg.Clients {
		clients[cl.ID] = cl
	}
	return &TokenHandler{cfg: cfg, clients: clients, now: time.Now}
}

// IssueToken handles POST /api/token with form fields client_id and client_secret.
func (h *TokenHandler) IssueToken(c *gin.Context) {
	clientID := c.PostForm("client_id")
	clientSecret := c.PostForm("client_secret")
	if clientID == "" || clientSecret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid client"})
		return
	}

	cl, found := h.clients[clientID]
	if !found || h.cfg.JWTSecret == "" ||
		subtle.ConstantTimeCompare([]byte(clientSecret), []byte(cl.Secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid client"})
		return
	}

	now := h.now()
	claims := jwt.MapClaims{
		"iss":      h.cfg.Issuer,
		"aud":      h.cfg.Audience,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      now.Add(h.cfg.TTL).Unix(),
		"clientID": clientID,
		"perms":    cl.Perms,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int(h.cfg.TTL.Seconds()),
	})
}
