package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"notify-gateway/internal/db"
	"notify-gateway/internal/models"
)

const accessTokenKey = "accessToken"

func RequestLoggingMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}

// IPBlacklistMiddleware rejects clients with an active blacklist entry.
// Lookup errors let the request through.
func IPBlacklistMiddleware(store Store, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		blocked, err := store.IsIPBlacklisted(c.Request.Context(), ip)
		if err != nil {
			logger.Errorf("Blacklist check failed for %s: %v", ip, err)
		}
		if blocked {
			logger.Warnf("Rejected blacklisted IP %s", ip)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}

// TokenAuth verifies bearer JWTs whose subject is an access token id and
// applies that token's per-minute rate limit.
type TokenAuth struct {
	store            Store
	secret           []byte
	defaultPerMinute int
	logger           logrus.FieldLogger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

func NewTokenAuth(store Store, secret string, defaultPerMinute int, logger logrus.FieldLogger) *TokenAuth {
	if defaultPerMinute <= 0 {
		defaultPerMinute = 60
	}
	return &TokenAuth{
		store:            store,
		secret:           []byte(secret),
		defaultPerMinute: defaultPerMinute,
		logger:           logger,
		limiters:         make(map[string]*rate.Limiter),
		now:              time.Now,
	}
}

func (a *TokenAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing access token"})
			return
		}

		tokenID, err := a.subject(raw)
		if err != nil {
			a.logger.Warnf("Invalid access token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
			return
		}

		tok, err := a.store.GetAccessToken(c.Request.Context(), tokenID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
				return
			}
			a.logger.Errorf("Access token lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify access token"})
			return
		}
		if !tok.Usable(a.now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token is inactive or expired"})
			return
		}

		if !a.limiter(tok).Allow() {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Set(accessTokenKey, tok)
		c.Next()
	}
}

func (a *TokenAuth) subject(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func (a *TokenAuth) limiter(tok *models.AccessToken) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok := a.limiters[tok.ID]; ok {
		return l
	}
	perMinute := tok.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = a.defaultPerMinute
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	a.limiters[tok.ID] = l
	return l
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter for websocket clients that cannot set headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

func currentToken(c *gin.Context) *models.AccessToken {
	v, _ := c.Get(accessTokenKey)
	tok, _ := v.(*models.AccessToken)
	return tok
}
