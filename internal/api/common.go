package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	"roundup/internal/middleware" // Context keys

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact money arithmetic
	"github.com/sirupsen/logrus"    // Logrus for structured logging
)

// currentUserID returns the authenticated user's ID set by JWTAuthMiddleware
func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// internalError logs err with request context and answers a generic 500
func internalError(c *gin.Context, err error, msg string) {
	logrus.WithFields(logrus.Fields{
		"method":  c.Request.Method, // HTTP method
		"path":    c.FullPath(),     // Matched route
		"user_id": currentUserID(c), // Empty on public routes
		"error":   err.Error(),      // Underlying error, never sent to the client
	}).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// queryInt reads an integer query parameter clamped to [min, max], falling back to def
func queryInt(c *gin.Context, key string, def, min, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// maxPage bounds the page query parameter
const maxPage = 1_000_000

// pagination reads page and page_size the way every paginated admin listing does
func pagination(c *gin.Context) (page, pageSize, offset int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = min(v, maxPage) // Keeps the offset from overflowing
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = v
	}
	return page, pageSize, (page - 1) * pageSize
}

// money converts a request amount to a 2dp decimal
func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

// round2 rounds an aggregate read back from SQL
func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}
