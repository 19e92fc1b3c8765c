package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// NewServer builds the gateway router. Cache invalidation routes exist only
// when accessKey is non-empty.
func NewServer(handler *Handler, accessKey string) *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: accessLogLine,
		SkipPaths: []string{"/health"},
	}))
	r.Use(gin.Recovery())
	r.Use(allowCrossOrigin())

	registerRoutes(r, handler, accessKey)

	return r
}

// accessLogLine renders one request as key=value pairs so it reads the same
// as the slog text output around it.
func accessLogLine(p gin.LogFormatterParams) string {
	line := fmt.Sprintf("time=%s level=INFO msg=request method=%s path=%q status=%d latency=%s ip=%s",
		p.TimeStamp.Format("2006-01-02T15:04:05.000Z07:00"),
		p.Method,
		p.Path,
		p.StatusCode,
		p.Latency,
		p.ClientIP,
	)
	if p.ErrorMessage != "" {
		line += fmt.Sprintf(" error=%q", strings.TrimSpace(p.ErrorMessage))
	}
	return line + "\n"
}

// allowCrossOrigin lets the site frontend call the API from the browser.
func allowCrossOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, "+apiKeyHeaderName)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func registerRoutes(r *gin.Engine, handler *Handler, accessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/feed.xml", handler.GetFeed)
	r.GET("/favicon.ico", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/", serviceIndex(handler.version, accessKey != ""))

	api := r.Group("/api")
	api.GET("/posts", handler.ListPosts)
	api.GET("/posts/:slug", handler.GetPost)
	api.GET("/posts/:slug/meta", handler.GetPostMeta)
	api.GET("/categories", handler.ListCategories)
	api.GET("/categories/:slug/posts", handler.CategoryPosts)
	api.GET("/search", handler.Search)
	api.GET("/latest", handler.Latest)
	api.GET("/nav-posts", handler.NavPosts)
	api.GET("/menu", handler.GetMenu)
	api.GET("/menu/events", handler.MenuEvents)

	if accessKey == "" {
		slog.Info("Menu invalidation disabled, API_ACCESS_KEY is empty")
		return
	}

	admin := api.Group("/menu", requireAccessKey(accessKey))
	admin.POST("/invalidate", handler.InvalidateAllMenus)
	admin.POST("/:slug/invalidate", handler.InvalidateMenu)
	slog.Info("Menu invalidation enabled")
}

func serviceIndex(version string, adminEnabled bool) gin.HandlerFunc {
	endpoints := map[string]string{
		"health":     "/health",
		"feed":       "/feed.xml",
		"posts":      "/api/posts",
		"post":       "/api/posts/<slug>",
		"meta":       "/api/posts/<slug>/meta",
		"categories": "/api/categories",
		"category":   "/api/categories/<slug>/posts",
		"search":     "/api/search?q=<query>",
		"latest":     "/api/latest?limit=<n>",
		"nav_posts":  "/api/nav-posts?category=<slug>&limit=<n>",
		"menu":       "/api/menu",
		"events":     "/api/menu/events",
	}
	if adminEnabled {
		endpoints["invalidate"] = "POST /api/menu/<slug>/invalidate"
		endpoints["invalidate_all"] = "POST /api/menu/invalidate"
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "PressComb",
			"version":     version,
			"description": "WordPress content gateway with normalization, fallback content and navigation cache",
			"endpoints":   endpoints,
			"admin": gin.H{
				"enabled": adminEnabled,
				"header":  apiKeyHeaderName,
			},
		})
	}
}

// requireAccessKey accepts the key from X-API-Key or as a bearer token.
func requireAccessKey(accessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(apiKeyHeaderName)
		if given == "" {
			if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
				given = token
			}
		}

		switch {
		case given == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing access key"})
		case subtle.ConstantTimeCompare([]byte(given), []byte(accessKey)) != 1:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid access key"})
		default:
			c.Next()
		}
	}
}
