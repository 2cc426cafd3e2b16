package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	r.Register(NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}))
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterGroupMiddleware(t *testing.T) {
	engine := gin.New()
	engine.GET("/outside", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("marker"))
	})

	r := NewRouter(engine, WithGroupMiddleware(func(c *gin.Context) {
		c.Set("marker", "api")
		c.Next()
	}))
	r.Register(NewDomainGroup("test", "/test").GET("", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("marker"))
	}))
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test", nil))
	assert.Equal(t, "api", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outside", nil))
	assert.Empty(t, w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	g := NewDomainGroup("invoices", "/invoices")
	assert.Equal(t, "invoices", g.Name())
	assert.Equal(t, "/invoices", g.Prefix())

	t.Run("static segment wins over parameter", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("invoices", "/invoices").
			GET("/export", func(c *gin.Context) { c.String(http.StatusOK, "export") }).
			GET("/:id", func(c *gin.Context) { c.String(http.StatusOK, "id="+c.Param("id")) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/export", nil))
		assert.Equal(t, "export", w.Body.String())

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/abc", nil))
		assert.Equal(t, "id=abc", w.Body.String())
	})

	t.Run("registers each method", func(t *testing.T) {
		engine := gin.New()
		ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
		NewDomainGroup("test", "/test").
			GET("/a", ok).
			POST("/b", ok).
			PATCH("/c", ok).
			RegisterRoutes(engine.Group(""))

		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/test/a"},
			{http.MethodPost, "/test/b"},
			{http.MethodPatch, "/test/c"},
		} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusNoContent, w.Code, tc.method+" "+tc.path)
		}
	})

	t.Run("group middleware runs before handlers", func(t *testing.T) {
		engine := gin.New()
		NewDomainGroup("test", "/test").
			Use(func(c *gin.Context) {
				c.AbortWithStatus(http.StatusForbidden)
			}).
			GET("", func(c *gin.Context) { c.Status(http.StatusOK) }).
			RegisterRoutes(engine.Group(""))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
