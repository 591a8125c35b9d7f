package middleware_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/internal/http/middleware"
)

var _ = Describe("Middleware", func() {
	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
	})

	Describe("RequireAdminAPIKey", func() {
		newRouter := func(key string) *gin.Engine {
			r := gin.New()
			r.Use(middleware.RequireAdminAPIKey(key))
			r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusNoContent) })
			return r
		}

		serve := func(r *gin.Engine, header, value string) int {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if header != "" {
				req.Header.Set(header, value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			return w.Code
		}

		It("leaves routes open without a configured key", func() {
			Expect(serve(newRouter(""), "", "")).To(Equal(http.StatusNoContent))
		})

		It("rejects a missing key", func() {
			Expect(serve(newRouter("s3cret"), "", "")).To(Equal(http.StatusUnauthorized))
		})

		It("rejects a wrong key", func() {
			Expect(serve(newRouter("s3cret"), middleware.AdminAPIKeyHeader, "nope")).To(Equal(http.StatusUnauthorized))
		})

		It("accepts the admin header", func() {
			Expect(serve(newRouter("s3cret"), middleware.AdminAPIKeyHeader, "s3cret")).To(Equal(http.StatusNoContent))
		})

		It("accepts a bearer token", func() {
			Expect(serve(newRouter("s3cret"), "Authorization", "Bearer s3cret")).To(Equal(http.StatusNoContent))
		})
	})

	Describe("RequestID", func() {
		var r *gin.Engine

		BeforeEach(func() {
			r = gin.New()
			r.Use(middleware.RequestID())
			r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })
		})

		It("keeps the caller's id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(middleware.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			Expect(w.Body.String()).To(Equal("abc-123"))
			Expect(w.Header().Get(middleware.RequestIDHeader)).To(Equal("abc-123"))
		})

		It("assigns one when absent", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(w.Header().Get(middleware.RequestIDHeader)).To(HaveLen(36))
			Expect(w.Body.String()).To(Equal(w.Header().Get(middleware.RequestIDHeader)))
		})
	})

	It("Recovery turns a panic into a 500", func() {
		r := gin.New()
		r.Use(middleware.Recovery())
		r.GET("/", func(_ *gin.Context) { panic("boom") })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(ContainSubstring("Internal server error"))
	})
})
