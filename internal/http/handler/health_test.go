package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/internal/http/handler"
)

var _ = Describe("HealthHandler", func() {
	serve := func(checks map[string]handler.CheckFunc, path string) (int, map[string]any) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		h := handler.NewHealthHandler(checks)
		router.GET("/health", h.Live)
		router.GET("/ready", h.Ready)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		var body map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		return w.Code, body
	}

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	It("answers liveness without running checks", func() {
		code, body := serve(map[string]handler.CheckFunc{"postgres": down}, "/health")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body["status"]).To(Equal("ok"))
	})

	It("is ready when every check passes", func() {
		code, body := serve(map[string]handler.CheckFunc{"postgres": ok, "redis": ok}, "/ready")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body["checks"]).To(HaveKeyWithValue("redis", "ok"))
	})

	It("reports degraded with 503 when a check fails", func() {
		code, body := serve(map[string]handler.CheckFunc{"postgres": ok, "redis": down}, "/ready")
		Expect(code).To(Equal(http.StatusServiceUnavailable))
		Expect(body["status"]).To(Equal("degraded"))
		Expect(body["checks"]).To(And(
			HaveKeyWithValue("postgres", "ok"),
			HaveKeyWithValue("redis", "unavailable"),
		))
	})

	It("is ready with no checks configured", func() {
		code, _ := serve(nil, "/ready")
		Expect(code).To(Equal(http.StatusOK))
	})
})
