package rest

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("RegisterAllRoutes", func() {
	var (
		logs   *bytes.Buffer
		router *chi.Mux
	)

	ginkgo.BeforeEach(func() {
		logs = &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logs, nil))

		router = chi.NewRouter()
		RegisterAllRoutes(router, nil, nil, nil, nil, nil, logger)
	})

	ginkgo.It("should tag responses with a request id", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Header().Get("X-Request-Id")).ToNot(gomega.BeEmpty())
	})

	ginkgo.It("should log every request through the logging middleware", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("X-Request-Id", "req-ping-1")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		out := logs.String()
		gomega.Expect(out).To(gomega.ContainSubstring("incoming request"))
		gomega.Expect(out).To(gomega.ContainSubstring("req-ping-1"))
	})
})
