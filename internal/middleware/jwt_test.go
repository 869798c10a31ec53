package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/middleware"
	"github.com/arturoeanton/helpdesk-rag/pkg/logger"
)

var _ = Describe("JWT", func() {
	cfg := middleware.JWTConfig{Secret: "s3cret", Issuer: "helpdesk", ExpiresIn: time.Hour}

	Describe("IssueToken and ParseToken", func() {
		It("round-trips the identity", func() {
			token, err := middleware.IssueToken(domain.UserContext{UserID: "u1", Email: "a@b.c", Role: domain.RoleAdmin}, cfg)
			Expect(err).NotTo(HaveOccurred())

			claims, err := middleware.ParseToken(token, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Subject).To(Equal("u1"))
			Expect(claims.Email).To(Equal("a@b.c"))
			Expect(claims.Role).To(Equal(domain.RoleAdmin))
		})

		It("defaults the role to user", func() {
			token, err := middleware.IssueToken(domain.UserContext{UserID: "u1"}, cfg)
			Expect(err).NotTo(HaveOccurred())

			claims, err := middleware.ParseToken(token, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Role).To(Equal(domain.RoleUser))
		})

		It("rejects bad format, signature, expiry and issuer", func() {
			token, err := middleware.IssueToken(domain.UserContext{UserID: "u1"}, cfg)
			Expect(err).NotTo(HaveOccurred())

			_, err = middleware.ParseToken("a.b", cfg)
			Expect(err).To(MatchError(middleware.ErrTokenFormat))

			_, err = middleware.ParseToken(token, middleware.JWTConfig{Secret: "other", Issuer: cfg.Issuer})
			Expect(err).To(MatchError(middleware.ErrTokenSignature))

			_, err = middleware.ParseToken(token, middleware.JWTConfig{Secret: cfg.Secret, Issuer: "someone-else"})
			Expect(err).To(MatchError(middleware.ErrTokenIssuer))

			expired, err := middleware.IssueToken(domain.UserContext{UserID: "u1"}, middleware.JWTConfig{Secret: cfg.Secret, Issuer: cfg.Issuer, ExpiresIn: -time.Minute})
			Expect(err).NotTo(HaveOccurred())
			_, err = middleware.ParseToken(expired, cfg)
			Expect(err).To(MatchError(middleware.ErrTokenExpired))
		})
	})

	Describe("Authenticate and RequireRole", func() {
		var app *fiber.App

		BeforeEach(func() {
			app = fiber.New()
			api := app.Group("/api", middleware.Authenticate(cfg))
			api.Get("/me", func(c fiber.Ctx) error {
				return c.JSON(middleware.GetUserContext(c))
			})
			api.Get("/admin", middleware.RequireRole(domain.RoleAdmin), func(c fiber.Ctx) error {
				return c.SendStatus(fiber.StatusNoContent)
			})
		})

		get := func(path, role string) *http.Response {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if role != "" {
				token, err := middleware.IssueToken(domain.UserContext{UserID: "u1", Role: role}, cfg)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Bearer "+token)
			}
			resp, err := app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("rejects requests without a bearer token", func() {
			Expect(get("/api/me", "").StatusCode).To(Equal(fiber.StatusUnauthorized))
		})

		It("injects the user", func() {
			resp := get("/api/me", domain.RoleUser)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})

		It("lets admins through and forbids everyone else", func() {
			Expect(get("/api/admin", domain.RoleAdmin).StatusCode).To(Equal(fiber.StatusNoContent))
			Expect(get("/api/admin", domain.RoleUser).StatusCode).To(Equal(fiber.StatusForbidden))
		})
	})
})

var _ = Describe("AccessLog", func() {
	It("logs every request with its status", func() {
		var buf bytes.Buffer
		app := fiber.New()
		app.Use(middleware.AccessLog(logger.New(logger.WithFormat(logger.FormatJSON), logger.WithWriters(&buf))))
		app.Get("/ping", func(c fiber.Ctx) error { return c.SendString("pong") })

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(buf.String()).To(ContainSubstring(`"path":"/ping"`))
		Expect(buf.String()).To(ContainSubstring(`"status":200`))
	})
})
