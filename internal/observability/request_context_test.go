package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func TestRequestContextMiddleware(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Use(RequestContextMiddleware())
	app.Get("/echo", func(c *fiber.Ctx) error {
		id, _ := CorrelationIDFromContext(c.UserContext())
		return c.SendString(id)
	})

	testCases := []struct {
		name     string
		header   string
		generate bool
	}{
		{name: "propagates client id", header: "req-123"},
		{name: "generates id when absent", generate: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/echo", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderXRequestID, tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}

			got := resp.Header.Get(fiber.HeaderXRequestID)
			if tc.generate {
				if _, err := uuid.Parse(got); err != nil {
					t.Fatalf("X-Request-ID=%q, want generated uuid", got)
				}
				return
			}
			if got != tc.header {
				t.Fatalf("X-Request-ID=%q, want=%q", got, tc.header)
			}
		})
	}
}
