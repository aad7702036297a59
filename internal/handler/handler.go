package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/observability"
	"github.com/kursadbilgin/batch-trace/internal/service"
	"github.com/kursadbilgin/batch-trace/internal/trace"
)

const operatorLocal = "operator"

type LifecycleService interface {
	List(ctx context.Context, filter service.BatchFilter) []domain.Batch
	Get(ctx context.Context, id string) (domain.Batch, error)
	Start(ctx context.Context, id string, operator string) (domain.Batch, error)
	Pause(ctx context.Context, id string) (domain.Batch, error)
	Complete(ctx context.Context, id string, payload domain.CompletionPayload) (service.CompletionResult, error)
	Update(ctx context.Context, id string, patch domain.BatchPatch) (domain.Batch, error)
	Elapsed(b domain.Batch) (string, bool)
	StatusCounts(ctx context.Context) map[domain.BatchStatus]int
}

type LotService interface {
	ListLots(ctx context.Context) []domain.Lot
	GetLot(ctx context.Context, lotNumber string) (domain.Lot, error)
	ListCompletedBatches(ctx context.Context) []domain.CompletedBatch
}

type TraceService interface {
	Graph(ctx context.Context, lotNumber string) (trace.Graph, error)
}

type OperatorService interface {
	Operators() []string
	Current() (string, bool)
	Login(ctx context.Context, name string) (string, error)
	Logout(ctx context.Context) error
}

// Services groups the dependencies of the dashboard routes.
type Services struct {
	Lifecycle LifecycleService
	Lots      LotService
	Trace     TraceService
	Operators OperatorService
}

func (s Services) validate() error {
	switch {
	case s.Lifecycle == nil:
		return fmt.Errorf("lifecycle service is required")
	case s.Lots == nil:
		return fmt.Errorf("lot service is required")
	case s.Trace == nil:
		return fmt.Errorf("trace service is required")
	case s.Operators == nil:
		return fmt.Errorf("operator service is required")
	}
	return nil
}

// RegisterRoutes mounts the session routes and, behind the operator gate, the
// batch and lot routes under /v1.
func RegisterRoutes(router fiber.Router, services Services) error {
	if err := services.validate(); err != nil {
		return err
	}

	sessions := &SessionHandler{operators: services.Operators}
	batches := &BatchHandler{lifecycle: services.Lifecycle}
	lots := &LotHandler{lots: services.Lots, tracer: services.Trace}

	v1 := router.Group("/v1")
	v1.Get("/operators", sessions.ListOperators)
	v1.Get("/session", sessions.GetSession)
	v1.Post("/session", sessions.Login)
	v1.Delete("/session", sessions.Logout)

	gate := RequireOperator(services.Operators)
	v1.Get("/batches", gate, batches.ListBatches)
	v1.Get("/batches/:id", gate, batches.GetBatch)
	v1.Patch("/batches/:id", gate, batches.UpdateBatch)
	v1.Post("/batches/:id/start", gate, batches.StartBatch)
	v1.Post("/batches/:id/pause", gate, batches.PauseBatch)
	v1.Post("/batches/:id/complete", gate, batches.CompleteBatch)
	v1.Get("/completed-batches", gate, lots.ListCompletedBatches)
	v1.Get("/lots", gate, lots.ListLots)
	v1.Get("/lots/:lot", gate, lots.GetLot)
	v1.Get("/lots/:lot/graph", gate, lots.GetGraph)

	return nil
}

// RequireOperator redirects to the operator list until someone signs in.
func RequireOperator(operators OperatorService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, ok := operators.Current()
		if !ok {
			return c.Redirect("/v1/operators", fiber.StatusSeeOther)
		}

		c.Locals(operatorLocal, current)
		c.SetUserContext(observability.WithOperator(c.UserContext(), current))
		return c.Next()
	}
}

func currentOperator(c *fiber.Ctx) string {
	if value, ok := c.Locals(operatorLocal).(string); ok {
		return value
	}
	return ""
}

// splitWarning separates a persistence warning, which still yields a 2xx
// response, from a real failure.
func splitWarning(err error) (warning string, failure error) {
	if err == nil {
		return "", nil
	}
	if errors.Is(err, domain.ErrPersistence) {
		return err.Error(), nil
	}
	return "", err
}

func param(c *fiber.Ctx, name string) string {
	return strings.TrimSpace(c.Params(name))
}
