package handler

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/service"
)

type BatchHandler struct {
	lifecycle LifecycleService
}

type batchResponse struct {
	domain.Batch
	Elapsed string `json:"elapsed,omitempty"`
}

type listBatchesResponse struct {
	Data []batchResponse `json:"data"`
	Meta batchListMeta   `json:"meta"`
}

type batchListMeta struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

type batchMutationResponse struct {
	Batch   batchResponse `json:"batch"`
	Warning string        `json:"warning,omitempty"`
}

// completeBatchRequest keeps the quantities raw because form inputs submit
// numbers, numeric strings and blanks alike.
type completeBatchRequest struct {
	ActualYield   json.RawMessage   `json:"actualYield"`
	ScrapQuantity json.RawMessage   `json:"scrapQuantity"`
	MaterialsUsed []domain.Material `json:"materialsUsed"`
}

type completeBatchResponse struct {
	Batch          batchResponse         `json:"batch"`
	CompletedBatch domain.CompletedBatch `json:"completedBatch"`
	Lot            domain.Lot            `json:"lot"`
	Warning        string                `json:"warning,omitempty"`
}

type updateBatchRequest struct {
	ProductName    *string            `json:"productName"`
	TargetQuantity *float64           `json:"targetQuantity"`
	Unit           *string            `json:"unit"`
	Materials      *[]domain.Material `json:"materials"`
	Operator       *string            `json:"operator"`

	Status    *string    `json:"status"`
	StartTime *time.Time `json:"startTime"`
	PauseTime *time.Time `json:"pauseTime"`
	EndTime   *time.Time `json:"endTime"`
}

func (h *BatchHandler) ListBatches(c *fiber.Ctx) error {
	filter, err := parseBatchFilter(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	batches := h.lifecycle.List(ctx, filter)

	counts := make(map[string]int)
	for status, n := range h.lifecycle.StatusCounts(ctx) {
		counts[status.String()] = n
	}

	return c.Status(fiber.StatusOK).JSON(listBatchesResponse{
		Data: h.toBatchResponses(batches),
		Meta: batchListMeta{Total: len(batches), Counts: counts},
	})
}

func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	b, err := h.lifecycle.Get(c.UserContext(), param(c, "id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(h.toBatchResponse(b))
}

func (h *BatchHandler) StartBatch(c *fiber.Ctx) error {
	b, err := h.lifecycle.Start(c.UserContext(), param(c, "id"), currentOperator(c))
	return h.mutationResult(c, b, err)
}

func (h *BatchHandler) PauseBatch(c *fiber.Ctx) error {
	b, err := h.lifecycle.Pause(c.UserContext(), param(c, "id"))
	return h.mutationResult(c, b, err)
}

func (h *BatchHandler) UpdateBatch(c *fiber.Ctx) error {
	var req updateBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	patch, err := req.toPatch()
	if err != nil {
		return err
	}

	b, err := h.lifecycle.Update(c.UserContext(), param(c, "id"), patch)
	return h.mutationResult(c, b, err)
}

func (h *BatchHandler) CompleteBatch(c *fiber.Ctx) error {
	var req completeBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.lifecycle.Complete(c.UserContext(), param(c, "id"), domain.CompletionPayload{
		ActualYield:   parseQuantity(req.ActualYield),
		ScrapQuantity: parseQuantity(req.ScrapQuantity),
		MaterialsUsed: req.MaterialsUsed,
		Operator:      currentOperator(c),
	})
	warning, err := splitWarning(err)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(completeBatchResponse{
		Batch:          h.toBatchResponse(result.Batch),
		CompletedBatch: result.CompletedBatch,
		Lot:            result.Lot,
		Warning:        warning,
	})
}

// parseQuantity reads a JSON number or numeric string. Anything else,
// including null and "", yields nil.
func parseQuantity(raw json.RawMessage) *float64 {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func (h *BatchHandler) mutationResult(c *fiber.Ctx, b domain.Batch, err error) error {
	warning, err := splitWarning(err)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(batchMutationResponse{
		Batch:   h.toBatchResponse(b),
		Warning: warning,
	})
}

func (h *BatchHandler) toBatchResponses(batches []domain.Batch) []batchResponse {
	out := make([]batchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, h.toBatchResponse(b))
	}
	return out
}

func (h *BatchHandler) toBatchResponse(b domain.Batch) batchResponse {
	if b.Materials == nil {
		b.Materials = []domain.Material{}
	}
	elapsed, _ := h.lifecycle.Elapsed(b)
	return batchResponse{Batch: b, Elapsed: elapsed}
}

func parseBatchFilter(c *fiber.Ctx) (service.BatchFilter, error) {
	var filter service.BatchFilter

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domain.ParseBatchStatusFromString(raw)
		if err != nil {
			return service.BatchFilter{}, err
		}
		filter.Status = &status
	}

	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return service.BatchFilter{}, fmt.Errorf("%w: active must be a boolean", domain.ErrValidation)
		}
		filter.ActiveOnly = active
	}

	return filter, nil
}

func (r updateBatchRequest) toPatch() (domain.BatchPatch, error) {
	patch := domain.BatchPatch{
		ProductName:    r.ProductName,
		TargetQuantity: r.TargetQuantity,
		Unit:           r.Unit,
		Materials:      r.Materials,
		Operator:       r.Operator,
		StartTime:      r.StartTime,
		PauseTime:      r.PauseTime,
		EndTime:        r.EndTime,
	}
	if r.Status != nil {
		status, err := domain.ParseBatchStatusFromString(*r.Status)
		if err != nil {
			return domain.BatchPatch{}, err
		}
		patch.Status = &status
	}
	return patch, nil
}
