package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/batch-trace/internal/domain"
)

type LotHandler struct {
	lots   LotService
	tracer TraceService
}

type listLotsResponse struct {
	Data []domain.Lot `json:"data"`
	Meta listMeta     `json:"meta"`
}

type listCompletedBatchesResponse struct {
	Data []domain.CompletedBatch `json:"data"`
	Meta listMeta                `json:"meta"`
}

type listMeta struct {
	Total int `json:"total"`
}

func (h *LotHandler) ListLots(c *fiber.Ctx) error {
	lots := h.lots.ListLots(c.UserContext())
	return c.Status(fiber.StatusOK).JSON(listLotsResponse{
		Data: lots,
		Meta: listMeta{Total: len(lots)},
	})
}

func (h *LotHandler) GetLot(c *fiber.Ctx) error {
	lot, err := h.lots.GetLot(c.UserContext(), param(c, "lot"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(lot)
}

func (h *LotHandler) GetGraph(c *fiber.Ctx) error {
	graph, err := h.tracer.Graph(c.UserContext(), param(c, "lot"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(graph)
}

func (h *LotHandler) ListCompletedBatches(c *fiber.Ctx) error {
	completed := h.lots.ListCompletedBatches(c.UserContext())
	return c.Status(fiber.StatusOK).JSON(listCompletedBatchesResponse{
		Data: completed,
		Meta: listMeta{Total: len(completed)},
	})
}
