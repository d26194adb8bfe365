package handler

import (
	"context"
	"errors"
	"time"

	"backend-tiket/internal/helper"
	"backend-tiket/internal/models"
	"backend-tiket/internal/queue"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// Queue is the coordinator surface the HTTP layer needs.
type Queue interface {
	Issue(ctx context.Context, branchID string) (models.Ticket, error)
	CallNext(ctx context.Context, branchID string) (models.Ticket, bool, error)
	Recall(t models.Ticket)
	LastCalled(branchID string) (models.Ticket, bool)
	Status(ctx context.Context, branchID string) (models.BranchStatus, error)
}

type TicketHandler struct {
	queue  Queue
	hours  *helper.Hours
	now    func() time.Time
	logger *zap.Logger
}

// NewTicketHandler builds the ticket endpoints. hours may be nil for a
// branch that never closes.
func NewTicketHandler(q Queue, hours *helper.Hours, logger *zap.Logger) *TicketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketHandler{queue: q, hours: hours, now: time.Now, logger: logger}
}

// branchParam copies the path param. Fiber params point into a pooled
// request buffer, and branch ids outlive the request as map keys and
// inside buffered events.
func branchParam(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("branchId"))
}

// Issue - ambil nomor antrian baru
func (h *TicketHandler) Issue(c *fiber.Ctx) error {
	branchID := branchParam(c)

	if h.hours != nil && !h.hours.IsOpen(h.now()) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "Queue is closed",
		})
	}

	ticket, err := h.queue.Issue(c.UserContext(), branchID)
	if err != nil {
		return h.queueError(c, "issue", branchID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    ticket,
	})
}

// CallNext - panggil antrian berikutnya
func (h *TicketHandler) CallNext(c *fiber.Ctx) error {
	branchID := branchParam(c)

	ticket, ok, err := h.queue.CallNext(c.UserContext(), branchID)
	if err != nil {
		return h.queueError(c, "call-next", branchID, err)
	}

	if !ok {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Nothing to call",
			"data":    nil,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    ticket,
	})
}

// Recall re-announces a ticket. Without a body it re-announces the last
// ticket called on this branch. A supplied ticket is trusted as-is.
func (h *TicketHandler) Recall(c *fiber.Ctx) error {
	branchID := branchParam(c)
	if err := queue.ValidateBranch(branchID); err != nil {
		return h.queueError(c, "recall", branchID, err)
	}

	var ticket models.Ticket
	if len(c.Body()) == 0 {
		last, ok := h.queue.LastCalled(branchID)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "No ticket has been called yet",
			})
		}
		ticket = last
	} else {
		if err := c.BodyParser(&ticket); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid request body",
			})
		}
		if ticket.BranchID == "" {
			ticket.BranchID = branchID
		}
		if ticket.BranchID != branchID {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "branchId does not match path",
			})
		}
	}

	h.queue.Recall(ticket)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data":    ticket,
	})
}

func (h *TicketHandler) Status(c *fiber.Ctx) error {
	branchID := branchParam(c)

	st, err := h.queue.Status(c.UserContext(), branchID)
	if err != nil {
		return h.queueError(c, "status", branchID, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    st,
	})
}

func (h *TicketHandler) queueError(c *fiber.Ctx, op, branchID string, err error) error {
	switch {
	case errors.Is(err, queue.ErrInvalidBranch):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid branch id",
		})
	case errors.Is(err, queue.ErrStoreUnavailable):
		h.logger.Error("store unavailable",
			zap.String("op", op),
			zap.String("branch", branchID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "Queue store unavailable, try again",
		})
	}

	h.logger.Error("queue operation failed",
		zap.String("op", op),
		zap.String("branch", branchID),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "Internal error",
	})
}
