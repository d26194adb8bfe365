package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func Routes(app *fiber.App, tickets *TicketHandler, feed *FeedHandler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Ticket queue API running",
		})
	})

	api := app.Group("/api/tickets")
	api.Post("/:branchId", tickets.Issue)
	api.Get("/:branchId", tickets.Status)
	api.Post("/:branchId/next", tickets.CallNext)
	api.Post("/:branchId/recall", tickets.Recall)

	app.Get("/ws/queue", feed.Upgrade, websocket.New(feed.Serve))
}
