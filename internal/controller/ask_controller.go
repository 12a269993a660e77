package controller

import (
	"fmt"
	"time"

	"trek-assistant-be/internal/dto"
	"trek-assistant-be/internal/pkg/serverutils"
	"trek-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAskController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type askController struct {
	askService service.IAskService
}

func NewAskController(askService service.IAskService) IAskController {
	return &askController{
		askService: askService,
	}
}

func (c *askController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)

	api := r.Group("/api")
	api.Get("/health", c.Health)
	api.Post("/ask", c.Ask)
}

func (c *askController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (c *askController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	logs := []string{}
	logLine := func(msg string) {
		logs = append(logs, fmt.Sprintf("%s %s", time.Now().UTC().Format(time.RFC3339), msg))
	}

	if cached, ok := c.askService.CachedAnswer(req.Question); ok {
		logLine("Returning cached answer.")
		return ctx.JSON(dto.AskEnvelope{OK: true, Data: cached, Logs: logs})
	}

	res := c.askService.Ask(ctx.Context(), req.Question, logLine)
	return ctx.JSON(dto.AskEnvelope{OK: true, Data: res, Logs: logs})
}
