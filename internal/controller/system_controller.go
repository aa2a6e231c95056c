package controller

import (
	"strings"

	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/pkg/serverutils"
	"finagent-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const maxLogLimit = 500

type ISystemController interface {
	RegisterRoutes(r fiber.Router)
	Info(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	Logs(ctx *fiber.Ctx) error
}

type systemController struct {
	service service.IChatService
	logger  logger.ILogger
}

func NewSystemController(service service.IChatService, log logger.ILogger) ISystemController {
	return &systemController{service: service, logger: log}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Info)
	r.Get("/health", c.Health)
	r.Get("/logs", c.Logs)
}

func (c *systemController) Info(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get service info", c.service.Info(ctx.UserContext())))
}

func (c *systemController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get health", c.service.Health(ctx.UserContext())))
}

// Logs returns application log entries newest first. Query: level, limit (default 50), offset.
func (c *systemController) Logs(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)
	if limit <= 0 || limit > maxLogLimit {
		limit = maxLogLimit
	}
	offset := ctx.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := c.logger.GetLogs(strings.ToUpper(ctx.Query("level")), limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get logs", entries))
}
