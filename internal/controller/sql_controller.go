package controller

import (
	"errors"

	"finagent-be/internal/dto"
	"finagent-be/internal/pkg/serverutils"
	"finagent-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISQLController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
}

type sqlController struct {
	service service.IChatService
}

func NewSQLController(service service.IChatService) ISQLController {
	return &sqlController{service: service}
}

func (c *sqlController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sql")
	h.Post("/query", c.Query)
}

func (c *sqlController) Query(ctx *fiber.Ctx) error {
	var req dto.SQLQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.RunSQL(ctx.UserContext(), &req)
	if err != nil {
		if errors.Is(err, service.ErrSQLUnavailable) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success execute query", res))
}
