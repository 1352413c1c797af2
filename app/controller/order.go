package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-orders/app/factory"
	"github.com/vibast-solutions/ms-go-orders/app/mapper"
	"github.com/vibast-solutions/ms-go-orders/app/service"
	"github.com/vibast-solutions/ms-go-orders/app/types"
)

type OrderController struct {
	orderService *service.OrderService
	logger       logrus.FieldLogger
}

func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
		logger:       factory.NewModuleLogger("orders-controller"),
	}
}

func (c *OrderController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *OrderController) ProcessOrder(ctx echo.Context) error {
	req, err := types.NewProcessOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	pair, err := c.orderService.ProcessOrderByID(ctx.Request().Context(), req.OrderID, req.UserID, req.UserEmail)
	if err != nil {
		var gatewayErr *service.GatewayError
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrOrderAlreadyProcessed):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrHostAccountMissing),
			errors.Is(err, service.ErrPaymentMethodMissing),
			errors.Is(err, service.ErrCollectiveNotFound):
			return c.writeError(ctx, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &gatewayErr):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Gateway call failed")
			return c.writeError(ctx, http.StatusBadGateway, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Process order failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, mapper.TransactionPairToResponse(pair))
}

func (c *OrderController) writeError(ctx echo.Context, status int, message string) error {
	return ctx.JSON(status, &types.ErrorResponse{Error: message})
}
