package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mcvu-symposium/ms-go-registration/app/factory"
	"github.com/mcvu-symposium/ms-go-registration/app/mapper"
	"github.com/mcvu-symposium/ms-go-registration/app/repository"
	"github.com/mcvu-symposium/ms-go-registration/app/service"
	"github.com/mcvu-symposium/ms-go-registration/app/types"
	"github.com/sirupsen/logrus"
)

type AdminController struct {
	registrationService *service.RegistrationService
	logger              logrus.FieldLogger
}

func NewAdminController(registrationService *service.RegistrationService) *AdminController {
	return &AdminController{
		registrationService: registrationService,
		logger:              factory.NewModuleLogger("admin-controller"),
	}
}

func (c *AdminController) ManualVerifyPayment(ctx echo.Context) error {
	req, err := types.NewManualVerifyPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.registrationService.ManualVerifyPayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrRegistrationNotFound):
			return c.writeError(ctx, http.StatusNotFound, "registration not found")
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Manual verify payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.RegistrationEnvelopeResponse{
		Registration: mapper.RegistrationToResponse(item),
	})
}

func (c *AdminController) ListPayments(ctx echo.Context) error {
	req, err := types.NewListPaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.registrationService.ListPayments(ctx.Request().Context(), repository.PaymentFilter{
		RegistrationID: req.RegistrationID,
		Status:         req.Status,
		Limit:          req.Limit,
		Offset:         req.Offset,
	})
	if err != nil {
		c.logger.WithError(err).Error("List payments failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToResponse(items)})
}

func (c *AdminController) ListMutations(ctx echo.Context) error {
	req, err := types.NewListMutationsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.registrationService.ListMutations(ctx.Request().Context(), repository.MutationFilter{
		Status: req.Status,
		BankID: req.BankID,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		c.logger.WithError(err).Error("List mutations failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListMutationsResponse{Mutations: mapper.MutationsToResponse(items)})
}

func (c *AdminController) ListPaymentEvents(ctx echo.Context) error {
	req, err := types.NewListPaymentEventsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.registrationService.ListPaymentEvents(ctx.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		c.logger.WithError(err).Error("List payment events failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentEventsResponse{Events: mapper.PaymentEventsToResponse(items)})
}

func (c *AdminController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
