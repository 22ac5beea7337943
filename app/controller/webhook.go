package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mcvu-symposium/ms-go-registration/app/factory"
	"github.com/mcvu-symposium/ms-go-registration/app/service"
	"github.com/mcvu-symposium/ms-go-registration/app/types"
	"github.com/sirupsen/logrus"
)

type WebhookController struct {
	registrationService *service.RegistrationService
	logger              logrus.FieldLogger
}

func NewWebhookController(registrationService *service.RegistrationService) *WebhookController {
	return &WebhookController{
		registrationService: registrationService,
		logger:              factory.NewModuleLogger("webhook-controller"),
	}
}

func (c *WebhookController) HandleMootaWebhook(ctx echo.Context) error {
	req, err := types.NewBankWebhookRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.registrationService.HandleBankWebhook(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookRejected):
			return c.writeError(ctx, http.StatusUnauthorized, "webhook rejected")
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Handle bank webhook failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{
		Received: result.Received,
		Stored:   result.Stored,
		Matched:  result.Matched,
	})
}

func (c *WebhookController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
