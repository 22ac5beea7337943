package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mcvu-symposium/ms-go-registration/app/factory"
	"github.com/mcvu-symposium/ms-go-registration/app/mapper"
	"github.com/mcvu-symposium/ms-go-registration/app/service"
	"github.com/mcvu-symposium/ms-go-registration/app/types"
	"github.com/sirupsen/logrus"
)

type RegistrationController struct {
	registrationService *service.RegistrationService
	logger              logrus.FieldLogger
}

func NewRegistrationController(registrationService *service.RegistrationService) *RegistrationController {
	return &RegistrationController{
		registrationService: registrationService,
		logger:              factory.NewModuleLogger("registration-controller"),
	}
}

func (c *RegistrationController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *RegistrationController) CreateRegistration(ctx echo.Context) error {
	req, err := types.NewCreateRegistrationRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.registrationService.CreateRegistration(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		c.logger.WithError(err).Error("Create registration failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	_, participants, err := c.registrationService.GetRegistration(ctx.Request().Context(), item.ID)
	if err != nil {
		c.logger.WithError(err).Error("Load participants after create failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusCreated, &types.RegistrationEnvelopeResponse{
		Registration: mapper.RegistrationToResponse(item),
		Participants: mapper.ParticipantsToResponse(participants),
	})
}

func (c *RegistrationController) GetRegistration(ctx echo.Context) error {
	req, err := types.NewGetRegistrationRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, participants, err := c.registrationService.GetRegistration(ctx.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrRegistrationNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "registration not found")
		}
		c.logger.WithError(err).Error("Get registration failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.RegistrationEnvelopeResponse{
		Registration: mapper.RegistrationToResponse(item),
		Participants: mapper.ParticipantsToResponse(participants),
	})
}

func (c *RegistrationController) LookupRegistration(ctx echo.Context) error {
	req, err := types.NewLookupRegistrationRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.registrationService.ResolveRegistration(ctx.Request().Context(), req.Query)
	if err != nil {
		if errors.Is(err, service.ErrRegistrationNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "registration not found")
		}
		c.logger.WithError(err).Error("Lookup registration failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.LookupRegistrationResponse{
		Registration: mapper.RegistrationToResponse(result.Registration),
		Strategy:     result.Strategy,
	})
}

func (c *RegistrationController) CheckIn(ctx echo.Context) error {
	req, err := types.NewCheckInRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	participant, registration, err := c.registrationService.CheckIn(ctx.Request().Context(), req.QRToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrParticipantNotFound):
			return c.writeError(ctx, http.StatusNotFound, "participant not found")
		case errors.Is(err, service.ErrRegistrationNotPaid):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			c.logger.WithError(err).Error("Check-in failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.CheckInResponse{
		Participant:  mapper.ParticipantToResponse(participant),
		Registration: mapper.RegistrationToResponse(registration),
	})
}

func (c *RegistrationController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
