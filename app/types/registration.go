package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mcvu-symposium/ms-go-registration/app/service"
)

func parseID(raw string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
}

type ParticipantPayload struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type CreateRegistrationRequest struct {
	TicketType     string               `json:"ticket_type"`
	TotalAmount    int64                `json:"total_amount"`
	DiscountAmount int64                `json:"discount_amount"`
	Participants   []ParticipantPayload `json:"participants"`
}

func NewCreateRegistrationRequestFromContext(ctx echo.Context) (*CreateRegistrationRequest, error) {
	var body CreateRegistrationRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.TicketType = strings.ToLower(strings.TrimSpace(body.TicketType))
	for i := range body.Participants {
		body.Participants[i].FullName = strings.TrimSpace(body.Participants[i].FullName)
		body.Participants[i].Email = strings.ToLower(strings.TrimSpace(body.Participants[i].Email))
		body.Participants[i].Phone = strings.TrimSpace(body.Participants[i].Phone)
	}

	return &body, nil
}

func (r *CreateRegistrationRequest) Validate() error {
	if strings.TrimSpace(r.TicketType) == "" {
		return errors.New("ticket_type is required")
	}
	if r.TotalAmount <= 0 {
		return errors.New("total_amount must be > 0")
	}
	if r.DiscountAmount < 0 {
		return errors.New("discount_amount must be >= 0")
	}
	if r.DiscountAmount >= r.TotalAmount {
		return errors.New("discount_amount must be less than total_amount")
	}
	if len(r.Participants) == 0 {
		return errors.New("at least one participant is required")
	}
	if len(r.Participants) > 50 {
		return errors.New("too many participants")
	}
	for _, p := range r.Participants {
		if strings.TrimSpace(p.FullName) == "" {
			return errors.New("participant full_name is required")
		}
		email := strings.TrimSpace(p.Email)
		if email == "" || !strings.Contains(email, "@") {
			return errors.New("participant email is invalid")
		}
	}
	return nil
}

func (r *CreateRegistrationRequest) GetTicketType() string    { return r.TicketType }
func (r *CreateRegistrationRequest) GetTotalAmount() int64    { return r.TotalAmount }
func (r *CreateRegistrationRequest) GetDiscountAmount() int64 { return r.DiscountAmount }

func (r *CreateRegistrationRequest) GetParticipants() []service.ParticipantInput {
	inputs := make([]service.ParticipantInput, 0, len(r.Participants))
	for _, p := range r.Participants {
		inputs = append(inputs, service.ParticipantInput{
			FullName: p.FullName,
			Email:    p.Email,
			Phone:    p.Phone,
		})
	}
	return inputs
}

type GetRegistrationRequest struct {
	ID uint64
}

func NewGetRegistrationRequestFromContext(ctx echo.Context) (*GetRegistrationRequest, error) {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return nil, err
	}
	return &GetRegistrationRequest{ID: id}, nil
}

func (r *GetRegistrationRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid registration id")
	}
	return nil
}

type LookupRegistrationRequest struct {
	Query string
}

func NewLookupRegistrationRequestFromContext(ctx echo.Context) (*LookupRegistrationRequest, error) {
	return &LookupRegistrationRequest{Query: strings.TrimSpace(ctx.QueryParam("q"))}, nil
}

func (r *LookupRegistrationRequest) Validate() error {
	if r.Query == "" {
		return errors.New("q is required")
	}
	return nil
}

type CheckInRequest struct {
	QRToken string `json:"qr_token"`
}

func NewCheckInRequestFromContext(ctx echo.Context) (*CheckInRequest, error) {
	var body CheckInRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.QRToken = strings.TrimSpace(body.QRToken)
	if body.QRToken == "" {
		body.QRToken = strings.TrimSpace(ctx.Param("token"))
	}
	return &body, nil
}

func (r *CheckInRequest) Validate() error {
	if r.QRToken == "" {
		return errors.New("qr_token is required")
	}
	return nil
}
