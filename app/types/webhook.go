package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	HeaderWebhookSecret    = "x-webhook-secret"
	HeaderWebhookSignature = "x-moota-signature"
)

type BankWebhookRequest struct {
	Secret    string
	Signature string
	Payload   []byte
}

func NewBankWebhookRequestFromContext(ctx echo.Context) (*BankWebhookRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &BankWebhookRequest{
		Secret:    strings.TrimSpace(ctx.Request().Header.Get(HeaderWebhookSecret)),
		Signature: strings.TrimSpace(ctx.Request().Header.Get(HeaderWebhookSignature)),
		Payload:   rawBody,
	}, nil
}

func (r *BankWebhookRequest) Validate() error {
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	return nil
}

func (r *BankWebhookRequest) GetSecret() string    { return r.Secret }
func (r *BankWebhookRequest) GetSignature() string { return r.Signature }
func (r *BankWebhookRequest) GetPayload() []byte   { return r.Payload }
