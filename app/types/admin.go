package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type ManualVerifyPaymentRequest struct {
	PaymentID      uint64 `json:"payment_id"`
	RegistrationID uint64 `json:"registration_id"`
	TransactionID  string `json:"transaction_id"`
	Notes          string `json:"notes"`
}

// manualVerifyPaymentBody also accepts the camelCase keys the admin
// dashboard sends.
type manualVerifyPaymentBody struct {
	ManualVerifyPaymentRequest
	PaymentIDAlias      uint64 `json:"paymentId"`
	RegistrationIDAlias uint64 `json:"registrationId"`
	TransactionIDAlias  string `json:"transactionId"`
}

func NewManualVerifyPaymentRequestFromContext(ctx echo.Context) (*ManualVerifyPaymentRequest, error) {
	var body manualVerifyPaymentBody
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	req := body.ManualVerifyPaymentRequest
	if req.PaymentID == 0 {
		req.PaymentID = body.PaymentIDAlias
	}
	if req.RegistrationID == 0 {
		req.RegistrationID = body.RegistrationIDAlias
	}
	if req.TransactionID == "" {
		req.TransactionID = body.TransactionIDAlias
	}
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	req.Notes = strings.TrimSpace(req.Notes)
	return &req, nil
}

func (r *ManualVerifyPaymentRequest) Validate() error {
	if r.PaymentID == 0 {
		return errors.New("payment_id is required")
	}
	if r.RegistrationID == 0 {
		return errors.New("registration_id is required")
	}
	return nil
}

func (r *ManualVerifyPaymentRequest) GetPaymentID() uint64      { return r.PaymentID }
func (r *ManualVerifyPaymentRequest) GetRegistrationID() uint64 { return r.RegistrationID }
func (r *ManualVerifyPaymentRequest) GetTransactionID() string  { return r.TransactionID }
func (r *ManualVerifyPaymentRequest) GetNotes() string          { return r.Notes }

type ListPaymentsRequest struct {
	RegistrationID uint64
	Status         string
	Limit          int32
	Offset         int32
}

func NewListPaymentsRequestFromContext(ctx echo.Context) (*ListPaymentsRequest, error) {
	req := &ListPaymentsRequest{
		Status: strings.ToLower(strings.TrimSpace(ctx.QueryParam("status"))),
		Limit:  100,
		Offset: 0,
	}

	if raw := strings.TrimSpace(ctx.QueryParam("registration_id")); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		req.RegistrationID = id
	}
	if err := parsePage(ctx, &req.Limit, &req.Offset); err != nil {
		return nil, err
	}

	return req, nil
}

func (r *ListPaymentsRequest) Validate() error {
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	if r.Status != "" && r.Status != "pending" && r.Status != "verified" && r.Status != "rejected" {
		return errors.New("invalid status")
	}
	return nil
}

type ListMutationsRequest struct {
	Status string
	BankID string
	Limit  int32
	Offset int32
}

func NewListMutationsRequestFromContext(ctx echo.Context) (*ListMutationsRequest, error) {
	req := &ListMutationsRequest{
		Status: strings.ToLower(strings.TrimSpace(ctx.QueryParam("status"))),
		BankID: strings.TrimSpace(ctx.QueryParam("bank_id")),
		Limit:  100,
		Offset: 0,
	}
	if err := parsePage(ctx, &req.Limit, &req.Offset); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *ListMutationsRequest) Validate() error {
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	if r.Status != "" && r.Status != "unprocessed" && r.Status != "matched" && r.Status != "processed" {
		return errors.New("invalid status")
	}
	return nil
}

type ListPaymentEventsRequest struct {
	Limit  int32
	Offset int32
}

func NewListPaymentEventsRequestFromContext(ctx echo.Context) (*ListPaymentEventsRequest, error) {
	req := &ListPaymentEventsRequest{Limit: 100, Offset: 0}
	if err := parsePage(ctx, &req.Limit, &req.Offset); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *ListPaymentEventsRequest) Validate() error {
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

func parsePage(ctx echo.Context, limit, offset *int32) error {
	if raw := strings.TrimSpace(ctx.QueryParam("limit")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return err
		}
		*limit = int32(v)
	}
	if raw := strings.TrimSpace(ctx.QueryParam("offset")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return err
		}
		*offset = int32(v)
	}
	return nil
}
