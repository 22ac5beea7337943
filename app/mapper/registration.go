package mapper

import (
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
	"github.com/mcvu-symposium/ms-go-registration/app/types"
)

func RegistrationToResponse(item *entity.Registration) *types.Registration {
	if item == nil {
		return nil
	}

	return &types.Registration{
		ID:                 item.ID,
		RegistrationNumber: item.RegistrationNumber,
		TicketType:         item.TicketType,
		TotalAmount:        item.TotalAmount,
		DiscountAmount:     item.DiscountAmount,
		FinalAmount:        item.FinalAmount,
		Status:             item.Status,
		CreatedAt:          item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func ParticipantToResponse(item *entity.Participant) *types.Participant {
	if item == nil {
		return nil
	}

	return &types.Participant{
		ID:          item.ID,
		FullName:    item.FullName,
		Email:       item.Email,
		Phone:       item.Phone,
		QRToken:     item.QRToken,
		CheckedInAt: formatOptionalTime(item.CheckedInAt),
	}
}

func ParticipantsToResponse(items []*entity.Participant) []*types.Participant {
	result := make([]*types.Participant, 0, len(items))
	for _, item := range items {
		result = append(result, ParticipantToResponse(item))
	}
	return result
}

func PaymentToResponse(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		ID:             item.ID,
		RegistrationID: item.RegistrationID,
		Amount:         item.Amount,
		Status:         item.Status,
		CheckAttempts:  item.CheckAttempts,
		LastCheckedAt:  formatOptionalTime(item.LastCheckedAt),
		TransactionID:  derefString(item.TransactionID),
		VerifiedBy:     derefString(item.VerifiedBy),
		Notes:          derefString(item.Notes),
		CreatedAt:      item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentsToResponse(items []*entity.Payment) []*types.Payment {
	result := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToResponse(item))
	}
	return result
}

func MutationToResponse(item *entity.TransactionMutation) *types.TransactionMutation {
	if item == nil {
		return nil
	}

	return &types.TransactionMutation{
		ID:           item.ID,
		MutationID:   item.MutationID,
		BankID:       item.BankID,
		Amount:       item.Amount,
		Description:  item.Description,
		Type:         item.Type,
		MutationDate: item.MutationDate.UTC().Format(time.RFC3339),
		Status:       item.Status,
		CreatedAt:    item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func MutationsToResponse(items []*entity.TransactionMutation) []*types.TransactionMutation {
	result := make([]*types.TransactionMutation, 0, len(items))
	for _, item := range items {
		result = append(result, MutationToResponse(item))
	}
	return result
}

func PaymentEventToResponse(item *entity.PaymentEvent) *types.PaymentEvent {
	if item == nil {
		return nil
	}

	return &types.PaymentEvent{
		ID:         item.ID,
		PaymentID:  item.PaymentID,
		EventType:  item.EventType,
		OldStatus:  derefString(item.OldStatus),
		NewStatus:  item.NewStatus,
		MutationID: derefString(item.MutationID),
		CreatedAt:  item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentEventsToResponse(items []*entity.PaymentEvent) []*types.PaymentEvent {
	result := make([]*types.PaymentEvent, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentEventToResponse(item))
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatOptionalTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
