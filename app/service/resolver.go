package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

// ResolveResult carries the resolved registration together with the name of
// the lookup strategy that produced it.
type ResolveResult struct {
	Registration *entity.Registration
	Strategy     string
}

type resolveStrategy struct {
	name string
	run  func(ctx context.Context, query string) (*entity.Registration, error)
}

// ResolveRegistration tries an ordered list of named lookup strategies and
// returns the first hit. One resolver replaces the per-endpoint fallback
// chains that grew around inconsistent identifiers in the old system.
func (s *RegistrationService) ResolveRegistration(ctx context.Context, query string) (*ResolveResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidRequest
	}

	for _, strategy := range s.resolveStrategies() {
		registration, err := strategy.run(ctx, query)
		if err != nil {
			return nil, err
		}
		if registration != nil {
			return &ResolveResult{Registration: registration, Strategy: strategy.name}, nil
		}
	}

	return nil, ErrRegistrationNotFound
}

// Number lookups run before the numeric-id fallback so zero-padded digits
// resolve to the registration number they were copied from, not to whatever
// row id they happen to parse as.
func (s *RegistrationService) resolveStrategies() []resolveStrategy {
	return []resolveStrategy{
		{
			name: "registration_number",
			run: func(ctx context.Context, query string) (*entity.Registration, error) {
				return s.registrationRepo.FindByNumber(ctx, query)
			},
		},
		{
			name: "registration_number_fold",
			run: func(ctx context.Context, query string) (*entity.Registration, error) {
				return s.registrationRepo.FindByNumberFold(ctx, query)
			},
		},
		{
			name: "registration_number_prefixed",
			run: func(ctx context.Context, query string) (*entity.Registration, error) {
				if strings.HasPrefix(strings.ToUpper(query), entity.RegistrationNumberPrefix) {
					return nil, nil
				}
				return s.registrationRepo.FindByNumberFold(ctx, entity.RegistrationNumberPrefix+query)
			},
		},
		{
			name: "registration_id",
			run: func(ctx context.Context, query string) (*entity.Registration, error) {
				id, err := strconv.ParseUint(query, 10, 64)
				if err != nil {
					return nil, nil
				}
				return s.registrationRepo.FindByID(ctx, id)
			},
		},
		{
			name: "payment_id",
			run: func(ctx context.Context, query string) (*entity.Registration, error) {
				id, err := strconv.ParseUint(query, 10, 64)
				if err != nil {
					return nil, nil
				}
				return s.registrationRepo.FindByPaymentID(ctx, id)
			},
		},
		{
			name: "participant_email",
			run: func(ctx context.Context, query string) (*entity.Registration, error) {
				if !strings.Contains(query, "@") {
					return nil, nil
				}
				return s.registrationRepo.FindByParticipantEmail(ctx, query)
			},
		},
	}
}
