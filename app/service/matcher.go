package service

import (
	"strings"

	"github.com/mcvu-symposium/ms-go-registration/app/bank"
)

// DefaultAmountTolerance is the widest acceptable distance, in rupiah,
// between an incoming credit and the expected payment amount.
const DefaultAmountTolerance = int64(10000)

// MatchMutation scans fetched mutations in order and returns the first
// credit that either lands within tolerance of the expected amount or
// mentions the registration number in its description. Ties are not ranked;
// fetch order wins. A nil result means no match and is not an error.
func MatchMutation(mutations []bank.Mutation, expectedAmount int64, registrationNumber string, tolerance int64) *bank.Mutation {
	if tolerance <= 0 {
		tolerance = DefaultAmountTolerance
	}
	number := strings.ToLower(strings.TrimSpace(registrationNumber))

	for i := range mutations {
		mutation := &mutations[i]
		if mutation.Type != bank.MutationTypeCredit {
			continue
		}
		if absDiff(mutation.Amount, expectedAmount) < tolerance {
			return mutation
		}
		if number != "" && strings.Contains(strings.ToLower(mutation.Description), number) {
			return mutation
		}
	}

	return nil
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
