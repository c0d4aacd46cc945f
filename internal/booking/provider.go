package booking

import (
	"context"
	"strings"

	dErrors "nbtbook/pkg/domain-errors"
)

// Provider verifies a payment reference before it is recorded against a
// booking. Implementations wrap whichever payment gateway the deployment
// uses; tests and manual (EFT) flows use ManualProvider.
type Provider interface {
	Name() string
	Verify(ctx context.Context, reference string, amountCents int64) error
}

// ManualProvider accepts any non-empty reference. It backs the
// operator-entered EFT flow where the money was confirmed out of band.
type ManualProvider struct{}

func (ManualProvider) Name() string { return "manual" }

func (ManualProvider) Verify(_ context.Context, reference string, _ int64) error {
	if strings.TrimSpace(reference) == "" {
		return dErrors.New(dErrors.CodeValidation, "payment reference cannot be empty")
	}
	return nil
}
