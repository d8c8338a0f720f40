package service

import (
	"context"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
)

// maxReceiptSize caps uploads at 10 MB, matching the extractor's practical
// input limit.
const maxReceiptSize = 10 << 20

// AutofillService turns a receipt upload into suggested claim fields. The
// output is advisory: nothing is written until the user accepts the values
// into a draft, and extraction failures degrade to empty suggestions rather
// than failing the upload.
type AutofillService interface {
	Suggest(ctx context.Context, data []byte, filename string) (*port.PartialExpenseFields, error)
}

type autofillServiceImpl struct {
	extractor port.DocumentExtractor
	logger    Logger
}

// NewAutofillService creates a new AutofillService
func NewAutofillService(extractor port.DocumentExtractor, logger Logger) AutofillService {
	return &autofillServiceImpl{
		extractor: extractor,
		logger:    logger,
	}
}

// Suggest extracts expense fields from a receipt image or PDF
func (s *autofillServiceImpl) Suggest(ctx context.Context, data []byte, filename string) (*port.PartialExpenseFields, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty receipt upload", approval.ErrValidation)
	}
	if len(data) > maxReceiptSize {
		return nil, fmt.Errorf("%w: receipt exceeds %d bytes", approval.ErrValidation, maxReceiptSize)
	}

	if s.extractor == nil {
		return &port.PartialExpenseFields{}, nil
	}

	fields, err := s.extractor.Extract(ctx, data, filename)
	if err != nil {
		s.logger.Warn("Receipt extraction failed, returning empty suggestions", "filename", filename, "error", err)
		return &port.PartialExpenseFields{}, nil
	}
	if fields == nil {
		fields = &port.PartialExpenseFields{}
	}

	return fields, nil
}
