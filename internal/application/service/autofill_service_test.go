package service

import (
	"context"
	"errors"
	"testing"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
)

type mockExtractor struct {
	extractFunc func(ctx context.Context, data []byte, filename string) (*port.PartialExpenseFields, error)
}

func (m *mockExtractor) Extract(ctx context.Context, data []byte, filename string) (*port.PartialExpenseFields, error) {
	if m.extractFunc != nil {
		return m.extractFunc(ctx, data, filename)
	}
	return &port.PartialExpenseFields{}, nil
}

func TestAutofillService_Suggest(t *testing.T) {
	amount := 42.5
	extractor := &mockExtractor{
		extractFunc: func(ctx context.Context, data []byte, filename string) (*port.PartialExpenseFields, error) {
			return &port.PartialExpenseFields{Amount: &amount}, nil
		},
	}
	svc := NewAutofillService(extractor, &mockLogger{})

	fields, err := svc.Suggest(context.Background(), []byte("receipt"), "receipt.jpg")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if fields.Amount == nil || *fields.Amount != 42.5 {
		t.Errorf("fields = %+v, want amount 42.5", fields)
	}
}

func TestAutofillService_Suggest_DegradesOnFailure(t *testing.T) {
	extractor := &mockExtractor{
		extractFunc: func(ctx context.Context, data []byte, filename string) (*port.PartialExpenseFields, error) {
			return nil, errors.New("vision model unavailable")
		},
	}
	svc := NewAutofillService(extractor, &mockLogger{})

	fields, err := svc.Suggest(context.Background(), []byte("receipt"), "receipt.pdf")
	if err != nil {
		t.Fatalf("Suggest() error = %v, want graceful degradation", err)
	}
	if fields == nil || fields.Amount != nil || fields.Date != nil {
		t.Errorf("fields = %+v, want empty suggestions", fields)
	}
}

func TestAutofillService_Suggest_EmptyUpload(t *testing.T) {
	svc := NewAutofillService(&mockExtractor{}, &mockLogger{})
	_, err := svc.Suggest(context.Background(), nil, "receipt.jpg")
	if !errors.Is(err, approval.ErrValidation) {
		t.Fatalf("Suggest() error = %v, want ErrValidation", err)
	}
}

func TestAutofillService_Suggest_NoExtractorConfigured(t *testing.T) {
	svc := NewAutofillService(nil, &mockLogger{})
	fields, err := svc.Suggest(context.Background(), []byte("receipt"), "receipt.jpg")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if fields == nil {
		t.Fatal("fields = nil, want empty suggestions")
	}
}
