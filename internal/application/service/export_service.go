package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/xuri/excelize/v2"
)

// exportPageSize bounds each repository page while streaming claims into the
// workbook.
const exportPageSize = 500

// ExportService writes a company's claims to an Excel workbook for finance
// teams. Approver roles only.
type ExportService interface {
	ExportClaims(ctx context.Context, principal port.Principal) ([]byte, string, error)
}

type exportServiceImpl struct {
	claimRepo   port.ClaimRepository
	companyRepo port.CompanyRepository
	logger      Logger
}

// NewExportService creates a new ExportService
func NewExportService(claimRepo port.ClaimRepository, companyRepo port.CompanyRepository, logger Logger) ExportService {
	return &exportServiceImpl{
		claimRepo:   claimRepo,
		companyRepo: companyRepo,
		logger:      logger,
	}
}

// ExportClaims builds the workbook and returns its bytes and a filename
func (s *exportServiceImpl) ExportClaims(ctx context.Context, principal port.Principal) ([]byte, string, error) {
	if !principal.Role.CanApprove() {
		return nil, "", fmt.Errorf("%w: role %s cannot export claims", approval.ErrUnauthorized, principal.Role)
	}

	company, err := s.companyRepo.GetByID(ctx, principal.CompanyID)
	if err != nil {
		return nil, "", err
	}
	if company == nil {
		return nil, "", fmt.Errorf("%w: company %s", ErrNotFound, principal.CompanyID)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Claims"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []string{
		"Claim ID", "Employee ID", "Description", "Date", "Category",
		"Amount", "Currency", fmt.Sprintf("Amount (%s)", company.Currency),
		"Status", "Stage", "Submitted At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := 2
	for offset := 0; ; offset += exportPageSize {
		claims, err := s.claimRepo.ListByCompany(ctx, principal.CompanyID, exportPageSize, offset)
		if err != nil {
			return nil, "", err
		}
		for _, claim := range claims {
			if err := s.writeClaim(f, sheet, row, claim); err != nil {
				return nil, "", err
			}
			row++
		}
		if len(claims) < exportPageSize {
			break
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("claims-%s-%s.xlsx", company.Name, time.Now().Format("2006-01-02"))
	s.logger.Info("Claims exported", "company_id", company.ID, "rows", row-2)
	return buf.Bytes(), filename, nil
}

func (s *exportServiceImpl) writeClaim(f *excelize.File, sheet string, row int, claim *entity.ExpenseClaim) error {
	date := ""
	if !claim.Date.IsZero() {
		date = claim.Date.Format("2006-01-02")
	}
	submittedAt := ""
	if claim.SubmittedAt != nil {
		submittedAt = claim.SubmittedAt.Format(time.RFC3339)
	}

	values := []interface{}{
		claim.ID,
		claim.EmployeeID,
		claim.Description,
		date,
		claim.Category,
		claim.Amount,
		claim.Currency,
		claim.ConvertedAmount,
		claim.Status.String(),
		claim.Stage,
		submittedAt,
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}
	return nil
}
