package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	exportSheet = "Expenses"
)

// expenseRow is the CSV shape of an expense: Date,Category,Notes,Amount.
type expenseRow struct {
	Date     string `csv:"Date"`
	Category string `csv:"Category"`
	Notes    string `csv:"Notes"`
	Amount   string `csv:"Amount"`
}

// ExportFileName is the download name for a report generated on day.
func ExportFileName(day time.Time, ext string) string {
	return fmt.Sprintf("expense-report-%s.%s", day.Format(models.DateLayout), ext)
}

// WriteExpensesCSV writes a header row and one row per expense, amounts
// with two decimals.
func WriteExpensesCSV(w io.Writer, expenses []models.Expense) error {
	rows := make([]expenseRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, expenseRow{
			Date:     e.Date.String(),
			Category: e.Category,
			Notes:    e.Notes,
			Amount:   e.Amount.StringFixed(2),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadExpensesCSV parses the format WriteExpensesCSV produces. Rows are
// validated for shape only; category existence is checked on insert.
func ReadExpensesCSV(r io.Reader) ([]models.Expense, error) {
	var rows []expenseRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	expenses := make([]models.Expense, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		date, err := models.ParseDate(strings.TrimSpace(row.Date))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(row.Amount))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q", line, row.Amount)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("line %d: %w", line, ErrInvalidAmount)
		}
		category := strings.TrimSpace(row.Category)
		if category == "" {
			return nil, fmt.Errorf("line %d: category is required", line)
		}
		expenses = append(expenses, models.Expense{
			Date:     date,
			Amount:   amount,
			Category: category,
			Notes:    strings.TrimSpace(row.Notes),
		})
	}
	return expenses, nil
}

// WriteExpensesXLSX writes a single "Expenses" sheet with a total row.
func WriteExpensesXLSX(w io.Writer, expenses []models.Expense) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}

	headers := []string{"Date", "Category", "Notes", "Amount"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(exportSheet, "A1", "D1", headerStyle); err != nil {
		return err
	}

	if err := writeXLSXRows(f, exportSheet, expenses, amountStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// writeXLSXRows fills the expense rows, the total row and the column widths
// of sheet.
func writeXLSXRows(f *excelize.File, sheet string, expenses []models.Expense, amountStyle int) error {
	for i, e := range expenses {
		row := i + 2
		values := []any{e.Date.String(), e.Category, e.Notes}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		if err := f.SetCellFloat(sheet, fmt.Sprintf("D%d", row), e.Amount.InexactFloat64(), 2, 64); err != nil {
			return err
		}
	}

	totalRow := len(expenses) + 2
	if err := f.SetCellValue(sheet, fmt.Sprintf("C%d", totalRow), "Total"); err != nil {
		return err
	}
	if err := f.SetCellFloat(sheet, fmt.Sprintf("D%d", totalRow), SumAmounts(expenses).InexactFloat64(), 2, 64); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "D2", fmt.Sprintf("D%d", totalRow), amountStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "B", 14); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "C", "C", 40)
}
