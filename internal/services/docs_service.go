package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"fleetops/internal/domain/models"
	"fleetops/internal/utils"
)

// DocsService renders booking documents as PDF.
type DocsService struct {
	DB        *sql.DB
	RequestID string
	Loader    func(ctx context.Context, bookingID int64) (models.Booking, error)
	Now       func() time.Time
}

func (s DocsService) load(ctx context.Context, bookingID int64) (models.Booking, error) {
	if s.Loader != nil {
		return s.Loader(ctx, bookingID)
	}
	return BookingService{DB: s.DB, RequestID: s.RequestID}.Get(ctx, bookingID)
}

// Invoice returns the PDF bytes and a download filename.
func (s DocsService) Invoice(ctx context.Context, bookingID int64) ([]byte, string, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_invoice", fmt.Sprintf("booking_id=%d", bookingID))
	return buildInvoicePDF(b, clock(s.Now))
}

func buildInvoicePDF(b models.Booking, issued time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	invNo := fmt.Sprintf("INV-%d-%s", b.ID, b.StartDate.UTC().Format("20060102"))
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Invoice No : "+invNo)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Date       : "+issued.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to:")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Name    : %s", safe(b.CustomerName, "-")))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Phone   : %s", safe(b.CustomerPhone, "-")))
	pdf.Ln(7)
	if b.Company != nil {
		pdf.Cell(0, 7, fmt.Sprintf("Company : %s", safe(b.Company.Name, "-")))
		pdf.Ln(7)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Trip:")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	trip := fmt.Sprintf("%s -> %s (%s), %s to %s",
		safe(b.PickupLocation, "-"), safe(b.DropLocation, "-"), safe(string(b.JourneyType), "-"),
		utils.FormatDateTime(b.StartDate), utils.FormatDateTime(b.EndDate),
	)
	pdf.MultiCell(0, 6, trip, "", "", false)
	if b.Vehicle != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Vehicle: %s %s", b.Vehicle.Name, b.Vehicle.RegistrationNumber))
		pdf.Ln(6)
	}
	if b.Driver != nil {
		pdf.Cell(0, 6, "Driver: "+safe(b.Driver.Name, "-"))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, "Tariff rate: "+utils.FormatRupees(b.TariffRate))
	pdf.Ln(8)

	if len(b.Expenses) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Expenses:")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for i, e := range b.Expenses {
			pdf.Cell(0, 6, fmt.Sprintf("%d) %s - %s: %s", i+1, e.Type, safe(e.Description, "-"), utils.FormatRupees(e.Amount)))
			pdf.Ln(6)
		}
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Total    : "+utils.FormatRupees(b.TotalAmount))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Advance  : "+utils.FormatRupees(b.AdvanceReceived))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Balance due: "+utils.FormatRupees(b.Balance))
	pdf.Ln(12)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("INVOICE_%d_%s.pdf", b.ID, safeFilenamePart(b.CustomerName))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
