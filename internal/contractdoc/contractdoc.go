// Package contractdoc renders the rental agreement sent out for signature.
package contractdoc

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"rentdesk-backend/internal/domain"
)

// Data is everything printed on the agreement.
type Data struct {
	Team        domain.Team
	Customer    domain.Customer
	Vehicle     domain.Vehicle
	Reservation domain.Reservation
	Currency    string
	IssuedAt    time.Time
}

type Renderer interface {
	Render(d Data) ([]byte, error)
}

type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (PDFRenderer) Render(d Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(Title(d.Reservation.ID), true)
	pdf.SetCreator(d.Team.Name, true)
	if !d.IssuedAt.IsZero() {
		pdf.SetCreationDate(d.IssuedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(Title(d.Reservation.ID)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(d.Team.Name), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	section := func(title string, rows [][2]string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, row := range rows {
			pdf.CellFormat(55, 6, tr(row[0]), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	section("Renter", [][2]string{
		{"Name", d.Customer.FullName()},
		{"Email", d.Customer.Email},
		{"Phone", d.Customer.Phone},
	})
	section("Vehicle", [][2]string{
		{"Model", d.Vehicle.Name},
		{"Plate", d.Vehicle.Plate},
	})
	section("Rental period", [][2]string{
		{"Pick-up", d.Reservation.StartDate.Format("2006-01-02 15:04")},
		{"Return", d.Reservation.EndDate.Format("2006-01-02 15:04")},
	})

	payment := [][2]string{{"Total", Money(d.Reservation.TotalAmountCents, d.Currency)}}
	if d.Reservation.HasDepositPlan() {
		payment = append(payment,
			[2]string{"Deposit", Money(*d.Reservation.DepositAmountCents, d.Currency)},
			[2]string{"Balance due before pick-up", Money(d.Reservation.BalanceAmountCents(), d.Currency)},
		)
	}
	section("Payment", payment)

	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, tr("The renter agrees to return the vehicle on the return date with the fuel level "+
		"recorded at pick-up, and is liable for damage and traffic fines incurred during the rental period."), "", "L", false)
	pdf.Ln(20)
	pdf.CellFormat(0, 6, tr("Renter signature"), "T", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render contract: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render contract: %w", err)
	}
	return buf.Bytes(), nil
}

func Title(reservationID int32) string {
	return fmt.Sprintf("Rental agreement #%d", reservationID)
}

// Money formats minor units, e.g. 123456 EUR -> "1234.56 EUR".
func Money(cents int64, currency string) string {
	return decimal.New(cents, -2).StringFixed(2) + " " + strings.ToUpper(currency)
}
