package services

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"backend/models"
)

func testCompany() models.CompanyProfile {
	return models.CompanyProfile{
		Name:        "Éclat Événements",
		Address:     "18 avenue des Fêtes, 69003 Lyon",
		Phone:       "+33 4 78 00 00 00",
		Email:       "contact@eclat-evenements.fr",
		SIRET:       "123 456 789 00012",
		VATNumber:   "FR12345678900",
		TrackingURL: "https://eclat-evenements.fr/devis",
	}
}

func renderableQuote(serviceLines int) *models.Quote {
	q := draftQuote()
	q.Event.Venue = models.Venue{
		Name: "Château de Montchat", Address: "1 place du Château",
		PostalCode: "69003", City: "Lyon",
	}
	for i := 0; i < serviceLines; i++ {
		q.LineItems.Services = append(q.LineItems.Services, models.ServiceLineItem{
			Name:          fmt.Sprintf("Prestation %d", i+1),
			Category:      "animation",
			Quantity:      1,
			UnitPrice:     100,
			ComputedTotal: 100,
		})
	}
	b, _ := ComputeBreakdown(q.LineItems.Services, nil, nil, nil, models.Discount{}, 20, 30)
	q.Amounts = b
	return q
}

// pdfPageCount counts page objects in the raw output. gofpdf writes one
// "/Type /Pages" tree object plus one "/Type /Page" object per page.
func pdfPageCount(data []byte) int {
	return bytes.Count(data, []byte("/Type /Page")) - 1
}

func TestRenderQuotePDFWithoutBreakdownFails(t *testing.T) {
	q := draftQuote()
	q.Amounts = nil

	_, err := RenderQuotePDF(q, testCompany())
	if err == nil {
		t.Fatal("expected error for quote without breakdown")
	}
	var re *RenderError
	if !errors.As(err, &re) {
		t.Errorf("expected *RenderError, got %T", err)
	}
}

func TestRenderQuotePDFProducesDocument(t *testing.T) {
	data, err := RenderQuotePDF(renderableQuote(3), testCompany())
	if err != nil {
		t.Fatalf("RenderQuotePDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output is not a PDF document")
	}
	if pdfPageCount(data) < 1 {
		t.Errorf("page count = %d", pdfPageCount(data))
	}
}

func TestRenderQuotePDFPaginatesLongQuotes(t *testing.T) {
	short, err := RenderQuotePDF(renderableQuote(2), testCompany())
	if err != nil {
		t.Fatalf("short render: %v", err)
	}
	long, err := RenderQuotePDF(renderableQuote(80), testCompany())
	if err != nil {
		t.Fatalf("long render: %v", err)
	}
	if pdfPageCount(long) <= pdfPageCount(short) {
		t.Errorf("80 lines on %d pages, 2 lines on %d pages",
			pdfPageCount(long), pdfPageCount(short))
	}
}

func TestRenderQuotePDFDegradedTravelStillRenders(t *testing.T) {
	q := renderableQuote(2)
	q.Amounts.TravelFee = models.TravelFee{
		Error: "destination address: address could not be resolved",
	}
	data, err := RenderQuotePDF(q, testCompany())
	if err != nil {
		t.Fatalf("RenderQuotePDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output is not a PDF document")
	}
}

func TestFormatterMoney(t *testing.T) {
	f := NewFormatter()
	cases := []struct {
		in   float64
		want string
	}{
		{1431.00, "1 431,00 €"},
		{0, "0,00 €"},
		{429.30, "429,30 €"},
		{1001.70, "1 001,70 €"},
	}
	for _, c := range cases {
		if got := f.Money(c.in); got != c.want {
			t.Errorf("Money(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatterKmAndPercent(t *testing.T) {
	f := NewFormatter()
	if got := f.Km(80); got != "80,0 km" {
		t.Errorf("Km(80) = %q", got)
	}
	if got := f.Percent(20); got != "20 %" {
		t.Errorf("Percent(20) = %q", got)
	}
	if got := f.Percent(5.5); got != "5,50 %" {
		t.Errorf("Percent(5.5) = %q", got)
	}
}

func TestFormatterDates(t *testing.T) {
	f := NewFormatter()
	d := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC) // a Sunday
	if got := f.LongDate(d); got != "dimanche 14 juin 2026" {
		t.Errorf("LongDate = %q", got)
	}
	if got := f.ShortDate(d); got != "14/06/2026" {
		t.Errorf("ShortDate = %q", got)
	}
}
