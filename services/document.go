package services

import (
	"bytes"
	"fmt"

	"backend/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Page geometry in millimetres (A4 portrait).
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 10.0
	marginTop    = 12.0
	footerHeight = 18.0
	contentWidth = pageWidth - 2*marginLeft
)

// RenderContext tracks the vertical cursor and page index explicitly. Page
// breaks are decided by EnsureSpace before each block is drawn; nothing is
// ever redrawn on a prior page.
type RenderContext struct {
	CursorY   float64
	PageIndex int
}

type quoteRenderer struct {
	pdf     *gofpdf.Fpdf
	tr      func(string) string
	fmtr    *Formatter
	company models.CompanyProfile
	quote   *models.Quote
	ctx     RenderContext
}

// RenderQuotePDF lays the quote snapshot and its stored breakdown out as a
// paginated PDF. Amounts are printed from the stored Breakdown values only;
// the renderer performs no monetary arithmetic.
func RenderQuotePDF(q *models.Quote, company models.CompanyProfile) ([]byte, error) {
	if q.Amounts == nil {
		return nil, &RenderError{Err: fmt.Errorf("quote %s has no computed breakdown", q.ID)}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginLeft)
	pdf.SetAutoPageBreak(false, 0)

	r := &quoteRenderer{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		fmtr:    NewFormatter(),
		company: company,
		quote:   q,
	}

	r.addPage()
	r.drawHeader()
	r.drawClientBox()
	r.drawEventBox()
	r.drawServicesTable()
	r.drawEquipmentTable()
	r.drawExtraFeesTable()
	r.drawTotalsBlock()
	r.drawConditionsBlock()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Err: err}
	}
	return buf.Bytes(), nil
}

// addPage starts a new page and stamps the footer exactly once, at creation.
// The footer is never drawn from anywhere else, so the page-break logic
// cannot re-enter it.
func (r *quoteRenderer) addPage() {
	r.pdf.AddPage()
	r.ctx.PageIndex++
	r.stampFooter()
	r.ctx.CursorY = marginTop
	r.pdf.SetXY(marginLeft, r.ctx.CursorY)
}

func (r *quoteRenderer) stampFooter() {
	r.pdf.SetY(pageHeight - footerHeight + 4)
	r.pdf.SetFont("Arial", "I", 7)
	r.pdf.SetTextColor(110, 110, 110)
	identity := fmt.Sprintf("%s — %s — %s", r.company.Name, r.company.Address, r.company.Phone)
	if r.company.SIRET != "" {
		identity += " — SIRET " + r.company.SIRET
	}
	r.pdf.CellFormat(contentWidth, 4, r.tr(identity), "T", 1, "C", false, 0, "")
	r.pdf.CellFormat(contentWidth, 4,
		r.tr(fmt.Sprintf("Devis %s — page %d", r.quote.Number, r.ctx.PageIndex)),
		"", 0, "C", false, 0, "")
	r.pdf.SetTextColor(0, 0, 0)
}

// ensureSpace starts a new page when the next block would collide with the
// footer zone.
func (r *quoteRenderer) ensureSpace(blockHeight float64) {
	if r.ctx.CursorY+blockHeight > pageHeight-footerHeight {
		r.addPage()
	}
	r.pdf.SetXY(marginLeft, r.ctx.CursorY)
}

func (r *quoteRenderer) advance(h float64) {
	r.ctx.CursorY += h
	r.pdf.SetXY(marginLeft, r.ctx.CursorY)
}

func (r *quoteRenderer) drawHeader() {
	r.ensureSpace(34)

	r.pdf.SetFont("Arial", "B", 18)
	r.pdf.CellFormat(120, 9, r.tr(r.company.Name), "", 0, "L", false, 0, "")
	r.pdf.SetFont("Arial", "B", 16)
	r.pdf.CellFormat(70, 9, "DEVIS", "", 1, "R", false, 0, "")
	r.advance(9)

	r.pdf.SetFont("Arial", "I", 9)
	r.pdf.CellFormat(120, 5, r.tr(r.company.Slogan), "", 0, "L", false, 0, "")
	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.CellFormat(70, 5, r.tr("N° "+r.quote.Number), "", 1, "R", false, 0, "")
	r.advance(5)

	r.pdf.SetFont("Arial", "", 9)
	r.pdf.CellFormat(120, 5, r.tr(r.company.Email+" — "+r.company.Website), "", 0, "L", false, 0, "")
	r.pdf.CellFormat(70, 5, r.tr("Émis le "+r.fmtr.ShortDate(r.quote.CreatedAt)), "", 1, "R", false, 0, "")
	r.advance(5)

	r.pdf.CellFormat(120, 5, "", "", 0, "L", false, 0, "")
	r.pdf.CellFormat(70, 5, r.tr("Valable jusqu'au "+r.fmtr.ShortDate(r.quote.ValidityUntil)), "", 1, "R", false, 0, "")
	r.advance(5)

	r.drawQRCode()
	r.advance(6)
}

// drawQRCode embeds a tracking QR code on the first page, under the header.
func (r *quoteRenderer) drawQRCode() {
	if r.company.TrackingURL == "" {
		return
	}
	png, err := qrcode.Encode(r.company.TrackingURL+"/"+r.quote.Number, qrcode.Medium, 256)
	if err != nil {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: "png"}
	r.pdf.RegisterImageOptionsReader("tracking-qr", opts, bytes.NewReader(png))
	r.pdf.ImageOptions("tracking-qr", pageWidth-marginLeft-18, marginTop+20, 18, 18, false, opts, 0, "")
}

func (r *quoteRenderer) drawClientBox() {
	lines := []string{r.quote.Client.Name}
	if r.quote.Client.Company != "" {
		lines = append(lines, r.quote.Client.Company)
	}
	lines = append(lines, r.quote.Client.Address, r.quote.Client.Email, r.quote.Client.Phone)

	boxHeight := float64(len(lines))*5 + 8
	r.ensureSpace(boxHeight + 4)

	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.SetFillColor(235, 235, 235)
	r.pdf.CellFormat(90, 6, "CLIENT", "1", 1, "L", true, 0, "")
	r.pdf.SetFont("Arial", "", 9)
	y := r.ctx.CursorY + 6
	for _, line := range lines {
		r.pdf.SetXY(marginLeft, y)
		r.pdf.CellFormat(90, 5, r.tr(line), "LR", 1, "L", false, 0, "")
		y += 5
	}
	r.pdf.SetXY(marginLeft, y)
	r.pdf.CellFormat(90, 0, "", "T", 1, "L", false, 0, "")
	r.advance(boxHeight + 4)
}

func (r *quoteRenderer) drawEventBox() {
	e := r.quote.Event
	guests := fmt.Sprintf("%d invités", e.GuestCount)
	if e.GuestRange != "" {
		guests = e.GuestRange + " invités"
	}
	rows := [][2]string{
		{"Événement", e.Title},
		{"Type", e.Type},
		{"Date", r.fmtr.LongDate(e.Date)},
		{"Horaires", e.StartTime + " — " + e.EndTime},
		{"Lieu", fmt.Sprintf("%s, %s, %s %s", e.Venue.Name, e.Venue.Address, e.Venue.PostalCode, e.Venue.City)},
		{"Invités", guests},
	}
	if e.Theme != "" {
		rows = append(rows, [2]string{"Thème", e.Theme})
	}

	boxHeight := float64(len(rows))*5 + 8
	r.ensureSpace(boxHeight + 4)

	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.SetFillColor(235, 235, 235)
	r.pdf.CellFormat(contentWidth, 6, r.tr("ÉVÉNEMENT"), "1", 1, "L", true, 0, "")
	y := r.ctx.CursorY + 6
	for _, row := range rows {
		r.pdf.SetXY(marginLeft, y)
		r.pdf.SetFont("Arial", "B", 9)
		r.pdf.CellFormat(30, 5, r.tr(row[0]), "L", 0, "L", false, 0, "")
		r.pdf.SetFont("Arial", "", 9)
		r.pdf.CellFormat(contentWidth-30, 5, r.tr(row[1]), "R", 1, "L", false, 0, "")
		y += 5
	}
	r.pdf.SetXY(marginLeft, y)
	r.pdf.CellFormat(contentWidth, 0, "", "T", 1, "L", false, 0, "")
	r.advance(boxHeight + 4)
}

// Table column layout: fixed x offsets, text left, quantities centered,
// currency right.
type tableColumn struct {
	width float64
	align string
}

func (r *quoteRenderer) drawTableHeader(title string, cols []tableColumn, labels []string) {
	r.ensureSpace(14)
	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.CellFormat(contentWidth, 7, r.tr(title), "", 1, "L", false, 0, "")
	r.advance(7)

	r.pdf.SetFont("Arial", "B", 9)
	r.pdf.SetFillColor(225, 225, 225)
	for i, col := range cols {
		last := 0
		if i == len(cols)-1 {
			last = 1
		}
		r.pdf.CellFormat(col.width, 6, r.tr(labels[i]), "1", last, col.align, true, 0, "")
	}
	r.advance(6)
}

func (r *quoteRenderer) drawTableRow(cols []tableColumn, cells []string, shaded bool) {
	r.ensureSpace(6)
	r.pdf.SetFont("Arial", "", 9)
	r.pdf.SetFillColor(245, 245, 245)
	for i, col := range cols {
		last := 0
		if i == len(cols)-1 {
			last = 1
		}
		r.pdf.CellFormat(col.width, 6, r.tr(cells[i]), "1", last, col.align, shaded, 0, "")
	}
	r.advance(6)
}

// drawSubtotalRow closes a table section with a shaded subtotal.
func (r *quoteRenderer) drawSubtotalRow(label string, amount float64) {
	r.ensureSpace(7)
	r.pdf.SetFont("Arial", "B", 9)
	r.pdf.SetFillColor(225, 225, 225)
	r.pdf.CellFormat(contentWidth-40, 7, r.tr(label), "1", 0, "R", true, 0, "")
	r.pdf.CellFormat(40, 7, r.tr(r.fmtr.Money(amount)), "1", 1, "R", true, 0, "")
	r.advance(7)
	r.advance(4)
}

func (r *quoteRenderer) drawServicesTable() {
	items := r.quote.LineItems.Services
	if len(items) == 0 {
		return
	}
	cols := []tableColumn{
		{width: 80, align: "L"},
		{width: 35, align: "L"},
		{width: 15, align: "C"},
		{width: 30, align: "R"},
		{width: 30, align: "R"},
	}
	r.drawTableHeader("Prestations", cols, []string{"Prestation", "Catégorie", "Qté", "PU HT", "Total HT"})
	for i, item := range items {
		r.drawTableRow(cols, []string{
			item.Name,
			item.Category,
			fmt.Sprintf("%d", item.Quantity),
			r.fmtr.Money(item.UnitPrice),
			r.fmtr.Money(item.ComputedTotal),
		}, i%2 == 1)
	}
	r.drawSubtotalRow("Sous-total prestations", r.quote.Amounts.ServicesSubtotal)
}

func (r *quoteRenderer) drawEquipmentTable() {
	items := r.quote.LineItems.Equipment
	if len(items) == 0 {
		return
	}
	cols := []tableColumn{
		{width: 70, align: "L"},
		{width: 15, align: "C"},
		{width: 20, align: "C"},
		{width: 25, align: "R"},
		{width: 30, align: "R"},
		{width: 30, align: "R"},
	}
	r.drawTableHeader("Matériel", cols, []string{"Matériel", "Qté", "Jours", "Prix/jour", "Caution", "Total HT"})
	for i, item := range items {
		r.drawTableRow(cols, []string{
			item.Name,
			fmt.Sprintf("%d", item.Quantity),
			fmt.Sprintf("%d", RentalDays(item.RentalWindow)),
			r.fmtr.Money(item.DailyPrice),
			r.fmtr.Money(item.Deposit),
			r.fmtr.Money(item.ComputedTotal),
		}, i%2 == 1)
	}
	r.drawSubtotalRow("Sous-total matériel", r.quote.Amounts.EquipmentSubtotal)
}

func (r *quoteRenderer) drawExtraFeesTable() {
	a := r.quote.Amounts
	hasTravel := a.TravelFee.Fee > 0 || a.TravelFee.Error != ""
	if len(a.ExtraFees) == 0 && !hasTravel {
		return
	}
	cols := []tableColumn{
		{width: 150, align: "L"},
		{width: 40, align: "R"},
	}
	r.drawTableHeader("Frais annexes", cols, []string{"Libellé", "Montant HT"})

	var total float64
	shade := false
	if hasTravel {
		label := fmt.Sprintf("Frais de déplacement (%s aller-retour, %s facturables)",
			r.fmtr.Km(a.TravelFee.RoundTripKm), r.fmtr.Km(a.TravelFee.BillableKm))
		if a.TravelFee.Error != "" {
			label = "Frais de déplacement — estimation non confirmée"
		}
		r.drawTableRow(cols, []string{label, r.fmtr.Money(a.TravelFee.Fee)}, shade)
		total += a.TravelFee.Fee
		shade = !shade
	}
	for _, fee := range a.ExtraFees {
		r.drawTableRow(cols, []string{fee.Label, r.fmtr.Money(fee.Amount)}, shade)
		total += fee.Amount
		shade = !shade
	}
	r.drawSubtotalRow("Sous-total frais annexes", Round2(total))
}

// drawTotalsBlock renders the breakdown top to bottom in the fixed pricing
// order, with highlighted rows for the grand total and the deposit split.
func (r *quoteRenderer) drawTotalsBlock() {
	a := r.quote.Amounts

	type totalRow struct {
		label     string
		amount    string
		highlight int // 0 none, 1 grand total, 2 deposit
	}

	rows := []totalRow{
		{label: "Total HT avant remise", amount: r.fmtr.Money(a.PreDiscountTotal)},
	}
	if a.DiscountAmount > 0 {
		label := "Remise"
		if a.Discount.Kind == models.DiscountPercentage {
			label = fmt.Sprintf("Remise (%s)", r.fmtr.Percent(a.Discount.Value))
		}
		if a.Discount.Reason != "" {
			label += " — " + a.Discount.Reason
		}
		rows = append(rows, totalRow{label: label, amount: "-" + r.fmtr.Money(a.DiscountAmount)})
	}
	rows = append(rows,
		totalRow{label: "Total HT", amount: r.fmtr.Money(a.PostDiscountTotal)},
		totalRow{label: fmt.Sprintf("TVA (%s)", r.fmtr.Percent(a.VATRate)), amount: r.fmtr.Money(a.VATAmount)},
		totalRow{label: "TOTAL TTC", amount: r.fmtr.Money(a.TotalWithTax), highlight: 1},
	)
	if a.Deposit.Amount > 0 {
		rows = append(rows,
			totalRow{label: fmt.Sprintf("Acompte à la commande (%s)", r.fmtr.Percent(a.Deposit.Percentage)), amount: r.fmtr.Money(a.Deposit.Amount), highlight: 2},
			totalRow{label: "Solde restant", amount: r.fmtr.Money(a.RemainingBalance), highlight: 2},
		)
	}

	blockHeight := float64(len(rows)) * 7
	if a.TravelFee.Error != "" {
		blockHeight += 6
	}
	r.ensureSpace(blockHeight + 4)

	labelWidth := contentWidth - 50.0
	for _, row := range rows {
		switch row.highlight {
		case 1:
			r.pdf.SetFont("Arial", "B", 11)
			r.pdf.SetFillColor(60, 60, 60)
			r.pdf.SetTextColor(255, 255, 255)
		case 2:
			r.pdf.SetFont("Arial", "B", 9)
			r.pdf.SetFillColor(225, 225, 225)
			r.pdf.SetTextColor(0, 0, 0)
		default:
			r.pdf.SetFont("Arial", "", 9)
			r.pdf.SetFillColor(255, 255, 255)
			r.pdf.SetTextColor(0, 0, 0)
		}
		r.pdf.CellFormat(labelWidth, 7, r.tr(row.label), "1", 0, "R", row.highlight > 0, 0, "")
		r.pdf.CellFormat(50, 7, r.tr(row.amount), "1", 1, "R", row.highlight > 0, 0, "")
		r.advance(7)
	}
	r.pdf.SetTextColor(0, 0, 0)

	if a.TravelFee.Error != "" {
		r.pdf.SetFont("Arial", "I", 8)
		r.pdf.CellFormat(contentWidth, 6,
			r.tr("* Frais de déplacement non confirmés : l'adresse n'a pas pu être vérifiée. Montant estimé à confirmer."),
			"", 1, "L", false, 0, "")
		r.advance(6)
	}
	r.advance(4)
}

func (r *quoteRenderer) drawConditionsBlock() {
	conditions := []string{
		"Devis valable jusqu'au " + r.fmtr.ShortDate(r.quote.ValidityUntil) + ".",
		"Acompte exigible à la signature ; solde à régler au plus tard le jour de l'événement.",
		"Les cautions matériel sont restituées après retour du matériel en bon état.",
		"Toute annulation à moins de 15 jours de l'événement entraîne la facturation de l'acompte.",
	}

	blockHeight := float64(len(conditions))*5 + 7 + 30
	r.ensureSpace(blockHeight)

	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.CellFormat(contentWidth, 7, "Conditions", "", 1, "L", false, 0, "")
	r.advance(7)

	r.pdf.SetFont("Arial", "", 8)
	for _, cond := range conditions {
		r.pdf.CellFormat(contentWidth, 5, r.tr("— "+cond), "", 1, "L", false, 0, "")
		r.advance(5)
	}
	r.advance(4)

	r.pdf.SetFont("Arial", "B", 9)
	r.pdf.CellFormat(95, 6, r.tr("Bon pour accord — le client"), "", 0, "L", false, 0, "")
	r.pdf.CellFormat(95, 6, r.tr("Pour "+r.company.Name), "", 1, "L", false, 0, "")
	r.advance(6)

	r.pdf.SetFont("Arial", "", 8)
	for _, sig := range r.quote.Signatures {
		line := fmt.Sprintf("Signé par %s le %s", sig.SignerName, r.fmtr.ShortDate(sig.Timestamp))
		r.pdf.CellFormat(95, 5, r.tr(line), "", 1, "L", false, 0, "")
		r.advance(5)
	}
	r.advance(15)
}
