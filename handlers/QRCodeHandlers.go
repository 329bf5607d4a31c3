package handlers

import (
	"bytes"
	"database/sql"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"

	"backend/repository"
	"backend/services"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// addLabel draws a regular text line onto the image.
func addLabel(img *image.RGBA, x, y int, label string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{0, 0, 0, 255}),
		Face: inconsolata.Regular8x16,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(label)
}

// addLabelBold draws a bold label line onto the image.
func addLabelBold(img *image.RGBA, x, y int, label string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{30, 30, 30, 255}),
		Face: inconsolata.Bold8x16,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(label)
}

func truncateLabel(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// GenerateQuoteQRCode godoc
// @Summary      Generate a labeled tracking QR code for a quote
// @Tags         quotes
// @Produce      image/png
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/qrcode [get]
func GenerateQuoteQRCode(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		quote, err := repository.GetQuoteByID(db, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		company := DefaultCompanyProfile()
		trackingURL := company.TrackingURL + "/" + quote.Number

		qr, err := qrcode.New(trackingURL, qrcode.Medium)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}
		qrImg := qr.Image(512)

		qrSize := qrImg.Bounds().Dy()
		padding := 30
		lineHeight := 28
		textAreaHeight := 4*lineHeight + padding
		totalHeight := qrSize + padding + textAreaHeight

		combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
		draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
		draw.Draw(combinedImg, image.Rect(0, 0, qrSize, qrSize), qrImg, image.Point{}, draw.Src)

		separatorY := qrSize + padding/2
		for x := 0; x < qrSize; x++ {
			combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
		}

		fmtr := services.NewFormatter()
		startY := qrSize + padding + lineHeight
		xPos := 20

		eventDate := "-"
		if !quote.Event.Date.IsZero() {
			eventDate = fmtr.ShortDate(quote.Event.Date)
		}
		total := "-"
		if quote.Amounts != nil {
			total = fmtr.Money(quote.Amounts.TotalWithTax)
		}

		addLabelBold(combinedImg, xPos, startY, "Devis:")
		addLabel(combinedImg, xPos+120, startY, quote.Number)

		addLabelBold(combinedImg, xPos, startY+lineHeight, "Client:")
		addLabel(combinedImg, xPos+120, startY+lineHeight, truncateLabel(quote.Client.Name, 30))

		addLabelBold(combinedImg, xPos, startY+2*lineHeight, "Date:")
		addLabel(combinedImg, xPos+120, startY+2*lineHeight, eventDate)

		addLabelBold(combinedImg, xPos, startY+3*lineHeight, "Total TTC:")
		addLabel(combinedImg, xPos+120, startY+3*lineHeight, total)

		var buf bytes.Buffer
		if err := png.Encode(&buf, combinedImg); err != nil {
			c.String(http.StatusInternalServerError, "PNG encoding failed")
			return
		}

		c.Data(http.StatusOK, "image/png", buf.Bytes())
	}
}
