package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportQuotesXLSX godoc
// @Summary      Export quotes to an Excel workbook
// @Tags         staff
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        Authorization  header    string  true   "Session ID"
// @Param        status         query     string  false  "Filter by status"
// @Success      200  {file}    binary
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/staff/quotes/export [get]
func ExportQuotesXLSX(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requireStaff(c, db) == nil {
			return
		}

		status := c.Query("status")

		// Export is unpaginated: pull everything matching the filter.
		quotes, _, err := repository.ListQuotes(db, status, 1, 10000)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		f := excelize.NewFile()
		defer func() {
			if err := f.Close(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error closing Excel file"})
			}
		}()

		sheet := "Devis"
		index, err := f.NewSheet(sheet)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating sheet"})
			return
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		headerStyle, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{
				Bold:   true,
				Size:   12,
				Family: "Arial",
				Color:  "#FFFFFF",
			},
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{"#4472C4"},
				Pattern: 1,
			},
			Alignment: &excelize.Alignment{
				Horizontal: "left",
				Vertical:   "center",
			},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating header style"})
			return
		}

		headers := []string{
			"Numéro", "Statut", "Client", "Email", "Type d'événement",
			"Date événement", "Invités", "Total HT", "TVA", "Total TTC",
			"Acompte", "Validité", "Créé le",
		}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheet, "A1", lastHeader, headerStyle)

		for rowIdx, q := range quotes {
			row := rowIdx + 2
			eventDate := ""
			if !q.Event.Date.IsZero() {
				eventDate = q.Event.Date.Format("02/01/2006")
			}
			values := []interface{}{
				q.Number, q.Status, q.Client.Name, q.Client.Email, q.Event.Type,
				eventDate, q.Event.GuestCount,
			}
			if q.Amounts != nil {
				values = append(values,
					q.Amounts.PostDiscountTotal, q.Amounts.VATAmount,
					q.Amounts.TotalWithTax, q.Amounts.Deposit.Amount)
			} else {
				values = append(values, "", "", "", "")
			}
			values = append(values,
				q.ValidityUntil.Format("02/01/2006"),
				q.CreatedAt.Format("02/01/2006"))

			for colIdx, v := range values {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
				f.SetCellValue(sheet, cell, v)
			}
		}

		f.SetColWidth(sheet, "A", "E", 20)
		f.SetColWidth(sheet, "F", "M", 14)

		buf, err := f.WriteToBuffer()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing Excel file"})
			return
		}

		filename := fmt.Sprintf("devis-export-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}
