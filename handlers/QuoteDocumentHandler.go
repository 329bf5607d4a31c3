package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"backend/repository"
	"backend/services"

	"github.com/gin-gonic/gin"
)

// cachedDocument is one rendered PDF keyed by the quote version it was built
// from. A new version invalidates the cache implicitly.
type cachedDocument struct {
	version int
	data    []byte
}

// documentCache holds the rendered bytes; documentLocks serializes rendering
// per quote so concurrent requests never render the same document twice.
var (
	documentCache sync.Map // quote ID -> *cachedDocument
	documentLocks sync.Map // quote ID -> *sync.Mutex
)

func documentLock(id string) *sync.Mutex {
	lock, _ := documentLocks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// GetQuoteDocument godoc
// @Summary      Render the quote as a PDF document
// @Tags         quotes
// @Produce      application/pdf
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  models.ErrorResponse
// @Failure      500  {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/document [get]
func GetQuoteDocument(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		quote, err := repository.GetQuoteByID(db, id)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		lock := documentLock(id)
		lock.Lock()
		defer lock.Unlock()

		if cached, ok := documentCache.Load(id); ok {
			doc := cached.(*cachedDocument)
			if doc.version == quote.Version {
				serveQuotePDF(c, quote.Number, doc.data)
				return
			}
		}

		data, err := services.RenderQuotePDF(quote, DefaultCompanyProfile())
		if err != nil {
			respondServiceError(c, err)
			return
		}
		documentCache.Store(id, &cachedDocument{version: quote.Version, data: data})

		serveQuotePDF(c, quote.Number, data)
	}
}

func serveQuotePDF(c *gin.Context, number string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="devis-%s.pdf"`, number))
	c.Data(http.StatusOK, "application/pdf", data)
}
