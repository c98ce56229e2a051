package handlers

import (
	"encoding/csv"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"product-entry-service/internal/catalog"
	"product-entry-service/internal/middleware"
	"product-entry-service/internal/models"
	"product-entry-service/internal/repository"
)

type TemplatesHandler struct {
	store  repository.ProductsStoreInterface
	logger *logrus.Entry
}

func NewTemplatesHandler(store repository.ProductsStoreInterface, logger *logrus.Logger) *TemplatesHandler {
	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TemplatesHandler{
		store:  store,
		logger: log.WithField("component", "templates-handler"),
	}
}

// ListTemplates returns the filtered template catalog. A catalog load
// failure is an error state for this endpoint only; the entry grid keeps
// working without templates.
// GET /api/v1/templates
func (h *TemplatesHandler) ListTemplates(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	templates, err := h.store.ListTemplates(tenantID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load template catalog")
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CATALOG_UNAVAILABLE",
				Message: "Failed to load template catalog",
			},
		})
		return
	}

	search := c.Query("search")
	category := c.DefaultQuery("category", catalog.AllCategories)
	filtered := catalog.Filter(templates, search, category)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"templates":  filtered,
		"categories": catalog.Categories(templates),
		"total":      len(filtered),
	})
}

// GetEntryTemplate downloads the bulk-entry template file. The content is a
// fixed example independent of any session state.
// GET /api/v1/products/bulk-entry/template
func (h *TemplatesHandler) GetEntryTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	switch format {
	case "csv":
		h.generateCSVTemplate(c)
	case "xlsx":
		h.generateXLSXTemplate(c)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_FORMAT",
				Message: "Only csv and xlsx formats are supported",
			},
		})
	}
}

// generateCSVTemplate writes the fixed CSV template
func (h *TemplatesHandler) generateCSVTemplate(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=bulk-products-template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	columns := models.EntryTemplateColumns()
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}
	writer.Write(headers)

	for _, row := range models.EntryTemplateSampleRows() {
		writer.Write(row)
	}
}

// generateXLSXTemplate writes the same template as a styled Excel workbook
func (h *TemplatesHandler) generateXLSXTemplate(c *gin.Context) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	columns := models.EntryTemplateColumns()
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col.Name)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	for rowIdx, row := range models.EntryTemplateSampleRows() {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=bulk-products-template.xlsx")

	f.Write(c.Writer)
}
