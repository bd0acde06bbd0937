package adminapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/elbrussoft/webstore/internal/commerce"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// orderExportRow flattens an order for spreadsheet consumption.
type orderExportRow struct {
	OrderNumber   string `csv:"order_number"`
	CustomerEmail string `csv:"customer_email"`
	Status        string `csv:"status"`
	TotalAmount   string `csv:"total_amount"`
	Currency      string `csv:"currency"`
	CreatedAt     string `csv:"created_at"`
}

type productExportRow struct {
	ID            int64  `csv:"id"`
	Sku           string `csv:"sku"`
	Name          string `csv:"name"`
	Category      string `csv:"category"`
	Price         string `csv:"price"`
	StockQuantity int    `csv:"stock_quantity"`
	IsActive      bool   `csv:"is_active"`
}

// productImportRow is the accepted column set for catalog imports. The
// layout matches the CSV export so an exported file can be re-imported.
type productImportRow struct {
	Sku           string `csv:"sku"`
	Name          string `csv:"name"`
	Description   string `csv:"description"`
	Category      string `csv:"category"`
	Price         string `csv:"price"`
	StockQuantity int    `csv:"stock_quantity"`
	IsActive      bool   `csv:"is_active"`
}

func registerExportRoutes() {
	webserver.ApiGET("/export/orders/csv", exportOrdersCsv)
	webserver.ApiGET("/export/orders/xlsx", exportOrdersXlsx)
	webserver.ApiGET("/export/products/csv", exportProductsCsv)
	webserver.ApiGET("/export/products/xlsx", exportProductsXlsx)
	webserver.ApiPOST("/import/products", importProductsCsv)
}

// collectOrderRows loads every order plus the owning customer email.
func collectOrderRows(c echo.Context) ([]orderExportRow, error) {
	var orders []domain.Order
	if err := GetDB(c).Order("id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}

	var customers []domain.Customer
	if err := GetDB(c).Find(&customers).Error; err != nil {
		return nil, err
	}
	emails := make(map[int64]string, len(customers))
	for _, customer := range customers {
		emails[customer.ID] = customer.Email
	}

	rows := make([]orderExportRow, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, orderExportRow{
			OrderNumber:   order.OrderNumber,
			CustomerEmail: emails[order.CustomerID],
			Status:        order.Status,
			TotalAmount:   order.TotalAmount.StringFixed(2),
			Currency:      order.Currency,
			CreatedAt:     order.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows, nil
}

func exportOrdersCsv(c echo.Context) error {
	rows, err := collectOrderRows(c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export orders", err.Error())
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export orders", err.Error())
	}

	writeOprLog(c, GetCurrentUsername(c), "export_orders", fmt.Sprintf("csv %d rows", len(rows)))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.csv"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

func exportOrdersXlsx(c echo.Context) error {
	rows, err := collectOrderRows(c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export orders", err.Error())
	}

	file := excelize.NewFile()
	sheet := "Sheet1"
	headers := []string{"order_number", "customer_email", "status", "total_amount", "currency", "created_at"}
	for i, header := range headers {
		file.SetCellValue(sheet, fmt.Sprintf("%s1", excelize.ToAlphaString(i)), header)
	}
	for i, row := range rows {
		line := i + 2
		file.SetCellValue(sheet, fmt.Sprintf("A%d", line), row.OrderNumber)
		file.SetCellValue(sheet, fmt.Sprintf("B%d", line), row.CustomerEmail)
		file.SetCellValue(sheet, fmt.Sprintf("C%d", line), row.Status)
		file.SetCellValue(sheet, fmt.Sprintf("D%d", line), row.TotalAmount)
		file.SetCellValue(sheet, fmt.Sprintf("E%d", line), row.Currency)
		file.SetCellValue(sheet, fmt.Sprintf("F%d", line), row.CreatedAt)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export orders", err.Error())
	}

	writeOprLog(c, GetCurrentUsername(c), "export_orders", fmt.Sprintf("xlsx %d rows", len(rows)))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func exportProductsCsv(c echo.Context) error {
	var products []domain.Product
	if err := GetDB(c).Order("id ASC").Find(&products).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export products", err.Error())
	}

	rows := make([]productExportRow, 0, len(products))
	for _, product := range products {
		sku := ""
		if product.Sku != nil {
			sku = *product.Sku
		}
		rows = append(rows, productExportRow{
			ID:            product.ID,
			Sku:           sku,
			Name:          product.Name,
			Category:      product.Category,
			Price:         product.Price.StringFixed(2),
			StockQuantity: product.StockQuantity,
			IsActive:      product.IsActive,
		})
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export products", err.Error())
	}

	writeOprLog(c, GetCurrentUsername(c), "export_products", fmt.Sprintf("csv %d rows", len(rows)))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

func exportProductsXlsx(c echo.Context) error {
	var products []domain.Product
	if err := GetDB(c).Order("id ASC").Find(&products).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export products", err.Error())
	}

	file := excelize.NewFile()
	sheet := "Sheet1"
	headers := []string{"id", "sku", "name", "category", "price", "stock_quantity", "is_active"}
	for i, header := range headers {
		file.SetCellValue(sheet, fmt.Sprintf("%s1", excelize.ToAlphaString(i)), header)
	}
	for i, product := range products {
		line := i + 2
		sku := ""
		if product.Sku != nil {
			sku = *product.Sku
		}
		file.SetCellValue(sheet, fmt.Sprintf("A%d", line), product.ID)
		file.SetCellValue(sheet, fmt.Sprintf("B%d", line), sku)
		file.SetCellValue(sheet, fmt.Sprintf("C%d", line), product.Name)
		file.SetCellValue(sheet, fmt.Sprintf("D%d", line), product.Category)
		file.SetCellValue(sheet, fmt.Sprintf("E%d", line), product.Price.StringFixed(2))
		file.SetCellValue(sheet, fmt.Sprintf("F%d", line), product.StockQuantity)
		file.SetCellValue(sheet, fmt.Sprintf("G%d", line), product.IsActive)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export products", err.Error())
	}

	writeOprLog(c, GetCurrentUsername(c), "export_products", fmt.Sprintf("xlsx %d rows", len(products)))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// importProductsCsv creates catalog entries from a CSV request body. Rows
// are applied independently; a bad row is reported and skipped, it does not
// abort the batch.
func importProductsCsv(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read upload", err.Error())
	}

	var rows []productImportRow
	if err := gocsv.UnmarshalBytes(body, &rows); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse csv", err.Error())
	}

	appCtx := GetAppContext(c)
	imported := 0
	var rowErrors []string
	for i, row := range rows {
		price, err := decimal.NewFromString(strings.TrimSpace(row.Price))
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: bad price %q", i+2, row.Price))
			continue
		}
		active := row.IsActive
		_, err = appCtx.Catalog().Create(c.Request().Context(), commerce.ProductInput{
			Name:          row.Name,
			Description:   row.Description,
			Price:         price,
			StockQuantity: row.StockQuantity,
			IsActive:      &active,
			Sku:           row.Sku,
			Category:      row.Category,
		})
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %s", i+2, commerce.ReasonCode(err)))
			continue
		}
		imported++
	}

	writeOprLog(c, GetCurrentUsername(c), "import_products", fmt.Sprintf("csv %d imported %d failed", imported, len(rowErrors)))
	return ok(c, map[string]interface{}{
		"imported": imported,
		"failed":   len(rowErrors),
		"errors":   rowErrors,
	})
}
