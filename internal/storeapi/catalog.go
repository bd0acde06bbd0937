package storeapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/elbrussoft/webstore/internal/webserver"
	"github.com/labstack/echo/v4"
)

func registerCatalogRoutes() {
	webserver.StoreGET("/products", listStoreProducts)
	webserver.StoreGET("/products/:id", getStoreProduct)
}

// listStoreProducts returns the active catalog, optionally narrowed to one
// category. Inactive products never appear here.
func listStoreProducts(c echo.Context) error {
	ctx := c.Request().Context()
	catalog := GetAppContext(c).Catalog()

	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		products, err := catalog.ListByCategory(ctx, category)
		if err != nil {
			return commerceFail(c, err)
		}
		return ok(c, products)
	}

	products, err := catalog.ListActive(ctx)
	if err != nil {
		return commerceFail(c, err)
	}
	return ok(c, products)
}

// getStoreProduct returns one product detail page payload. Deactivated
// products answer 404 so stale links do not leak retired items.
func getStoreProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	product, err := GetAppContext(c).Catalog().GetByID(c.Request().Context(), id)
	if err != nil {
		return commerceFail(c, err)
	}
	if !product.IsActive {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, product)
}
