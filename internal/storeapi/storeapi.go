// Package storeapi exposes the public storefront surface: the product
// listing buyers browse and the checkout flow that carries an order from
// product selection through the provider redirect and back.
package storeapi

import "sync"

var initOnce sync.Once

// InitRouter registers the storefront routes with the web server registry.
// Safe to call more than once.
func InitRouter() {
	initOnce.Do(func() {
		registerCatalogRoutes()
		registerCheckoutRoutes()
	})
}
