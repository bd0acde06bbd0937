// Package adminapi implements the operator console REST API mounted under
// /api/v1. All routes except login require a bearer token.
package adminapi

import "sync"

var initOnce sync.Once

// InitRouter registers every console route with the webserver. Safe to call
// more than once.
func InitRouter() {
	initOnce.Do(func() {
		registerAuthRoutes()
		registerProductRoutes()
		registerCustomerRoutes()
		registerOrderRoutes()
		registerPaymentRoutes()
		registerSettingsRoutes()
		registerSchedulerRoutes()
		registerStatsRoutes()
		registerExportRoutes()
		registerDbmsRoutes()
	})
}
