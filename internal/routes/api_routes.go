package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/GrantWise/factory-board-sub001/internal/api"
)

// RegisterAPIRoutes registers the ERP sync admin routes under /api/v1/erp.
// Authentication is handled outside this service.
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers) {
	r.Route("/api/v1/erp", func(erp chi.Router) {
		erp.Route("/connections", func(c chi.Router) {
			c.Get("/", handlers.ListConnections())
			c.Post("/", handlers.CreateConnection())
			c.Post("/audit", handlers.AuditConnectionConfig())
			c.Get("/templates/{systemType}", handlers.GetConnectionTemplate())

			c.Get("/{id}", handlers.GetConnection())
			c.Put("/{id}", handlers.UpdateConnection())
			c.Delete("/{id}", handlers.DeleteConnection())
			c.Post("/{id}/test", handlers.TestConnection())
		})

		erp.Route("/sync-states", func(s chi.Router) {
			s.Get("/attention", handlers.ListSyncAttention())
			s.Get("/{connectionId}", handlers.GetSyncState())
			s.Get("/{connectionId}/health", handlers.GetSyncHealth())
			s.Post("/{connectionId}/force-full-sync", handlers.ForceFullSync())
			s.Post("/{connectionId}/reset", handlers.ResetSyncState())
		})

		erp.Route("/order-links", func(o chi.Router) {
			o.Get("/conflicts", handlers.ListConflicts())
			o.Post("/{id}/resolve", handlers.ResolveConflict())
		})

		erp.Route("/imports", func(i chi.Router) {
			i.Get("/stats", handlers.GetImportStats())
			i.Get("/running", handlers.ListRunningImports())
			i.Post("/{id}/cancel", handlers.CancelImport())
			i.Get("/{id}/details", handlers.GetImportDetails())
		})
	})
}
