package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/servicedeck/internal/api/models"
	"github.com/smazurov/servicedeck/internal/events"
)

// registerLogRoutes registers log retrieval, clearing and streaming endpoints.
// Logs are keyed by service id only, so entries for a service that has since
// left the catalog stay readable.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-service-logs",
		Method:      http.MethodGet,
		Path:        "/api/services/{service_id}/logs",
		Summary:     "Service Logs",
		Description: "Get retained output of a service, newest first",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.LogsInput) (*models.LogsResponse, error) {
		entries := s.supervisor.Logs(input.ServiceID, input.Limit)
		return &models.LogsResponse{
			Body: models.LogsData{
				ServiceID: input.ServiceID,
				Entries:   entries,
				Count:     len(entries),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "clear-service-logs",
		Method:        http.MethodDelete,
		Path:          "/api/services/{service_id}/logs",
		Summary:       "Clear Service Logs",
		Description:   "Discard retained output of a service. A running process keeps running",
		Tags:          []string{"logs"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401},
	}, func(_ context.Context, input *models.ServiceIDInput) (*struct{}, error) {
		s.supervisor.ClearLogs(input.ServiceID)
		return nil, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "service-logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/services/{service_id}/logs/stream",
		Summary:     "Service Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends retained logs oldest first, then streams new entries.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *models.ServiceIDInput, send sse.Sender) {
		serviceID := input.ServiceID

		// Subscribe before reading history so nothing falls in between;
		// ids already sent as history are skipped.
		eventCh := make(chan any, 256)
		unsubscribe := events.SubscribeFiltered(s.eventBus, eventCh, func(e events.LogEntryEvent) bool {
			return e.ServiceID == serviceID
		})
		defer unsubscribe()

		history := s.supervisor.Logs(serviceID, 0)
		slices.Reverse(history)

		var lastID uint64
		for _, entry := range history {
			if err := send(sse.Message{ID: int(entry.ID), Data: events.NewLogEntry(entry, false)}); err != nil {
				return
			}
			lastID = entry.ID
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				entry := ev.(events.LogEntryEvent)
				if entry.ID <= lastID {
					continue
				}
				if err := send(sse.Message{ID: int(entry.ID), Data: entry}); err != nil {
					return
				}
			}
		}
	})
}
