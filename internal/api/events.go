package api

import (
	"context"
	"maps"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/servicedeck/internal/events"
	"github.com/smazurov/servicedeck/internal/metrics/exporters"
)

// registerSSERoutes registers the global event stream.
func (s *Server) registerSSERoutes() {
	eventTypes := map[string]any{
		"service-state-changed": events.ServiceStateChangedEvent{},
		"catalog-reloaded":      events.CatalogReloadedEvent{},
	}
	maps.Copy(eventTypes, exporters.GetEventTypes())

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of service state changes, catalog reloads and resource metrics",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.ServiceStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CatalogReloadedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ServiceMetricsEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current state first, so clients don't start from a blank view
		for _, info := range s.supervisor.List() {
			if err := send.Data(events.ServiceStateChangedEvent{
				ServiceID: info.ServiceID,
				Name:      info.Name,
				OldState:  string(info.State),
				State:     string(info.State),
				PID:       info.PID,
				RunID:     info.RunID,
				Timestamp: info.StartedAt.Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
