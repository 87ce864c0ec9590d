package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/servicedeck/internal/api/models"
	"github.com/smazurov/servicedeck/internal/process"
	"github.com/smazurov/servicedeck/internal/services"
)

// registerServiceRoutes registers catalog and lifecycle endpoints.
func (s *Server) registerServiceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-services",
		Method:      http.MethodGet,
		Path:        "/api/services",
		Summary:     "List Services",
		Description: "List catalog services with their live process status",
		Tags:        []string{"services"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ServiceListResponse, error) {
		all := s.catalog.All()
		data := make([]models.ServiceData, 0, len(all))
		for _, svc := range all {
			data = append(data, s.serviceData(svc))
		}
		return &models.ServiceListResponse{
			Body: models.ServiceListData{Services: data, Count: len(data)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-service",
		Method:      http.MethodGet,
		Path:        "/api/services/{service_id}",
		Summary:     "Get Service",
		Description: "Get a catalog service with its live process status",
		Tags:        []string{"services"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.ServiceIDInput) (*models.ServiceResponse, error) {
		svc, err := s.lookupService(input.ServiceID)
		if err != nil {
			return nil, err
		}
		return &models.ServiceResponse{Body: s.serviceData(svc)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-service",
		Method:      http.MethodPost,
		Path:        "/api/services/{service_id}/start",
		Summary:     "Start Service",
		Description: "Spawn the service's command and begin capturing its output",
		Tags:        []string{"services"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409, 500},
	}, func(_ context.Context, input *models.ServiceIDInput) (*models.ServiceActionResponse, error) {
		svc, err := s.lookupService(input.ServiceID)
		if err != nil {
			return nil, err
		}
		pid, err := s.supervisor.Start(svc.ID, svc.Spec())
		if err != nil {
			return nil, s.toHTTPError(err)
		}
		s.logger.Info("Service started via API", "service_id", svc.ID, "pid", pid)
		return actionResponse(svc.ID, "start", pid, "Service started"), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-service",
		Method:      http.MethodPost,
		Path:        "/api/services/{service_id}/stop",
		Summary:     "Stop Service",
		Description: "Request termination of the service's process. Returns once termination has been initiated",
		Tags:        []string{"services"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.ServiceIDInput) (*models.ServiceActionResponse, error) {
		if err := s.supervisor.Stop(input.ServiceID); err != nil {
			return nil, s.toHTTPError(err)
		}
		s.logger.Info("Service stopped via API", "service_id", input.ServiceID)
		return actionResponse(input.ServiceID, "stop", 0, "Service stopping"), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restart-service",
		Method:      http.MethodPost,
		Path:        "/api/services/{service_id}/restart",
		Summary:     "Restart Service",
		Description: "Stop the service if it is running, then start it again",
		Tags:        []string{"services"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409, 500},
	}, func(_ context.Context, input *models.ServiceIDInput) (*models.ServiceActionResponse, error) {
		svc, err := s.lookupService(input.ServiceID)
		if err != nil {
			return nil, err
		}
		pid, err := s.supervisor.Restart(svc.ID, svc.Spec())
		if err != nil {
			return nil, s.toHTTPError(err)
		}
		s.logger.Info("Service restarted via API", "service_id", svc.ID, "pid", pid)
		return actionResponse(svc.ID, "restart", pid, "Service restarted"), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-service-status",
		Method:      http.MethodGet,
		Path:        "/api/services/{service_id}/status",
		Summary:     "Service Status",
		Description: "Report whether the service has a live process",
		Tags:        []string{"services"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.ServiceIDInput) (*models.ServiceStatusResponse, error) {
		running := s.supervisor.IsRunning(input.ServiceID)
		info := s.supervisor.Status(input.ServiceID)
		return &models.ServiceStatusResponse{
			Body: models.ServiceStatusData{
				ServiceID: input.ServiceID,
				Running:   running,
				State:     string(info.State),
				PID:       info.PID,
				RunID:     info.RunID,
				StartedAt: startedAt(info),
			},
		}, nil
	})
}

func (s *Server) lookupService(id int64) (services.Service, error) {
	svc, ok := s.catalog.Get(id)
	if !ok {
		return services.Service{}, huma.Error404NotFound(fmt.Sprintf("service %d not found", id))
	}
	return svc, nil
}

func (s *Server) serviceData(svc services.Service) models.ServiceData {
	running := s.supervisor.IsRunning(svc.ID)
	info := s.supervisor.Status(svc.ID)
	return models.ServiceData{
		ID:         svc.ID,
		Name:       svc.Name,
		Command:    svc.Command,
		WorkingDir: svc.WorkingDir,
		ProjectID:  svc.ProjectID,
		AutoStart:  svc.AutoStart,
		State:      string(info.State),
		Running:    running,
		PID:        info.PID,
		RunID:      info.RunID,
		StartedAt:  startedAt(info),
	}
}

func startedAt(info process.Info) *time.Time {
	if info.StartedAt.IsZero() {
		return nil
	}
	t := info.StartedAt
	return &t
}

func actionResponse(serviceID int64, action string, pid int, message string) *models.ServiceActionResponse {
	return &models.ServiceActionResponse{
		Body: models.ServiceActionData{
			ServiceID: serviceID,
			Action:    action,
			PID:       pid,
			Message:   message,
		},
	}
}

// toHTTPError maps supervisor error kinds to HTTP status codes.
func (s *Server) toHTTPError(err error) error {
	switch process.KindOf(err) {
	case process.KindNotFound:
		return huma.Error404NotFound(err.Error())
	case process.KindInvalidCommand:
		return huma.Error400BadRequest(err.Error())
	case process.KindAlreadyRunning:
		return huma.Error409Conflict(err.Error())
	default:
		s.logger.Error("Supervisor operation failed", "error", err)
		return huma.Error500InternalServerError(err.Error())
	}
}
