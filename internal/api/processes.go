package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/servicedeck/internal/api/models"
)

func (s *Server) registerProcessRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-process-info",
		Method:      http.MethodGet,
		Path:        "/api/processes/{pid}",
		Summary:     "Process Info",
		Description: "Best-effort CPU and memory lookup of any OS process, supervised or not",
		Tags:        []string{"processes"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.ProcessInput) (*models.ProcessResponse, error) {
		info, ok := s.supervisor.ProcessInfo(input.PID)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf("process %d not found", input.PID))
		}
		return &models.ProcessResponse{
			Body: models.ProcessData{
				PID:         info.PID,
				Name:        info.Name,
				CPUPercent:  info.CPUPercent,
				MemoryBytes: info.MemoryBytes,
				Summary:     info.Summary,
			},
		}, nil
	})
}
