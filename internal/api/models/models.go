package models

import (
	"time"

	"github.com/smazurov/servicedeck/internal/logstore"
)

// Health check models
type HealthData struct {
	Status   string `json:"status" example:"ok" doc:"Service status"`
	Message  string `json:"message" example:"API is healthy" doc:"Status message"`
	Running  int    `json:"running" example:"2" doc:"Number of running services"`
	Services int    `json:"services" example:"5" doc:"Number of services in the catalog"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"v0.3.0" doc:"Release version"`
	GitCommit string `json:"git_commit" example:"1a2b3c4d" doc:"Source revision"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	Modified  bool   `json:"modified" doc:"Built from a dirty working tree"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Service models
type ServiceData struct {
	ID         int64      `json:"id" example:"1" doc:"Service identifier"`
	Name       string     `json:"name" example:"api" doc:"Display name"`
	Command    string     `json:"command" example:"npm run dev" doc:"Command line"`
	WorkingDir string     `json:"working_dir,omitempty" example:"/home/me/api" doc:"Working directory"`
	ProjectID  int64      `json:"project_id,omitempty" example:"3" doc:"Owning project"`
	AutoStart  bool       `json:"auto_start" doc:"Started when servicedeck starts"`
	State      string     `json:"state" example:"running" doc:"Supervisor state"`
	Running    bool       `json:"running" doc:"Whether the service has a live process"`
	PID        int        `json:"pid,omitempty" example:"4242" doc:"OS process id"`
	RunID      string     `json:"run_id,omitempty" doc:"Identifier of the current run"`
	StartedAt  *time.Time `json:"started_at,omitempty" doc:"When the current run started"`
}

type ServiceListData struct {
	Services []ServiceData `json:"services" doc:"Catalog services with live status"`
	Count    int           `json:"count" example:"2" doc:"Number of services"`
}

type ServiceListResponse struct {
	Body ServiceListData
}

type ServiceResponse struct {
	Body ServiceData
}

type ServiceIDInput struct {
	ServiceID int64 `path:"service_id" minimum:"1" example:"1" doc:"Service identifier"`
}

type ServiceActionData struct {
	ServiceID int64  `json:"service_id" example:"1" doc:"Service identifier"`
	Action    string `json:"action" example:"start" doc:"Action performed (start, stop, restart)"`
	PID       int    `json:"pid,omitempty" example:"4242" doc:"OS process id of the new run"`
	Message   string `json:"message" example:"Service started" doc:"Result message"`
}

type ServiceActionResponse struct {
	Body ServiceActionData
}

type ServiceStatusData struct {
	ServiceID int64      `json:"service_id" example:"1" doc:"Service identifier"`
	Running   bool       `json:"running" doc:"Whether the service has a live process"`
	State     string     `json:"state" example:"running" doc:"Supervisor state"`
	PID       int        `json:"pid,omitempty" example:"4242" doc:"OS process id"`
	RunID     string     `json:"run_id,omitempty" doc:"Identifier of the current run"`
	StartedAt *time.Time `json:"started_at,omitempty" doc:"When the current run started"`
}

type ServiceStatusResponse struct {
	Body ServiceStatusData
}

// Log models
type LogsInput struct {
	ServiceID int64 `path:"service_id" minimum:"1" example:"1" doc:"Service identifier"`
	Limit     int   `query:"limit" minimum:"0" example:"100" doc:"Return at most this many entries, newest first. 0 returns everything retained"`
}

type LogsData struct {
	ServiceID int64            `json:"service_id" example:"1" doc:"Service identifier"`
	Entries   []logstore.Entry `json:"entries" doc:"Log entries, newest first"`
	Count     int              `json:"count" example:"20" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

// Process models
type ProcessInput struct {
	PID int `path:"pid" minimum:"1" example:"4242" doc:"OS process id"`
}

type ProcessData struct {
	PID         int     `json:"pid" example:"4242" doc:"OS process id"`
	Name        string  `json:"name" example:"node" doc:"Process name"`
	CPUPercent  float64 `json:"cpu_percent" example:"12.3" doc:"Average CPU usage since start"`
	MemoryBytes uint64  `json:"memory_bytes" example:"52428800" doc:"Resident memory"`
	Summary     string  `json:"summary" example:"CPU: 12.3%, Memory: 50.0MB" doc:"Human readable summary"`
}

type ProcessResponse struct {
	Body ProcessData
}
