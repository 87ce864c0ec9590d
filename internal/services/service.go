// Package services reads the catalog of service definitions the supervisor
// runs. The catalog is owned by the user and is never written here.
package services

import (
	"github.com/smazurov/servicedeck/internal/process"
)

// Service is a user-defined command line that servicedeck can run.
type Service struct {
	ID         int64  `toml:"id" json:"id"`
	Name       string `toml:"name" json:"name"`
	Command    string `toml:"command" json:"command"`
	WorkingDir string `toml:"working_dir,omitempty" json:"working_dir,omitempty"`
	ProjectID  int64  `toml:"project_id,omitempty" json:"project_id,omitempty"`
	AutoStart  bool   `toml:"auto_start,omitempty" json:"auto_start"`
}

// Spec returns the part of the service the supervisor needs.
func (s Service) Spec() process.Spec {
	return process.Spec{
		Name:       s.Name,
		Command:    s.Command,
		WorkingDir: s.WorkingDir,
	}
}

// Catalog provides read access to service definitions.
type Catalog interface {
	// Load (re)reads the catalog. On error the previous contents are kept.
	Load() error
	Get(id int64) (Service, bool)
	// All returns every service ordered by id.
	All() []Service
	Path() string
}
