package services

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/smazurov/servicedeck/internal/process"
)

// Problem is a reason a service is unlikely to start.
type Problem struct {
	ServiceID int64  `json:"service_id"`
	Name      string `json:"name"`
	Message   string `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("service %d (%s): %s", p.ServiceID, p.Name, p.Message)
}

// Check reports problems with a service definition without starting it:
// an empty command, an executable missing from PATH, or a working directory
// that does not exist.
func Check(svc Service) []Problem {
	var problems []Problem
	add := func(format string, args ...any) {
		problems = append(problems, Problem{ServiceID: svc.ID, Name: svc.Name, Message: fmt.Sprintf(format, args...)})
	}

	args, err := process.ParseCommand(svc.Command)
	if err != nil {
		add("command is empty")
	} else if _, lookErr := exec.LookPath(executable(svc.WorkingDir, args[0])); lookErr != nil {
		add("executable %q not found", args[0])
	}

	if svc.WorkingDir != "" {
		info, statErr := os.Stat(svc.WorkingDir)
		switch {
		case statErr != nil:
			add("working directory %q: %v", svc.WorkingDir, statErr)
		case !info.IsDir():
			add("working directory %q is not a directory", svc.WorkingDir)
		}
	}

	return problems
}

// executable resolves a relative path like ./run.sh against the working
// directory, as the process would see it. Bare names are left for PATH lookup.
func executable(dir, name string) string {
	if dir == "" || filepath.IsAbs(name) || !strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(dir, name)
}

// CheckAll runs Check over every service in the catalog.
func CheckAll(catalog Catalog) []Problem {
	var problems []Problem
	for _, svc := range catalog.All() {
		problems = append(problems, Check(svc)...)
	}
	return problems
}
