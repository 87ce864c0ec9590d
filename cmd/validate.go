package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/smazurov/servicedeck/internal/services"
	"github.com/spf13/cobra"
)

// CreateValidateCmd creates the validate command.
func CreateValidateCmd() *cobra.Command {
	var servicesFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the services file",
		Long: `Loads the services file and reports services whose command is empty, ` +
			`whose executable cannot be found, or whose working directory is missing.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			os.Exit(validateServices(servicesFile, os.Stdout))
		},
	}

	cmd.Flags().StringVarP(&servicesFile, "services", "s", services.DefaultPath, "Path to services file")

	return cmd
}

// validateServices prints every problem found and returns the exit code.
func validateServices(path string, out io.Writer) int {
	catalog := services.NewTOML(path)
	if err := catalog.Load(); err != nil {
		fmt.Fprintf(out, "%s: %v\n", path, err)
		return 2
	}

	problems := services.CheckAll(catalog)
	for _, p := range problems {
		fmt.Fprintln(out, p.String())
	}
	if len(problems) > 0 {
		fmt.Fprintf(out, "%d problem(s) in %d service(s)\n", len(problems), len(catalog.All()))
		return 1
	}

	fmt.Fprintf(out, "%d service(s) OK\n", len(catalog.All()))
	return 0
}
