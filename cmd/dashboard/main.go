// Command dashboard is a terminal front-end for the students API.
//
//	dashboard list -q jan
//	dashboard add -name "Ann" -email ann@x.com -handle ann_cf
//	dashboard profile -id <id> -tab problems -days 30
//
// The API address comes from -api or DASHBOARD_API_URL.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aanand-mishra/students-dashboard/internal/dashboard"
)

const requestTimeout = 15 * time.Second

func main() {
	args, baseURL := splitAPIFlag(os.Args)

	cli := newCommandLine(dashboard.NewAPIClient(baseURL, requestTimeout), os.Stdin, os.Stdout)
	if err := cli.run(args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// splitAPIFlag pulls a leading "-api URL" out of args so every subcommand
// shares it. DASHBOARD_API_URL is the fallback.
func splitAPIFlag(args []string) ([]string, string) {
	baseURL := os.Getenv("DASHBOARD_API_URL")
	if baseURL == "" {
		baseURL = dashboard.DefaultBaseURL
	}

	if len(args) >= 3 && (args[1] == "-api" || args[1] == "--api") {
		baseURL = args[2]
		args = append([]string{args[0]}, args[3:]...)
	}
	return args, baseURL
}
