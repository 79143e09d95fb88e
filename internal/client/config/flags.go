package config

import (
	"flag"
	"os"
	"time"

	"github.com/custodia-project/custodia/internal/flagx"
)

// parseFlags populates client Config fields from command-line flags:
//
//	-a string   server endpoint (e.g., "http://localhost:8080")
//	-t string   API bearer token
//	-k string   case id uploads belong to
//	-n int      max parallel uploads
//	-r int      retry attempts for transient failures
//	-w int      retry backoff base, milliseconds
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-k", "-n", "-r", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerEndpointAddr, "a", config.ServerEndpointAddr, "server endpoint")
	fs.StringVar(&config.APIToken, "t", config.APIToken, "API token")
	fs.StringVar(&config.CaseID, "k", config.CaseID, "case id")
	fs.IntVar(&config.MaxParallelUploads, "n", config.MaxParallelUploads, "max parallel uploads")
	fs.IntVar(&config.RetryAttempts, "r", config.RetryAttempts, "retry attempts")
	backoffMs := fs.Int("w", int(config.RetryBackoff.Milliseconds()), "retry backoff (in milliseconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RetryBackoff = time.Duration(*backoffMs) * time.Millisecond
}
