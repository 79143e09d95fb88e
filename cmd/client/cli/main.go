package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/custodia-project/custodia/internal/client/api"
	"github.com/custodia-project/custodia/internal/client/config"
	"github.com/custodia-project/custodia/internal/client/orchestrator"
	"github.com/custodia-project/custodia/internal/logging"
)

func main() {
	cfg := config.LoadConfig()

	paths := filePaths(os.Args[1:])
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: custodia-cli -a <server> -t <token> -k <case-id> <file>...")
		os.Exit(2)
	}
	if cfg.APIToken == "" {
		fmt.Fprintln(os.Stderr, "an API token is required (-t)")
		os.Exit(2)
	}
	if cfg.CaseID == "" {
		fmt.Fprintln(os.Stderr, "a case id is required (-k)")
		os.Exit(2)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	client := api.NewHTTPClient(cfg.ServerEndpointAddr, cfg.APIToken)
	retry := orchestrator.NewRetryPolicy(cfg.RetryAttempts, cfg.RetryBackoff)
	o := orchestrator.NewOrchestrator(client, cfg.CaseID, cfg.MaxParallelUploads, retry, logger)

	unsubscribe := o.Subscribe(func(ev orchestrator.Event) {
		switch ev.State {
		case orchestrator.StateVerified:
			fmt.Printf("%s: verified (%s)\n", ev.Path, ev.SHA256)
		case orchestrator.StateDuplicate:
			fmt.Printf("%s: duplicate of %s\n", ev.Path, ev.ExistingID)
		case orchestrator.StateFailed:
			fmt.Fprintf(os.Stderr, "%s: failed: %v\n", ev.Path, ev.Err)
		default:
			fmt.Printf("%s: %s\n", ev.Path, ev.State)
		}
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := o.Run(ctx, paths)

	var verified, duplicate, failed int
	for _, res := range results {
		switch res.State {
		case orchestrator.StateVerified:
			verified++
		case orchestrator.StateDuplicate:
			duplicate++
		default:
			failed++
		}
	}

	fmt.Printf("done: %d verified, %d duplicate, %d failed\n", verified, duplicate, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// filePaths returns the positional arguments: everything that is neither a
// known flag nor a flag value.
func filePaths(args []string) []string {
	flagsWithValue := map[string]bool{
		"-a": true, "-t": true, "-k": true, "-n": true, "-r": true, "-w": true,
		"-c": true, "-config": true,
	}

	var paths []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			if !strings.Contains(arg, "=") && flagsWithValue[arg] && i+1 < len(args) {
				i++
			}
			continue
		}
		paths = append(paths, arg)
	}
	return paths
}
