// Command inspector runs the credential self-test once against the configured
// wallet and exits non-zero when the balance probe fails.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/GoPolymarket/polycreds/internal/config"
	"github.com/GoPolymarket/polycreds/internal/pkg/logger"
	"github.com/GoPolymarket/polycreds/internal/service"
)

func main() {
	derive := flag.Bool("derive", false, "derive L2 credentials before the self-test when none are configured")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	timeout := flag.Duration("timeout", 60*time.Second, "overall deadline")
	flag.Parse()

	logger.Init("warn")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	mgr, err := service.NewAuthManager(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *derive && cfg.Polymarket.ApiKey == "" {
		if _, err := mgr.DeriveCreds(ctx, "inspector"); err != nil {
			fmt.Fprintf(os.Stderr, "derive: %v\n", err)
		}
	}

	report := mgr.SelfTest(ctx)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		for _, line := range report.Details {
			fmt.Println(line)
		}
		fmt.Printf("ok=%t\n", report.OK)
	}

	if !report.OK {
		os.Exit(1)
	}
}
