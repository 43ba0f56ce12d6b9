// Command apikey mints caller API keys from the command line, for
// deployments that have not set up the admin console yet.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/huangang/llmrouter/internal/config"
	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/services"
)

func main() {
	name := flag.String("name", "", "caller name (required)")
	limit := flag.Float64("limit", 0, "spending limit in USD (0 = unlimited)")
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: apikey -name <caller-name> [-limit <usd>]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := models.InitDB(&cfg.Database); err != nil {
		fmt.Fprintf(os.Stderr, "connect database: %v\n", err)
		os.Exit(1)
	}
	if err := models.AutoMigrate(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}

	req := &services.CreateCallerRequest{Name: *name}
	if *limit > 0 {
		req.SpendingLimitUSD = limit
	}

	resp, err := services.NewCallerService(models.GetDB()).Create(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create caller: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("caller:  %s (id %d)\n", resp.Caller.Name, resp.Caller.ID)
	if resp.Caller.SpendingLimitUSD != nil {
		fmt.Printf("limit:   $%.2f\n", *resp.Caller.SpendingLimitUSD)
	} else {
		fmt.Println("limit:   unlimited")
	}
	fmt.Printf("api key: %s\n", resp.APIKey)
	fmt.Println("\nStore this key now; it is not shown again.")
}
