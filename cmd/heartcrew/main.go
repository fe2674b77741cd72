// Command heartcrew runs the heart diagnosis and treatment crew.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command := os.Args[1]; command {
	case "run":
		err = handleRun(ctx, os.Args[2:])
	case "check":
		err = handleCheck(ctx, os.Args[2:])
	case "predict":
		err = handlePredict(ctx, os.Args[2:])
	case "serve":
		err = handleServe(ctx, os.Args[2:])
	case "init":
		err = handleInit(os.Args[2:])
	case "version":
		handleVersion()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("heartcrew - heart diagnosis & treatment crew %s\n\n", version)
	fmt.Println("Usage:")
	fmt.Println("  heartcrew run [--config file] [--symptoms text]  Diagnose a patient and suggest treatment")
	fmt.Println("  heartcrew check [--config file]                   Smoke-test the predictor and image tools")
	fmt.Println("  heartcrew predict [--config file]                 Classify the sample patient panel without agents")
	fmt.Println("  heartcrew serve [--config file] [--addr :8080]    Serve the HTTP API")
	fmt.Println("  heartcrew init [dir]                              Write a starter config, .env and model artifact")
	fmt.Println("  heartcrew version                                 Show version information")
	fmt.Println("  heartcrew help                                    Show this help message")
}

func handleVersion() {
	fmt.Printf("heartcrew version %s\n", version)
}

// configFlag registers the --config flag every command shares.
func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "", "YAML config file (optional)")
}
