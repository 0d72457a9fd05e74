// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command advisor starts and talks to the Ghostfolio portfolio
// intelligence service.
//
// # Subcommands
//
//   - serve: start the HTTP server (the containerized entry point)
//   - chat:  interactive REPL against a running server
//   - ask:   one-shot question against a running server
//   - health: check a running server
//
// # Environment Variables
//
//   - ADVISOR_PORT: HTTP server port (default: 12400)
//   - GHOSTFOLIO_URL: Ghostfolio base URL (default: http://localhost:3333)
//   - GHOSTFOLIO_SECURITY_TOKEN: Ghostfolio account security token (required for serve)
//   - ADVISOR_MODEL: Primary LLM model name (default: gpt-4o)
//   - ADVISOR_MODEL_API_KEY: LLM provider API key (required for serve)
//   - ADVISOR_MODEL_BASE_URL: OpenAI-compatible endpoint override (optional)
//   - ADVISOR_FALLBACK_MODEL: Fallback model for throttled requests (optional)
//   - ADVISOR_FALLBACK_API_KEY: Fallback provider key (optional)
//   - ADVISOR_FALLBACK_BASE_URL: Fallback endpoint override (optional)
//   - ADVISOR_API_TOKEN: Static bearer token guarding /v1 (optional)
//   - ADVISOR_PATTERN_CONFIG: Verification pattern override YAML (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//
// # Usage
//
//	# Build
//	go build -o advisor ./cmd/advisor
//
//	# Run the server
//	./advisor serve
//
//	# Chat with it
//	./advisor chat
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "A conversational intelligence layer for Ghostfolio portfolios",
	Long: `Advisor runs an LLM agent over a self-hosted Ghostfolio instance,
answering portfolio questions with verified, cited, data-grounded responses.`,
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
