// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the advisor HTTP server",
	Run:   runServeCommand,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServeCommand(cmd *cobra.Command, args []string) {
	cfg := advisor.Config{
		Port:              getEnvInt("ADVISOR_PORT", 12400),
		GhostfolioURL:     getEnvString("GHOSTFOLIO_URL", "http://localhost:3333"),
		SecurityToken:     os.Getenv("GHOSTFOLIO_SECURITY_TOKEN"),
		Model:             getEnvString("ADVISOR_MODEL", "gpt-4o"),
		ModelAPIKey:       os.Getenv("ADVISOR_MODEL_API_KEY"),
		ModelBaseURL:      os.Getenv("ADVISOR_MODEL_BASE_URL"),
		FallbackModel:     os.Getenv("ADVISOR_FALLBACK_MODEL"),
		FallbackAPIKey:    os.Getenv("ADVISOR_FALLBACK_API_KEY"),
		FallbackBaseURL:   os.Getenv("ADVISOR_FALLBACK_BASE_URL"),
		APIToken:          os.Getenv("ADVISOR_API_TOKEN"),
		PatternConfigPath: os.Getenv("ADVISOR_PATTERN_CONFIG"),
		OTelEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:           os.Getenv("GIN_MODE"),
	}

	slog.Info("Starting advisor",
		"port", cfg.Port,
		"ghostfolio_url", cfg.GhostfolioURL,
		"model", cfg.Model,
		"fallback_model", cfg.FallbackModel,
	)

	svc, err := advisor.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create advisor: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Advisor error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
