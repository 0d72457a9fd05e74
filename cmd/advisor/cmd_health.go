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
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running advisor server",
	Run:   runHealthCommand,
}

func init() {
	healthCmd.Flags().StringVar(&serverURL, "server", "", "Advisor server URL (default http://localhost:12400)")
	rootCmd.AddCommand(healthCmd)
}

func runHealthCommand(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 10 * time.Second}
	httpResp, err := client.Get(advisorBaseURL() + "/health")
	if err != nil {
		log.Fatalf("Advisor unreachable: %v", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		log.Fatalf("Advisor unhealthy: status %d", httpResp.StatusCode)
	}

	var resp datatypes.HealthResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		log.Fatalf("Bad health response: %v", err)
	}
	fmt.Printf("%s: %s\n", resp.Service, resp.Status)
}
