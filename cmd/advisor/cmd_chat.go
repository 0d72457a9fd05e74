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
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

var (
	serverURL string
	showMeta  bool

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Interactive portfolio chat against a running advisor server",
		Run:   runChatCommand,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one portfolio question and exit",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	}
)

func init() {
	for _, cmd := range []*cobra.Command{chatCmd, askCmd} {
		cmd.Flags().StringVar(&serverURL, "server", "", "Advisor server URL (default http://localhost:12400)")
		cmd.Flags().BoolVar(&showMeta, "meta", false, "Print citations, confidence, and verification details")
		rootCmd.AddCommand(cmd)
	}
}

func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	resp, err := sendQuery(question, uuid.NewString())
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	printResponse(resp)
}

func runChatCommand(cmd *cobra.Command, args []string) {
	conversationID := uuid.NewString()
	fmt.Println("Portfolio chat. Type 'exit' or 'quit' to leave.")
	fmt.Printf("Conversation: %s\n---\n", conversationID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		resp, err := sendQuery(line, conversationID)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printResponse(resp)
	}
}

func printResponse(resp *datatypes.QueryResponse) {
	fmt.Printf("\n%s\n", resp.Response)
	if showMeta {
		fmt.Printf("\n[confidence: %s", resp.Confidence)
		if resp.Cached {
			fmt.Print(", cached")
		}
		fmt.Println("]")
		for _, citation := range resp.Citations {
			fmt.Printf("  source: %s\n", citation)
		}
		for _, warning := range resp.Verification.Warnings {
			fmt.Printf("  %s\n", warning)
		}
	}
	fmt.Println("---")
}

func sendQuery(message, conversationID string) (*datatypes.QueryResponse, error) {
	body, err := json.Marshal(datatypes.QueryRequest{
		Message:        message,
		ConversationID: conversationID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, advisorBaseURL()+"/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := os.Getenv("ADVISOR_API_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// Agent runs can take a while when many tools are involved.
	client := &http.Client{Timeout: 5 * time.Minute}
	httpResp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("server returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(data)))
	}

	var resp datatypes.QueryResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// advisorBaseURL resolves the server URL from the flag, then the
// environment, then the local default.
func advisorBaseURL() string {
	if serverURL != "" {
		return strings.TrimRight(serverURL, "/")
	}
	if env := os.Getenv("ADVISOR_SERVER_URL"); env != "" {
		return strings.TrimRight(env, "/")
	}
	return "http://localhost:12400"
}
