// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/handlers"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/middleware"
)

// SetupRoutes registers all HTTP routes on the router.
//
// # Description
//
// /health and /metrics are always open; the /v1 API group is guarded by
// the static token middleware (a no-op when apiToken is empty).
func SetupRoutes(router *gin.Engine, orch handlers.Orchestrator, apiToken string) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.StaticTokenAuth(apiToken))
	{
		v1.POST("/query", handlers.HandleQuery(orch))
	}
}
