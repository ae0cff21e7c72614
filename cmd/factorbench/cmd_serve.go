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
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/factorbench/pkg/logging"
	"github.com/AleutianAI/factorbench/services/factorial/examples"
	"github.com/AleutianAI/factorbench/services/factorial/summary"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and experiment summaries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Serve.Addr = addr
			}
			srv := &http.Server{
				Addr:              a.cfg.Serve.Addr,
				Handler:           newRouter(a),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			a.printer.Info("serving on http://" + a.cfg.Serve.Addr)
			a.logger.Info("report server started", "addr", a.cfg.Serve.Addr)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// newRouter builds the report server routes.
func newRouter(a *app) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(logging.DefaultService))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	{
		v1.GET("/benches", handleListBenches(a.registry))
		v1.GET("/benches/:name/summary", handleSummary(a))
		v1.GET("/benches/:name/prompt", handlePrompt(a))
	}
	return router
}

type benchInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	NumInputs   int    `json:"num_inputs"`
	NumAlgs     int    `json:"num_algs"`
}

type summaryRow struct {
	T        int      `json:"t"`
	I        int      `json:"i"`
	A        int      `json:"a"`
	LongKey  string   `json:"long_key"`
	ShortKey string   `json:"short_key"`
	Estimate *float64 `json:"estimate_ns"`
	Rank     string   `json:"rank"`
}

type summaryResponse struct {
	Bench     string         `json:"bench"`
	NumInputs int            `json:"num_inputs"`
	NumAlgs   int            `json:"num_algs"`
	Counts    map[string]int `json:"counts"`
	Rows      []summaryRow   `json:"rows"`
}

func handleListBenches(registry *examples.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := registry.Resolve()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]benchInfo, 0, len(entries))
		for _, e := range entries {
			g := e.Grid()
			out = append(out, benchInfo{
				Name:        e.Name(),
				Description: e.Description(),
				NumInputs:   g.NumInputs,
				NumAlgs:     g.NumAlgs,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// loadReport builds the report of the :name bench, writing the error
// response itself on failure.
func loadReport(a *app, c *gin.Context) (*summary.Report, bool) {
	e, err := a.registry.Get(c.Param("name"))
	if errors.Is(err, examples.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	report, err := summary.Build(c.Request.Context(), a.cfg.ArtifactRoot, e.Grid())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return report, true
}

func handleSummary(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ok := loadReport(a, c)
		if !ok {
			return
		}

		resp := summaryResponse{
			Bench:     report.Bench(),
			NumInputs: report.Grid.NumInputs,
			NumAlgs:   report.Grid.NumAlgs,
			Counts:    make(map[string]int),
		}
		for rank, n := range report.Counts() {
			resp.Counts[rank.String()] = n
		}
		for _, row := range report.Rows() {
			sr := summaryRow{
				T:        row.T(),
				I:        row.I(),
				A:        row.A(),
				LongKey:  row.LongKey,
				ShortKey: row.ShortKey,
				Rank:     row.Rank.String(),
			}
			if row.Estimate.Valid {
				ns := row.Estimate.Ns
				sr.Estimate = &ns
			}
			resp.Rows = append(resp.Rows, sr)
		}
		c.JSON(http.StatusOK, resp)
	}
}

func handlePrompt(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ok := loadReport(a, c)
		if !ok {
			return
		}
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Prompt()))
	}
}
