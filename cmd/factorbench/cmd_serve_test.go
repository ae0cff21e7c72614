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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/factorbench/services/factorial/config"
	"github.com/AleutianAI/factorbench/services/factorial/examples"
	"github.com/AleutianAI/factorbench/services/factorial/telemetry"
)

func newTestRouter(t *testing.T) (*gin.Engine, testEnv) {
	t.Helper()
	env := newTestEnv(t)
	a := newApp(io.Discard, io.Discard, examples.Default())
	a.cfg = config.Default()
	a.cfg.ArtifactRoot = env.root
	return newRouter(a), env
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)
	w := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRouter_ListBenches(t *testing.T) {
	router, _ := newTestRouter(t)
	w := get(t, router, "/v1/benches")
	require.Equal(t, http.StatusOK, w.Code)

	var benches []benchInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &benches))
	require.Len(t, benches, 3)
	assert.Equal(t, "rotate", benches[0].Name)
	assert.Equal(t, 2, benches[0].NumInputs)
}

func TestRouter_Summary(t *testing.T) {
	router, env := newTestRouter(t)
	env.writeEstimates(t, "rotate", 1)

	w := get(t, router, "/v1/benches/rotate/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var resp summaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rotate", resp.Bench)
	require.Len(t, resp.Rows, 4)

	first := resp.Rows[0]
	assert.Equal(t, 1, first.T)
	assert.Equal(t, 1, first.I)
	assert.Equal(t, 1, first.A)
	require.NotNil(t, first.Estimate)
	assert.Equal(t, 100.0, *first.Estimate)
	assert.Equal(t, "best", first.Rank)
	assert.Equal(t, "worst", resp.Rows[1].Rank)
	assert.Equal(t, 2, resp.Counts["best"])
}

func TestRouter_SummaryMissing(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/v1/benches/rotate/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var resp summaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, row := range resp.Rows {
		assert.Nil(t, row.Estimate)
		assert.Equal(t, "missing", row.Rank)
	}
}

func TestRouter_UnknownBench(t *testing.T) {
	router, _ := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/v1/benches/nope/summary").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/v1/benches/nope/prompt").Code)
}

func TestRouter_Prompt(t *testing.T) {
	router, _ := newTestRouter(t)
	w := get(t, router, "/v1/benches/search/prompt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "search")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
}

func TestRouter_Metrics(t *testing.T) {
	a := newApp(io.Discard, io.Discard, examples.Default())
	a.cfg = config.Default()
	a.cfg.ArtifactRoot = t.TempDir()

	sink, err := a.sink()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	require.NoError(t, sink.RecordTreatment(t.Context(), &telemetry.TreatmentData{
		Bench:      "rotate",
		LongKey:    "width:2/len:1001_sort:false",
		EstimateNs: 120,
		Valid:      true,
		Rank:       "best",
	}))

	w := get(t, newRouter(a), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.Contains(w.Body.Bytes(), []byte("factorbench_grid_")))
}
