package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressSnapshot(t *testing.T) {
	p := NewProgress()
	assert.Equal(t, "starting", p.Snapshot().Stage)

	p.SetStage("scraping")
	p.Update(func(pr *Progress) {
		pr.Discovered = 30
		pr.Stored = 12
	})

	snap := p.Snapshot()
	assert.Equal(t, "scraping", snap.Stage)
	assert.Equal(t, 30, snap.Discovered)
	assert.Equal(t, 12, snap.Stored)
}

func TestProgressConcurrentUpdates(t *testing.T) {
	p := NewProgress()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Update(func(pr *Progress) { pr.Stored++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, p.Snapshot().Stored)
}

func TestServerEndpoints(t *testing.T) {
	progress := NewProgress()
	progress.SetStage("collecting")
	progress.Update(func(pr *Progress) { pr.Discovered = 7 })

	srv := NewServer(":0", progress, slog.Default())
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap Progress
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "collecting", snap.Stage)
	assert.Equal(t, 7, snap.Discovered)
}
