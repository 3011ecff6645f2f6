package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/observability"
)

func TestHealth(t *testing.T) {
	h := NewServer(nil).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatus_Idle(t *testing.T) {
	h := NewServer(nil).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var st Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, stateIdle, st.State)
	assert.Zero(t, st.Builds)
	assert.Nil(t, st.Last)
	assert.Nil(t, st.FinishedAt)
}

func TestStatus_Recorded(t *testing.T) {
	s := NewServer(nil)
	s.Start()
	assert.Equal(t, stateRunning, s.Status().State)

	s.Record(&domain.Report{RunID: "r1", Status: domain.StatusDone, Passes: 2})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	var st Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, stateIdle, st.State)
	assert.Equal(t, 1, st.Builds)
	require.NotNil(t, st.Last)
	assert.Equal(t, "r1", st.Last.RunID)
	assert.Equal(t, 2, st.Last.Passes)
	assert.NotNil(t, st.FinishedAt)
}

func TestBuild(t *testing.T) {
	calls := 0
	s := NewServer(func(ctx context.Context) (*domain.Report, error) {
		calls++
		return &domain.Report{RunID: "r2", Status: domain.StatusDone}, nil
	})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/build", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, s.Status().Builds)
	assert.Equal(t, "r2", s.Status().Last.RunID)
}

func TestBuild_Failed(t *testing.T) {
	s := NewServer(func(ctx context.Context) (*domain.Report, error) {
		err := errors.New("tool \"rp\" failed")
		return &domain.Report{Status: domain.StatusFailed, Error: err.Error()}, err
	})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/build", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var report domain.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, domain.StatusFailed, report.Status)
	assert.Contains(t, report.Error, "rp")
}

func TestBuild_NilReport(t *testing.T) {
	s := NewServer(func(ctx context.Context) (*domain.Report, error) {
		return nil, domain.ErrConfig
	})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/build", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, domain.ErrConfig.Error(), s.Status().Last.Error)
}

func TestBuild_Busy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := NewServer(func(ctx context.Context) (*domain.Report, error) {
		close(started)
		<-release
		return &domain.Report{Status: domain.StatusDone}, nil
	})
	h := s.Handler()

	done := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/build", nil))
		done <- w.Code
	}()
	<-started

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/build", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestBuild_Disabled(t *testing.T) {
	w := httptest.NewRecorder()
	NewServer(nil).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/build", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestMetrics(t *testing.T) {
	m := observability.NewMetrics()
	m.Hooks().OnPassStart(context.Background(), &domain.PassEvent{Pass: 1})

	h := NewServer(nil, WithMetrics(m.Handler())).Handler()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "zres_passes_total 1")
}

func TestMetrics_NotConfigured(t *testing.T) {
	w := httptest.NewRecorder()
	NewServer(nil).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- ListenAndServe(ctx, addr, NewServer(nil).Handler(), nil)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
