package main

import (
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownServerDrainsInFlightRequests(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-release
			w.Write([]byte("done"))
		}),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln) //nolint:errcheck // returns ErrServerClosed on shutdown

	type reply struct {
		body string
		err  error
	}
	got := make(chan reply, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			got <- reply{err: err}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		got <- reply{body: string(body)}
	}()
	<-started

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	// Shutdown must wait for the parked request instead of cutting it off.
	require.NoError(t, shutdownServer(srv, 5*time.Second))

	r := <-got
	require.NoError(t, r.err, "in-flight request was dropped during shutdown")
	assert.Equal(t, "done", r.body)
}

func TestShutdownServerTimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-block
		}),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln) //nolint:errcheck // returns ErrServerClosed on shutdown

	go http.Get("http://" + ln.Addr().String() + "/") //nolint:errcheck // connection dies with the server
	<-started

	err = shutdownServer(srv, 20*time.Millisecond)
	require.Error(t, err, "handler never returns, so the deadline must trip")
}
