package perf

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Serve exposes /debug/metrics and /debug/vars on ln until ctx is done.
func Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: http.DefaultServeMux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
