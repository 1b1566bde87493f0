package workers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const shutdownGracePeriod = 5 * time.Second

// HTTPServerWorker runs the gateway's HTTP server under the supervisor,
// shutting it down gracefully when the supervised context is canceled.
type HTTPServerWorker struct {
	log    *slog.Logger
	server *http.Server
}

func NewHTTPServerWorker(log *slog.Logger, server *http.Server) *HTTPServerWorker {
	return &HTTPServerWorker{log: log, server: server}
}

func (w *HTTPServerWorker) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- w.server.ListenAndServe()
	}()

	w.log.Info("Gateway listening", "addr", w.server.Addr)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		w.log.Info("Shutting down gateway")
		return w.server.Shutdown(shutdownCtx)
	}
}
