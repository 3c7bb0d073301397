package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// listener runs one net/http server until shutdown. The API and metrics servers share it.
type listener struct {
	name   string
	server *http.Server
	logger *slog.Logger
}

// serve blocks until the server stops. A stop caused by shutdown is not an error.
func (l *listener) serve() error {
	l.logger.Info("starting "+l.name, slog.String("addr", l.server.Addr))

	if err := l.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start %s: %w", l.name, err)
	}
	return nil
}

func (l *listener) shutdown(ctx context.Context) error {
	l.logger.Info("shutting down " + l.name)
	return l.server.Shutdown(ctx)
}
