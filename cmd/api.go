package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/sptx/internal/server"
	"github.com/desertthunder/sptx/internal/shared"
	"github.com/urfave/cli/v3"
)

// newAPIRouter builds the JSON API with CORS, logging and panic recovery.
func (r *Runner) newAPIRouter() *server.BasicRouter {
	logger := shared.WithLogger(r.logger, "component", "api")

	router := server.NewBasicRouter()
	router.Use(server.Recover(logger), server.Logging(logger), server.CORS(r.config.Server.FrontendURL))

	api := server.NewAPI(server.APIOpts{
		Auth:   r.auth,
		Client: r.client,
		Engine: r.engine,
		Logger: logger,
	})
	api.Register(router)
	return router
}

// Serve runs the JSON API until interrupted.
//
// The API is stateless: callers pass tokens with every request and nothing is written to the session file.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.APIPort)
	}

	if r.auth == nil {
		r.logger.Warn("spotify credentials missing, auth actions will report an error")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           r.newAPIRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	r.writePlain("→ Serving the API on http://%s (Ctrl+C to stop)\n", addr)
	return server.Serve(ctx, srv, r.logger)
}
