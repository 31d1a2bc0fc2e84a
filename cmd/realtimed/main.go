// Command realtimed runs the realtime messaging server: a WebSocket
// endpoint authenticated by bearer tokens, with user/role/topic routing
// and an optional Redis relay for multi-instance deployments.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/pulsegrid/realtime/config"
	"github.com/pulsegrid/realtime/src/auth"
	"github.com/pulsegrid/realtime/src/bridge"
	"github.com/pulsegrid/realtime/src/realtime"
	"github.com/pulsegrid/realtime/src/transport"
)

var (
	addr        = flag.String("addr", "", "listen address (overrides RT_ADDR)")
	debug       = flag.Bool("debug", false, "enable debug logging")
	pretty      = flag.Bool("pretty", false, "human-readable log output")
	redisBridge = flag.Bool("redis-bridge", false, "relay messages between instances via Redis")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	logger := newLogger(*debug, *pretty)
	cfg := config.FromEnv()
	if *addr != "" {
		cfg.Addr = *addr
	}
	if cfg.TokenSecret == "" {
		logger.Fatal().Msg("RT_TOKEN_SECRET is required")
	}

	verifier := auth.NewHMACVerifier([]byte(cfg.TokenSecret))
	svc := realtime.New(verifier, logger)
	svc.SetConnectionLimit(cfg.MaxConnections)

	if *redisBridge {
		initBridge(svc, logger)
	}

	handler := transport.NewHandler(svc, cfg, logger)

	app := fiber.New()
	handler.RegisterRoutes(app.Group("/"))
	fiberHandler := app.Handler()

	// Fiber v3 does not expose *fasthttp.RequestCtx, so the WebSocket
	// upgrade is dispatched at the fasthttp level.
	wsHandler := handler.FastHTTPHandler()
	root := func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/ws" {
			wsHandler(ctx)
			return
		}
		fiberHandler(ctx)
	}

	server := &fasthttp.Server{
		Handler:         root,
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("realtime server listening")
		if err := server.ListenAndServe(cfg.Addr); err != nil {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

// initBridge tries to start the Redis relay. If Redis is not reachable,
// the server runs standalone.
func initBridge(svc *realtime.Service, logger zerolog.Logger) {
	cfg := bridge.RedisConfigFromEnv()
	rb := bridge.NewRedisBridge(cfg, svc, logger)

	if err := rb.Start(); err != nil {
		logger.Warn().Err(err).Msg("redis bridge unavailable, running standalone")
		return
	}
	svc.SetBridge(rb)
	logger.Info().Str("redis_addr", cfg.Addr).Msg("redis bridge connected")
}

func newLogger(debug, pretty bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	var out zerolog.Logger
	if pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return out.Level(level).With().Timestamp().Logger()
}
