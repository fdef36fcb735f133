package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/jonasfabian/drawdash/internal/config"
	"github.com/jonasfabian/drawdash/internal/game"
	"github.com/jonasfabian/drawdash/internal/ws"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`drawdash - Real-time drawing and guessing game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                   Port to listen on (default: 8080)
  MIN_PLAYERS            Players needed to start a room (default: 2)
  MAX_PLAYERS            Room capacity (default: 8)
  ROUND_DURATION         Round length in seconds (default: 60)
  INTERMISSION_DURATION  Pause between rounds in seconds (default: 5)
  TOTAL_ROUNDS           Rounds per game (default: 3)
  PROMPTS                Comma-separated prompt pool (default: built-in list)

Endpoints:
  ws://host:PORT/ws      Game websocket
  http://host:PORT/health
  http://host:PORT/rooms
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("drawdash %s\n", version)
		return
	}

	cfg := config.FromEnv()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /ws noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/ws") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})
	r.Use(cors.Default())

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	registry := game.NewRegistry(game.Config{
		MinPlayers:           cfg.MinPlayers,
		MaxPlayers:           cfg.MaxPlayers,
		RoundDuration:        cfg.RoundDuration,
		IntermissionDuration: cfg.IntermissionDuration,
		TotalRounds:          cfg.TotalRounds,
		Prompts:              cfg.Prompts,
	})

	// Active room listing for operators and tests
	r.GET("/rooms", func(c *gin.Context) {
		rooms := registry.ListActiveRooms()
		c.JSON(http.StatusOK, gin.H{"rooms": rooms, "count": len(rooms)})
	})

	gateway := ws.New(registry)
	gateway.Mount(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		zerologlog.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerologlog.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zerologlog.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zerologlog.Error().Err(err).Msg("shutdown")
	}
	zerologlog.Info().Msg("server closed")
}
