package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mailvalid/internal/client"
	"mailvalid/internal/config"
	"mailvalid/internal/filegate"
	"mailvalid/internal/progress"
	"mailvalid/internal/session"
	"mailvalid/internal/stubserver"
	"mailvalid/internal/ui"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	var (
		configPath = flag.String("config", "config.yml", "path to YAML config")
		inputFile  = flag.String("file", "", "input file to validate (.xlsx, .xls or .csv)")
		serverURL  = flag.String("server", "", "validation server URL (overrides config)")
		skipFetch  = flag.Bool("no-download", false, "do not fetch the result after completion")
		useStub    = flag.Bool("stub", false, "run against a built-in stub server")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "usage: mailvalid -file <input.xlsx>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	stop := func() {}
	if *useStub {
		var stubURL string
		stubURL, stop = startStub()
		cfg.ServerURL = stubURL
	}

	code := run(cfg, *inputFile, *skipFetch)
	stop()
	os.Exit(code)
}

func run(cfg config.Config, inputFile string, skipFetch bool) int {
	messenger := ui.NewMessenger(os.Stdout, ui.DefaultHideAfter)
	var sawError atomic.Bool

	sess := session.New(session.Options{
		API:          client.New(cfg.ServerURL),
		Gate:         filegate.New(cfg.AllowedExtensions),
		PollInterval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		DownloadDir:  cfg.DownloadDir,
		Submit: client.SubmitOptions{
			TimeoutSeconds:  cfg.Validation.TimeoutSeconds,
			CheckSMTP:       cfg.Validation.CheckSMTP,
			SeparateInvalid: cfg.Validation.SeparateInvalid,
			MaxEmails:       cfg.Validation.MaxEmails,
		},
		OnProgress: func(d progress.Display) {
			fmt.Fprintf(os.Stdout, "\r%s", ui.RenderLine(d))
		},
		OnMessage: func(lv session.Level, msg string) {
			fmt.Fprintln(os.Stdout)
			switch lv {
			case session.LevelSuccess:
				messenger.Success(msg)
			case session.LevelError:
				sawError.Store(true)
				messenger.Error(msg)
			default:
				messenger.Info(msg)
			}
		},
	})

	ctx := context.Background()
	if err := sess.AcceptFile(inputFile); err != nil {
		return 1
	}
	if err := sess.Submit(ctx); err != nil {
		return 1
	}

	// Ctrl-C stops polling; the queued job keeps running server-side
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		sess.Cancel()
	}()

	<-sess.Done()

	if sess.DownloadReady() && !skipFetch {
		if _, err := sess.Download(ctx); err != nil {
			return 1
		}
	}
	if sawError.Load() {
		return 1
	}
	return 0
}

// startStub serves the built-in stub on a loopback port.
func startStub() (url string, stop func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start stub server")
	}
	srv := &http.Server{
		Handler:           stubserver.New(stubserver.Options{}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("stub server failed")
		}
	}()
	return "http://" + ln.Addr().String(), func() { _ = srv.Close() }
}
