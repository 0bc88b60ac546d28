package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/ichigozero/focusflow/apigateway"
	"github.com/ichigozero/focusflow/authsvc/pkg/authendpoint"
	"github.com/ichigozero/focusflow/authsvc/pkg/authservice"
	"github.com/ichigozero/focusflow/authsvc/pkg/authtransport"
	"github.com/ichigozero/focusflow/config"
	"github.com/ichigozero/focusflow/storage"
	"github.com/ichigozero/focusflow/tasksvc/cache"
	"github.com/ichigozero/focusflow/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/focusflow/tasksvc/pkg/taskservice"
	"github.com/ichigozero/focusflow/tasksvc/pkg/tasktransport"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("focusflow", flag.ExitOnError)
	var (
		httpAddr    = fs.String("http.addr", cfg.HTTPAddr, "HTTP listen address")
		databaseURL = fs.String("database.url", cfg.DatabaseURL, "Database URL (postgres://, sqlite://, mongodb://, inmem://)")
	)
	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	cfg.HTTPAddr = *httpAddr
	cfg.DatabaseURL = *databaseURL
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var logger log.Logger
	{
		lvl, _ := cfg.LevelOption()
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = level.NewFilter(logger, lvl)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	ctx := context.Background()

	var resources closers
	exit := func() {
		resources.closeAll(logger)
		os.Exit(1)
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		level.Error(logger).Log("during", "storage.Open", "err", err)
		exit()
	}
	resources.add("storage", store.Close)

	tokenizer := authservice.NewTokenizer(cfg.JWTSecret, cfg.TokenTTL.Duration())
	fieldKeys := []string{"method"}

	var authService authservice.Service
	{
		requests := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "focusflow",
			Subsystem: "authsvc",
			Name:      "request_count",
			Help:      "Number of requests received.",
		}, fieldKeys)
		latency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: "focusflow",
			Subsystem: "authsvc",
			Name:      "request_latency_seconds",
			Help:      "Total duration of requests in seconds.",
		}, fieldKeys)

		authService = authservice.New(store.Users, tokenizer, log.With(logger, "component", "authsvc"))
		authService = authservice.InstrumentingMiddleware(requests, latency)(authService)
	}

	var taskService taskservice.Service
	{
		requests := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "focusflow",
			Subsystem: "tasksvc",
			Name:      "request_count",
			Help:      "Number of requests received.",
		}, fieldKeys)
		latency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: "focusflow",
			Subsystem: "tasksvc",
			Name:      "request_latency_seconds",
			Help:      "Total duration of requests in seconds.",
		}, fieldKeys)

		taskLogger := log.With(logger, "component", "tasksvc")
		taskService = taskservice.New(store.Tasks, taskLogger)
		if cfg.EnforceOwnership {
			taskService = taskservice.OwnershipMiddleware()(taskService)
		}
		if cfg.RedisURL != "" {
			rdb, err := cache.NewClient(ctx, cfg.RedisURL)
			if err != nil {
				level.Error(logger).Log("during", "cache.NewClient", "err", err)
				exit()
			}
			resources.add("redis", rdb.Close)

			listCache := cache.NewListCache(rdb, cfg.RedisTTL.Duration())
			taskService = taskservice.CachingMiddleware(listCache, taskLogger)(taskService)
		}
		taskService = taskservice.InstrumentingMiddleware(requests, latency)(taskService)
	}

	var handler http.Handler
	{
		authHandler := authtransport.NewHTTPHandler(authendpoint.New(authService, logger), logger)
		taskHandler := tasktransport.NewHTTPHandler(taskendpoint.New(taskService, logger), tokenizer, logger)
		handler = apigateway.NewHandler(authHandler, taskHandler)
	}

	var g group.Group
	{
		httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			level.Error(logger).Log("transport", "HTTP", "during", "Listen", "err", err)
			exit()
		}
		g.Add(func() error {
			level.Info(logger).Log(
				"transport", "HTTP",
				"addr", cfg.HTTPAddr,
				"enforce_ownership", cfg.EnforceOwnership,
				"cache", cfg.RedisURL != "",
			)
			return http.Serve(httpListener, handler)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	level.Info(logger).Log("exit", g.Run())
	resources.closeAll(logger)
}

type closer struct {
	name  string
	close func() error
}

// closers releases process resources in reverse order of acquisition.
type closers []closer

func (c *closers) add(name string, fn func() error) {
	*c = append(*c, closer{name: name, close: fn})
}

func (c closers) closeAll(logger log.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].close(); err != nil {
			level.Warn(logger).Log("during", "close", "resource", c[i].name, "err", err)
		}
	}
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}
