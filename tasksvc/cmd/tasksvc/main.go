package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	kitgrpc "github.com/go-kit/kit/transport/grpc"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/tasknotes/authsvc"
	authclient "github.com/ichigozero/tasknotes/authsvc/client"
	"github.com/ichigozero/tasknotes/internal/config"
	"github.com/ichigozero/tasknotes/internal/database"
	"github.com/ichigozero/tasknotes/tasksvc"
	taskgorm "github.com/ichigozero/tasknotes/tasksvc/db/gorm"
	"github.com/ichigozero/tasknotes/tasksvc/db/memory"
	taskredis "github.com/ichigozero/tasknotes/tasksvc/db/redis"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/noteservice"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/taskservice"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/tasktransport"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/twinj/uuid"
	"google.golang.org/grpc"
)

func main() {
	fs := flag.NewFlagSet("tasksvc", flag.ExitOnError)
	var (
		grpcAddr = fs.String(
			"grpc.addr",
			config.GetEnv("GRPC_ADDR", ":8082"),
			"gRPC listen address",
		)
		httpAddr = fs.String(
			"http.addr",
			config.GetEnv("HTTP_ADDR", ":8083"),
			"HTTP listen address",
		)
		consulAddr = fs.String(
			"consul.addr",
			config.GetEnv("CONSUL_ADDR", ""),
			"Consul agent address",
		)
		store = fs.String(
			"store",
			config.GetEnv("STORE", "gorm"),
			"task store: gorm, redis or memory",
		)
		databaseURL = fs.String(
			"database.url",
			config.GetEnv("DATABASE_URL", ""),
			"postgres://, mysql:// or sqlite:// URL for the gorm store, SQLite file gorm.db when empty",
		)
		redisURL = fs.String(
			"redis.url",
			config.GetEnv("REDIS_URL", "redis://localhost:6379/0"),
			"Redis URL for the redis store",
		)
		validateSessions = fs.Bool(
			"session.validate",
			config.GetEnv("SESSION_VALIDATE", "true") == "true",
			"check access sessions with authsvc on every call",
		)
		retryMax = fs.Int(
			"retry.max",
			config.GetEnvAsInt("RETRY_MAX", 3),
			"per-request retries to different instances",
		)
		retryTimeout = fs.Duration(
			"retry.timeout",
			time.Duration(config.GetEnvAsInt("RETRY_TIMEOUT", 500))*time.Millisecond,
			"per-request timeout, including retries",
		)
		_ = fs.String(config.FileFlag, config.GetEnv("CONFIG", ""), "TOML config file")
	)

	fs.Usage = config.UsageFor(fs, os.Args[0]+" [flags]")

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	if err := config.Parse(fs, os.Args[1:]); err != nil {
		level.Error(logger).Log("during", "config", "err", err)
		os.Exit(1)
	}

	var (
		taskRepository tasksvc.TaskRepository
		noteRepository tasksvc.NoteRepository
	)
	switch *store {
	case "gorm":
		db, err := database.Open(*databaseURL, "gorm.db")
		if err != nil {
			level.Error(logger).Log("store", *store, "err", err)
			os.Exit(1)
		}
		if err := taskgorm.Migrate(db); err != nil {
			level.Error(logger).Log("store", *store, "during", "Migrate", "err", err)
			os.Exit(1)
		}
		taskRepository = taskgorm.NewTaskRepository(db)
		noteRepository = taskgorm.NewNoteRepository(db)
	case "redis":
		opts, err := goredis.ParseURL(*redisURL)
		if err != nil {
			level.Error(logger).Log("store", *store, "err", err)
			os.Exit(1)
		}
		client := goredis.NewClient(opts)
		defer client.Close()
		taskRepository = taskredis.NewTaskRepository(client)
		noteRepository = taskredis.NewNoteRepository(client)
	case "memory":
		s := memory.NewStore()
		taskRepository = s.Tasks()
		noteRepository = s.Notes()
	default:
		level.Error(logger).Log("store", *store, "err", "unknown store")
		os.Exit(1)
	}

	var (
		client    consulsd.Client
		registrar *consulsd.Registrar
	)
	{
		consulConfig := api.DefaultConfig()
		if len(*consulAddr) > 0 {
			consulConfig.Address = *consulAddr
		}
		consulClient, err := api.NewClient(consulConfig)
		if err != nil {
			level.Error(logger).Log("err", err)
			os.Exit(1)
		}

		host, port, err := net.SplitHostPort(*grpcAddr)
		if err != nil {
			level.Error(logger).Log("err", err)
			os.Exit(1)
		}
		if host == "" {
			host = "localhost"
		}

		p, _ := strconv.Atoi(port)
		asr := &api.AgentServiceRegistration{
			ID:      uuid.NewV4().String(),
			Name:    "tasksvc",
			Address: host,
			Port:    p,
		}

		client = consulsd.NewClient(consulClient)
		registrar = consulsd.NewRegistrar(client, asr, logger)
		registrar.Register()
		defer registrar.Deregister()
	}

	var (
		requestCount = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "tasknotes",
			Subsystem: "tasksvc",
			Name:      "request_count",
			Help:      "Number of requests received.",
		}, []string{"method"})
		requestLatency = kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: "tasknotes",
			Subsystem: "tasksvc",
			Name:      "request_latency_seconds",
			Help:      "Total duration of requests in seconds.",
		}, []string{"method"})
	)

	var validator tasksvc.SessionValidator
	if *validateSessions {
		authEndpoints, _ := authclient.New(client, logger, *retryMax, *retryTimeout)
		validator = authEndpoints.Validate
	}

	var taskService taskservice.Service
	{
		taskService = taskservice.New(taskRepository, logger)
		taskService = taskservice.InstrumentingMiddleware(requestCount, requestLatency)(taskService)
		if validator != nil {
			taskService = taskservice.SessionMiddleware(validator)(taskService)
		}
	}

	var noteService noteservice.Service
	{
		noteService = noteservice.New(taskRepository, noteRepository, logger)
		noteService = noteservice.InstrumentingMiddleware(requestCount, requestLatency)(noteService)
		if validator != nil {
			noteService = noteservice.SessionMiddleware(validator)(noteService)
		}
	}

	var (
		secret      = []byte(authsvc.AccessSecret)
		endpoints   = taskendpoint.New(taskService, noteService, logger)
		grpcServer  = tasktransport.NewGRPCServer(endpoints, secret, logger)
		httpHandler = tasktransport.NewHTTPHandler(endpoints, secret, logger)
	)

	var g group.Group
	{
		// The gRPC listener mounts the Go kit gRPC server we created.
		grpcListener, err := net.Listen("tcp", *grpcAddr)
		if err != nil {
			level.Error(logger).Log("transport", "gRPC", "during", "Listen", "err", err)
			registrar.Deregister()
			os.Exit(1)
		}
		g.Add(func() error {
			level.Info(logger).Log("transport", "gRPC", "addr", *grpcAddr)
			baseServer := grpc.NewServer(grpc.UnaryInterceptor(kitgrpc.Interceptor))
			tasktransport.RegisterTaskServer(baseServer, grpcServer)
			return baseServer.Serve(grpcListener)
		}, func(error) {
			grpcListener.Close()
		})
	}
	{
		// The HTTP listener serves the same endpoints plus /metrics.
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			level.Error(logger).Log("transport", "HTTP", "during", "Listen", "err", err)
			registrar.Deregister()
			os.Exit(1)
		}
		server := &http.Server{Handler: httpHandler}
		g.Add(func() error {
			level.Info(logger).Log("transport", "HTTP", "addr", *httpAddr)
			return server.Serve(httpListener)
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(ctx)
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
}
