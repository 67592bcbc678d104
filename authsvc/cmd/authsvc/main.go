package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/tasknotes/authsvc/inmem"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authendpoint"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authservice"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authtransport"
	"github.com/ichigozero/tasknotes/internal/config"
	"github.com/ichigozero/tasknotes/internal/database"
	usergorm "github.com/ichigozero/tasknotes/usersvc/db/gorm"
	"github.com/ichigozero/tasknotes/usersvc/pkg/userservice"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/twinj/uuid"
	"golang.org/x/crypto/bcrypt"
	libgorm "gorm.io/gorm"
)

func main() {
	fs := flag.NewFlagSet("authsvc", flag.ExitOnError)
	var (
		httpAddr = fs.String(
			"http.addr",
			config.GetEnv("HTTP_ADDR", ":8081"),
			"HTTP listen address",
		)
		consulAddr = fs.String(
			"consul.addr",
			config.GetEnv("CONSUL_ADDR", ""),
			"Consul agent address",
		)
		databaseURL = fs.String(
			"database.url",
			config.GetEnv("DATABASE_URL", ""),
			"postgres://, mysql:// or sqlite:// URL for accounts, SQLite file users.db when empty",
		)
		sessionStore = fs.String(
			"session.store",
			config.GetEnv("SESSION_STORE", "consul"),
			"token session store: consul or redis",
		)
		redisURL = fs.String(
			"redis.url",
			config.GetEnv("REDIS_URL", "redis://localhost:6379/0"),
			"Redis URL for the redis session store",
		)
		bcryptCost = fs.Int(
			"bcrypt.cost",
			config.GetEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),
			"bcrypt cost of stored password hashes",
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

	var db *libgorm.DB
	{
		var err error
		db, err = database.Open(*databaseURL, "users.db")
		if err != nil {
			level.Error(logger).Log("err", err)
			os.Exit(1)
		}
		if err := usergorm.Migrate(db); err != nil {
			level.Error(logger).Log("during", "Migrate", "err", err)
			os.Exit(1)
		}
	}

	var (
		registrar   *consulsd.Registrar
		inmemClient inmem.Client
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

		host, port, err := net.SplitHostPort(*httpAddr)
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
			Name:    "authsvc",
			Address: host,
			Port:    p,
		}

		client := consulsd.NewClient(consulClient)
		registrar = consulsd.NewRegistrar(client, asr, logger)
		registrar.Register()
		defer registrar.Deregister()

		switch *sessionStore {
		case "consul":
			inmemClient = inmem.NewClient(consulClient)
		case "redis":
			opts, err := goredis.ParseURL(*redisURL)
			if err != nil {
				level.Error(logger).Log("session.store", *sessionStore, "err", err)
				os.Exit(1)
			}
			redisClient := goredis.NewClient(opts)
			defer redisClient.Close()
			inmemClient = inmem.NewRedisClient(redisClient)
		default:
			level.Error(logger).Log("session.store", *sessionStore, "err", "unknown session store")
			os.Exit(1)
		}
	}

	var (
		requestCount = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "tasknotes",
			Subsystem: "authsvc",
			Name:      "request_count",
			Help:      "Number of requests received.",
		}, []string{"method"})
		requestLatency = kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: "tasknotes",
			Subsystem: "authsvc",
			Name:      "request_latency_seconds",
			Help:      "Total duration of requests in seconds.",
		}, []string{"method"})
	)

	var userService userservice.Service
	{
		userService = userservice.New(usergorm.NewUserRepository(db), *bcryptCost, logger)
		userService = userservice.InstrumentingMiddleware(requestCount, requestLatency)(userService)
	}

	var service authservice.Service
	{
		service = authservice.New(authservice.NewTokenizer(), inmemClient, userService, logger)
		service = authservice.InstrumentingMiddleware(requestCount, requestLatency)(service)
	}

	var (
		endpoints   = authendpoint.New(service, logger)
		httpHandler = authtransport.NewHTTPHandler(endpoints, inmemClient, logger)
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", httpHandler)

	var g group.Group
	{
		// The HTTP listener mounts the Go kit HTTP handler we created.
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			level.Error(logger).Log("transport", "HTTP", "during", "Listen", "err", err)
			registrar.Deregister()
			os.Exit(1)
		}
		g.Add(func() error {
			level.Info(logger).Log("transport", "HTTP", "addr", *httpAddr)
			return http.Serve(httpListener, mux)
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
}
