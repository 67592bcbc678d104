package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/gorilla/mux"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/tasknotes/authsvc"
	authclient "github.com/ichigozero/tasknotes/authsvc/client"
	"github.com/ichigozero/tasknotes/authsvc/inmem"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authtransport"
	"github.com/ichigozero/tasknotes/internal/config"
	taskclient "github.com/ichigozero/tasknotes/tasksvc/client"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/tasktransport"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	fs := flag.NewFlagSet("apigateway", flag.ExitOnError)
	var (
		httpAddr     = fs.String("http.addr", config.GetEnv("HTTP_ADDR", ":8000"), "Address for HTTP (JSON) server")
		consulAddr   = fs.String("consul.addr", config.GetEnv("CONSUL_ADDR", ""), "Consul agent address")
		sessionStore = fs.String("session.store", config.GetEnv("SESSION_STORE", "consul"), "token session store: consul or redis")
		redisURL     = fs.String("redis.url", config.GetEnv("REDIS_URL", "redis://localhost:6379/0"), "Redis URL for the redis session store")
		retryMax     = fs.Int("retry.max", config.GetEnvAsInt("RETRY_MAX", 3), "per-request retries to different instances")
		retryTimeout = fs.Duration("retry.timeout", time.Duration(config.GetEnvAsInt("RETRY_TIMEOUT", 500))*time.Millisecond, "per-request timeout, including retries")
		_            = fs.String(config.FileFlag, config.GetEnv("CONFIG", ""), "TOML config file")
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
		client      consulsd.Client
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

		client = consulsd.NewClient(consulClient)

		switch *sessionStore {
		case "consul":
			inmemClient = inmem.NewClient(consulClient)
		case "redis":
			opts, err := goredis.ParseURL(*redisURL)
			if err != nil {
				level.Error(logger).Log("session.store", *sessionStore, "err", err)
				os.Exit(1)
			}
			inmemClient = inmem.NewRedisClient(goredis.NewClient(opts))
		default:
			level.Error(logger).Log("session.store", *sessionStore, "err", "unknown session store")
			os.Exit(1)
		}
	}

	r := mux.NewRouter()
	{
		endpoints, _ := authclient.New(client, logger, *retryMax, *retryTimeout)
		authHTTPHandler := authtransport.NewHTTPHandler(endpoints, inmemClient, logger)
		r.PathPrefix("/auth/v1").Handler(http.StripPrefix("/auth/v1", authHTTPHandler))
	}
	{
		endpoints, _ := taskclient.New(client, logger, *retryMax, *retryTimeout)
		taskHTTPHandler := tasktransport.NewHTTPHandler(endpoints, []byte(authsvc.AccessSecret), logger)
		r.PathPrefix("/task/v1").Handler(http.StripPrefix("/task/v1", taskHTTPHandler))
	}

	// Interrupt handler.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	// HTTP transport.
	go func() {
		level.Info(logger).Log("transport", "HTTP", "addr", *httpAddr)
		errc <- http.ListenAndServe(*httpAddr, r)
	}()

	// Run!
	level.Info(logger).Log("exit", <-errc)
}
