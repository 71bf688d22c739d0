package main

import (
	"context"
	"net"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/apptslots/libs/config"
	"github.com/md-rashed-zaman/apptslots/libs/db"
	"github.com/md-rashed-zaman/apptslots/libs/httpx"
	"github.com/md-rashed-zaman/apptslots/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptslots/libs/otel"
	"github.com/md-rashed-zaman/apptslots/libs/runtime"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/grpcserver"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/profile"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/service"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadFile(runtime.Getenv("CONFIG_FILE", "")); err != nil {
		panic(err)
	}
	serviceName := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8089")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(serviceName)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	}

	engineCfg, err := engineConfig()
	if err != nil {
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.String("REDIS_ADDR", "localhost:6379"),
		Password: config.String("REDIS_PASSWORD", ""),
	})
	defer rdb.Close()

	busyTTL, err := config.Duration("BUSY_SNAPSHOT_TTL", 24*time.Hour)
	if err != nil {
		panic(err)
	}
	store := busy.NewRedisStore(rdb, busyTTL)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "redis", Check: store.ReadyCheck()},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		consumer := busy.NewKafkaConsumer(logger, store, kafkax.ReaderConfig{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", serviceName),
			Topic:   config.String("KAFKA_BUSY_TOPIC", busy.DefaultTopic),
		})
		go consumer.Run(ctx)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set, busy snapshots will not be refreshed")
	}

	calc := availability.New(engineCfg, availability.WithLogger(logger))
	svc := service.New(profile.NewPostgresSource(pool, logger), store, calc, logger)

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.New(svc, logger).Register(mux)

	perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	var limit httpx.Middleware
	if config.String("RATE_LIMIT_BACKEND", "memory") == "redis" {
		limit = httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "ratelimit:availability").
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		limit = httpx.NewRateLimiter(perMinute, time.Minute).Middleware()
	}

	requestTimeout, err := config.Duration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.PublicReadPolicy(config.List("CORS_ALLOWED_ORIGINS", nil))),
		limit,
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(requestTimeout),
	)
	handler = otelhttp.NewHandler(handler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	grpcPort, err := config.Port("GRPC_PORT", "9099")
	if err != nil {
		panic(err)
	}
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	grpcSrv := grpcserver.NewServer(logger)
	grpcserver.Register(grpcSrv, svc, logger)
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	<-ctx.Done()
	err = runtime.Shutdown(10*time.Second,
		runtime.ShutdownStep{Name: "http", Stop: srv.Shutdown},
		runtime.ShutdownStep{Name: "grpc", Stop: func(ctx context.Context) error {
			stopped := make(chan struct{})
			go func() {
				grpcSrv.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-ctx.Done():
				grpcSrv.Stop()
			}
			return nil
		}},
		runtime.ShutdownStep{Name: "otel", Stop: otelShutdown},
	)
	if err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("servers stopped")
}
