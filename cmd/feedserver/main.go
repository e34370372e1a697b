package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/broadcast"
	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/market"
	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/metrics"
	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/sinks"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Seed the universe once at boot. Volatility classes are fixed from
	// here on; only prices, volumes and scores move.
	rnd := market.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
	store := market.NewStore(market.BuildUniverse(cfg.Server.UniverseSize, rnd))
	gen := market.NewGenerator(logger, store, cfg.Server.SampleFraction, rnd)

	var sinkList []sinks.Sink

	if cfg.Redis.MirrorEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		sinkList = append(sinkList, sinks.NewRedisMirror(rdb, cfg.Redis.MirrorTTL))
		logger.Info("Redis Mirror Enabled", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Kafka.EgressEnabled {
		ensurer := sinks.NewTopicEnsurer(logger, &sinks.RealKafkaDialer{Dialer: kafka.DefaultDialer}, sinks.RealClock{})
		ensurer.Ensure(cfg.Kafka.Brokers, cfg.Kafka.Topic)

		writer := &kafka.Writer{
			Addr:     kafka.TCP(cfg.Kafka.Brokers...),
			Topic:    cfg.Kafka.Topic,
			Balancer: &kafka.LeastBytes{},
			// Optimization: Send batches to reduce network IO
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
		}
		sinkList = append(sinkList, sinks.NewKafkaEgress(writer))
		logger.Info("Kafka Egress Enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// hubSink stays a nil interface when no sink is configured
	var fanout *sinks.Fanout
	var hubSink broadcast.Sink
	if len(sinkList) > 0 {
		fanout = sinks.NewFanout(logger, m, sinkList...)
		hubSink = fanout
	}

	feedHub := broadcast.NewHub(logger, m, store, gen, market.RealClock{}, hubSink, broadcast.Config{
		TickInterval:      cfg.Server.TickInterval,
		HeartbeatInterval: cfg.Server.HeartbeatInterval,
		WriteWait:         cfg.Server.WriteWait,
		SendBuffer:        cfg.Server.SendBuffer,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", broadcast.Handler(feedHub, logger))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	go func() {
		logger.Info("Server Started",
			zap.String("addr", cfg.Server.Addr),
			zap.Int("universe", store.Len()),
			zap.Duration("tick", cfg.Server.TickInterval))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("Shutdown signal received")

	srv.Shutdown(context.Background())
	feedHub.Shutdown()

	if fanout != nil {
		logger.Info("Draining sinks...")
		if err := fanout.Close(); err != nil {
			logger.Error("Error closing sinks", zap.Error(err))
		}
	}

	logger.Info("Shutdown Complete")
}
