package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/kitty-items/flow-event-publisher/api"
	"github.com/kitty-items/flow-event-publisher/business/domain/dispatch"
	"github.com/kitty-items/flow-event-publisher/business/domain/pipeline"
	"github.com/kitty-items/flow-event-publisher/business/domain/sink"
	"github.com/kitty-items/flow-event-publisher/business/domain/tracker"
	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/kitty-items/flow-event-publisher/external/elastic"
	"github.com/kitty-items/flow-event-publisher/external/flow"
	"github.com/kitty-items/flow-event-publisher/external/kafka"
	"github.com/kitty-items/flow-event-publisher/infrastructure/store/pebbledb"
	"github.com/kitty-items/flow-event-publisher/infrastructure/store/redisdb"
	"github.com/kitty-items/flow-event-publisher/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const prefix = "FLOW_EVENT_PUBLISHER"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	// settings may come from a local .env file, real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "loading .env file")
	}

	var cfg struct {
		Flow struct {
			Environment       string        `conf:"default:emulator"`
			AccessNode        string        `conf:"help:defaults to the public access node of the environment"`
			ContractAddress   string        `conf:"default:0xf8d6e0586b0a20c7"`
			Events            []string      `conf:"default:Kibble.TokensWithdrawn;Kibble.TokensDeposited;Kibble.TokensMinted;Kibble.TokensBurned;Kibble.MinterCreated;Kibble.BurnerCreated"`
			MaxHeightRange    uint64        `conf:"default:250"`
			RequestsPerSecond float64       `conf:"default:0"`
			ReadTimeout       time.Duration `conf:"default:20s"`
		}
		Sync struct {
			StartHeight         uint64        `conf:"default:18205000"`
			OverrideStartHeight bool          `conf:"default:false"`
			StepSize            uint64        `conf:"default:1000"`
			TickInterval        time.Duration `conf:"default:5s"`
		}
		Store struct {
			Backend        string        `conf:"default:pebble"`
			Folder         string        `conf:"default:store"`
			RedisAddresses []string      `conf:"default:localhost:6379"`
			RedisPassword  string        `conf:"noprint"`
			RedisKeyPrefix string        `conf:"default:flow-event-publisher"`
			RedisTimeout   time.Duration `conf:"default:5s"`
		}
		Sink struct {
			Kind         string        `conf:"default:log"`
			WriteTimeout time.Duration `conf:"default:1m"`
		}
		Kafka struct {
			BootstrapServers []string `conf:"default:localhost:9092"`
			Topic            string   `conf:"default:flow-events"`
		}
		Elastic struct {
			Address string        `conf:"default:http://localhost:9200"`
			Index   string        `conf:"default:flow-events"`
			Timeout time.Duration `conf:"default:10s"`
		}
		Server struct {
			HttpAddr         string        `conf:"default:0.0.0.0:8000"`
			MetricsNamespace string        `conf:"default:flow_event_publisher"`
			StatusCacheTTL   time.Duration `conf:"default:5s"`
		}
		Log struct {
			Level string `conf:"default:info"`
		}
	}

	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %v", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %v", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %v", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %v", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %v", err)
	}
	config := zap.NewProductionConfig()
	config.Level = level
	// this is just for sugar, to display a readable date instead of an epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	watched, err := entities.ParseWatchedEvents(cfg.Flow.Events)
	if err != nil {
		return errors.Wrap(err, "parsing watched events")
	}

	flowEnv, err := flow.ParseEnvironment(cfg.Flow.Environment)
	if err != nil {
		return errors.Wrap(err, "parsing flow environment")
	}
	accessNode := cfg.Flow.AccessNode
	if accessNode == "" {
		accessNode = flowEnv.AccessNode()
	}

	checkpoints, closeStore, err := createCheckpointer(cfg.Store.Backend, cfg.Store.Folder, cfg.Store.RedisAddresses,
		cfg.Store.RedisPassword, cfg.Store.RedisKeyPrefix, cfg.Store.RedisTimeout)
	if err != nil {
		return errors.Wrap(err, "creating checkpoint store")
	}
	defer closeStore()

	startHeight, err := pipeline.ResolveStartHeight(checkpoints, cfg.Sync.StartHeight, cfg.Sync.OverrideStartHeight, sLogger)
	if err != nil {
		return errors.Wrap(err, "resolving start height")
	}

	accessClient, err := flow.NewAccessClient(accessNode)
	if err != nil {
		return errors.Wrap(err, "creating flow access client")
	}
	defer accessClient.Close()
	flowClient := flow.NewClient(accessClient, cfg.Flow.MaxHeightRange, cfg.Flow.RequestsPerSecond)

	var handler dispatch.Handler
	switch cfg.Sink.Kind {
	case sink.KindLog:
		handler = sink.LogHandler(sLogger)
	case sink.KindKafka:
		kafkaMetrics := kprom.NewMetrics(cfg.Server.MetricsNamespace,
			kprom.Registerer(prometheus.DefaultRegisterer),
			kprom.Gatherer(prometheus.DefaultGatherer))
		kcl, err := kgo.NewClient(
			kgo.WithHooks(kafkaMetrics),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
			kgo.SeedBrokers(cfg.Kafka.BootstrapServers...),
			kgo.ProducerBatchCompression(kgo.ZstdCompression()),
		)
		if err != nil {
			return errors.Wrap(err, "creating kafka client")
		}
		defer kcl.Close()
		handler = sink.Handler(kafka.NewClient(kcl))
	case sink.KindElastic:
		elasticClient, err := elastic.NewClient(cfg.Elastic.Address, cfg.Elastic.Index, cfg.Elastic.Timeout)
		if err != nil {
			return errors.Wrap(err, "creating elastic client")
		}
		handler = sink.Handler(elasticClient)
	default:
		return errors.Errorf("unknown sink kind [%s]", cfg.Sink.Kind)
	}

	registry, err := sink.NewRegistry(watched, withTimeout(handler, cfg.Sink.WriteTimeout))
	if err != nil {
		return errors.Wrap(err, "registering handlers")
	}

	processingMetrics := metrics.NewProcessingMetrics(cfg.Server.MetricsNamespace, prometheus.DefaultRegisterer)

	dispatcher, err := dispatch.NewDispatcher(dispatch.Config{
		ContractAddress:   cfg.Flow.ContractAddress,
		ContractAddresses: flowEnv.CoreContracts(),
		Watched:           watched,
		FetchTimeout:      cfg.Flow.ReadTimeout,
	}, registry, flowClient, flow.NewDecoder(), processingMetrics, sLogger)
	if err != nil {
		return errors.Wrap(err, "creating dispatcher")
	}

	rangeTracker, err := tracker.NewTracker(flowClient, startHeight, cfg.Sync.StepSize, cfg.Sync.TickInterval,
		cfg.Flow.ReadTimeout, processingMetrics, sLogger)
	if err != nil {
		return errors.Wrap(err, "creating tracker")
	}

	coordinator := pipeline.NewCoordinator(rangeTracker, dispatcher, checkpoints, startHeight, processingMetrics, sLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	procErrors := make(chan error, 1)
	go func() {
		procErrors <- coordinator.Run(ctx)
	}()

	statusCache := api.NewStatusCache(flowClient, coordinator, cfg.Server.StatusCacheTTL, cfg.Flow.ReadTimeout)
	server := &http.Server{
		Addr:              cfg.Server.HttpAddr,
		Handler:           api.NewRouter(api.NewHandler(statusCache, sLogger), prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		sLogger.Infow("Starting status endpoint", "address", cfg.Server.HttpAddr)
		serverErr <- server.ListenAndServe()
	}()

	sLogger.Infow("Service started", "events", len(watched), "startHeight", startHeight, "sink", cfg.Sink.Kind,
		"environment", flowEnv, "accessNode", accessNode)

	select {
	case <-shutdown:
		sLogger.Infow("Received shutdown signal, shutting down...")
		cancel()
		if err := <-procErrors; err != nil {
			sLogger.Errorw("Error stopping pipeline", "error", err)
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	case err := <-procErrors:
		return fmt.Errorf("processing error: %v", err)
	case err := <-serverErr:
		return fmt.Errorf("server error: %v", err)
	}
}

func createCheckpointer(backend, folder string, redisAddresses []string, redisPassword, redisKeyPrefix string,
	redisTimeout time.Duration) (pipeline.Checkpointer, func(), error) {

	switch backend {
	case "pebble":
		store, err := pebbledb.NewProcessorStore(folder)
		if err != nil {
			return nil, nil, errors.Wrap(err, "creating pebble store")
		}
		return store, func() { _ = store.Close() }, nil
	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    redisAddresses,
			Password: redisPassword,
		})
		store := redisdb.NewStore(client, redisKeyPrefix, redisTimeout)
		return store, func() { _ = store.Close() }, nil
	case "none":
		return nil, func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown store backend [%s]", backend)
	}
}

func withTimeout(handler dispatch.Handler, timeout time.Duration) dispatch.Handler {
	return func(ctx context.Context, event entities.DecodedEvent) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return handler(ctx, event)
	}
}
