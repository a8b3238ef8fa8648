package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"wordguard/pkg/api"
	"wordguard/pkg/dict"
	"wordguard/pkg/engine"
	"wordguard/pkg/filter"
	"wordguard/pkg/storage/elastic"
	"wordguard/pkg/storage/memdb"
	"wordguard/pkg/storage/mongo"
	"wordguard/pkg/storage/postgres"
	"wordguard/pkg/stream"
	"wordguard/pkg/wumanber"
)

type Config struct {
	ServiceName string `toml:"serviceName"`
	HTTPAddr    string `toml:"httpAddr"`
	LogLevel    string `toml:"logLevel"`

	KafkaAddr  string `toml:"kafkaAddr"`
	KafkaTopic string `toml:"kafkaTopic"`
	KafkaBatch int    `toml:"kafkaBatch"`

	ModerationInTopic  string `toml:"moderationInTopic"`
	ModerationOutTopic string `toml:"moderationOutTopic"`
	ModerationGroupID  string `toml:"moderationGroupID"`
	NumWorkers         int    `toml:"numWorkers"`

	DictPaths []string `toml:"dictPaths"`
	DictURLs  []string `toml:"dictURLs"`

	ElasticSearchNodes []string `toml:"elasticSearchNodes"`
	ElasticSearchIndex string   `toml:"elasticSearchIndex"`

	Filter FilterConfig `toml:"filter"`
}

type FilterConfig struct {
	Algorithm         string `toml:"algorithm"`
	BlockSize         int    `toml:"blockSize"`
	SpaceMode         string `toml:"spaceMode"`
	NoisePattern      string `toml:"noisePattern"`
	CacheSize         int    `toml:"cacheSize"`
	ParallelThreshold int    `toml:"parallelThreshold"`
	Workers           int    `toml:"workers"`
}

func main() {
	var (
		configPath string
		dictPath   string
		httpAddr   string
		logLevel   string
		kafkaAddr  string
		kafkaTopic string
		kafkaBatch int
		algorithm  string
	)

	flag.StringVar(&configPath, "servconf", "cmd/server/config.toml", "Path to TOML config file")
	flag.StringVar(&dictPath, "dict", "", "Path to a dictionary file, replaces dictPaths from the config.")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.StringVar(&kafkaAddr, "kafka", "", "Kafka server address in the form 'host:port'.")
	flag.StringVar(&kafkaTopic, "topic", "", "Kafka topic.")
	flag.IntVar(&kafkaBatch, "batch", 0, "Kafka batch size.")
	flag.StringVar(&algorithm, "alg", "", "Force the matching algorithm: wumanber, ac, regex.")
	flag.Parse()

	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		log.Fatalf("[server] failed to load config file %s: %v", configPath, err)
	}

	// Override config with flags if set
	if dictPath != "" {
		cfg.DictPaths = []string{dictPath}
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if kafkaAddr != "" {
		cfg.KafkaAddr = kafkaAddr
	}
	if kafkaTopic != "" {
		cfg.KafkaTopic = kafkaTopic
	}
	if kafkaBatch != 0 {
		cfg.KafkaBatch = kafkaBatch
	}
	if algorithm != "" {
		cfg.Filter.Algorithm = algorithm
	}

	if !strings.Contains(cfg.HTTPAddr, ":") {
		log.Warn("[server] use ':' before port number, e.g. ':8080'")
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts, err := cfg.Filter.options()
	if err != nil {
		log.Fatalf("[server] invalid filter configuration: %v", err)
	}

	sources, store := dictSources(ctx, cfg)
	if store != nil {
		defer store.Close()
	}
	opts.Words, err = dict.Load(ctx, sources...)
	if err != nil {
		log.Fatalf("[server] failed to load dictionary: %v", err)
	}

	f, err := filter.New(opts)
	if err != nil {
		log.Fatalf("[server] failed to create filter: %v", err)
	}
	log.Infof("[server] filter ready: %d words, %s backend", len(f.Words()), f.Algorithm())

	var kafkaWriter *kafka.Writer
	if cfg.KafkaAddr != "" && cfg.KafkaTopic != "" {
		kafkaWriter = &kafka.Writer{
			Addr:      kafka.TCP(cfg.KafkaAddr),
			Topic:     cfg.KafkaTopic,
			BatchSize: cfg.KafkaBatch,
		}
		defer kafkaWriter.Close()
		err := createTopic(kafkaWriter.Addr.String(), kafkaWriter.Topic)
		if err != nil {
			log.Warnf("[server] failed to create Kafka topic: %v", err)
		}
	} else {
		log.Warnf("[server] kafka was not configured, logs will not be sent to Kafka")
	}

	api, err := api.New(cfg.ServiceName, f, kafkaWriter)
	if err != nil {
		log.Fatalf("[server] failed to create API: %v", err)
	}
	if store != nil {
		api.WithStore(store)
	} else {
		mem := memdb.New()
		sources = append(sources, mem)
		api.WithStore(mem)
	}

	var wg sync.WaitGroup
	if mod, closeStream := moderator(ctx, cfg, f); mod != nil {
		defer closeStream()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mod.Run(ctx); err != nil {
				log.Errorf("[server] moderation stream stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Infof("[server] starting on port %v", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
			return
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigChan {
		if sig != syscall.SIGHUP {
			break
		}
		reload(ctx, f, sources)
	}

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}

	cancel()
	wg.Wait()
}

func (c FilterConfig) options() (filter.Options, error) {
	opts := filter.DefaultOptions()
	if c.Algorithm != "" {
		alg, err := engine.ParseAlgorithm(c.Algorithm)
		if err != nil {
			return opts, err
		}
		opts.Algorithm, opts.ForceAlgorithm = alg, true
	}
	if c.SpaceMode != "" {
		mode, err := wumanber.ParseSpaceMode(c.SpaceMode)
		if err != nil {
			return opts, err
		}
		opts.SpaceMode = mode
	}
	if c.NoisePattern != "" {
		opts.NoisePattern = c.NoisePattern
	}
	if c.CacheSize != 0 {
		opts.CacheSize = c.CacheSize
	}
	if c.ParallelThreshold != 0 {
		opts.ParallelThreshold = c.ParallelThreshold
	}
	if c.Workers != 0 {
		opts.Workers = c.Workers
	}
	opts.BlockSize = c.BlockSize
	return opts, nil
}

// dictSources collects the configured dictionary sources. The Postgres
// table is used when POSTGRES_HOST is set and is also returned so that
// vocabulary changes made through the API are persisted. Without it the
// changes are kept in memory and still survive a reload.
func dictSources(ctx context.Context, cfg Config) ([]dict.Source, *postgres.Store) {
	var sources []dict.Source
	for _, p := range cfg.DictPaths {
		sources = append(sources, dict.FileSource{Path: p})
	}
	for _, u := range cfg.DictURLs {
		sources = append(sources, dict.HTTPSource{URL: u})
	}

	if os.Getenv("POSTGRES_HOST") == "" {
		return sources, nil
	}
	conf, err := postgres.NewConfig()
	if err != nil {
		log.Fatalf("[server] invalid postgres configuration: %v", err)
	}
	store, err := postgres.New(ctx, conf.ConString())
	if err != nil {
		log.Fatalf("[server] failed to connect to postgres %v: %v", conf, err)
	}
	return append(sources, store), store
}

// reload rebuilds the vocabulary from the configured sources. The current
// vocabulary is kept when any source fails.
func reload(ctx context.Context, f *filter.Filter, sources []dict.Source) {
	words, err := dict.Load(ctx, sources...)
	if err != nil {
		log.Errorf("[server] dictionary reload failed: %v", err)
		return
	}
	f.Reset(words)
	log.Infof("[server] dictionary reloaded: %d words, %s backend", len(f.Words()), f.Algorithm())
}

// moderator wires the comment moderation stream when both topics are
// configured. The returned func releases its connections.
func moderator(ctx context.Context, cfg Config, f *filter.Filter) (*stream.Moderator, func()) {
	if cfg.KafkaAddr == "" || cfg.ModerationInTopic == "" || cfg.ModerationOutTopic == "" {
		log.Info("[server] moderation stream was not configured")
		return nil, nil
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.KafkaAddr},
		Topic:    cfg.ModerationInTopic,
		GroupID:  cfg.ModerationGroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	w := &kafka.Writer{
		Addr:      kafka.TCP(cfg.KafkaAddr),
		Topic:     cfg.ModerationOutTopic,
		BatchSize: cfg.KafkaBatch,
	}
	if err := createTopic(cfg.KafkaAddr, cfg.ModerationOutTopic); err != nil {
		log.Warnf("[server] failed to create Kafka topic: %v", err)
	}

	var (
		sinks   []stream.Sink
		closers = []func(){func() { r.Close() }, func() { w.Close() }}
	)

	if os.Getenv("MONGO_HOST") != "" || os.Getenv("MONGO_URI") != "" {
		conf, err := mongo.NewConfig()
		if err != nil {
			log.Fatalf("[server] invalid mongo configuration: %v", err)
		}
		db, err := mongo.New(ctx, conf)
		if err != nil {
			log.Fatalf("[server] failed to connect to mongo %v: %v", conf, err)
		}
		log.Debugf("[server] quarantine sink: %v", conf)
		sinks = append(sinks, db)
		closers = append(closers, func() { db.Close(context.Background()) })
	}

	if len(cfg.ElasticSearchNodes) > 0 && cfg.ElasticSearchIndex != "" {
		idx, err := elastic.New(cfg.ElasticSearchNodes, cfg.ElasticSearchIndex)
		if err != nil {
			log.Fatalf("[server] error creating the elasticsearch client: %v", err)
		}
		sinks = append(sinks, idx)
	}

	log.Infof("[server] moderating %s -> %s with %d sinks", cfg.ModerationInTopic, cfg.ModerationOutTopic, len(sinks))
	return stream.New(r, w, f, cfg.NumWorkers, sinks...), func() {
		for _, c := range closers {
			c()
		}
	}
}

func createTopic(broker, topic string) error {
	conn, err := kafka.DialContext(context.Background(), "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
