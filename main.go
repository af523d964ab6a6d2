package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/toncenter/ton-indexer/ton-tracing-go/contracts"
	_ "github.com/toncenter/ton-indexer/ton-tracing-go/docs"
	"github.com/toncenter/ton-indexer/ton-tracing-go/index"
	"github.com/toncenter/ton-indexer/ton-tracing-go/index/emulated"
	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

type Settings struct {
	PgDsn          string
	RedisDsn       string
	MaxConns       int
	MinConns       int
	Bind           string
	InstanceName   string
	ContractsPath  string
	AbiCacheSize   int
	AllowedCodes   string
	ConsoleAddress string
	OtlpEndpoint   string
	OtlpHttp       bool
	LogLevel       string
	Prefork        bool
	Debug          bool
	Request        index.RequestSettings
}

var settings Settings
var pool *index.DbClient
var emulatedRepo *emulated.EmulatedTracesRepository
var tracer *trace.Tracer
var logger = logrus.New()

// sourceFor picks the data source of a single trace request.
var sourceFor = func(emulated_only bool) (trace.DataSource, error) {
	if emulated_only {
		if emulatedRepo == nil {
			return nil, index.IndexError{Code: 400, Message: "emulated traces are not configured"}
		}
		return emulatedRepo.TraceSource(), nil
	}
	if pool == nil {
		return nil, index.IndexError{Code: 400, Message: "database is not configured"}
	}
	return pool.TraceSource(settings.Request), nil
}

// LoadAllowedCodes reads the default policy from a YAML or JSON file.
func LoadAllowedCodes(path string) (trace.AllowedCodes, error) {
	var codes trace.AllowedCodes
	if path == "" {
		return codes, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return codes, fmt.Errorf("failed to read allowed codes: %w", err)
	}
	if err := yaml.Unmarshal(data, &codes); err != nil {
		return codes, fmt.Errorf("failed to parse allowed codes: %w", err)
	}
	return codes.NormalizeAddresses()
}

func setupLogger() {
	level, err := logrus.ParseLevel(settings.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	if settings.Debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func NewApp() *fiber.App {
	config := fiber.Config{
		AppName:      "TON Tracing API",
		Concurrency:  256 * 1024,
		Prefork:      settings.Prefork,
		ErrorHandler: ErrorHandlerFunc,
	}
	app := fiber.New(config)

	// converters
	fiber.SetParserDecoder(fiber.ParserConfig{
		IgnoreUnknownKeys: true,
		ParserType: []fiber.ParserType{
			{Customtype: index.HashType(""), Converter: index.HashConverter},
			{Customtype: index.AccountAddress(""), Converter: index.AccountAddressConverter},
		},
		ZeroEmpty: true,
	})

	app.Use("/api/v3/", func(c *fiber.Ctx) error {
		c.Accepts("application/json")
		start := time.Now()
		err := c.Next()
		stop := time.Now()
		c.Append("Server-timing", fmt.Sprintf("app;dur=%v", stop.Sub(start).String()))
		return err
	})
	if settings.Debug {
		app.Use(pprof.New())
	}

	app.Get("/healthcheck", HealthCheck)
	app.Get("/metrics", MetricsHandler())

	// traces
	app.Get("/api/v3/trace", GetTrace)
	app.Post("/api/v3/trace", PostTrace)

	// allowed codes
	app.Get("/api/v3/allowedCodes", GetAllowedCodes)
	app.Post("/api/v3/allowedCodes", PostAllowedCodes)
	app.Delete("/api/v3/allowedCodes", DeleteAllowedCodes)

	// swagger
	var swagger_config = swagger.Config{
		Title:           "TON Tracing (" + settings.InstanceName + ") - Swagger UI",
		Layout:          "BaseLayout",
		DeepLinking:     true,
		TryItOutEnabled: true,
	}
	app.Get("/api/v3/*", swagger.New(swagger_config))
	return app
}

func main() {
	var timeout_ms int

	flag.StringVar(&settings.PgDsn, "pg", "", "PostgreSQL connection string")
	flag.StringVar(&settings.RedisDsn, "redis", "", "Redis connection string with emulated traces")
	flag.IntVar(&settings.MaxConns, "maxconns", 100, "PostgreSQL max connections")
	flag.IntVar(&settings.MinConns, "minconns", 0, "PostgreSQL min connections")
	flag.StringVar(&settings.Bind, "bind", ":8000", "Bind address")
	flag.StringVar(&settings.InstanceName, "name", "Go", "Instance name to show in Swagger UI")
	flag.StringVar(&settings.ContractsPath, "contracts", "", "Path to contracts manifest (YAML)")
	flag.IntVar(&settings.AbiCacheSize, "abi-cache", contracts.DefaultCacheSize, "Number of parsed ABIs to keep in memory")
	flag.StringVar(&settings.AllowedCodes, "allowed-codes", "", "Path to default allowed exit codes (YAML or JSON)")
	flag.StringVar(&settings.ConsoleAddress, "console-address", trace.DefaultConsoleAddress, "Debug console contract address")
	flag.StringVar(&settings.OtlpEndpoint, "otlp-endpoint", "", "OTLP endpoint for traces")
	flag.BoolVar(&settings.OtlpHttp, "otlp-http", false, "Export traces over OTLP/HTTP instead of gRPC")
	flag.StringVar(&settings.LogLevel, "log-level", "info", "Log level")
	flag.BoolVar(&settings.Prefork, "prefork", false, "Prefork workers")
	flag.BoolVar(&settings.Debug, "debug", false, "Run service in debug mode")
	flag.IntVar(&timeout_ms, "query-timeout", 3000, "Query timeout in milliseconds")
	flag.IntVar(&settings.Request.MaxDepth, "max-depth", index.DefaultMaxDepth, "Maximum trace depth")
	flag.Parse()
	settings.Request.Timeout = time.Duration(timeout_ms) * time.Millisecond

	setupLogger()
	ctx := context.Background()

	if settings.OtlpEndpoint != "" {
		shutdown, err := SetupTelemetry(ctx, settings.OtlpEndpoint, settings.OtlpHttp)
		if err != nil {
			logger.WithError(err).Fatal("failed to set up telemetry")
		}
		defer shutdown(context.Background())
	}

	var err error
	if settings.PgDsn != "" {
		pool, err = index.NewDbClient(ctx, settings.PgDsn, settings.MaxConns, settings.MinConns)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to database")
		}
		defer pool.Close()
	}
	if settings.RedisDsn != "" {
		emulatedRepo, err = emulated.NewRepository(settings.RedisDsn, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
	}
	if pool == nil && emulatedRepo == nil {
		logger.Fatal("neither -pg nor -redis is set")
	}

	var resolver trace.ContractResolver
	if settings.ContractsPath != "" {
		registry, err := contracts.Load(settings.ContractsPath, settings.AbiCacheSize, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to load contracts")
		}
		logger.WithField("contracts", registry.Len()).Info("contracts loaded")
		if err := registerAbiCacheMetrics(prometheus.DefaultRegisterer, registry.HitRate); err != nil {
			logger.WithError(err).Warn("failed to register abi cache metrics")
		}
		resolver = registry
	}
	allowed, err := LoadAllowedCodes(settings.AllowedCodes)
	if err != nil {
		logger.WithError(err).Fatal("failed to load allowed codes")
	}
	console, err := trace.NormalizeAddress(settings.ConsoleAddress)
	if err != nil {
		logger.WithError(err).Fatal("invalid console address")
	}

	tracer = trace.NewTracer(trace.TracerConfig{
		Resolver:       resolver,
		ConsoleAddress: console,
		AllowedCodes:   allowed,
		Logger:         logger,
	})

	app := NewApp()
	err = app.Listen(settings.Bind)
	logger.WithError(err).Fatal("server stopped")
}
