package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/fourd/featureflag"
	fourdhttp "github.com/aukilabs/fourd/http"
	"github.com/aukilabs/fourd/models"
	"github.com/aukilabs/fourd/modules"
	"github.com/aukilabs/fourd/modules/dagaz"
	"github.com/aukilabs/fourd/smoketest"
	fwebsocket "github.com/aukilabs/fourd/websocket"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The fourd version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "fourd_info",
		Help:        "Fourd information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"FOURD_ADDR"                  help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"FOURD_ADMIN_ADDR"            help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"FOURD_PUBLIC_ENDPOINT"       help:"The public endpoint where this server is reachable."`
	AccessToken        string        `cli:""        env:"FOURD_ACCESS_TOKEN"          help:"The bearer token required to connect. Empty accepts every client."`
	ServerID           string        `cli:""        env:"FOURD_SERVER_ID"             help:"The prefix of the session ids created by this server."`
	LogLevel           string        `cli:""        env:"FOURD_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"FOURD_LOG_INDENT"            help:"Indent logs."`
	SyncClockInterval  time.Duration `cli:",hidden" env:"FOURD_SYNC_CLOCK_INTERVAL"   help:"Client sync clock (heartbeat) message interval."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"FOURD_CLIENT_IDLE_TIMEOUT"   help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"FOURD_LOG_SUMMARY_INTERVAL"  help:"The duration between each log summary by connection."`
	ShutdownTimeout    time.Duration `cli:",hidden" env:"FOURD_SHUTDOWN_TIMEOUT"      help:"How long servers are given to finish their requests when stopping."`
	Level              levelConfig   `cli:""        env:"-"                           help:"Level configuration."`
	Events             eventsConfig  `cli:",hidden" env:"-"                           help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"FOURD_FEATURE_FLAGS"         help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                           help:"Show version."`
	Help               bool          `cli:""        env:"-"                           help:"Show help."`
}

type levelConfig struct {
	File         string `cli:""        env:"FOURD_LEVEL_FILE"          help:"The YAML file describing the level, optionally zstd compressed (.zst). Overrides the other level options."`
	Name         string `cli:""        env:"FOURD_LEVEL_NAME"          help:"The name of the level."`
	Dims         string `cli:""        env:"FOURD_LEVEL_DIMS"          help:"Comma separated number of cells along x, y, z and w."`
	CellSize     string `cli:""        env:"FOURD_LEVEL_CELL_SIZE"     help:"The edge length of a cell."`
	Origin       string `cli:""        env:"FOURD_LEVEL_ORIGIN"        help:"Comma separated world position of the first cell corner."`
	GroundNormal string `cli:",hidden" env:"FOURD_LEVEL_GROUND_NORMAL" help:"Comma separated normal of the ground plane."`
	GroundHeight string `cli:",hidden" env:"FOURD_LEVEL_GROUND_HEIGHT" help:"The height of the ground plane along its normal."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"FOURD_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"FOURD_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"FOURD_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"FOURD_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		ServerID:           "fourd",
		LogLevel:           logs.InfoLevel.String(),
		SyncClockInterval:  time.Second * 5,
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		ShutdownTimeout:    fourdhttp.DefaultShutdownTimeout,
		Level: levelConfig{
			Name:         "default",
			Dims:         "16,16,16,16",
			CellSize:     "1",
			Origin:       "0,0,0,0",
			GroundNormal: "0,0,1,0",
			GroundHeight: "0",
		},
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts fourd server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "fourd",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	lvl, err := loadLevel(conf.Level)
	if err != nil {
		logs.Fatal(err)
	}
	template := lvl.Chunk()
	ground := lvl.GroundPlane()
	featureFlags := featureflag.New(conf.FeatureFlags)

	var ready atomic.Bool
	readinessCheck := func() bool {
		return ready.Load()
	}

	var service http.ServeMux

	service.Handle("/health", fourdhttp.HandleWithCORS(http.HandlerFunc(fourdhttp.HandleHealthCheck)))
	service.Handle("/version", fourdhttp.HandleWithCORS(http.HandlerFunc(fourdhttp.HandleVersion(version))))
	service.Handle("/ready", fourdhttp.HandleWithCORS(http.HandlerFunc(fourdhttp.HandleReadyCheck(readinessCheck))))

	service.HandleFunc("/smoke-test", fourdhttp.VerifyAuthTokenHandler(conf.AccessToken, smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:  conf.PublicEndpoint,
		UserAgent: fmt.Sprintf("fourd %s", version),
		SendResult: func(ctx context.Context, res smoketest.Result) error {
			logs.WithTag("from_endpoint", res.FromEndpoint).
				WithTag("to_endpoint", res.ToEndpoint).
				WithTag("status", res.Status).
				WithTag("latency_ms", res.LatencyMilliSec).
				Info("smoke test completed")
			return nil
		},
	})))

	sessions := models.SessionStore{
		ServerID: conf.ServerID,
	}

	service.Handle("/", fourdhttp.HandleWithCORS(websocket.Server{
		Handshake: fourdhttp.VerifyAuthToken(conf.AccessToken),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var rh fwebsocket.Handler = &fwebsocket.RealtimeHandler{
				ClientSyncClockInterval: conf.SyncClockInterval,
				ClientIdleTimeout:       conf.ClientIdleTimeout,
				Sessions:                &sessions,
				Level:                   lvl.Name,
				Modules: []modules.Module{
					&dagaz.Module{
						Template:     template,
						Ground:       ground,
						FeatureFlags: featureFlags,
					},
				},
				FeatureFlags: featureFlags,
			}
			h := fwebsocket.HandlerWithLogs(rh, conf.LogSummaryInterval)
			h = fwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			fwebsocket.Handle(ctx, conn, h)
		},
	}))

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", fourdhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", fourdhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("level", lvl.Name).
		WithTag("dims", template.Dims()).
		WithTag("present_cells", template.PresentCount()).
		WithTag("feature_flags", featureFlags.List()).
		Info("starting fourd server")

	ready.Store(true)

	fourdhttp.ListenAndServe(ctx, conf.ShutdownTimeout,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			fourdhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}
