package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/antoniostano/reelstudio/internal/audio"
	"github.com/antoniostano/reelstudio/internal/auth"
	"github.com/antoniostano/reelstudio/internal/capability"
	"github.com/antoniostano/reelstudio/internal/config"
	"github.com/antoniostano/reelstudio/internal/gateway"
	"github.com/antoniostano/reelstudio/internal/httpapi"
	"github.com/antoniostano/reelstudio/internal/notify"
	"github.com/antoniostano/reelstudio/internal/observability"
	"github.com/antoniostano/reelstudio/internal/playback"
	"github.com/antoniostano/reelstudio/internal/records"
	"github.com/antoniostano/reelstudio/internal/studio"
)

const serviceName = "reelstudio"

// Version is stamped at build time with -ldflags.
var Version = "dev"

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Studio       *studio.Studio
	Capabilities *capability.Service
	Resources    *audio.Resources
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	StoreMode    string

	// Cleanup should be called on shutdown to stop playback and release the store and tracer.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	var shutdownTracer func(context.Context) error
	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(ctx, serviceName, Version)
		if err != nil {
			return nil, fmt.Errorf("tracer init failed: %w", err)
		}
		shutdownTracer = tp.Shutdown
	}

	store, err := records.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("record store init failed: %w", err)
	}
	blobs, err := records.NewBlobStore(ctx, records.MinioOptions{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("blob store init failed: %w", err)
	}
	bridge := records.NewBridge(store, blobs, logger)
	storeMode := describeStore(cfg)

	resources := audio.NewResources(cfg.ResourceTTL)
	resources.SetReleaseHook(func(_ audio.Resource) {
		metrics.LiveResources.Set(float64(resources.Live()))
	})
	resources.StartJanitor(ctx, time.Minute)

	players := playback.NewHub(resources, nil)

	notices := notify.NewCenter(cfg.MaxNotifications)
	notices.SetPublishHook(func(n notify.Notice) {
		metrics.Notifications.WithLabelValues(string(n.Type)).Inc()
	})

	capabilities := capability.NewServiceFromConfig(cfg, logger)
	generator := gateway.New(cfg.CapabilityBaseURL, cfg.GatewayTimeout)

	st := studio.New(studio.Options{
		Generator: generator,
		Bridge:    bridge,
		Resources: resources,
		Players:   players,
		Notifier:  notices,
		Metrics:   metrics,
		Logger:    logger,
	})

	api := httpapi.New(cfg, httpapi.Deps{
		Studio:       st,
		Capabilities: capabilities,
		Notices:      notices,
		Signer:       auth.NewSigner(cfg.AuthSecret, cfg.AuthTokenTTL),
		Metrics:      metrics,
		Logger:       logger,
		Ready:        bridge.Ping,
		StoreMode:    storeMode,
	})

	logger.Info("studio wired",
		zap.String("store", storeMode),
		zap.String("script_provider", capabilities.ScriptProviderName()),
		zap.String("speech_provider", capabilities.SpeechProviderName()),
		zap.String("capability_base_url", cfg.CapabilityBaseURL),
	)

	cleanup := func() error {
		var errs []string
		if n := st.ReleaseAll(); n > 0 {
			logger.Info("stopped active playback", zap.Int("sessions", n))
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if shutdownTracer != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(flushCtx); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Studio:       st,
		Capabilities: capabilities,
		Resources:    resources,
		Metrics:      metrics,
		Logger:       logger,
		StoreMode:    storeMode,
		Cleanup:      cleanup,
	}, nil
}

func describeStore(cfg config.Config) string {
	rows := "memory"
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		rows = "postgres"
	}
	blobs := "memory"
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		blobs = "s3"
	}
	return rows + "+" + blobs
}
