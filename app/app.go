// Package app assembles voicegate: it builds the adapters from configuration,
// puts them behind one availability ledger and two orchestrators, and mounts
// the HTTP API on the server component.
package app

import (
	"context"
	"fmt"

	"github.com/kbukum/voicegate/api"
	"github.com/kbukum/voicegate/asr"
	"github.com/kbukum/voicegate/asr/funasr"
	asropenai "github.com/kbukum/voicegate/asr/openai"
	"github.com/kbukum/voicegate/asr/sensevoice"
	"github.com/kbukum/voicegate/asr/whisper"
	"github.com/kbukum/voicegate/availability"
	"github.com/kbukum/voicegate/bootstrap"
	"github.com/kbukum/voicegate/broker"
	"github.com/kbukum/voicegate/database"
	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/observability"
	"github.com/kbukum/voicegate/provider"
	"github.com/kbukum/voicegate/server"
	"github.com/kbukum/voicegate/tts"
	"github.com/kbukum/voicegate/tts/gptsovits"
	ttsopenai "github.com/kbukum/voicegate/tts/openai"
	"github.com/kbukum/voicegate/tts/qwen"
	"github.com/kbukum/voicegate/tts/voicestore"
)

// Service is the assembled application. Everything but App and Ledger is
// populated during the configure phase of Start.
type Service struct {
	App    *bootstrap.App[*Config]
	Ledger *availability.Ledger

	ASR    *asr.Service
	TTS    *tts.Service
	Server *server.Server

	db *database.Component
}

// New validates cfg and prepares the application. Start or Run it through
// the returned App.
func New(cfg *Config, opts ...bootstrap.Option) (*Service, error) {
	a, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	s := &Service{App: a, Ledger: availability.NewLedger()}

	if cfg.Database.Enabled {
		s.db = database.NewComponent(cfg.Database, a.Logger.WithComponent("database"))
		if err := a.RegisterComponent(s.db); err != nil {
			return nil, err
		}
	}
	a.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
		return s.configure(ctx)
	})
	return s, nil
}

// Run starts the application and blocks until ctx ends or a signal arrives.
func (s *Service) Run(ctx context.Context) error {
	return s.App.Run(ctx)
}

func (s *Service) configure(ctx context.Context) error {
	cfg := s.App.Cfg
	log := s.App.Logger

	metrics, err := s.initTelemetry(ctx)
	if err != nil {
		return err
	}

	var store qwen.VoiceStore
	if s.db != nil {
		vs, err := voicestore.New(s.db.DB())
		if err != nil {
			return fmt.Errorf("voice store: %w", err)
		}
		store = vs
	}

	rawASR, realtime := buildASR(cfg)
	rawTTS, clone := buildTTS(cfg, store, log)
	s.App.OnStop(func(ctx context.Context) error {
		if err := provider.CloseAll(ctx, rawASR...); err != nil {
			return err
		}
		return provider.CloseAll(ctx, rawTTS...)
	})

	asrReg := asr.NewRegistry()
	register(asrReg, asr.Capability, cfg.Providers.Guards, log, metrics, rawASR...)
	ttsReg := tts.NewRegistry()
	register(ttsReg, tts.Capability, cfg.Providers.Guards, log, metrics, rawTTS...)

	asrOrch := orchestrate(s, asrReg, cfg.brokerConfig(asr.Capability), metrics)
	ttsOrch := orchestrate(s, ttsReg, cfg.brokerConfig(tts.Capability), metrics)

	s.ASR = asr.NewService(asrOrch)
	s.TTS = tts.NewService(ttsOrch, tts.WithVoiceManager(clone))

	s.Server = server.New(cfg.Server, log.WithComponent("http"))
	s.Server.ApplyMiddleware(metrics)
	s.Server.RegisterDefaultEndpoints(s.App.Name, cfg.Environment, func(ctx context.Context) *observability.ServiceHealth {
		checkers := append(s.App.Components.Checkers(), asrOrch, ttsOrch)
		return observability.Check(ctx, s.App.Name, s.App.Version, checkers...)
	})
	api.New(s.ASR, s.TTS,
		api.WithRealtime(realtime),
		api.WithOriginPatterns(cfg.ASR.RealtimeOrigins...),
		api.WithMetrics(metrics),
		api.WithLogger(log.WithComponent("api")),
	).Mount(s.Server)

	return s.App.RegisterComponent(server.NewComponent(s.Server))
}

// orchestrate builds the orchestrator for one capability and records its
// effective chain in the startup summary.
func orchestrate[I, O any](s *Service, reg *provider.Registry[provider.RequestResponse[I, O]], bc broker.Config, metrics *observability.Metrics) *broker.Orchestrator[I, O] {
	chain, unknown := reg.Resolve(bc.Priority, bc.Defaults)
	if len(unknown) > 0 {
		s.App.Logger.Warn("ignoring unknown providers in priority", logger.Fields(
			logger.FieldCapability, bc.Capability, "unknown", unknown))
	}
	s.App.Summary.TrackProviders(bc.Capability, chain, unknown)
	return broker.New(bc, reg, s.Ledger,
		broker.WithLogger(s.App.Logger.WithComponent("broker")), broker.WithMetrics(metrics))
}

func (s *Service) initTelemetry(ctx context.Context) (*observability.Metrics, error) {
	cfg := s.App.Cfg
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, &cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		s.App.OnStop(tp.Shutdown)
	}
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, &cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("init meter: %w", err)
		}
		s.App.OnStop(mp.Shutdown)
	}
	// With metrics disabled the global meter is a no-op.
	metrics, err := observability.NewMetrics(observability.Meter(s.App.Name))
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	return metrics, nil
}

func buildASR(cfg *Config) ([]asr.Provider, *funasr.Provider) {
	realtime := funasr.NewProvider(cfg.ASR.FunASR)
	return []asr.Provider{
		sensevoice.NewProvider(cfg.ASR.SenseVoice),
		realtime,
		whisper.NewProvider(cfg.ASR.Whisper),
		asropenai.NewProvider(cfg.ASR.OpenAI),
	}, realtime
}

func buildTTS(cfg *Config, store qwen.VoiceStore, log *logger.Logger) ([]tts.Provider, *qwen.Provider) {
	opts := []qwen.Option{qwen.WithLogger(log.WithComponent(tts.QwenCloneTTS))}
	if store != nil {
		opts = append(opts, qwen.WithVoiceStore(store))
	}
	clone := qwen.NewProvider(cfg.TTS.Qwen, opts...)
	return []tts.Provider{
		gptsovits.NewProvider(cfg.TTS.GPTSoVITS),
		clone,
		ttsopenai.NewProvider(cfg.TTS.OpenAI),
	}, clone
}

// register wraps every adapter in the logging, tracing and metrics
// middleware plus its configured guard, then adds it to reg.
func register[I, O any](reg *provider.Registry[provider.RequestResponse[I, O]], capability string,
	guards map[string]GuardConfig, log *logger.Logger, metrics *observability.Metrics, ps ...provider.RequestResponse[I, O]) {
	for _, p := range ps {
		mws := []provider.Middleware[I, O]{
			provider.WithLogging[I, O](log.WithComponent(capability)),
			provider.WithTracing[I, O](capability),
			provider.WithMetrics[I, O](metrics, capability),
		}
		if g, ok := guards[p.Name()]; ok {
			rc := g.Resilience(p.Name())
			if rc.Bulkhead != nil {
				rc.Bulkhead.OnReject = func(name string, err error) {
					log.Warn("provider call rejected by concurrency guard", logger.Fields(
						logger.FieldCapability, capability, logger.FieldProvider, name, logger.FieldError, err.Error()))
				}
			}
			mws = append(mws, provider.WithResilience[I, O](rc))
		}
		reg.Register(provider.Chain(mws...)(p))
	}
}
