package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"ENSWatch/config"
	"ENSWatch/domain"
	"ENSWatch/ens"
	"ENSWatch/internal/app"
	"ENSWatch/logutils"
	"ENSWatch/telegram"
)

// runtime holds what every oracle-backed command needs.
type runtime struct {
	logger   *zap.Logger
	oracle   *ens.RegistrarOracle
	resolver *ens.Resolver
	storage  domain.Storage
	sender   telegram.Sender
	closers  []func()
}

func setup(c *cli.Context) (*runtime, error) {
	if err := loadConfig(c); err != nil {
		return nil, err
	}
	logger, err := newLogger(c)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	rt := &runtime{logger: logger}
	rt.closers = append(rt.closers, func() { _ = logger.Sync() })

	storage, closeStorage, err := openStorage(config.Cfg.Storage)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.storage = storage
	rt.closers = append(rt.closers, closeStorage)

	eth := config.Cfg.Ethereum
	oracle, err := ens.DialRegistrar(c.Context, eth.RPCURL, eth.Registrar, eth.QueryTimeout)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.oracle = oracle
	rt.resolver = ens.NewResolver(oracle, logger)
	rt.closers = append(rt.closers, oracle.Close)

	rt.sender = telegram.NoopSender{}
	if config.Cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBotSender(config.Cfg.Telegram.BotToken, config.Cfg.Telegram.ChatID, 2, time.Second, 10*time.Second, logger)
		if err != nil {
			logger.Warn("telegram unavailable, notifications go to the log", zap.Error(err))
		} else {
			rt.sender = bot
		}
	}
	return rt, nil
}

func (rt *runtime) notifier() app.Notifier {
	if _, ok := rt.sender.(telegram.NoopSender); ok {
		return app.LogNotifier{Logger: rt.logger}
	}
	return telegram.Notifier{Sender: rt.sender}
}

func (rt *runtime) prompter(mode string) (app.Prompter, error) {
	switch mode {
	case "telegram":
		if _, ok := rt.sender.(telegram.NoopSender); ok {
			return nil, fmt.Errorf("prompt mode telegram needs a working telegram bot")
		}
		return telegram.NewPrompter(rt.sender, config.Cfg.Prompt.Timeout, rt.logger), nil
	case "terminal":
		return &app.TerminalPrompter{In: os.Stdin, Out: os.Stdout}, nil
	default:
		rt.logger.Warn("prompt mode auto approves every add and remove without asking",
			zap.String("mode", mode),
			zap.String("apiListen", config.Cfg.API.Listen))
		return app.AutoPrompter{Approve: true}, nil
	}
}

func (rt *runtime) service(prompter app.Prompter) (*app.Service, error) {
	svc, err := app.NewService(app.Host{
		Resolver: rt.resolver,
		Storage:  rt.storage,
		Prompter: prompter,
		Notifier: rt.notifier(),
	}, rt.logger)
	if err != nil {
		return nil, err
	}
	svc.Location = config.Cfg.Location()
	return svc, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func loadConfig(c *cli.Context) error {
	if err := config.Load(c.String("config")); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	level := config.Cfg.Log.Level
	if l := c.String("log-level"); l != "" {
		level = l
	}
	return logutils.NewLogger(logutils.Options{
		Level: level,
		File: logutils.FileOptions{
			Filename:   config.Cfg.Log.File,
			MaxSize:    config.Cfg.Log.MaxSize,
			MaxBackups: config.Cfg.Log.MaxBackups,
			Compress:   config.Cfg.Log.Compress,
		},
	})
}

func openStorage(cfg config.Storage) (domain.Storage, func(), error) {
	switch cfg.Engine {
	case "bolt":
		s, err := domain.NewBoltStorage(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt storage: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "memory":
		return domain.NewMemoryStorage(), func() {}, nil
	default:
		return domain.NewFileStorage(cfg.Path), func() {}, nil
	}
}

func addParams(name string) []byte {
	data, _ := json.Marshal(app.AddOrRemoveENSDomain{ENSDomain: name})
	return data
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
