package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"ENSWatch/api"
	"ENSWatch/callback"
	"ENSWatch/config"
	"ENSWatch/domain"
	"ENSWatch/ens"
	"ENSWatch/internal/app"
	"ENSWatch/scheduler"
	"ENSWatch/telegram"
	"ENSWatch/tools"
)

func main() {
	cliApp := &cli.App{
		Name:  "enswatch",
		Usage: "watch .eth names and get notified before they expire",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "config file path", EnvVars: []string{"ENSWATCH_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Usage: "override log.level", EnvVars: []string{"ENSWATCH_LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the scheduler, telegram bot and HTTP API",
				Action: serve,
			},
			{
				Name:      "watch",
				Usage:     "add a name to the watchlist, or remove it if already watched",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"},
				},
				Action: watch,
			},
			{
				Name:   "check",
				Usage:  "notify about names expiring within 7 days",
				Action: runCron(app.MethodCheckExpirationDate),
			},
			{
				Name:   "refresh",
				Usage:  "re-read expiry dates of all watched names",
				Action: runCron(app.MethodUpdateExpirationDates),
			},
			{
				Name:   "list",
				Usage:  "print the watchlist",
				Action: list,
			},
			{
				Name:      "lookup",
				Usage:     "print owner and expiry of a name without watching it",
				ArgsUsage: "<name>",
				Action:    lookup,
			},
			{
				Name:      "tokenid",
				Usage:     "print the registrar token id of a name",
				ArgsUsage: "<name>",
				Action:    tokenID,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	prompter, err := rt.prompter(config.Cfg.Prompt.Mode)
	if err != nil {
		return err
	}
	svc, err := rt.service(prompter)
	if err != nil {
		return err
	}

	if tp, ok := prompter.(*telegram.Prompter); ok {
		commands := telegram.NewCommandHandler(svc, rt.sender, config.Cfg.Telegram.ChatID, logger)
		callbacks := callback.NewHandler(tp, rt.sender, logger)
		go func() {
			if err := rt.sender.StartListener(ctx, callbacks.HandleCallback, commands.HandleMessage); err != nil && ctx.Err() == nil {
				logger.Error("telegram listener stopped", zap.Error(err))
			}
		}()
	}

	sched := scheduler.New(svc, config.Cfg.Schedule.CheckInterval, config.Cfg.Schedule.UpdateInterval, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	server := api.NewAPI(api.Config{
		ListenAddr: config.Cfg.API.Listen,
		RPS:        config.Cfg.API.RPS,
		Logger:     logger.Named("api"),
	}, svc)
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	telegram.SendAlert(ctx, "enswatch started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func watch(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	req, err := app.ParseRPCRequest(app.MethodAddOrRemoveENSDomain, addParams(c.Args().First()))
	if err != nil {
		return err
	}

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	var prompter app.Prompter = &app.TerminalPrompter{In: os.Stdin, Out: os.Stdout}
	if c.Bool("yes") {
		prompter = app.AutoPrompter{Approve: true}
	}
	svc, err := rt.service(prompter)
	if err != nil {
		return err
	}
	res, err := svc.Handle(c.Context, req)
	if err != nil {
		return err
	}
	toggle := res.(*app.ToggleResult)
	switch toggle.Action {
	case app.ActionAdded:
		fmt.Printf("added %s.eth, expires %s\n", toggle.Label, tools.FormatExpiry(toggle.Record.ExpirationDate, svc.Location))
	case app.ActionRemoved:
		fmt.Printf("removed %s.eth\n", toggle.Label)
	default:
		fmt.Printf("%s.eth unchanged\n", toggle.Label)
	}
	return nil
}

func runCron(method string) cli.ActionFunc {
	return func(c *cli.Context) error {
		req, err := app.ParseCronRequest(method)
		if err != nil {
			return err
		}
		rt, err := setup(c)
		if err != nil {
			return err
		}
		defer rt.Close()

		svc, err := rt.service(app.AutoPrompter{})
		if err != nil {
			return err
		}
		res, err := svc.Handle(c.Context, req)
		if err != nil {
			return err
		}
		return printJSON(res)
	}
}

func list(c *cli.Context) error {
	if err := loadConfig(c); err != nil {
		return err
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	storage, closeStorage, err := openStorage(config.Cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	w, err := domain.NewStore(storage, logger).Load(c.Context)
	if err != nil {
		return err
	}
	if w.Len() == 0 {
		fmt.Println("watchlist is empty")
		return nil
	}
	now := time.Now()
	loc := config.Cfg.Location()
	w.Range(func(label string, rec domain.Record) bool {
		fmt.Printf("%-24s %s %5dd %s\n", label+".eth", tools.FormatExpiry(rec.ExpirationDate, loc), tools.DaysUntil(rec.ExpirationDate, now), rec.Owner)
		return true
	})
	return nil
}

func lookup(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	svc, err := rt.service(app.AutoPrompter{})
	if err != nil {
		return err
	}
	label, rec, err := svc.Lookup(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"label":   label,
		"tokenId": ens.IdentifierOf(label).String(),
		"record":  rec,
	})
}

func tokenID(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	label, err := ens.NormalizeLabel(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(ens.IdentifierOf(label).String())
	return nil
}
