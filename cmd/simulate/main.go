// Command simulate plays AI-only Zhajinhua games in the terminal, streaming
// each agent's reasoning and archiving every finished game to SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"zhajinhua/internal/app/export"
	"zhajinhua/internal/bot"
	"zhajinhua/internal/config"
	"zhajinhua/internal/storage/sqlite"
	"zhajinhua/internal/table"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
)

// simConfig is read from the environment, optionally seeded from a .env file.
type simConfig struct {
	Games         int    `env:"ZHAJINHUA_GAMES"          envDefault:"1"`
	Players       int    `env:"ZHAJINHUA_PLAYERS"`
	InitialChips  int64  `env:"ZHAJINHUA_INITIAL_CHIPS"`
	MaxHands      int    `env:"ZHAJINHUA_MAX_HANDS"`
	Seed          int64  `env:"ZHAJINHUA_SEED"`
	ConfigPath    string `env:"ZHAJINHUA_CONFIG"         envDefault:"data/game_config.json"`
	PersonaPath   string `env:"ZHAJINHUA_PERSONAS"`
	DBPath        string `env:"ZHAJINHUA_DB"             envDefault:"zhajinhua.db"`
	Stream        bool   `env:"ZHAJINHUA_STREAM"         envDefault:"true"`
	LogLevel      string `env:"ZHAJINHUA_LOG_LEVEL"      envDefault:"warn"`
	ReceiptSecret string `env:"ZHAJINHUA_RECEIPT_SECRET"`
}

func loadSimConfig() (simConfig, error) {
	var sc simConfig
	if err := env.Parse(&sc); err != nil {
		return simConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if sc.Games < 1 {
		return simConfig{}, errors.New("ZHAJINHUA_GAMES must be at least 1")
	}
	if sc.Seed == 0 {
		sc.Seed = time.Now().UnixNano()
	}
	return sc, nil
}

// gameConfig loads the file configuration and applies the environment overrides.
func gameConfig(sc simConfig, logger *consoleLogger) config.GameConfig {
	if err := config.LoadGameConfig(sc.ConfigPath); err != nil {
		logger.Warn("Simulate: Could not load game config, using defaults: %v", err)
	}
	cfg := config.GetGameConfig()
	if sc.Players > 0 {
		cfg.Table.Players = sc.Players
	}
	if sc.InitialChips > 0 {
		cfg.Table.InitialChips = sc.InitialChips
	}
	if sc.MaxHands > 0 {
		cfg.Table.MaxHands = sc.MaxHands
	}
	if sc.PersonaPath != "" {
		cfg.PersonaPoolPath = sc.PersonaPath
	}
	return cfg
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	sc, err := loadSimConfig()
	if err != nil {
		return err
	}
	logger := newConsoleLogger(parseLevel(sc.LogLevel))

	cfg := gameConfig(sc, logger)
	if err := bot.LoadPersonas(cfg.PersonaPoolPath); err != nil {
		logger.Warn("Simulate: Could not load personas, using built-in pool: %v", err)
	}

	store, err := sqlite.Open(sc.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	printer := newStreamPrinter(os.Stdout)
	opts := table.Options{Seed: sc.Seed}
	if sc.Stream {
		opts.Callbacks = printer.callbacks()
	}
	tbl, err := table.New(cfg, opts, logger)
	if err != nil {
		return err
	}
	defer tbl.Close()

	var signer *export.Signer
	if sc.ReceiptSecret != "" {
		signer = export.NewSigner(sc.ReceiptSecret, "zhajinhua", 0)
	}

	pterm.Info.Printfln("Seed %d, %d players, %d game(s), archive %s", sc.Seed, cfg.Table.Players, sc.Games, sc.DBPath)
	for game := 1; game <= sc.Games; game++ {
		printer.seat(tbl)
		pterm.DefaultSection.Printfln("Game %d of %d: %s", game, sc.Games, tbl.Engine.GameID())
		for _, p := range tbl.Engine.Players() {
			if persona, ok := tbl.Persona(p.ID); ok {
				pterm.Info.Printfln("%s plays %s: %s", p.ID, pterm.LightCyan(persona.Name), persona.Text)
			}
		}

		report, err := tbl.Play(ctx, store)
		printer.finish()
		if err != nil && report.Summary == nil {
			return fmt.Errorf("game %d: %w", game, err)
		}
		if err != nil {
			pterm.Warning.Printfln("Game %d finished with reset errors: %v", game, err)
		}

		summary := export.FromSummary(report.Summary)
		if err := pterm.DefaultTable.WithHasHeader().WithData(summaryTable(summary)).Render(); err != nil {
			return err
		}
		pterm.Success.Printfln("Winner %s, final pot %d, %d rounds", summary.WinnerID, summary.FinalPot, summary.TotalRounds)
		if signer != nil {
			receipt, err := signer.Sign(summary)
			if err != nil {
				pterm.Warning.Printfln("Could not sign summary: %v", err)
			} else {
				pterm.Info.Printfln("Receipt %s", receipt)
			}
		}
	}

	records, err := store.ListGames(ctx, sc.Games)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("Archive")
	return pterm.DefaultTable.WithHasHeader().WithData(archiveTable(records)).Render()
}
