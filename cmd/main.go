package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lynxwallet/walletcore"
	"github.com/lynxwallet/walletcore/config"
)

func main() {
	app := &cli.App{
		Name: "walletd",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "vault_dir", Value: "./data/vault", Usage: "secret vault dir path", EnvVars: []string{"VAULT_DIR"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite history index dir", EnvVars: []string{"SQLITE_DIR"}},
			&cli.StringFlag{Name: "mysql", Value: "", Usage: "mysql dsn, overrides sqlite when set", EnvVars: []string{"MYSQL"}},
			&cli.StringFlag{Name: "providers", Value: "./providers.json", Usage: "chain provider list", EnvVars: []string{"PROVIDERS"}},
			&cli.StringFlag{Name: "fiat", Value: "USD", Usage: "fiat display currency", EnvVars: []string{"FIAT"}},
			&cli.DurationFlag{Name: "sync_interval", Value: 3 * time.Minute, EnvVars: []string{"SYNC_INTERVAL"}},
			&cli.DurationFlag{Name: "rate_interval", Value: 5 * time.Minute, EnvVars: []string{"RATE_INTERVAL"}},
			&cli.StringFlag{Name: "kafka", Value: "", Usage: "kafka uri for event export", EnvVars: []string{"KAFKA"}},
			&cli.StringFlag{Name: "port", Value: ":8575", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	cfg := config.Default()
	cfg.DbDir = c.String("db_dir")
	cfg.VaultDir = c.String("vault_dir")
	cfg.SqliteDir = c.String("sqlite_dir")
	if dsn := c.String("mysql"); dsn != "" {
		cfg.MysqlDSN = dsn
		cfg.UseSqlite = false
	}
	cfg.FiatSymbol = c.String("fiat")
	cfg.SyncInterval = c.Duration("sync_interval")
	cfg.RateInterval = c.Duration("rate_interval")
	cfg.KafkaURI = c.String("kafka")
	if err := cfg.LoadProviders(c.String("providers")); err != nil {
		log.Printf("no provider list loaded: %v", err)
	}

	w := walletcore.New(cfg)
	w.Run(c.String("port"))

	<-signals
	w.Close()

	return nil
}
