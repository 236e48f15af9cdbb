package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"socialnet/internal/auth"
	"socialnet/internal/config"
	"socialnet/internal/db"
	"socialnet/internal/handlers"
	"socialnet/internal/logging"
	"socialnet/internal/metrics"
	"socialnet/internal/seed"
	"socialnet/internal/store"
)

func main() {
	config.LoadDotEnvs("")

	configPath := flag.String("config", os.Getenv("SOCIALNET_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatal(err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatal(err)
	}
	ttl, err := cfg.SessionTTL()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	dbc, err := db.Open(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatal(err)
	}
	defer dbc.Close()

	if err := db.Migrate(dbc); err != nil {
		log.Fatal(err)
	}

	var snaps store.SnapshotStore
	switch cfg.Storage.Snapshots {
	case config.SnapshotsRedis:
		rs, err := db.NewRedisSnapshots(ctx, db.RedisOptions{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		})
		if err != nil {
			log.Fatal(err)
		}
		defer rs.Close()
		snaps = rs
	case config.SnapshotsMemory:
		snaps = store.NewMemorySnapshots()
	default:
		snaps = db.NewSQLiteSnapshots(dbc)
	}

	opts := []store.Option{store.WithLogger(log)}
	if cfg.Auth.VerifyPasswords {
		opts = append(opts, store.WithCredentials(auth.Bcrypt{}), store.WithSeedPassword(cfg.Auth.SeedPassword))
	}
	st := store.New(opts...)
	if err := st.Load(seed.Users(), seed.Posts()); err != nil {
		log.Fatal(err)
	}

	sessions := auth.NewManager(dbc, st, snaps, auth.Config{
		MaxAge:      ttl,
		SnapshotKey: cfg.Storage.SnapshotKey,
	}, log)
	restored, err := sessions.Restore(ctx)
	if err != nil {
		log.WithError(err).Warn("restore sessions")
	}

	h := handlers.New(st, sessions, metrics.NewLatency(), log)

	log.WithFields(logrus.Fields{
		"addr":      cfg.Server.Addr,
		"snapshots": cfg.Storage.Snapshots,
		"restored":  restored,
	}).Info("listening")
	if err := http.ListenAndServe(cfg.Server.Addr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
