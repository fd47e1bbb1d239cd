// Command depositpoold serves a deposit pool ledger over HTTP.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"

	"github.com/interstellar/starlight/env"
	"github.com/sirupsen/logrus"

	"github.com/interstellar/slingshot/depositpool"
	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/store"
)

func main() {
	ctx := context.Background()

	var (
		addr     = flag.String("addr", env.String("DEPOSITPOOL_ADDR", "localhost:2424"), "server listen address")
		dbfile   = flag.String("db", env.String("DEPOSITPOOL_DB", "depositpool.db"), "path to db")
		reserve  = flag.Int("reserve", env.Int("DEPOSITPOOL_RESERVE_ASSET", int(contract.DefaultReserveAsset)), "reserve asset ID")
		share    = flag.Int("share", env.Int("DEPOSITPOOL_SHARE_ASSET", int(contract.DefaultShareAsset)), "pool-share asset ID")
		dev      = flag.Bool("dev", env.Bool("DEPOSITPOOL_DEV", false), "serve /fund for local testing")
		audit    = flag.Bool("audit", env.Bool("DEPOSITPOOL_AUDIT", true), "check the pool's books after every round")
		logLevel = flag.String("log", env.String("DEPOSITPOOL_LOG", "info"), "log level")
	)
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)

	if *reserve <= 0 || *share <= 0 {
		logrus.Fatal("asset IDs must be positive")
	}
	cfg := contract.Config{
		ReserveAsset: contract.AssetID(*reserve),
		ShareAsset:   contract.AssetID(*share),
	}

	s, err := store.Open(ctx, *dbfile)
	if err != nil {
		logrus.Fatalf("error opening db: %s", err)
	}
	defer s.Close()

	l, err := depositpool.NewLedger(ctx, s, cfg)
	if err != nil {
		logrus.Fatal(err)
	}

	if *audit {
		go func() {
			err := l.RunPin(ctx, "audit", l.Audit)
			if err != nil {
				logrus.Fatal(err)
			}
		}()
	}

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		logrus.Fatal(err)
	}

	logrus.WithFields(logrus.Fields{
		"addr":    listener.Addr().String(),
		"reserve": cfg.ReserveAsset,
		"share":   cfg.ShareAsset,
		"dev":     *dev,
	}).Info("listening")

	logrus.Fatal(http.Serve(listener, l.Mux(*dev)))
}
