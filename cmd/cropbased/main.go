package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	configs "github.com/cropbase/cropbase/pkg/configs/server"
	kpg "github.com/cropbase/cropbase/pkg/domain/cropbase/db/postgres"
	"github.com/cropbase/cropbase/pkg/domain/model/registry"
	"github.com/cropbase/cropbase/pkg/utils/filewatch"

	"flag"
)

func main() {

	pconfig := flag.String(
		"config", os.Getenv("CROPBASE_CONFIG"), "path to config file",
	)
	schemaRepo := flag.String("schema-repo", os.Getenv("CROPBASE_SCHEMA"), "schema repository path")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")

	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	conf, err := configs.LoadServerConfig(*pconfig)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	{
		wctx, wcancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			log.Fatalf("can not watch configration: %s", err)
		}
		defer wcancel()
		ctx = wctx
	}

	db, err := kpg.New(ctx, conf.Database(), kpg.WithSchemaRepository(*schemaRepo))
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer db.Close()
	{
		ctx_, ccan := db.Schema().Context(ctx)
		defer ccan()
		ctx = ctx_
	}

	models, err := registry.New(conf.ModelDir())
	if err != nil {
		log.Fatalf("can not open model directory: %s", err)
	}

	server := BuildServer(conf, db, models, *loglevel)
	for _, r := range server.Routes() {
		server.Logger.Debugf("- mount handler: %s %s", strings.ToUpper(r.Method), r.Path)
	}

	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		addr := fmt.Sprintf(":%d", conf.Port())
		cert, key := *pcert, *pkey
		var err error
		if cert != "" && key != "" {
			err = server.StartTLS(addr, cert, key)
		} else {
			err = server.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			ch <- err
		}
	}()

	exit := 0
	select {
	case <-ctx.Done(): // wait
		if err := ctx.Err(); err != nil {
			server.Logger.Infof("context has been done: %s, cause: %s", err, context.Cause(ctx))
			exit = 1
		}
	case err := <-ch:
		if err != nil {
			server.Logger.Error("server stops with error:", err)
			exit = 1
		}
	}

	{
		server.Logger.Info("shutting down...")
		qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer qcancel()

		if err := server.Shutdown(qctx); err != nil {
			server.Logger.Fatalf("Shutdown with error. %+v", err)
			os.Exit(1)
		}
		os.Exit(exit)
	}
}
