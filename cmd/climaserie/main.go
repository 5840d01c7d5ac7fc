package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/mxclima/climaserie/internal/api"
	"github.com/mxclima/climaserie/internal/catalog"
	"github.com/mxclima/climaserie/internal/series"
)

type serveCmd struct {
	DataDir    string `name:"data-dir" default:"data" env:"CLIMASERIE_DATA_DIR" help:"Directory holding json/ catalogs and csv/ station files."`
	Addr       string `name:"addr" default:":8080" env:"CLIMASERIE_ADDR" help:"HTTP listen address."`
	MinSamples int    `name:"min-samples" default:"10" env:"CLIMASERIE_MIN_SAMPLES" help:"Minimum historical observations per day-of-year before an extremes threshold is valid."`
}

func (c *serveCmd) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := series.NewStore(c.DataDir)
	cat := catalog.New(c.DataDir, store)
	server := api.NewServer(cat, store, c.Addr)
	server.SetMinSamples(c.MinSamples)

	log.Printf("starting server on %s (data dir %s)", c.Addr, c.DataDir)
	return server.Run(ctx)
}

type enrichCmd struct {
	DataDir string `name:"data-dir" default:"data" env:"CLIMASERIE_DATA_DIR" help:"Directory holding json/ catalogs and csv/ station files."`
}

func (c *enrichCmd) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := series.NewStore(c.DataDir)
	cat := catalog.New(c.DataDir, store)
	return cat.WriteEnriched(ctx)
}

var cli struct {
	Serve  serveCmd  `cmd:"" default:"1" help:"Serve the station catalog and aggregation API."`
	Enrich enrichCmd `cmd:"" help:"Rewrite catalog JSONs with period-of-record enrichment."`
}

func main() {
	ktx := kong.Parse(&cli,
		kong.Name("climaserie"),
		kong.Description("Climate station series explorer backend."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	ktx.FatalIfErrorf(ktx.Run())
}
