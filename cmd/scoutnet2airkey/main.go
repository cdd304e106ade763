// Command scoutnet2airkey synchronizes keyholders from the Scoutnet
// membership registry into the EVVA Airkey access-control platform.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jschlyter/scoutnet2airkey/internal/config"
	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
	"github.com/jschlyter/scoutnet2airkey/internal/domain/port"
	"github.com/jschlyter/scoutnet2airkey/internal/infrastructure/airkey"
	"github.com/jschlyter/scoutnet2airkey/internal/infrastructure/mock"
	"github.com/jschlyter/scoutnet2airkey/internal/infrastructure/scoutnet"
	"github.com/jschlyter/scoutnet2airkey/internal/infrastructure/snapshot"
	"github.com/jschlyter/scoutnet2airkey/internal/reconciler"
	"github.com/jschlyter/scoutnet2airkey/internal/service"
	"github.com/jschlyter/scoutnet2airkey/pkg/constants"
	"github.com/jschlyter/scoutnet2airkey/pkg/httpclient"
	logging "github.com/jschlyter/scoutnet2airkey/pkg/log"
)

func init() {
	logging.InitStructureLogConfig()
}

func main() {
	// Define command line flags
	var (
		configFile = flag.String("config", constants.DefaultConfigFile, "configuration file")
		dryRun     = flag.Bool("dry-run", false, "test mode (no changes written)")
		offline    = flag.Bool("offline", false, "read the memberlist from the last snapshot instead of the Scoutnet API")
		verbose    = flag.Bool("verbose", false, "enable verbose output")
		debug      = flag.Bool("debug", false, "enable debugging output")
	)
	flag.Parse()

	if *debug {
		logging.SetLevel(slog.LevelDebug)
	} else if *verbose {
		logging.SetLevel(slog.LevelInfo)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.InfoContext(ctx, "starting sync pass",
		"config", *configFile,
		"dry_run", *dryRun,
		"offline", *offline,
	)

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.ErrorContext(ctx, "configuration error", "error", err)
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	report, err := run(ctx, cfg, *dryRun, *offline)
	if err != nil {
		slog.ErrorContext(ctx, "sync pass failed", "error", err)
		fmt.Fprintf(os.Stderr, "sync pass failed: %v\n", err)
		os.Exit(1)
	}

	counts := report.Counts()
	fmt.Printf("created=%d updated=%d revoked=%d failed=%d skipped=%d\n",
		counts.Created, counts.Updated, counts.Revoked, counts.Failed, counts.Skipped)

	// Individual failures are reported, not fatal.
	os.Exit(0)
}

// run wires the adapters and executes one reconciliation pass.
func run(ctx context.Context, cfg *config.Config, dryRun, offline bool) (*model.Report, error) {

	snapshots, closeSnapshots, err := buildSnapshotStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeSnapshots != nil {
		defer func() {
			_ = closeSnapshots()
		}()
	}

	roster := scoutnet.NewRosterReader(
		scoutnet.Config{
			APIEndpoint:   cfg.Scoutnet.APIEndpoint,
			APIID:         cfg.Scoutnet.APIID,
			APIKey:        cfg.Scoutnet.APIKey,
			KeyRoles:      cfg.Airkey.Roles,
			CountryPrefix: cfg.Scoutnet.CountryPrefix,
		},
		httpclient.NewClient(httpclient.DefaultConfig()),
		scoutnet.WithSnapshots(snapshots),
		scoutnet.WithOffline(offline),
	)

	credentials, err := airkey.NewCredentialReaderWriter(ctx,
		airkey.Config{
			APIEndpoint:  cfg.Airkey.APIEndpoint,
			ClientID:     cfg.Airkey.ClientID,
			ClientSecret: cfg.Airkey.ClientSecret,
			TokenURL:     cfg.Airkey.TokenURL,
			Scopes:       cfg.Airkey.Scopes,
		},
		httpclient.NewClient(httpclient.DefaultConfig()),
	)
	if err != nil {
		return nil, err
	}

	if dryRun {
		credentials = mock.ReadOnly(credentials)
	}

	syncer := service.NewSyncer(roster, credentials, reconciler.New(reconciler.Options{
		RevokeThreshold: cfg.RevokeThreshold(),
		Workers:         cfg.Sync.Workers,
	}))

	return syncer.Run(ctx)
}

func buildSnapshotStore(ctx context.Context, cfg *config.Config) (port.SnapshotReaderWriter, func() error, error) {
	switch cfg.Snapshots.Backend {
	case "nats":
		return snapshot.NewNATSStore(ctx, snapshot.NATSConfig{URL: cfg.Snapshots.NATSURL})
	default:
		return snapshot.NewFileStore(cfg.Snapshots.Directory), nil, nil
	}
}
