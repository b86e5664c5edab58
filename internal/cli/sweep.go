package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/karibu-campus/karibu/internal/client"
	"github.com/karibu-campus/karibu/internal/config"
	"github.com/karibu-campus/karibu/internal/escalation"
	"github.com/karibu-campus/karibu/internal/logging"
)

func newSweepCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one escalation sweep and exit",
		Long:  "Evaluate all open, clock-running visits against the overstay thresholds, firing any crossed-but-unfired escalations. Safe to run alongside a serving instance. With --server, the sweep runs on that instance instead of opening the database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(server)
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "base URL of a running karibu instance (e.g. http://localhost:8080)")
	return cmd
}

func runSweep(server string) error {
	var (
		result *escalation.Result
		err    error
	)
	if server != "" {
		result, err = client.New(server).Sweep()
	} else {
		result, err = runLocalSweep()
	}
	if err != nil {
		return err
	}
	fmt.Printf("evaluated %d visits, fired %d thresholds, %d failures\n",
		result.Evaluated, result.Fired, result.Failed)
	return nil
}

func runLocalSweep() (*escalation.Result, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.DevMode)

	database, err := openDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	defer closeDB(database)

	app := buildApp(database, cfg, nil)
	return app.sweeper.Run(time.Now())
}
