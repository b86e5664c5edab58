package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/karibu-campus/karibu/internal/config"
	"github.com/karibu-campus/karibu/internal/invite"
	"github.com/karibu-campus/karibu/internal/logging"
	"github.com/karibu-campus/karibu/internal/visit"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a demo dataset",
		Long:  "Create a few invites and a walk-in visit for local development. Idempotent enough for a fresh database; reruns may hit quota or duplicate-identity conflicts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
}

func runSeed() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.DevMode)

	database, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	app := buildApp(database, cfg, nil)

	invites := []invite.CreateInput{
		{HostName: "Dr. Jane Mwangi", VisitorName: "Peter Otieno", VisitorIDNumber: "30112233", Purpose: "Thesis defense", Destination: "Science Block"},
		{HostName: "Dr. Jane Mwangi", VisitorName: "Alice Wanjiru", VisitorIDNumber: "28445566", Purpose: "Guest lecture", Destination: "Auditorium"},
		{HostName: "Facilities Office", VisitorName: "Samuel Kiprop", VisitorIDNumber: "19887766", Purpose: "HVAC maintenance", Destination: "Admin Wing"},
	}
	for _, in := range invites {
		inv, err := app.invites.Create(in)
		if err != nil {
			return fmt.Errorf("seeding invite for %s: %w", in.VisitorName, err)
		}
		fmt.Printf("invite %s for %s (host %s)\n", inv.Code, inv.VisitorName, inv.HostName)
	}

	walkin, err := app.visits.RegisterWalkIn(visit.WalkInInput{
		IDNumber:    "40990011",
		FullName:    "Grace Njeri",
		Destination: "Library",
		Purpose:     "Alumni records",
	})
	if err != nil {
		return fmt.Errorf("seeding walk-in: %w", err)
	}
	fmt.Printf("walk-in visit %s for %s\n", walkin.ID, walkin.FullName)

	return nil
}
