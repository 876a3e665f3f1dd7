package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/rgbnode/internal/systemd"
	"github.com/smazurov/rgbnode/internal/updater"
	"github.com/spf13/cobra"
)

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var (
		checkOnly  bool
		prerelease bool
		restart    bool
		system     bool
		unit       string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update rgbnode to the latest release",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()

			u, err := updater.New(updater.Options{Prerelease: prerelease})
			if err != nil {
				return err
			}
			if !u.Enabled() {
				return fmt.Errorf("self update disabled: %s", u.DisabledReason())
			}

			if checkOnly {
				info, err := u.Check(ctx)
				if err != nil {
					return err
				}
				if info.UpdateAvailable {
					c.Printf("Update available: %s -> %s\n%s\n", info.CurrentVersion, info.LatestVersion, info.ReleaseURL)
				} else {
					c.Printf("Up to date (%s)\n", info.CurrentVersion)
				}
				return nil
			}

			info, err := u.Apply(ctx)
			if updater.CodeOf(err) == updater.ErrCodeNoUpdate {
				c.Printf("Up to date (%s)\n", info.CurrentVersion)
				return nil
			}
			if err != nil {
				return err
			}
			c.Printf("Updated %s -> %s\n", info.CurrentVersion, info.LatestVersion)

			if !restart {
				return nil
			}
			return restartUnit(ctx, c, system, unit)
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for a newer release")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.Flags().BoolVar(&restart, "restart", false, "Restart the systemd unit after updating")
	cmd.Flags().BoolVar(&system, "system", false, "Use the system manager instead of the user manager")
	cmd.Flags().StringVar(&unit, "unit", systemd.DefaultUnit, "Unit to restart")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")

	return cmd
}

func restartUnit(ctx context.Context, c *cobra.Command, system bool, unit string) error {
	mgr, err := systemd.NewManager(ctx, system)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.Restart(ctx, unit); err != nil {
		return err
	}

	state, err := mgr.UnitState(ctx, unit)
	if err != nil {
		return err
	}
	c.Printf("Restarted %s (%s)\n", unit, state)
	return nil
}
