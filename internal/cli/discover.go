package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wiimctl/internal/discovery"
)

func (a *app) newDiscoverCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find LinkPlay devices on the local network via SSDP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.out.Info("Searching for devices...")
			devices, err := discovery.Discover(ctx, timeout)
			if err != nil {
				return err
			}
			if a.json {
				return a.out.EmitJSON(map[string]any{"devices": devices})
			}
			if len(devices) == 0 {
				a.out.Warn("No devices found")
				return nil
			}
			for _, d := range devices {
				// A name from the device beats the bare SSDP record.
				label := d.Server
				if info, err := a.client.Identity(ctx, d.IP); err == nil && info.Name != "" {
					label = info.Name
					if info.Model != "" {
						label += " (" + info.Model + ")"
					}
				}
				a.out.Info(fmt.Sprintf("  %-15s  %s", d.IP, label))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "How long to wait for SSDP responses")
	return cmd
}
