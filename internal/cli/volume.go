package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *app) newVolumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "volume [level] [device]",
		Short: "Get or set this device's volume (0-100); does not touch the rest of its group",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// No level argument: report the current volume.
			if len(args) == 0 || !isVolumeLevel(args[0]) {
				addr, err := a.deviceAddr(args)
				if err != nil {
					return err
				}
				snap, err := a.client.Status(ctx, addr)
				if err != nil {
					return err
				}
				if snap.Volume == nil {
					return fmt.Errorf("device %s did not report a volume", addr)
				}
				level := int(*snap.Volume*100 + 0.5)
				if a.json {
					return a.out.EmitJSON(map[string]any{"device": addr, "volume": *snap.Volume})
				}
				a.out.Success(fmt.Sprintf("Volume: %d", level))
				return nil
			}

			level, _ := strconv.Atoi(args[0])
			addr, err := a.deviceAddr(args[1:])
			if err != nil {
				return err
			}
			p := a.newPlayer(ctx, addr, false)
			if err := p.SetVolume(ctx, float64(level)/100); err != nil {
				return err
			}
			a.out.Success(fmt.Sprintf("Volume: %d", level))
			return a.emitOK("volume", addr)
		},
	}
}

func (a *app) newMuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mute on|off [device]",
		Short: "Mute or unmute this device; does not touch the rest of its group",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mute, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			addr, err := a.deviceAddr(args[1:])
			if err != nil {
				return err
			}
			p := a.newPlayer(ctx, addr, false)
			if err := p.SetMute(ctx, mute); err != nil {
				return err
			}
			a.out.Success("Mute: " + onOff(mute))
			return a.emitOK("mute", addr)
		},
	}
}

func isVolumeLevel(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n <= 100
}
