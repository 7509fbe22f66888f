package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wiimctl/internal/control"
	"wiimctl/internal/presets"
)

func (a *app) newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Save and restore multiroom layouts",
	}
	cmd.AddCommand(
		a.newPresetSaveCmd(),
		a.newPresetApplyCmd(),
		a.newPresetListCmd(),
		a.newPresetDeleteCmd(),
	)
	return cmd
}

func (a *app) newPresetSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> [device]",
		Short: "Capture the device's current group and per-member volumes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr, err := a.deviceAddr(args[1:])
			if err != nil {
				return err
			}
			store, err := presets.NewFileStore()
			if err != nil {
				return err
			}

			p := a.newPlayer(ctx, addr, false)
			if err := a.attachGroup(ctx, p); err != nil {
				return err
			}
			g := p.Group()

			preset := presets.Preset{Name: args[0]}
			members := []*control.Player{p}
			if g != nil {
				preset.Master = g.Master().Address()
				for _, s := range g.Slaves() {
					preset.Slaves = append(preset.Slaves, s.Address())
				}
				members = g.Members()
			} else {
				// A solo device saves as a one-member layout.
				preset.Master = addr
			}

			for _, m := range members {
				if err := m.Refresh(ctx); err != nil {
					return fmt.Errorf("refresh %s: %w", m.Address(), err)
				}
				if err := m.RefreshIdentity(ctx); err != nil {
					a.out.Debug(fmt.Sprintf("identity %s: %v", m.Address(), err))
				}
				pd := presets.PresetDevice{IP: m.Address(), Name: m.Info().Name}
				snap := m.State()
				if snap.Volume != nil {
					pd.Volume = *snap.Volume
				}
				if snap.Muted != nil {
					pd.Mute = *snap.Muted
				}
				preset.Devices = append(preset.Devices, pd)
			}

			if err := store.Put(preset); err != nil {
				return err
			}
			a.out.Success(fmt.Sprintf("Saved preset %q (%d devices)", preset.Name, len(preset.Devices)))
			return a.emitOK("preset-save", preset.Master)
		},
	}
}

func (a *app) newPresetApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <name>",
		Short: "Rebuild a saved group and restore its per-member volumes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := presets.NewFileStore()
			if err != nil {
				return err
			}
			preset, ok, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no preset named %q", args[0])
			}

			master := a.newPlayer(ctx, preset.Master, true)
			players := map[string]*control.Player{preset.Master: master}
			failed := 0
			for _, slaveAddr := range preset.Slaves {
				slave := a.newPlayer(ctx, slaveAddr, true)
				players[slaveAddr] = slave
				a.out.Info("Joining " + slaveAddr + " to " + preset.Master + "...")
				if err := slave.JoinGroup(ctx, master); err != nil {
					failed++
					a.reportJoinError(slaveAddr, err)
				}
			}

			for _, d := range preset.Devices {
				p, ok := players[d.IP]
				if !ok {
					continue
				}
				if err := p.SetVolume(ctx, d.Volume); err != nil {
					a.out.Warn(fmt.Sprintf("volume %s: %v", d.IP, err))
				}
				if err := p.SetMute(ctx, d.Mute); err != nil {
					a.out.Warn(fmt.Sprintf("mute %s: %v", d.IP, err))
				}
			}

			if failed > 0 {
				return fmt.Errorf("preset applied with %d join failures", failed)
			}
			a.out.Success(fmt.Sprintf("Preset %q applied", preset.Name))
			return a.emitOK("preset-apply", preset.Master)
		},
	}
}

func (a *app) newPresetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := presets.NewFileStore()
			if err != nil {
				return err
			}
			metas, err := store.List()
			if err != nil {
				return err
			}
			if a.json {
				return a.out.EmitJSON(map[string]any{"presets": metas})
			}
			if len(metas) == 0 {
				a.out.Info("No presets saved")
				return nil
			}
			for _, m := range metas {
				a.out.KV(m.Name, m.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func (a *app) newPresetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := presets.NewFileStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			a.out.Success(fmt.Sprintf("Deleted preset %q", args[0]))
			return nil
		},
	}
}
