package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"wiimctl/internal/control"
)

func (a *app) newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage multiroom groups",
	}
	cmd.AddCommand(
		a.newGroupStatusCmd(),
		a.newGroupCreateCmd(),
		a.newGroupJoinCmd(),
		a.newGroupLeaveCmd(),
		a.newGroupDisbandCmd(),
		a.newGroupVolumeCmd(),
		a.newGroupMuteCmd(),
	)
	return cmd
}

func (a *app) newGroupStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [device]",
		Short: "Show a device's group membership and aggregates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr, err := a.deviceAddr(args)
			if err != nil {
				return err
			}
			p := a.newPlayer(ctx, addr, false)
			if err := a.attachGroup(ctx, p); err != nil {
				return err
			}

			g := p.Group()
			if g == nil {
				if a.json {
					return a.out.EmitJSON(map[string]any{"device": addr, "role": string(control.RoleSolo)})
				}
				a.out.Info(addr + " is not grouped")
				return nil
			}

			// Aggregates need each member's cached volume.
			for _, m := range g.Members() {
				if err := m.Refresh(ctx); err != nil {
					a.out.Warn(fmt.Sprintf("%s unreachable: %v", m.Address(), err))
				}
			}

			if a.json {
				slaves := []string{}
				for _, s := range g.Slaves() {
					slaves = append(slaves, s.Address())
				}
				payload := map[string]any{
					"device": addr,
					"role":   string(p.Role()),
					"master": g.Master().Address(),
					"slaves": slaves,
					"volume": g.VolumeLevel(),
					"muted":  g.IsMuted(),
				}
				if ps := g.PlayState(); ps != nil {
					payload["state"] = string(*ps)
				}
				return a.out.EmitJSON(payload)
			}

			a.out.Info(a.out.Bold("Group of " + strconv.Itoa(g.Size())))
			a.out.KV("master", describeMember(g.Master()))
			for _, s := range g.Slaves() {
				a.out.KV("slave", describeMember(s))
			}
			a.out.KV("volume", strconv.Itoa(int(g.VolumeLevel()*100+0.5)))
			a.out.KV("muted", onOff(g.IsMuted()))
			if ps := g.PlayState(); ps != nil {
				a.out.KV("state", string(*ps))
			}
			return nil
		},
	}
}

func describeMember(p *control.Player) string {
	snap := p.State()
	desc := p.Address()
	if snap.Volume != nil {
		desc += fmt.Sprintf("  vol %d", int(*snap.Volume*100+0.5))
	}
	if !p.Available() {
		desc += "  (unreachable)"
	}
	return desc
}

func (a *app) newGroupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <master> <slave>...",
		Short: "Build a group by joining each slave to the master",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			master := a.newPlayer(ctx, args[0], true)

			failed := 0
			for _, slaveAddr := range args[1:] {
				slave := a.newPlayer(ctx, slaveAddr, true)
				a.out.Info("Joining " + slaveAddr + " to " + args[0] + "...")
				if err := slave.JoinGroup(ctx, master); err != nil {
					failed++
					a.reportJoinError(slaveAddr, err)
					continue
				}
				a.out.Success(slaveAddr + " joined")
			}

			g := master.Group()
			size := 1
			if g != nil {
				size = g.Size()
			}
			if a.json {
				_ = a.out.EmitJSON(map[string]any{
					"master": args[0], "size": size, "failed": failed,
				})
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d devices failed to join", failed, len(args)-1)
			}
			return nil
		},
	}
}

func (a *app) newGroupJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <slave> [master]",
		Short: "Join one device to a master's group",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			masterAddr, err := a.deviceAddr(args[1:])
			if err != nil {
				return err
			}
			master := a.newPlayer(ctx, masterAddr, true)
			slave := a.newPlayer(ctx, args[0], true)
			if err := slave.JoinGroup(ctx, master); err != nil {
				a.reportJoinError(args[0], err)
				return err
			}
			a.out.Success(args[0] + " joined " + masterAddr)
			return a.emitOK("join", args[0])
		},
	}
}

// reportJoinError explains join failures in terms a user can act on.
func (a *app) reportJoinError(slaveAddr string, err error) {
	var incompat *control.IncompatibleVersionError
	var verify *control.VerificationError
	switch {
	case errors.As(err, &incompat):
		a.out.Error(fmt.Sprintf("%s: multiroom protocol mismatch (master %s, slave %s); these generations cannot group",
			slaveAddr, incompat.MasterVersion, incompat.SlaveVersion))
	case errors.As(err, &verify):
		a.out.Error(slaveAddr + ": device accepted the command but never joined")
		if verify.CrossSubnet {
			a.out.Warn("devices are on different subnets; multiroom requires one L2 network")
		}
	default:
		a.out.Error(slaveAddr + ": " + err.Error())
	}
}

func (a *app) newGroupLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave [device]",
		Short: "Remove a device from its group (disbands when run on the master)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr, err := a.deviceAddr(args)
			if err != nil {
				return err
			}
			p := a.newPlayer(ctx, addr, false)
			if err := a.attachGroup(ctx, p); err != nil {
				return err
			}
			if p.Group() == nil {
				a.out.Info(addr + " is not grouped")
				return a.emitOK("leave", addr)
			}
			if err := p.LeaveGroup(ctx); err != nil {
				return err
			}
			a.out.Success(addr + " left the group")
			return a.emitOK("leave", addr)
		},
	}
}

func (a *app) newGroupDisbandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disband [master]",
		Short: "Dissolve the group owned by a master",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr, err := a.deviceAddr(args)
			if err != nil {
				return err
			}
			p := a.newPlayer(ctx, addr, false)
			if err := a.attachGroup(ctx, p); err != nil {
				return err
			}
			g := p.Group()
			if g == nil {
				a.out.Info(addr + " owns no group")
				return a.emitOK("disband", addr)
			}
			if g.Master() != p {
				return fmt.Errorf("%s is a slave; disband must run on the master %s", addr, g.Master().Address())
			}
			if err := g.Disband(ctx); err != nil {
				return err
			}
			a.out.Success("Group disbanded")
			return a.emitOK("disband", addr)
		},
	}
}

func (a *app) newGroupVolumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "volume <level> [device]",
		Short: "Shift every member so the group's loudest speaker lands on level",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			level, err := strconv.Atoi(args[0])
			if err != nil || level < 0 || level > 100 {
				return fmt.Errorf("level must be 0-100, got %q", args[0])
			}
			g, err := a.loadGroup(ctx, args[1:])
			if err != nil {
				return err
			}
			failures := g.SetVolumeAll(ctx, float64(level)/100)
			return a.reportFanOut(g, "volume", failures)
		},
	}
}

func (a *app) newGroupMuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mute on|off [device]",
		Short: "Mute or unmute every group member",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mute, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			g, err := a.loadGroup(ctx, args[1:])
			if err != nil {
				return err
			}
			failures := g.MuteAll(ctx, mute)
			return a.reportFanOut(g, "mute", failures)
		},
	}
}

// loadGroup rebuilds and refreshes the group any member address belongs to.
func (a *app) loadGroup(ctx context.Context, args []string) (*control.Group, error) {
	addr, err := a.deviceAddr(args)
	if err != nil {
		return nil, err
	}
	p := a.newPlayer(ctx, addr, false)
	if err := a.attachGroup(ctx, p); err != nil {
		return nil, err
	}
	g := p.Group()
	if g == nil {
		return nil, fmt.Errorf("%s is not grouped", addr)
	}
	for _, m := range g.Members() {
		if err := m.Refresh(ctx); err != nil {
			a.out.Debug(fmt.Sprintf("refresh %s: %v", m.Address(), err))
		}
	}
	return g, nil
}

func (a *app) reportFanOut(g *control.Group, action string, failures []control.MemberError) error {
	for _, f := range failures {
		a.out.Error(f.Address + ": " + f.Err.Error())
	}
	if a.json {
		addrs := []string{}
		for _, f := range failures {
			addrs = append(addrs, f.Address)
		}
		_ = a.out.EmitJSON(map[string]any{
			"action": action, "members": g.Size(), "failed": addrs,
		})
	}
	if len(failures) > 0 {
		return fmt.Errorf("%s failed on %d of %d members", action, len(failures), g.Size())
	}
	a.out.Success(fmt.Sprintf("Applied to %d members", g.Size()))
	return nil
}
