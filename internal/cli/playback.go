package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"wiimctl/internal/control"
)

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [device]",
		Short: "Show playback state, track metadata and group role",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr, err := a.deviceAddr(args)
			if err != nil {
				return err
			}
			p := a.newPlayer(ctx, addr, false)
			if err := p.Refresh(ctx); err != nil {
				return err
			}
			if err := p.RefreshIdentity(ctx); err != nil {
				a.out.Debug(fmt.Sprintf("identity unavailable: %v", err))
			}
			if err := a.attachGroup(ctx, p); err != nil {
				a.out.Debug(fmt.Sprintf("group info unavailable: %v", err))
			}
			return a.printStatus(p)
		},
	}
}

func (a *app) printStatus(p *control.Player) error {
	snap := p.State()
	if a.json {
		return a.out.EmitJSON(statusPayload(p, snap))
	}

	name := p.Info().Name
	if name == "" {
		name = p.Address()
	}
	a.out.Info(a.out.Bold(name) + "  " + a.out.Gray(p.Address()))
	if snap.PlayState != nil {
		a.out.KV("state", string(*snap.PlayState))
	}
	if snap.Title != nil {
		track := *snap.Title
		if snap.Artist != nil {
			track += " - " + *snap.Artist
		}
		a.out.KV("track", track)
	}
	if snap.Album != nil {
		a.out.KV("album", *snap.Album)
	}
	if snap.Source != nil {
		a.out.KV("source", *snap.Source)
	}
	if snap.Position != nil && snap.Duration != nil {
		a.out.KV("position", fmt.Sprintf("%s / %s", formatSeconds(*snap.Position), formatSeconds(*snap.Duration)))
	}
	if snap.Volume != nil {
		vol := fmt.Sprintf("%d", int(*snap.Volume*100+0.5))
		if snap.Muted != nil && *snap.Muted {
			vol += " (muted)"
		}
		a.out.KV("volume", vol)
	}
	if snap.Shuffle != nil && snap.Repeat != nil {
		a.out.KV("mode", fmt.Sprintf("shuffle %s, repeat %s", onOff(*snap.Shuffle), *snap.Repeat))
	}
	a.out.KV("role", string(p.Role()))
	if g := p.Group(); g != nil && g.Master() != p {
		a.out.KV("master", g.Master().Address())
	}
	return nil
}

func statusPayload(p *control.Player, snap control.Snapshot) map[string]any {
	payload := map[string]any{
		"device": p.Address(),
		"role":   string(p.Role()),
	}
	if p.Info().Name != "" {
		payload["name"] = p.Info().Name
	}
	if snap.PlayState != nil {
		payload["state"] = string(*snap.PlayState)
	}
	if snap.Title != nil {
		payload["title"] = *snap.Title
	}
	if snap.Artist != nil {
		payload["artist"] = *snap.Artist
	}
	if snap.Album != nil {
		payload["album"] = *snap.Album
	}
	if snap.Source != nil {
		payload["source"] = *snap.Source
	}
	if snap.Position != nil {
		payload["position"] = *snap.Position
	}
	if snap.Duration != nil {
		payload["duration"] = *snap.Duration
	}
	if snap.Volume != nil {
		payload["volume"] = *snap.Volume
	}
	if snap.Muted != nil {
		payload["muted"] = *snap.Muted
	}
	if snap.Shuffle != nil {
		payload["shuffle"] = *snap.Shuffle
	}
	if snap.Repeat != nil {
		payload["repeat"] = string(*snap.Repeat)
	}
	return payload
}

// transport runs one playback command through a Player handle so that slave
// devices route to their group master.
func (a *app) transport(ctx context.Context, args []string, action string, send func(context.Context, *control.Player) error) error {
	addr, err := a.deviceAddr(args)
	if err != nil {
		return err
	}
	p := a.newPlayer(ctx, addr, false)
	if err := a.attachGroup(ctx, p); err != nil {
		return err
	}
	if err := send(ctx, p); err != nil {
		return err
	}
	a.out.Success(strings.ToUpper(action[:1]) + action[1:])
	return a.emitOK(action, addr)
}

func (a *app) newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play [device]",
		Short: "Start playback",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transport(cmd.Context(), args, "playing", func(ctx context.Context, p *control.Player) error {
				return p.Play(ctx)
			})
		},
	}
}

func (a *app) newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause [device]",
		Short: "Pause playback",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transport(cmd.Context(), args, "paused", func(ctx context.Context, p *control.Player) error {
				return p.Pause(ctx)
			})
		},
	}
}

func (a *app) newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [device]",
		Short: "Resume paused playback",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transport(cmd.Context(), args, "resumed", func(ctx context.Context, p *control.Player) error {
				return p.Resume(ctx)
			})
		},
	}
}

func (a *app) newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [device]",
		Short: "Stop playback",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transport(cmd.Context(), args, "stopped", func(ctx context.Context, p *control.Player) error {
				return p.Stop(ctx)
			})
		},
	}
}

func (a *app) newNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "next [device]",
		Aliases: []string{"skip"},
		Short:   "Skip to the next track",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transport(cmd.Context(), args, "skipped", func(ctx context.Context, p *control.Player) error {
				return p.Next(ctx)
			})
		},
	}
}

func (a *app) newPrevCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "prev [device]",
		Aliases: []string{"previous", "back"},
		Short:   "Go back to the previous track",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transport(cmd.Context(), args, "previous", func(ctx context.Context, p *control.Player) error {
				return p.Previous(ctx)
			})
		},
	}
}

func (a *app) newSeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seek <position> [device]",
		Short: "Jump to a position in the current track (seconds or mm:ss)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			secs, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			addr, err := a.deviceAddr(args[1:])
			if err != nil {
				return err
			}
			if err := a.client.Seek(ctx, addr, secs); err != nil {
				return err
			}
			a.out.Success("Position: " + formatSeconds(secs))
			return a.emitOK("seek", addr)
		},
	}
}

func (a *app) newSourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "source <name> [device]",
		Short: "Switch playback input (wifi, line-in, bluetooth, optical, udisk)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr, err := a.deviceAddr(args[1:])
			if err != nil {
				return err
			}
			if err := a.client.SwitchSource(ctx, addr, args[0]); err != nil {
				return err
			}
			a.out.Success("Source: " + args[0])
			return a.emitOK("source", addr)
		},
	}
}

func (a *app) newShuffleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shuffle on|off [device]",
		Short: "Toggle shuffle, preserving the repeat setting",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shuffle, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			return a.setLoopMode(cmd.Context(), args[1:], &shuffle, nil)
		},
	}
}

func (a *app) newRepeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repeat off|one|all [device]",
		Short: "Set the repeat mode, preserving the shuffle setting",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var repeat control.RepeatMode
			switch strings.ToLower(args[0]) {
			case "off", "none":
				repeat = control.RepeatOff
			case "one":
				repeat = control.RepeatOne
			case "all":
				repeat = control.RepeatAll
			default:
				return fmt.Errorf("repeat mode must be off, one or all, got %q", args[0])
			}
			return a.setLoopMode(cmd.Context(), args[1:], nil, &repeat)
		},
	}
}

// setLoopMode applies a shuffle or repeat change. The wire protocol only takes
// both at once, so the untouched half comes from the device's current state.
func (a *app) setLoopMode(ctx context.Context, deviceArgs []string, shuffle *bool, repeat *control.RepeatMode) error {
	addr, err := a.deviceAddr(deviceArgs)
	if err != nil {
		return err
	}
	snap, err := a.client.Status(ctx, addr)
	if err != nil {
		return err
	}
	curShuffle := false
	if snap.Shuffle != nil {
		curShuffle = *snap.Shuffle
	}
	curRepeat := control.RepeatOff
	if snap.Repeat != nil {
		curRepeat = *snap.Repeat
	}
	if shuffle != nil {
		curShuffle = *shuffle
	}
	if repeat != nil {
		curRepeat = *repeat
	}
	if err := a.client.SetLoopMode(ctx, addr, curShuffle, curRepeat); err != nil {
		return err
	}
	a.out.Success(fmt.Sprintf("Shuffle %s, repeat %s", onOff(curShuffle), curRepeat))
	if a.json {
		return a.out.EmitJSON(map[string]any{
			"status": "ok", "device": addr,
			"shuffle": curShuffle, "repeat": string(curRepeat),
		})
	}
	return nil
}

func parsePosition(s string) (int, error) {
	if mm, ss, ok := strings.Cut(s, ":"); ok {
		m, err1 := strconv.Atoi(mm)
		sec, err2 := strconv.Atoi(ss)
		if err1 != nil || err2 != nil || m < 0 || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		return m*60 + sec, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return n, nil
}

func formatSeconds(secs int) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
