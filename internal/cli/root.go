// Package cli implements the wiimctl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"wiimctl/internal/config"
	"wiimctl/internal/control"
	"wiimctl/internal/discovery"
	"wiimctl/internal/linkplay"
	"wiimctl/internal/output"
)

const version = "1.0.0"

type app struct {
	cfg    config.Config
	out    *output.Output
	client *linkplay.Client

	device  string
	json    bool
	plain   bool
	quiet   bool
	noColor bool
	debug   bool
}

// Execute parses os.Args and runs the matching command.
func Execute(ctx context.Context) error {
	a := &app{}

	root := &cobra.Command{
		Use:           "wiimctl",
		Short:         "Control WiiM and other LinkPlay multiroom audio devices",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.cfg = config.Load()
			if a.device == "" {
				a.device = a.cfg.DefaultDevice
			}
			a.out = output.New(output.Options{
				JSON:    a.json,
				Plain:   a.plain,
				Quiet:   a.quiet,
				Verbose: a.debug,
				NoColor: a.noColor || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" ||
					!term.IsTerminal(int(os.Stdout.Fd())),
			})
			if a.debug {
				enableDebugLogging()
			}
			a.client = linkplay.NewClient()
			a.client.HTTP.Timeout = a.cfg.Timeout
		},
	}

	a.addGlobalFlags(root.PersistentFlags())
	_ = root.RegisterFlagCompletionFunc("device", completeDevices)

	root.AddCommand(
		a.newStatusCmd(),
		a.newPlayCmd(),
		a.newPauseCmd(),
		a.newResumeCmd(),
		a.newStopCmd(),
		a.newNextCmd(),
		a.newPrevCmd(),
		a.newSeekCmd(),
		a.newSourceCmd(),
		a.newShuffleCmd(),
		a.newRepeatCmd(),
		a.newVolumeCmd(),
		a.newMuteCmd(),
		a.newGroupCmd(),
		a.newDiscoverCmd(),
		a.newMonitorCmd(),
		a.newPresetCmd(),
	)

	return root.ExecuteContext(ctx)
}

func (a *app) addGlobalFlags(pf *pflag.FlagSet) {
	pf.SortFlags = false
	pf.StringVarP(&a.device, "device", "d", "", "Device IP address (default from config)")
	pf.BoolVar(&a.json, "json", false, "Output machine-readable JSON")
	pf.BoolVar(&a.plain, "plain", false, "Disable decorative formatting")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-essential output")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging to stderr")
}

// deviceAddr resolves the target device for a command: an explicit positional
// argument wins over --device, which wins over the configured default.
func (a *app) deviceAddr(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if a.device != "" {
		return a.device, nil
	}
	return "", errors.New("no device: pass an IP, use --device, or set default_device in the config")
}

// newPlayer builds a fresh handle for one device. Capabilities are fetched
// only when asked for; most transport commands never need them.
func (a *app) newPlayer(ctx context.Context, addr string, withCaps bool) *control.Player {
	opts := control.PlayerOptions{
		Commander: a.client,
		Poll:      a.client,
		Sync:      control.SyncOptions{Staleness: a.cfg.Staleness},
		Join: control.NewJoinCoordinator(control.JoinOptions{
			PropagationDelay: a.cfg.PropagationDelay,
		}),
	}
	if withCaps {
		caps, err := a.client.Capabilities(ctx, addr)
		if err != nil {
			a.out.Debug(fmt.Sprintf("capabilities unavailable for %s: %v", addr, err))
		}
		opts.Capabilities = caps
	}
	return control.NewPlayer(addr, opts)
}

// attachGroup rebuilds the device's group membership from its own report, so
// stateless CLI invocations can run group operations against live topology.
func (a *app) attachGroup(ctx context.Context, p *control.Player) error {
	gi, err := p.RefreshGroup(ctx)
	if err != nil {
		return err
	}
	switch gi.Role {
	case control.RoleSlave:
		if gi.MasterAddress == "" {
			return control.ErrNotLinked
		}
		master := a.newPlayer(ctx, gi.MasterAddress, false)
		master.CreateGroup().AddSlave(p)
	case control.RoleMaster:
		g := p.CreateGroup()
		for _, addr := range gi.SlaveAddresses {
			g.AddSlave(a.newPlayer(ctx, addr, false))
		}
	}
	return nil
}

// completeDevices offers discovered device addresses for --device, consulting
// the short-lived completion cache before searching the network.
func completeDevices(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if addrs, ok := cachedDeviceCompletions(time.Now()); ok {
		return addrs, cobra.ShellCompDirectiveNoFileComp
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	defer cancel()
	devices, err := discovery.Discover(ctx, 2*time.Second)
	if err != nil || len(devices) == 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	addrs := make([]string, 0, len(devices))
	for _, d := range devices {
		addrs = append(addrs, d.IP)
	}
	_ = storeDeviceCompletions(time.Now(), addrs)
	return addrs, cobra.ShellCompDirectiveNoFileComp
}

func (a *app) emitOK(action, device string) error {
	if a.json {
		return a.out.EmitJSON(map[string]any{"status": "ok", "action": action, "device": device})
	}
	return nil
}
