package cli

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wiimctl/internal/control"
	"wiimctl/internal/linkplay"
)

const subscribeTimeout = 5 * time.Minute

func (a *app) newMonitorCmd() *cobra.Command {
	var pollOnly bool
	cmd := &cobra.Command{
		Use:   "monitor [device]",
		Short: "Watch a device's state live, merging polling with push events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr, err := a.deviceAddr(args)
			if err != nil {
				return err
			}
			return a.runMonitor(ctx, addr, pollOnly)
		},
	}
	cmd.Flags().BoolVar(&pollOnly, "poll-only", false, "Skip push event subscriptions and rely on polling alone")
	return cmd
}

func (a *app) runMonitor(ctx context.Context, addr string, pollOnly bool) error {
	// The change callback prints one line per distinct rendered state, fed by
	// both the poll loop and push events.
	var last string
	p := control.NewPlayer(addr, control.PlayerOptions{
		Commander: a.client,
		Poll:      a.client,
		Sync:      control.SyncOptions{Staleness: a.cfg.Staleness},
		OnChange: func(p *control.Player) {
			line := renderStateLine(p)
			if line == last {
				return
			}
			last = line
			a.out.Info(time.Now().Format("15:04:05") + "  " + line)
		},
	})

	if err := p.Refresh(ctx); err != nil {
		return err
	}

	if !pollOnly {
		stopPush, err := a.startPush(ctx, addr, p)
		if err != nil {
			a.out.Warn("push events unavailable, falling back to polling: " + err.Error())
		} else {
			defer stopPush()
		}
	}

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				a.out.Debug(fmt.Sprintf("poll failed: %v", err))
			}
		}
	}
}

// startPush wires the UPnP event path: local NOTIFY listener, subscriptions to
// both event sources, and a renewal loop. The returned func tears it all down.
func (a *app) startPush(ctx context.Context, addr string, p *control.Player) (func(), error) {
	localIP, err := localIPFor(addr)
	if err != nil {
		return nil, err
	}

	listener := linkplay.NewEventListener()
	if err := listener.Start(a.cfg.ListenAddr); err != nil {
		return nil, err
	}
	token := listener.Register(p.ReceivePushUpdate)
	callback := listener.CallbackURL(localIP, token)

	var subs []linkplay.Subscription
	for _, path := range []string{linkplay.EventAVTransport, linkplay.EventRenderingControl} {
		sub, err := a.client.Subscribe(ctx, addr, path, callback, subscribeTimeout)
		if err != nil {
			a.out.Debug(fmt.Sprintf("subscribe %s: %v", path, err))
			continue
		}
		subs = append(subs, sub)
	}
	if len(subs) == 0 {
		_ = listener.Close()
		return nil, fmt.Errorf("device at %s refused all event subscriptions", addr)
	}

	renewCtx, cancel := context.WithCancel(ctx)
	go a.renewLoop(renewCtx, subs)

	return func() {
		cancel()
		cleanup, cleanupCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cleanupCancel()
		for _, sub := range subs {
			_ = a.client.Unsubscribe(cleanup, sub)
		}
		_ = listener.Close()
	}, nil
}

// renewLoop keeps subscriptions alive, renewing at half the granted timeout.
func (a *app) renewLoop(ctx context.Context, subs []linkplay.Subscription) {
	interval := subscribeTimeout / 2
	for _, sub := range subs {
		if sub.Timeout > 0 && sub.Timeout/2 < interval {
			interval = sub.Timeout / 2
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i, sub := range subs {
				renewed, err := a.client.Renew(ctx, sub, subscribeTimeout)
				if err != nil {
					a.out.Debug(fmt.Sprintf("renew %s: %v", sub.SID, err))
					continue
				}
				subs[i] = renewed
			}
		}
	}
}

func renderStateLine(p *control.Player) string {
	snap := p.State()
	parts := []string{}
	if snap.PlayState != nil {
		parts = append(parts, string(*snap.PlayState))
	}
	if snap.Title != nil {
		track := *snap.Title
		if snap.Artist != nil {
			track += " - " + *snap.Artist
		}
		parts = append(parts, track)
	}
	if snap.Volume != nil {
		vol := fmt.Sprintf("vol %d", int(*snap.Volume*100+0.5))
		if snap.Muted != nil && *snap.Muted {
			vol += " muted"
		}
		parts = append(parts, vol)
	}
	if len(parts) == 0 {
		return "(no state)"
	}
	return strings.Join(parts, "  |  ")
}

// localIPFor finds the local address the OS would use to reach the device,
// which is the address the device must NOTIFY back to.
func localIPFor(deviceAddr string) (string, error) {
	conn, err := net.Dial("udp4", net.JoinHostPort(deviceAddr, "80"))
	if err != nil {
		return "", err
	}
	defer conn.Close()
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || local.IP == nil {
		return "", fmt.Errorf("cannot determine local address toward %s", deviceAddr)
	}
	return local.IP.String(), nil
}
