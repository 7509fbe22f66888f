package control

import (
	"context"
	"errors"
	"testing"
	"time"
)

func withVolume(p *Player, v float64) *Player {
	p.sync.Update(ChannelPoll, map[Field]any{FieldVolume: v}, time.Now())
	return p
}

func withMute(p *Player, m bool) *Player {
	p.sync.Update(ChannelPoll, map[Field]any{FieldMuted: m}, time.Now())
	return p
}

func TestAddSlaveIdempotent(t *testing.T) {
	t.Parallel()

	master := newTestPlayer("10.0.0.1", &fakeCommander{}, &fakePoll{})
	slave := newTestPlayer("10.0.0.2", &fakeCommander{}, &fakePoll{})
	g := master.CreateGroup()

	g.AddSlave(slave)
	g.AddSlave(slave)

	if g.Size() != 2 {
		t.Fatalf("size: %d", g.Size())
	}
	if slave.Group() != g {
		t.Fatalf("slave group ref changed")
	}
	if master.Role() != RoleMaster || slave.Role() != RoleSlave {
		t.Fatalf("roles: master=%v slave=%v", master.Role(), slave.Role())
	}
}

func TestAddSlaveRejectsMaster(t *testing.T) {
	t.Parallel()

	master := newTestPlayer("10.0.0.1", &fakeCommander{}, &fakePoll{})
	g := master.CreateGroup()
	g.AddSlave(master)
	if g.Size() != 1 {
		t.Fatalf("master must never be its own slave, size=%d", g.Size())
	}
}

func TestCrossGroupMove(t *testing.T) {
	t.Parallel()

	m1 := newTestPlayer("10.0.0.1", &fakeCommander{}, &fakePoll{})
	m2 := newTestPlayer("10.0.0.3", &fakeCommander{}, &fakePoll{})
	h := newTestPlayer("10.0.0.2", &fakeCommander{}, &fakePoll{})

	g1 := m1.CreateGroup()
	g1.AddSlave(h)
	g2 := m2.CreateGroup()
	g2.AddSlave(h)

	if g1.hasSlave(h) {
		t.Fatalf("handle should have left the first group")
	}
	if !g2.hasSlave(h) {
		t.Fatalf("handle should be in the second group")
	}
	if g1.Size() != 1 || g2.Size() != 2 {
		t.Fatalf("sizes: g1=%d g2=%d", g1.Size(), g2.Size())
	}
	if h.Group() != g2 {
		t.Fatalf("group ref: %v", h.Group())
	}
}

func TestCascadingTeardownOnLastSlave(t *testing.T) {
	t.Parallel()

	master := newTestPlayer("10.0.0.1", &fakeCommander{}, &fakePoll{})
	s1 := newTestPlayer("10.0.0.2", &fakeCommander{}, &fakePoll{})
	s2 := newTestPlayer("10.0.0.3", &fakeCommander{}, &fakePoll{})

	g := master.CreateGroup()
	g.AddSlave(s1)
	g.AddSlave(s2)

	// Two slaves: removing one does not cascade.
	g.RemoveSlave(s1)
	if master.Role() != RoleMaster {
		t.Fatalf("master should stay master with a slave left, got %v", master.Role())
	}

	// Removing the last slave tears the group down.
	g.RemoveSlave(s2)
	if master.Role() != RoleSolo {
		t.Fatalf("master should cascade to solo, got %v", master.Role())
	}
	if master.Group() != nil {
		t.Fatalf("group object should be torn down, not emptied")
	}
	if len(g.slaves) != 0 {
		t.Fatalf("slaves: %d", len(g.slaves))
	}

	// Removing a non-member is a no-op.
	g.RemoveSlave(s1)
}

func TestDisbandAlwaysCleansUpLocally(t *testing.T) {
	t.Parallel()

	cmd := &fakeCommander{fail: map[string]error{"10.0.0.1": errors.New("device gone")}}
	master := newTestPlayer("10.0.0.1", cmd, &fakePoll{})
	s1 := newTestPlayer("10.0.0.2", cmd, &fakePoll{})
	s2 := newTestPlayer("10.0.0.3", cmd, &fakePoll{})

	g := master.CreateGroup()
	g.AddSlave(s1)
	g.AddSlave(s2)

	err := g.Disband(context.Background())
	if err == nil {
		t.Fatalf("remote failure should surface")
	}
	if master.Group() != nil || s1.Group() != nil || s2.Group() != nil {
		t.Fatalf("every member's group ref must be cleared")
	}
	if master.Role() != RoleSolo || s1.Role() != RoleSolo || s2.Role() != RoleSolo {
		t.Fatalf("roles after disband: %v %v %v", master.Role(), s1.Role(), s2.Role())
	}
}

func TestAggregateVolumeIsMaximum(t *testing.T) {
	t.Parallel()

	master := withVolume(newTestPlayer("10.0.0.1", &fakeCommander{}, &fakePoll{}), 0.30)
	s1 := withVolume(newTestPlayer("10.0.0.2", &fakeCommander{}, &fakePoll{}), 0.20)
	g := master.CreateGroup()
	g.AddSlave(s1)

	if got := g.VolumeLevel(); got != 0.30 {
		t.Fatalf("volume level: %v", got)
	}

	// Raising the quieter member past the old maximum moves the aggregate.
	withVolume(s1, 0.45)
	if got := g.VolumeLevel(); got != 0.45 {
		t.Fatalf("volume level after raise: %v", got)
	}
}

func TestAggregateMuteIsLogicalAnd(t *testing.T) {
	t.Parallel()

	master := withMute(newTestPlayer("10.0.0.1", &fakeCommander{}, &fakePoll{}), true)
	s1 := withMute(newTestPlayer("10.0.0.2", &fakeCommander{}, &fakePoll{}), true)
	g := master.CreateGroup()
	g.AddSlave(s1)

	if !g.IsMuted() {
		t.Fatalf("all members muted, group should report muted")
	}
	withMute(s1, false)
	if g.IsMuted() {
		t.Fatalf("one unmuted member makes the group unmuted")
	}
}

func TestSetVolumeAllShiftsUniformly(t *testing.T) {
	t.Parallel()

	cmd := &fakeCommander{}
	master := withVolume(newTestPlayer("10.0.0.1", cmd, &fakePoll{}), 0.30)
	s1 := withVolume(newTestPlayer("10.0.0.2", cmd, &fakePoll{}), 0.20)
	s2 := withVolume(newTestPlayer("10.0.0.3", cmd, &fakePoll{}), 0.10)

	g := master.CreateGroup()
	g.AddSlave(s1)
	g.AddSlave(s2)

	if got := g.VolumeLevel(); got != 0.30 {
		t.Fatalf("volume level: %v", got)
	}

	if failures := g.SetVolumeAll(context.Background(), 0.35); len(failures) != 0 {
		t.Fatalf("failures: %v", failures)
	}

	checks := []struct {
		p    *Player
		want float64
	}{{master, 0.35}, {s1, 0.25}, {s2, 0.15}}
	for _, c := range checks {
		got := c.p.State().Volume
		if got == nil || !closeTo(*got, c.want) {
			t.Fatalf("%s volume: got %v want %v", c.p.Address(), got, c.want)
		}
	}
	if got := g.VolumeLevel(); !closeTo(got, 0.35) {
		t.Fatalf("group volume after shift: %v", got)
	}
}

func TestSetVolumeAllPartialFailure(t *testing.T) {
	t.Parallel()

	cmd := &fakeCommander{fail: map[string]error{"10.0.0.2": errors.New("unreachable")}}
	master := withVolume(newTestPlayer("10.0.0.1", cmd, &fakePoll{}), 0.30)
	s1 := withVolume(newTestPlayer("10.0.0.2", cmd, &fakePoll{}), 0.20)
	s2 := withVolume(newTestPlayer("10.0.0.3", cmd, &fakePoll{}), 0.10)

	g := master.CreateGroup()
	g.AddSlave(s1)
	g.AddSlave(s2)

	failures := g.SetVolumeAll(context.Background(), 0.40)
	if len(failures) != 1 || failures[0].Address != "10.0.0.2" {
		t.Fatalf("failures: %v", failures)
	}
	// Successful siblings keep their new values.
	if got := s2.State().Volume; got == nil || !closeTo(*got, 0.20) {
		t.Fatalf("sibling volume: %v", got)
	}
}

func TestGroupPlaybackDelegatesToMaster(t *testing.T) {
	t.Parallel()

	cmd := &fakeCommander{}
	master := newTestPlayer("10.0.0.1", cmd, &fakePoll{})
	s1 := newTestPlayer("10.0.0.2", cmd, &fakePoll{})
	g := master.CreateGroup()
	g.AddSlave(s1)

	if err := g.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if got := cmd.countFor("10.0.0.1"); got != 1 {
		t.Fatalf("master commands: %d", got)
	}
	if got := cmd.countFor("10.0.0.2"); got != 0 {
		t.Fatalf("slave commands: %d", got)
	}
	if got := g.PlayState(); got == nil || *got != PlayStatePaused {
		t.Fatalf("group play state: %v", got)
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
