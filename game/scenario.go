package game

import (
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/legion/components"
	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/telemetry"
)

// orderTrack follows one group order until enough of the agents still
// carrying it have arrived.
type orderTrack struct {
	id     uuid.UUID
	issued int32
	agents []ecs.Entity
	dest   r3.Vec
	radius float64
}

// arrivalRadius is the distance from the destination within which a
// follower counts toward group arrival. A crowd of n agents cannot all
// stand in one cell, so the radius grows with the disc they pack into.
func (s *Session) arrivalRadius(n int) float64 {
	packed := s.cfg.Population.FormationSpacing * math.Sqrt(float64(n)/math.Pi)
	return s.cfg.Scenario.ArrivalRadius + packed
}

// loadScenario spawns the configured squads and queues their scripted orders.
func (s *Session) loadScenario() {
	for _, sc := range s.cfg.Scenario.Squads {
		sq := s.SpawnSquad(sc)
		slog.Debug("squad spawned", "squad", sq.Name, "group", sq.Group, "agents", len(sq.Agents))
	}
	s.script = append(s.script[:0], s.cfg.Scenario.Orders...)
	sort.SliceStable(s.script, func(i, j int) bool { return s.script[i].Tick < s.script[j].Tick })
}

// runScript issues every scripted order due at the current tick.
func (s *Session) runScript() {
	for len(s.script) > 0 && s.script[0].Tick <= s.tick {
		o := s.script[0]
		s.script = s.script[1:]
		s.issue(o)
	}
}

func (s *Session) issue(o config.OrderConfig) {
	sq := s.Squad(o.Squad)
	if sq == nil {
		slog.Warn("scripted order for missing squad", "squad", o.Squad, "tick", s.tick)
		return
	}
	if o.Release {
		n := s.Release(sq.Agents)
		delete(s.pending, sq.Group)
		slog.Info("squad released", "squad", sq.Name, "tick", s.tick, "agents", n)
		return
	}
	id := s.Order(sq.Group, sq.Agents, r3.Vec{X: o.X, Z: o.Z})
	slog.Info("squad ordered", "squad", sq.Name, "order", id, "tick", s.tick, "x", o.X, "z", o.Z)
}

// ScriptDone reports whether every scripted order has been issued.
func (s *Session) ScriptDone() bool { return len(s.script) == 0 }

// trackArrivals records a group arrival once the configured fraction of
// live agents still following the order is Arrived or within the order's
// arrival radius.
func (s *Session) trackArrivals() {
	for group, t := range s.pending {
		following, arrived := 0, 0
		for _, e := range t.agents {
			if !s.world.Alive(e) || !s.navMap.Has(e) {
				continue
			}
			nav := s.navMap.Get(e)
			if nav.Order != t.id || nav.State == components.NavIdle {
				continue
			}
			following++
			if nav.State == components.NavArrived {
				arrived++
				continue
			}
			if s.posMap.Has(e) && groundDistance(s.posMap.Get(e).Vec(), t.dest) <= t.radius {
				arrived++
			}
		}
		if following == 0 {
			// Drained without a field, released, or superseded.
			if s.tick > t.issued {
				delete(s.pending, group)
			}
			continue
		}
		if float64(arrived) < s.cfg.Scenario.ArrivalFraction*float64(following) {
			continue
		}
		secs := float64(s.tick-t.issued) * s.dt
		s.collector.RecordGroupArrival(secs)
		delete(s.pending, group)
		slog.Info("group arrived", "group", group, "order", t.id, "agents", arrived, "following", following, "seconds", secs)
	}
}

// PendingArrivals returns the number of orders whose group has not arrived.
func (s *Session) PendingArrivals() int { return len(s.pending) }

// recordOrders folds drained requests and field builds into telemetry.
func (s *Session) recordOrders(drained int) {
	for i := 0; i < drained; i++ {
		s.collector.RecordOrder()
	}
	s.metrics.IncOrders(drained)

	builds := s.ctrl.TakeBuilds()
	if len(builds) == 0 {
		return
	}
	records := make([]telemetry.BuildRecord, 0, len(builds))
	for _, b := range builds {
		s.collector.RecordBuild(b.Duration, b.Reset)
		s.metrics.ObserveBuild(b.Duration, b.Reset)
		records = append(records, telemetry.BuildRecord{
			Tick:       s.tick,
			Order:      b.Order.String(),
			Group:      b.Group,
			Agents:     b.Agents,
			CellsReset: b.Reset,
			Reachable:  b.Reachable,
			Visits:     b.Visits,
			DurationUS: b.Duration.Microseconds(),
		})
	}
	if err := s.outputManager.WriteBuilds(records); err != nil {
		slog.Error("failed to write builds", "error", err)
	}
}
