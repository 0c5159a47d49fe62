package world

import (
	"errors"

	"trafficgrid.ai/internal/sim/tuning"
)

const (
	// MinLaneWidth is the narrowest lane a road may be subdivided into.
	MinLaneWidth = 400
	// SidewalkWidth widens each junction zone on both sides of the crossing road.
	SidewalkWidth = 150

	DefaultCarLength = 500
	DefaultCarWidth  = 185
)

var (
	ErrTooManyLanes     = errors.New("too many lanes")
	ErrNoLanes          = errors.New("road needs at least one lane")
	ErrRoadAlreadyAdded = errors.New("road already belongs to a world")
	ErrBadLane          = errors.New("lane index out of range")
	ErrBadSpeedLimit    = errors.New("speed limit must be at least 1")
)

type WorldConfig struct {
	ID         string
	Seed       int64
	TickRateHz int

	StepCM          int
	AccelEveryTicks int
	DecelEveryTicks int
	CarLength       int
	CarWidth        int

	SpawnPeriodTicks          int
	SpawnInitialDelayMaxTicks int
	SpawnChancePct            int

	Protocol ProtocolConfig

	DespawnEveryTicks int
	LogEveryTicks     int
	StatsBucketTicks  int
	StatsWindowTicks  int
}

// ProtocolConfig parameterizes perception and the driving protocol.
type ProtocolConfig struct {
	DecisionEveryTicks       int
	FrontViewDistance        int
	BackViewDistance         int
	SideViewDistance         int
	FollowingDistanceRatio   float64
	StoppedDistance          int
	IntersectionStopDistance int
	CreepSpeed               int
	StallLimitSeconds        int
}

func ConfigFromTuning(id string, seed int64, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                        id,
		Seed:                      seed,
		TickRateHz:                t.TickRateHz,
		StepCM:                    t.Motion.StepCM,
		AccelEveryTicks:           t.Motion.AccelEveryTicks,
		DecelEveryTicks:           t.Motion.DecelEveryTicks,
		CarLength:                 t.Motion.CarLength,
		CarWidth:                  t.Motion.CarWidth,
		SpawnPeriodTicks:          t.Spawn.PeriodTicks,
		SpawnInitialDelayMaxTicks: t.Spawn.InitialDelayMaxTicks,
		SpawnChancePct:            t.Spawn.ChancePct,
		Protocol: ProtocolConfig{
			DecisionEveryTicks:       t.Protocol.DecisionEveryTicks,
			FrontViewDistance:        t.Protocol.FrontViewDistance,
			BackViewDistance:         t.Protocol.BackViewDistance,
			SideViewDistance:         t.Protocol.SideViewDistance,
			FollowingDistanceRatio:   t.Protocol.FollowingDistanceRatio,
			StoppedDistance:          t.Protocol.StoppedDistance,
			IntersectionStopDistance: t.Protocol.IntersectionStopDistance,
			CreepSpeed:               t.Protocol.CreepSpeed,
			StallLimitSeconds:        t.Protocol.StallLimitSeconds,
		},
		DespawnEveryTicks: t.DespawnEveryTicks,
		LogEveryTicks:     t.LogEveryTicks,
		StatsBucketTicks:  t.StatsBucketTicks,
		StatsWindowTicks:  t.StatsWindowTicks,
	}
}

// DefaultConfig is ConfigFromTuning over tuning.Defaults().
func DefaultConfig(id string, seed int64) WorldConfig {
	return ConfigFromTuning(id, seed, tuning.Defaults())
}

// normalize fills zero cadences so a hand-built config cannot divide by zero.
func (c *WorldConfig) normalize() {
	def := DefaultConfig(c.ID, c.Seed)
	fill := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&c.TickRateHz, def.TickRateHz)
	fill(&c.StepCM, def.StepCM)
	fill(&c.AccelEveryTicks, def.AccelEveryTicks)
	fill(&c.DecelEveryTicks, def.DecelEveryTicks)
	fill(&c.CarLength, def.CarLength)
	fill(&c.CarWidth, def.CarWidth)
	fill(&c.SpawnPeriodTicks, def.SpawnPeriodTicks)
	fill(&c.SpawnInitialDelayMaxTicks, def.SpawnInitialDelayMaxTicks)
	fill(&c.Protocol.DecisionEveryTicks, def.Protocol.DecisionEveryTicks)
	fill(&c.DespawnEveryTicks, def.DespawnEveryTicks)
	fill(&c.LogEveryTicks, def.LogEveryTicks)
	fill(&c.StatsBucketTicks, def.StatsBucketTicks)
	fill(&c.StatsWindowTicks, def.StatsWindowTicks)
}
