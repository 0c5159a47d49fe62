package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds every simulation constant that is not part of the road layout.
// Distances are centimeters, speeds decimeters/second, cadences are in ticks.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz" json:"tick_rate_hz"`

	Motion   Motion   `yaml:"motion" json:"motion"`
	Spawn    Spawn    `yaml:"spawn" json:"spawn"`
	Protocol Protocol `yaml:"protocol" json:"protocol"`

	DespawnEveryTicks int `yaml:"despawn_every_ticks" json:"despawn_every_ticks"`
	LogEveryTicks     int `yaml:"log_every_ticks" json:"log_every_ticks"`
	StatsBucketTicks  int `yaml:"stats_bucket_ticks" json:"stats_bucket_ticks"`
	StatsWindowTicks  int `yaml:"stats_window_ticks" json:"stats_window_ticks"`
}

type Motion struct {
	StepCM          int `yaml:"step_cm" json:"step_cm"`
	AccelEveryTicks int `yaml:"accel_every_ticks" json:"accel_every_ticks"`
	DecelEveryTicks int `yaml:"decel_every_ticks" json:"decel_every_ticks"`
	CarLength       int `yaml:"car_length" json:"car_length"`
	CarWidth        int `yaml:"car_width" json:"car_width"`
}

type Spawn struct {
	PeriodTicks          int `yaml:"period_ticks" json:"period_ticks"`
	InitialDelayMaxTicks int `yaml:"initial_delay_max_ticks" json:"initial_delay_max_ticks"`
	ChancePct            int `yaml:"chance_pct" json:"chance_pct"`
}

type Protocol struct {
	DecisionEveryTicks       int     `yaml:"decision_every_ticks" json:"decision_every_ticks"`
	FrontViewDistance        int     `yaml:"front_view_distance" json:"front_view_distance"`
	BackViewDistance         int     `yaml:"back_view_distance" json:"back_view_distance"`
	SideViewDistance         int     `yaml:"side_view_distance" json:"side_view_distance"`
	FollowingDistanceRatio   float64 `yaml:"following_distance_ratio" json:"following_distance_ratio"`
	StoppedDistance          int     `yaml:"stopped_distance" json:"stopped_distance"`
	IntersectionStopDistance int     `yaml:"intersection_stop_distance" json:"intersection_stop_distance"`
	CreepSpeed               int     `yaml:"creep_speed" json:"creep_speed"`
	StallLimitSeconds        int     `yaml:"stall_limit_seconds" json:"stall_limit_seconds"`
}

// Defaults mirrors configs/tuning.yaml.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "0.1",
		TickRateHz:      200,
		Motion: Motion{
			StepCM:          10,
			AccelEveryTicks: 1,
			DecelEveryTicks: 1,
			CarLength:       500,
			CarWidth:        185,
		},
		Spawn: Spawn{
			PeriodTicks:          100,
			InitialDelayMaxTicks: 2000,
			ChancePct:            15,
		},
		Protocol: Protocol{
			DecisionEveryTicks:       4,
			FrontViewDistance:        2500,
			BackViewDistance:         1000,
			SideViewDistance:         1500,
			FollowingDistanceRatio:   4.5,
			StoppedDistance:          250,
			IntersectionStopDistance: 75,
			CreepSpeed:               10,
			StallLimitSeconds:        5,
		},
		DespawnEveryTicks: 1,
		LogEveryTicks:     200,
		StatsBucketTicks:  200,
		StatsWindowTicks:  12000,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate rejects values the scheduler cannot run with.
func (t Tuning) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0 (got %d)", name, v))
		}
	}
	positive("tick_rate_hz", t.TickRateHz)
	positive("motion.step_cm", t.Motion.StepCM)
	positive("motion.accel_every_ticks", t.Motion.AccelEveryTicks)
	positive("motion.decel_every_ticks", t.Motion.DecelEveryTicks)
	positive("motion.car_length", t.Motion.CarLength)
	positive("motion.car_width", t.Motion.CarWidth)
	positive("spawn.period_ticks", t.Spawn.PeriodTicks)
	positive("spawn.initial_delay_max_ticks", t.Spawn.InitialDelayMaxTicks)
	positive("protocol.decision_every_ticks", t.Protocol.DecisionEveryTicks)
	positive("despawn_every_ticks", t.DespawnEveryTicks)
	if t.Spawn.ChancePct < 0 || t.Spawn.ChancePct > 100 {
		errs = append(errs, fmt.Errorf("spawn.chance_pct must be in [0,100] (got %d)", t.Spawn.ChancePct))
	}
	if t.Protocol.FollowingDistanceRatio < 0 {
		errs = append(errs, fmt.Errorf("protocol.following_distance_ratio must be >= 0"))
	}
	return errors.Join(errs...)
}
