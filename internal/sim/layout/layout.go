// Package layout loads a road network description and builds it into a world.
package layout

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"trafficgrid.ai/internal/sim/geom"
	"trafficgrid.ai/internal/sim/world"
)

//go:embed layout.schema.json
var schemaJSON string

type Layout struct {
	Roads []Road `yaml:"roads" json:"roads"`
}

type Road struct {
	Name       string `yaml:"name" json:"name"`
	Rect       [4]int `yaml:"rect" json:"rect"`
	SpeedLimit int    `yaml:"speed_limit" json:"speed_limit"`
	EndLengths [2]int `yaml:"end_lengths" json:"end_lengths"`
	Lanes      Lanes  `yaml:"lanes" json:"lanes"`

	// Ends is "auto" (spawner upstream, despawner downstream) or "explicit".
	Ends     string    `yaml:"ends,omitempty" json:"ends,omitempty"`
	LaneEnds []LaneEnd `yaml:"lane_ends,omitempty" json:"lane_ends,omitempty"`
	Zones    []Zone    `yaml:"zones,omitempty" json:"zones,omitempty"`
}

type Lanes struct {
	Positive int `yaml:"positive" json:"positive"`
	Negative int `yaml:"negative" json:"negative"`
}

type LaneEnd struct {
	Lane int    `yaml:"lane" json:"lane"`
	End1 string `yaml:"end1,omitempty" json:"end1,omitempty"`
	End2 string `yaml:"end2,omitempty" json:"end2,omitempty"`
}

type Zone struct {
	Kind     string `yaml:"kind" json:"kind"`
	Offset   int    `yaml:"offset" json:"offset"`
	Length   int    `yaml:"length" json:"length"`
	StopSign bool   `yaml:"stop_sign" json:"stop_sign"`
}

var schema = jsonschema.MustCompileString("layout.schema.json", schemaJSON)

// Load reads a YAML layout and validates it against the embedded schema.
func Load(path string) (Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Layout, error) {
	var raw any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return Layout{}, fmt.Errorf("layout.yaml: %w", err)
	}
	// The validator wants JSON-shaped values.
	j, err := json.Marshal(raw)
	if err != nil {
		return Layout{}, fmt.Errorf("layout.yaml: %w", err)
	}
	var doc any
	if err := json.NewDecoder(bytes.NewReader(j)).Decode(&doc); err != nil {
		return Layout{}, fmt.Errorf("layout.yaml: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Layout{}, fmt.Errorf("layout.yaml: %w", err)
	}
	var l Layout
	if err := yaml.Unmarshal(b, &l); err != nil {
		return Layout{}, fmt.Errorf("layout.yaml: %w", err)
	}
	return l, nil
}

// Default is the four-road grid: two horizontal and two vertical roads,
// 2+2 lanes each, crossing at four junctions.
func Default() Layout {
	road := func(name string, rect [4]int) Road {
		return Road{
			Name:       name,
			Rect:       rect,
			SpeedLimit: 166,
			EndLengths: [2]int{500, 500},
			Lanes:      Lanes{Positive: 2, Negative: 2},
			Ends:       "auto",
		}
	}
	return Layout{Roads: []Road{
		road("road1", [4]int{-2500, 0, 25000, 2000}),
		road("road2", [4]int{5000, -7000, 2000, 25000}),
		road("road3", [4]int{-2500, 8000, 25000, 2000}),
		road("road4", [4]int{14000, -7000, 2000, 25000}),
	}}
}

// Build adds every road of l to w in order.
func Build(w *world.World, l Layout) error {
	for _, rl := range l.Roads {
		r, err := world.NewRoad(world.RoadConfig{
			Name:          rl.Name,
			Rect:          geom.R(rl.Rect[0], rl.Rect[1], rl.Rect[2], rl.Rect[3]),
			SpeedLimit:    rl.SpeedLimit,
			End1Length:    rl.EndLengths[0],
			End2Length:    rl.EndLengths[1],
			PositiveLanes: rl.Lanes.Positive,
			NegativeLanes: rl.Lanes.Negative,
		})
		if err != nil {
			return fmt.Errorf("road %q: %w", rl.Name, err)
		}
		switch rl.Ends {
		case "", "auto":
			r.AutoEnds()
		}
		for _, le := range rl.LaneEnds {
			e1, ok1 := world.ParseEndKind(le.End1)
			e2, ok2 := world.ParseEndKind(le.End2)
			if !ok1 || !ok2 {
				return fmt.Errorf("road %q lane %d: bad end kind %q/%q", rl.Name, le.Lane, le.End1, le.End2)
			}
			if err := r.SetEnds(le.Lane, e1, e2); err != nil {
				return fmt.Errorf("road %q: %w", rl.Name, err)
			}
		}
		for _, z := range rl.Zones {
			switch z.Kind {
			case "CROSSWALK":
				r.AddCrosswalk(z.Offset, z.Length, z.StopSign)
			default:
				r.AddPlainIntersection(z.Offset, z.Length, z.StopSign)
			}
		}
		if err := w.AddRoad(r); err != nil {
			return fmt.Errorf("road %q: %w", rl.Name, err)
		}
	}
	return nil
}

// Digest identifies a layout by the sha256 of its JSON form.
func (l Layout) Digest() string {
	b, _ := json.Marshal(l)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
