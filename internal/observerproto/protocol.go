package observerproto

// Version is the observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// EveryTicks thins the stream to one TICK per N world ticks.
	EveryTicks int `json:"every_ticks"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	Bounds          Rect        `json:"bounds"`
	Roads           []RoadInfo  `json:"roads"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	Seed       int64 `json:"seed"`
	CarLength  int   `json:"car_length"`
	CarWidth   int   `json:"car_width"`
	StepCM     int   `json:"step_cm"`
}

// Rect is x, y, w, h in centimetres.
type Rect [4]int

type RoadInfo struct {
	ID            int                `json:"id"`
	Name          string             `json:"name"`
	Rect          Rect               `json:"rect"`
	SpeedLimit    int                `json:"speed_limit"`
	Lanes         []LaneInfo         `json:"lanes"`
	Intersections []IntersectionInfo `json:"intersections"`
}

type LaneInfo struct {
	Index int    `json:"index"`
	Rect  Rect   `json:"rect"`
	Dir   string `json:"dir"`
	End1  string `json:"end1"`
	End2  string `json:"end2"`
}

type IntersectionInfo struct {
	Kind       string `json:"kind"`
	Rect       Rect   `json:"rect"`
	StopSign   bool   `json:"stop_sign"`
	JunctionID int    `json:"junction_id,omitempty"`
	OtherRoad  int    `json:"other_road,omitempty"`
}

// Server -> Client. Sent every EveryTicks ticks.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Cars     []CarState  `json:"cars"`
	Spawns   []CarRef    `json:"spawns,omitempty"`
	Despawns []CarRef    `json:"despawns,omitempty"`
	Occupied []Occupancy `json:"occupied,omitempty"`
}

type CarState struct {
	ID    string `json:"id"`
	Road  int    `json:"road"`
	Lane  int    `json:"lane"`
	Rect  Rect   `json:"rect"`
	Dir   string `json:"dir"`
	Speed int    `json:"speed"`
	State string `json:"state"`
}

type CarRef struct {
	CarID string `json:"car_id"`
	Road  int    `json:"road"`
	Lane  int    `json:"lane"`
}

// Occupancy lists the cars registered in one intersection record.
type Occupancy struct {
	Road         int      `json:"road"`
	Intersection int      `json:"intersection"`
	Cars         []string `json:"cars"`
}
