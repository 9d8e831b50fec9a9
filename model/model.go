package model

import "encoding/json"

// Msg is the envelope exchanged with the review GUI over the websocket.
type Msg struct {
	Type    string          `json:"type"`
	Airfoil string          `json:"airfoil,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// request types
const (
	MsgLoad  = "load"
	MsgEdit  = "edit"
	MsgUndo  = "undo"
	MsgReset = "reset"
)

// reply types
const (
	MsgOpPoints = "opPoints"
	MsgParams   = "params"
	MsgError    = "error"
)

// OpPointsContent is the payload of a MsgOpPoints reply: the op-point
// list of one airfoil together with its rendered target polar.
type OpPointsContent struct {
	Session     string    `json:"session"`
	Airfoil     string    `json:"airfoil"`
	Re          float64   `json:"re"`
	OpPoints    []OpPoint `json:"op_points"`
	TargetPolar string    `json:"target_polar"`
	Edited      bool      `json:"edited"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// EditContent is the payload of a MsgEdit request.
type EditContent struct {
	Index     int      `json:"index"`
	Value     float64  `json:"op_point"`
	Target    float64  `json:"target_value"`
	Weighting *float64 `json:"weighting,omitempty"`
}
