package hub

import (
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/bbernstein/stationmap/internal/models"
	"github.com/bbernstein/stationmap/internal/viewport"
)

// Outbound frame types
const (
	FrameCommand = "command"
	FrameView    = "view"
)

// Inbound frame types
const (
	FrameSelect = "select"
	FrameZoom   = "zoom"
)

// Frame is one JSON message sent to every map client.
type Frame struct {
	Type    string        `json:"type"`
	Command *CommandFrame `json:"command,omitempty"`
	View    interface{}   `json:"view,omitempty"`
}

// CommandFrame is the wire form of a viewport command. Durations are in
// seconds, padding is [x, y] in pixels.
type CommandFrame struct {
	Kind     string         `json:"kind"`
	Center   *models.LatLng `json:"center,omitempty"`
	Zoom     *float64       `json:"zoom,omitempty"`
	Bounds   *models.Bounds `json:"bounds,omitempty"`
	Duration float64        `json:"duration,omitempty"`
	Padding  []int          `json:"padding,omitempty"`
	MaxZoom  *float64       `json:"maxZoom,omitempty"`
}

func NewCommandFrame(cmd viewport.Command) Frame {
	wire := &CommandFrame{Kind: string(cmd.Kind)}
	switch cmd.Kind {
	case viewport.KindSetView:
		center, zoom := cmd.Center, cmd.Zoom
		wire.Center = &center
		wire.Zoom = &zoom
	case viewport.KindFlyTo:
		center, zoom := cmd.Center, cmd.Zoom
		wire.Center = &center
		wire.Zoom = &zoom
		wire.Duration = cmd.FlyTo.Duration.Seconds()
	case viewport.KindFitBounds:
		bounds, maxZoom := cmd.Bounds, cmd.FitBounds.MaxZoom
		wire.Bounds = &bounds
		wire.Padding = []int{cmd.FitBounds.PaddingX, cmd.FitBounds.PaddingY}
		wire.MaxZoom = &maxZoom
	}
	return Frame{Type: FrameCommand, Command: wire}
}

// inbound is a parsed client message.
type inbound struct {
	kind string
	id   *int
	zoom float64
}

func parseInbound(data []byte) (inbound, error) {
	if !gjson.ValidBytes(data) {
		return inbound{}, fmt.Errorf("frame is not valid JSON")
	}

	msg := gjson.ParseBytes(data)
	kind := msg.Get("type").String()
	switch kind {
	case FrameSelect:
		id := msg.Get("id")
		switch {
		case !id.Exists(), id.Type == gjson.Null:
			return inbound{kind: kind}, nil
		case id.Type == gjson.Number && id.Num == math.Trunc(id.Num) && math.Abs(id.Num) <= 1<<53-1:
			v := int(id.Num)
			return inbound{kind: kind, id: &v}, nil
		default:
			return inbound{}, fmt.Errorf("select frame has invalid id %s", id.Raw)
		}
	case FrameZoom:
		zoom := msg.Get("zoom")
		if zoom.Type != gjson.Number || math.IsNaN(zoom.Num) {
			return inbound{}, fmt.Errorf("zoom frame has invalid zoom %s", zoom.Raw)
		}
		return inbound{kind: kind, zoom: zoom.Num}, nil
	default:
		return inbound{}, fmt.Errorf("unknown frame type %q", kind)
	}
}
