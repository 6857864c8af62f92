package session

import (
	"encoding/json"

	"github.com/inamate/vecview/internal/document"
)

// Message is the envelope of every text frame in both directions.
type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client to server: view.
	TypeViewResize   = "view.resize"
	TypeViewPan      = "view.pan"
	TypeViewZoom     = "view.zoom"
	TypeViewExtents  = "view.extents"
	TypeViewWindow   = "view.window"
	TypeViewPrevious = "view.previous"
	TypeViewRotate   = "view.rotate"

	// Client to server: preview and edits.
	TypePreviewSet      = "preview.set"
	TypePreviewClear    = "preview.clear"
	TypeElementAdd      = "element.add"
	TypeElementRemove   = "element.remove"
	TypeElementMove     = "element.move"
	TypeLayerVisibility = "layer.visibility"
	TypeHitTest         = "hit.test"
	TypeCursorMove      = "cursor.move"
	TypeDocSave         = "doc.save"

	// Server to client.
	TypeWelcome   = "welcome"
	TypeFrame     = "frame"
	TypeHitResult = "hit.result"
	TypeDocSaved  = "doc.saved"
	TypeError     = "error"

	// Presence, server to client.
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceUpdate = "presence.update"
	TypePresenceLeave  = "presence.leave"
)

type ResizePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PanPayload pans by a pixel delta, or one keyboard step when Direction is
// set ("left", "right", "up", "down").
type PanPayload struct {
	DX        float64 `json:"dx"`
	DY        float64 `json:"dy"`
	Direction string  `json:"direction,omitempty"`
}

// ZoomPayload zooms around pixel (X, Y). Factor wins over Direction.
type ZoomPayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Factor    float64 `json:"factor,omitempty"`
	Direction string  `json:"direction,omitempty"`
}

type WindowPayload struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// RotatePayload sets the rotation angles in radians around pixel (PX, PY).
type RotatePayload struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	PX float64 `json:"px"`
	PY float64 `json:"py"`
}

type PreviewPayload struct {
	Elements []document.Element `json:"elements"`
}

type ElementAddPayload struct {
	LayerID string           `json:"layerId,omitempty"`
	Element document.Element `json:"element"`
}

type ElementRemovePayload struct {
	ID string `json:"id"`
}

// ElementMovePayload drags control point Index to pixel (X, Y).
type ElementMovePayload struct {
	ID    string  `json:"id"`
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type LayerVisibilityPayload struct {
	LayerID string `json:"layerId"`
	Visible bool   `json:"visible"`
}

type HitTestPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Select bool    `json:"select,omitempty"`
}

type HitResultPayload struct {
	ID string `json:"id"`
}

type CursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type WelcomePayload struct {
	ClientID   string `json:"clientId"`
	DocumentID string `json:"documentId"`
	Name       string `json:"name"`
	Version    int    `json:"version"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// FramePayload describes the binary PNG message that follows it.
type FramePayload struct {
	Seq       int64   `json:"seq"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Level     string  `json:"level"`
	Path      string  `json:"path"`
	Drawn     int     `json:"drawn"`
	Culled    int     `json:"culled"`
	ElapsedMS float64 `json:"elapsedMs"`
	Bytes     int     `json:"bytes"`
}

type DocSavedPayload struct {
	Version int `json:"version"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}

// PresencePayload is one viewer's state. Cursor is in world coordinates so
// it is meaningful whatever the other viewers' zoom.
type PresencePayload struct {
	ClientID string      `json:"clientId"`
	UserID   string      `json:"userId"`
	Cursor   *[3]float64 `json:"cursor,omitempty"`
}

type PresenceStatePayload struct {
	Viewers []*PresencePayload `json:"viewers"`
}

func newMessage(typ string, payload any) (*Message, error) {
	msg := &Message{Type: typ}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = data
	}
	return msg, nil
}
