package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/engine"
	"github.com/inamate/vecview/internal/geom"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/view"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 256 * 1024
	sendBuffer = 64
	inBuffer   = 64
)

var ErrHubClosed = errors.New("session hub closed")

// Saver persists a snapshot of the document a session is editing.
type Saver interface {
	Save(ctx context.Context, doc *document.Document) (int, error)
}

type outbound struct {
	data []byte
	// image, if set, is written as a binary message right after data.
	image []byte
}

// Session is one websocket viewer of a document. It owns an engine and is
// the only goroutine that touches it: the read pump queues messages, the
// loop applies them and renders at most MaxFPS frames per second, and the
// write pump drains the outgoing queue.
type Session struct {
	hub     *Hub
	conn    *websocket.Conn
	engine  *engine.Engine
	frames  io.WriterTo
	saver   Saver
	limiter *rate.Limiter
	maxPix  int

	send chan outbound
	in   chan *Message

	UserID     string
	DocumentID string
	ClientID   string

	name    string
	version int
	seq     int64
}

// NewSession wires a session around an engine that already has the document
// loaded. frames encodes the engine's current frame; saver may be nil.
func NewSession(hub *Hub, conn *websocket.Conn, e *engine.Engine, frames io.WriterTo, saver Saver, opts Options, userID, clientID string) *Session {
	opts = opts.withDefaults()
	doc, _ := e.Document()
	s := &Session{
		hub:      hub,
		conn:     conn,
		engine:   e,
		frames:   frames,
		saver:    saver,
		limiter:  rate.NewLimiter(rate.Limit(opts.MaxFPS), 1),
		maxPix:   opts.MaxPixels,
		send:     make(chan outbound, sendBuffer),
		in:       make(chan *Message, inBuffer),
		UserID:   userID,
		ClientID: clientID,
	}
	if doc != nil {
		s.DocumentID = doc.ID
		s.name = doc.Name
		s.version = doc.Version
	}
	return s
}

// Serve runs the session until the connection closes or ctx ends.
func (s *Session) Serve(ctx context.Context) error {
	if !s.hub.Register(ctx, s) {
		return ErrHubClosed
	}
	defer s.hub.Unregister(s)

	w, h := s.engine.Size()
	s.sendMessage(TypeWelcome, WelcomePayload{
		ClientID:   s.ClientID,
		DocumentID: s.DocumentID,
		Name:       s.name,
		Version:    s.version,
		Width:      w,
		Height:     h,
	})
	s.engine.Invalidate(render.LevelFull)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readPump(gctx) })
	g.Go(func() error { return s.writePump(gctx) })
	g.Go(func() error { return s.loop(gctx) })
	err := g.Wait()
	s.conn.Close(websocket.StatusNormalClosure, "")

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) readPump(ctx context.Context) error {
	s.conn.SetReadLimit(maxMsgSize)

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "client", s.ClientID)
			s.sendError("", "invalid message")
			continue
		}

		select {
		case s.in <- &msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case out := <-s.send:
			if err := s.write(ctx, websocket.MessageText, out.data); err != nil {
				return err
			}
			if out.image != nil {
				if err := s.write(ctx, websocket.MessageBinary, out.image); err != nil {
					return err
				}
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if err := s.conn.Write(writeCtx, typ, data); err != nil {
		slog.Debug("write error", "error", err, "client", s.ClientID)
		return err
	}
	return nil
}

// loop applies queued messages and renders whenever something is pending
// and the frame limiter allows it. Messages that arrive while a frame is
// waiting only raise its level.
func (s *Session) loop(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	var renderC <-chan time.Time

	for {
		if renderC == nil && s.engine.Pending() != render.LevelNone {
			timer.Reset(s.limiter.Reserve().Delay())
			renderC = timer.C
		}

		select {
		case msg := <-s.in:
			if err := s.handle(ctx, msg); err != nil {
				s.sendError(msg.Type, err.Error())
			}
		case <-renderC:
			renderC = nil
			s.renderFrame()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func decode[T any](msg *Message) (T, error) {
	var p T
	if len(msg.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	return p, nil
}

// handle applies one client message to the engine.
func (s *Session) handle(ctx context.Context, msg *Message) error {
	e := s.engine
	switch msg.Type {
	case TypeViewResize:
		p, err := decode[ResizePayload](msg)
		if err != nil {
			return err
		}
		if s.maxPix > 0 && p.Width*p.Height > s.maxPix {
			return fmt.Errorf("viewport %dx%d exceeds %d pixels", p.Width, p.Height, s.maxPix)
		}
		return e.Resize(p.Width, p.Height)

	case TypeViewPan:
		p, err := decode[PanPayload](msg)
		if err != nil {
			return err
		}
		if p.Direction == "" {
			e.Pan(p.DX, p.DY)
			return nil
		}
		dir, ok := panDirections[p.Direction]
		if !ok {
			return fmt.Errorf("unknown pan direction %q", p.Direction)
		}
		e.PanStep(dir)

	case TypeViewZoom:
		p, err := decode[ZoomPayload](msg)
		if err != nil {
			return err
		}
		switch {
		case p.Factor != 0:
			e.ZoomBy(p.Factor, p.X, p.Y)
		case p.Direction == "out":
			e.ZoomOut(p.X, p.Y)
		default:
			e.ZoomIn(p.X, p.Y)
		}

	case TypeViewExtents:
		e.ZoomExtents()

	case TypeViewWindow:
		p, err := decode[WindowPayload](msg)
		if err != nil {
			return err
		}
		e.ZoomWindow(geom.Vec2{X: p.X1, Y: p.Y1}, geom.Vec2{X: p.X2, Y: p.Y2})

	case TypeViewPrevious:
		e.ZoomPrevious()

	case TypeViewRotate:
		p, err := decode[RotatePayload](msg)
		if err != nil {
			return err
		}
		e.Rotate(geom.Vec(p.X, p.Y, p.Z), geom.Vec2{X: p.PX, Y: p.PY})

	case TypePreviewSet:
		p, err := decode[PreviewPayload](msg)
		if err != nil {
			return err
		}
		return e.SetPreview(p.Elements...)

	case TypePreviewClear:
		e.ClearPreview()

	case TypeElementAdd:
		p, err := decode[ElementAddPayload](msg)
		if err != nil {
			return err
		}
		return e.AddElement(p.LayerID, p.Element)

	case TypeElementRemove:
		p, err := decode[ElementRemovePayload](msg)
		if err != nil {
			return err
		}
		return e.RemoveElement(p.ID)

	case TypeElementMove:
		p, err := decode[ElementMovePayload](msg)
		if err != nil {
			return err
		}
		return e.MoveControlPointTo(p.ID, p.Index, geom.Vec2{X: p.X, Y: p.Y})

	case TypeLayerVisibility:
		p, err := decode[LayerVisibilityPayload](msg)
		if err != nil {
			return err
		}
		return e.SetLayerVisible(p.LayerID, p.Visible)

	case TypeHitTest:
		p, err := decode[HitTestPayload](msg)
		if err != nil {
			return err
		}
		id := e.HitTest(p.X, p.Y)
		if p.Select {
			var ids []string
			if id != "" {
				ids = append(ids, id)
			}
			if err := e.Select(ids...); err != nil {
				return err
			}
		}
		s.sendMessage(TypeHitResult, HitResultPayload{ID: id})

	case TypeCursorMove:
		p, err := decode[CursorPayload](msg)
		if err != nil {
			return err
		}
		w := e.View().PixelToWorld(geom.Vec2{X: p.X, Y: p.Y})
		if !w.IsValid() {
			return nil
		}
		s.hub.updatePresence(s, &PresencePayload{
			ClientID: s.ClientID,
			UserID:   s.UserID,
			Cursor:   &[3]float64{w.X, w.Y, w.Z},
		})

	case TypeDocSave:
		return s.save(ctx)

	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", s.ClientID)
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

var panDirections = map[string]view.PanDirection{
	"right": view.PanXPlus,
	"left":  view.PanXMinus,
	"up":    view.PanYPlus,
	"down":  view.PanYMinus,
}

func (s *Session) save(ctx context.Context) error {
	if s.saver == nil {
		return errors.New("saving is not available")
	}
	doc, err := s.engine.Document()
	if err != nil {
		return err
	}
	version, err := s.saver.Save(ctx, doc)
	if err != nil {
		slog.Error("save document failed", "error", err, "document", s.DocumentID)
		return errors.New("save failed")
	}
	s.version = version
	slog.Info("document saved", "document", s.DocumentID, "version", version, "client", s.ClientID)

	s.sendMessage(TypeDocSaved, DocSavedPayload{Version: version})
	s.hub.notifySaved(s, version)
	return nil
}

// renderFrame draws the pending level and queues the metadata and image.
func (s *Session) renderFrame() {
	level := s.engine.Pending()
	res := s.engine.Render()
	if !res.OK {
		slog.Warn("frame failed", "client", s.ClientID, "level", level)
		return
	}

	var buf bytes.Buffer
	if _, err := s.frames.WriteTo(&buf); err != nil {
		slog.Error("encode frame", "error", err, "client", s.ClientID)
		return
	}

	s.seq++
	w, h := s.engine.Size()
	meta, err := newMessage(TypeFrame, FramePayload{
		Seq:       s.seq,
		Width:     w,
		Height:    h,
		Level:     level.String(),
		Path:      res.Path.String(),
		Drawn:     res.Drawn,
		Culled:    res.Culled,
		ElapsedMS: float64(res.Elapsed.Microseconds()) / 1000,
		Bytes:     buf.Len(),
	})
	if err != nil {
		return
	}
	meta.DocumentID = s.DocumentID
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if !s.enqueue(outbound{data: data, image: buf.Bytes()}) {
		// Redraw so the client still gets the current frame.
		s.engine.Invalidate(render.LevelOverlay)
	}
}

func (s *Session) sendMessage(typ string, payload any) {
	msg, err := newMessage(typ, payload)
	if err != nil {
		slog.Error("marshal message", "error", err, "type", typ)
		return
	}
	s.deliver(msg)
}

func (s *Session) sendError(request, message string) {
	s.sendMessage(TypeError, ErrorPayload{Message: message, Request: request})
}

// deliver queues a message without blocking. Messages to a session whose
// buffer is full are dropped.
func (s *Session) deliver(msg *Message) {
	m := *msg
	m.DocumentID = s.DocumentID
	data, err := json.Marshal(&m)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}
	s.enqueue(outbound{data: data})
}

func (s *Session) enqueue(out outbound) bool {
	select {
	case s.send <- out:
		return true
	default:
		slog.Warn("session send buffer full, dropping message", "client", s.ClientID)
		return false
	}
}
