package api

import (
	"errors"
	"time"
)

// ObjectType identifies the variant of a CanvasObject.
type ObjectType string

// Known object variants.
const (
	ObjectTypeRectangle ObjectType = "rectangle"
	ObjectTypeCircle    ObjectType = "circle"
	ObjectTypeLine      ObjectType = "line"
	ObjectTypeText      ObjectType = "text"
	ObjectTypeImage     ObjectType = "image"
)

// ErrUnknownObjectType is returned when an object carries a type tag
// that no variant payload matches.
var ErrUnknownObjectType = errors.New("unknown object type")

// Lock is the advisory lock annotation embedded in an object record.
// A lock is valid only while now < ExpiresAt; an absent or expired lock
// means the object is free. The storage layer does not enforce it.
type Lock struct {
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserColor  string    `json:"user_color"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the lock TTL has elapsed at the given instant.
func (l *Lock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// HeldBy reports whether the lock is currently valid and owned by userID.
func (l *Lock) HeldBy(userID string, now time.Time) bool {
	return l.UserID == userID && !l.Expired(now)
}

// Clone returns a copy of the lock.
func (l *Lock) Clone() *Lock {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// RectangleData holds rectangle geometry and style.
type RectangleData struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
}

// CircleData holds circle geometry and style.
type CircleData struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Radius      float64 `json:"radius"`
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
}

// LineData holds line endpoints and style.
type LineData struct {
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
}

// TextData holds text content, position and font.
type TextData struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Content    string  `json:"content"`
	FontSize   float64 `json:"font_size"`
	FontFamily string  `json:"font_family"`
	Color      string  `json:"color"`
}

// ImageData holds image placement and source.
type ImageData struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	URL    string  `json:"url"`
}

// CanvasObject is the canonical record for a shared canvas entity.
// Exactly one variant payload is non-nil and it matches Type.
// ID is globally unique and immutable after creation. Z values need
// not be contiguous, only ordered.
type CanvasObject struct {
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Type      ObjectType     `json:"type"`
	Z         int64          `json:"z"`
	Visible   bool           `json:"visible"`
	Locked    bool           `json:"locked"` // manual lock, distinct from the advisory Lock
	Lock      *Lock          `json:"lock,omitempty"`
	Rectangle *RectangleData `json:"rectangle,omitempty"`
	Circle    *CircleData    `json:"circle,omitempty"`
	Line      *LineData      `json:"line,omitempty"`
	Text      *TextData      `json:"text,omitempty"`
	Image     *ImageData     `json:"image,omitempty"`
}

// Validate checks that the variant payload matches the type tag and that
// no other payload is set.
func (o *CanvasObject) Validate() error {
	if o.ID == "" {
		return errors.New("object id is empty")
	}
	count := 0
	for _, set := range []bool{
		o.Rectangle != nil,
		o.Circle != nil,
		o.Line != nil,
		o.Text != nil,
		o.Image != nil,
	} {
		if set {
			count++
		}
	}
	if count != 1 {
		return ErrUnknownObjectType
	}
	ok := false
	switch o.Type {
	case ObjectTypeRectangle:
		ok = o.Rectangle != nil
	case ObjectTypeCircle:
		ok = o.Circle != nil
	case ObjectTypeLine:
		ok = o.Line != nil
	case ObjectTypeText:
		ok = o.Text != nil
	case ObjectTypeImage:
		ok = o.Image != nil
	}
	if !ok {
		return ErrUnknownObjectType
	}
	return nil
}

// Clone returns a deep copy of the object.
func (o *CanvasObject) Clone() *CanvasObject {
	c := *o
	c.Lock = o.Lock.Clone()
	switch o.Type {
	case ObjectTypeRectangle:
		if o.Rectangle != nil {
			r := *o.Rectangle
			c.Rectangle = &r
		}
	case ObjectTypeCircle:
		if o.Circle != nil {
			cc := *o.Circle
			c.Circle = &cc
		}
	case ObjectTypeLine:
		if o.Line != nil {
			l := *o.Line
			c.Line = &l
		}
	case ObjectTypeText:
		if o.Text != nil {
			t := *o.Text
			c.Text = &t
		}
	case ObjectTypeImage:
		if o.Image != nil {
			i := *o.Image
			c.Image = &i
		}
	}
	return &c
}

// FreeFor reports whether the object can be locked by userID right now:
// no lock, an expired lock, or a lock already held by the caller.
func (o *CanvasObject) FreeFor(userID string, now time.Time) bool {
	if o.Lock == nil || o.Lock.Expired(now) {
		return true
	}
	return o.Lock.UserID == userID
}

// ObjectPatch is a merge-semantics partial update: nil fields are left
// untouched on the target object. ClearLock removes the advisory lock
// annotation (a nil Lock field alone means "unchanged").
type ObjectPatch struct {
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Radius      *float64 `json:"radius,omitempty"`
	X1          *float64 `json:"x1,omitempty"`
	Y1          *float64 `json:"y1,omitempty"`
	X2          *float64 `json:"x2,omitempty"`
	Y2          *float64 `json:"y2,omitempty"`
	Content     *string  `json:"content,omitempty"`
	FontSize    *float64 `json:"font_size,omitempty"`
	FontFamily  *string  `json:"font_family,omitempty"`
	Color       *string  `json:"color,omitempty"`
	Fill        *string  `json:"fill,omitempty"`
	Stroke      *string  `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"stroke_width,omitempty"`
	URL         *string  `json:"url,omitempty"`
	Z           *int64   `json:"z,omitempty"`
	Visible     *bool    `json:"visible,omitempty"`
	Locked      *bool    `json:"locked,omitempty"`
	Lock        *Lock    `json:"lock,omitempty"`
	ClearLock   bool     `json:"clear_lock,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p *ObjectPatch) IsZero() bool {
	return *p == (ObjectPatch{})
}

// Merge overlays other on top of p: fields set in other win. Used to
// coalesce bursts of updates within one throttle window.
func (p *ObjectPatch) Merge(other *ObjectPatch) {
	if other.X != nil {
		p.X = other.X
	}
	if other.Y != nil {
		p.Y = other.Y
	}
	if other.Width != nil {
		p.Width = other.Width
	}
	if other.Height != nil {
		p.Height = other.Height
	}
	if other.Radius != nil {
		p.Radius = other.Radius
	}
	if other.X1 != nil {
		p.X1 = other.X1
	}
	if other.Y1 != nil {
		p.Y1 = other.Y1
	}
	if other.X2 != nil {
		p.X2 = other.X2
	}
	if other.Y2 != nil {
		p.Y2 = other.Y2
	}
	if other.Content != nil {
		p.Content = other.Content
	}
	if other.FontSize != nil {
		p.FontSize = other.FontSize
	}
	if other.FontFamily != nil {
		p.FontFamily = other.FontFamily
	}
	if other.Color != nil {
		p.Color = other.Color
	}
	if other.Fill != nil {
		p.Fill = other.Fill
	}
	if other.Stroke != nil {
		p.Stroke = other.Stroke
	}
	if other.StrokeWidth != nil {
		p.StrokeWidth = other.StrokeWidth
	}
	if other.URL != nil {
		p.URL = other.URL
	}
	if other.Z != nil {
		p.Z = other.Z
	}
	if other.Visible != nil {
		p.Visible = other.Visible
	}
	if other.Locked != nil {
		p.Locked = other.Locked
	}
	if other.Lock != nil {
		p.Lock = other.Lock
		p.ClearLock = false
	}
	if other.ClearLock {
		p.Lock = nil
		p.ClearLock = true
	}
}

// Apply mutates o in place with the fields set in the patch. Geometry
// fields are routed to the variant payload; fields that do not belong
// to the object's variant are ignored rather than rejected, since a
// stale patch can race a concurrent type-preserving rewrite.
func (p *ObjectPatch) Apply(o *CanvasObject) {
	switch o.Type {
	case ObjectTypeRectangle:
		if o.Rectangle != nil {
			p.applyRectangle(o.Rectangle)
		}
	case ObjectTypeCircle:
		if o.Circle != nil {
			p.applyCircle(o.Circle)
		}
	case ObjectTypeLine:
		if o.Line != nil {
			p.applyLine(o.Line)
		}
	case ObjectTypeText:
		if o.Text != nil {
			p.applyText(o.Text)
		}
	case ObjectTypeImage:
		if o.Image != nil {
			p.applyImage(o.Image)
		}
	}
	if p.Z != nil {
		o.Z = *p.Z
	}
	if p.Visible != nil {
		o.Visible = *p.Visible
	}
	if p.Locked != nil {
		o.Locked = *p.Locked
	}
	if p.Lock != nil {
		o.Lock = p.Lock.Clone()
	} else if p.ClearLock {
		o.Lock = nil
	}
	o.UpdatedAt = time.Now().UTC()
}

func (p *ObjectPatch) applyRectangle(r *RectangleData) {
	if p.X != nil {
		r.X = *p.X
	}
	if p.Y != nil {
		r.Y = *p.Y
	}
	if p.Width != nil {
		r.Width = *p.Width
	}
	if p.Height != nil {
		r.Height = *p.Height
	}
	if p.Fill != nil {
		r.Fill = *p.Fill
	}
	if p.Stroke != nil {
		r.Stroke = *p.Stroke
	}
	if p.StrokeWidth != nil {
		r.StrokeWidth = *p.StrokeWidth
	}
}

func (p *ObjectPatch) applyCircle(c *CircleData) {
	if p.X != nil {
		c.X = *p.X
	}
	if p.Y != nil {
		c.Y = *p.Y
	}
	if p.Radius != nil {
		c.Radius = *p.Radius
	}
	if p.Fill != nil {
		c.Fill = *p.Fill
	}
	if p.Stroke != nil {
		c.Stroke = *p.Stroke
	}
	if p.StrokeWidth != nil {
		c.StrokeWidth = *p.StrokeWidth
	}
}

func (p *ObjectPatch) applyLine(l *LineData) {
	if p.X1 != nil {
		l.X1 = *p.X1
	}
	if p.Y1 != nil {
		l.Y1 = *p.Y1
	}
	if p.X2 != nil {
		l.X2 = *p.X2
	}
	if p.Y2 != nil {
		l.Y2 = *p.Y2
	}
	if p.Stroke != nil {
		l.Stroke = *p.Stroke
	}
	if p.StrokeWidth != nil {
		l.StrokeWidth = *p.StrokeWidth
	}
}

func (p *ObjectPatch) applyText(t *TextData) {
	if p.X != nil {
		t.X = *p.X
	}
	if p.Y != nil {
		t.Y = *p.Y
	}
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.FontSize != nil {
		t.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		t.FontFamily = *p.FontFamily
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
}

func (p *ObjectPatch) applyImage(i *ImageData) {
	if p.X != nil {
		i.X = *p.X
	}
	if p.Y != nil {
		i.Y = *p.Y
	}
	if p.Width != nil {
		i.Width = *p.Width
	}
	if p.Height != nil {
		i.Height = *p.Height
	}
	if p.URL != nil {
		i.URL = *p.URL
	}
}

// Float64 returns a pointer to v, for building patches.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v, for building patches.
func String(v string) *string { return &v }

// Int64 returns a pointer to v, for building patches.
func Int64(v int64) *int64 { return &v }

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }
