package cart

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindSimple Kind = "simple"
	KindBundle Kind = "bundle"
)

type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

type SimpleLine struct {
	ID        string          `json:"id"`
	ItemCode  string          `json:"item_code"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     *Color          `json:"color,omitempty"`
}

// PackDetail is one constituent of a bundle with its customization.
type PackDetail struct {
	ItemID     string `json:"item_id"`
	ItemCode   string `json:"item_code"`
	Name       string `json:"name,omitempty"`
	Image      string `json:"image,omitempty"`
	Quantity   int    `json:"quantity"`
	Size       string `json:"size,omitempty"`
	Color      *Color `json:"color,omitempty"`
	IsOptional bool   `json:"is_optional"`
}

type BundleLine struct {
	ID               string          `json:"id"`
	PackID           string          `json:"pack_id"`
	PackCode         string          `json:"pack_code"`
	Name             string          `json:"name"`
	Image            string          `json:"image,omitempty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	Details          []PackDetail    `json:"details"`
	SelectedOptional *PackDetail     `json:"selected_optional_item,omitempty"`
}

// Constituents returns the rows a bundle expands to at checkout: every
// mandatory detail plus the selected optional one.
func (b *BundleLine) Constituents() []PackDetail {
	out := make([]PackDetail, 0, len(b.Details)+1)
	for _, d := range b.Details {
		if !d.IsOptional {
			out = append(out, d)
		}
	}
	if b.SelectedOptional != nil {
		out = append(out, *b.SelectedOptional)
	}
	return out
}

// Line is the tagged cart entry. Exactly one of Simple or Bundle is set and
// Kind says which.
type Line struct {
	Kind   Kind        `json:"kind"`
	Simple *SimpleLine `json:"simple,omitempty"`
	Bundle *BundleLine `json:"bundle,omitempty"`
}

func NewSimple(s SimpleLine) Line { return Line{Kind: KindSimple, Simple: &s} }
func NewBundle(b BundleLine) Line { return Line{Kind: KindBundle, Bundle: &b} }

// Key identifies lines that must merge instead of being appended.
type Key string

func (l Line) validate() error {
	switch l.Kind {
	case KindSimple:
		if l.Simple == nil || l.Bundle != nil {
			return ErrInvalidLine
		}
		if strings.TrimSpace(l.Simple.ItemCode) == "" {
			return ErrMissingItemCode
		}
		if l.Simple.UnitPrice.IsNegative() {
			return ErrInvalidLine
		}
	case KindBundle:
		if l.Bundle == nil || l.Simple != nil {
			return ErrInvalidLine
		}
		if l.Bundle.PackID == "" || strings.TrimSpace(l.Bundle.PackCode) == "" {
			return ErrInvalidLine
		}
		if l.Bundle.UnitPrice.IsNegative() {
			return ErrInvalidLine
		}
	default:
		return ErrInvalidLine
	}
	return nil
}

func (l Line) Key() Key {
	switch l.Kind {
	case KindSimple:
		s := l.Simple
		return Key("simple:" + s.ID + "|" + s.Size + "|" + colorToken(s.Color))
	case KindBundle:
		b := l.Bundle
		parts := make([]string, 0, len(b.Details))
		for _, d := range b.Details {
			parts = append(parts, detailToken(d))
		}
		// multiset: order of constituents does not matter
		sort.Strings(parts)
		key := "bundle:" + b.PackID + "|" + strings.Join(parts, ";")
		if b.SelectedOptional != nil {
			key += "|opt:" + detailToken(*b.SelectedOptional)
		}
		return Key(key)
	}
	return ""
}

func (l Line) Quantity() int {
	switch l.Kind {
	case KindSimple:
		return l.Simple.Quantity
	case KindBundle:
		return l.Bundle.Quantity
	}
	return 0
}

func (l Line) UnitPrice() decimal.Decimal {
	switch l.Kind {
	case KindSimple:
		return l.Simple.UnitPrice
	case KindBundle:
		return l.Bundle.UnitPrice
	}
	return decimal.Zero
}

func (l *Line) setQuantity(n int) {
	switch l.Kind {
	case KindSimple:
		l.Simple.Quantity = n
	case KindBundle:
		l.Bundle.Quantity = n
	}
}

func (l Line) clone() Line {
	out := Line{Kind: l.Kind}
	if l.Simple != nil {
		s := *l.Simple
		if s.Color != nil {
			c := *s.Color
			s.Color = &c
		}
		out.Simple = &s
	}
	if l.Bundle != nil {
		b := *l.Bundle
		b.Details = make([]PackDetail, len(l.Bundle.Details))
		for i, d := range l.Bundle.Details {
			b.Details[i] = cloneDetail(d)
		}
		if b.SelectedOptional != nil {
			d := cloneDetail(*b.SelectedOptional)
			b.SelectedOptional = &d
		}
		out.Bundle = &b
	}
	return out
}

func cloneDetail(d PackDetail) PackDetail {
	if d.Color != nil {
		c := *d.Color
		d.Color = &c
	}
	return d
}

func detailToken(d PackDetail) string {
	return d.ItemID + "/" + strconv.Itoa(d.Quantity) + "/" + d.Size + "/" + colorToken(d.Color)
}

func colorToken(c *Color) string {
	if c == nil {
		return ""
	}
	return strings.ToLower(c.Name) + "#" + strings.ToLower(strings.TrimPrefix(c.Hex, "#"))
}
