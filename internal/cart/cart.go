package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrMissingItemCode = errors.New("item code is required")
	ErrInvalidLine     = errors.New("invalid cart line")
	ErrLineNotFound    = errors.New("cart line not found")
	// ErrContended is returned by Updater stores that gave up retrying.
	ErrContended       = errors.New("cart modified concurrently")
)

// Cart holds one owner's lines. It is not safe for concurrent use; callers
// load a Cart per session or request and discard it afterwards.
type Cart struct {
	owner string
	lines []Line
	store Persister
	log   *zap.Logger

	totalItems int
	subtotal   decimal.Decimal
}

func New(owner string, store Persister, log *zap.Logger) *Cart {
	if store == nil {
		store = NopStore{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cart{owner: owner, store: store, log: log, subtotal: decimal.Zero}
}

// Load restores the owner's last saved snapshot. A missing snapshot yields an
// empty cart.
func Load(ctx context.Context, owner string, store Persister, log *zap.Logger) (*Cart, error) {
	c := New(owner, store, log)
	raw, err := c.store.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if err := c.restore(raw); err != nil {
		return nil, err
	}
	return c, nil
}

// Mutate runs fn against the owner's cart as one load-modify-save step. When
// the store implements Updater no other Mutate for the same owner can slip
// in between; fn may then run more than once and must only touch the cart.
// The returned cart persists to store as usual.
func Mutate(ctx context.Context, owner string, store Persister, log *zap.Logger, fn func(*Cart) error) (*Cart, error) {
	u, ok := store.(Updater)
	if !ok {
		c, err := Load(ctx, owner, store, log)
		if err != nil {
			return nil, err
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		return c, nil
	}

	var (
		out   *Cart
		fnErr error
	)
	err := u.Update(ctx, owner, func(current []byte) ([]byte, error) {
		staged := &stagedStore{}
		c := New(owner, staged, log)
		if err := c.restore(current); err != nil {
			return nil, err
		}
		if fnErr = fn(c); fnErr != nil {
			return nil, fnErr
		}
		out = c
		return staged.snapshot, nil
	})
	if fnErr != nil {
		return nil, fnErr
	}
	if err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	out.store = store
	return out, nil
}

func (c *Cart) restore(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	lines, err := Unmarshal(raw)
	if err != nil {
		return err
	}
	c.lines = lines
	c.recompute()
	return nil
}

func (c *Cart) Owner() string { return c.owner }

func (c *Cart) Add(ctx context.Context, line Line) error {
	if err := line.validate(); err != nil {
		c.log.Warn("cart line rejected", zap.String("owner", c.owner), zap.String("kind", string(line.Kind)), zap.Error(err))
		return err
	}

	incoming := line.Quantity()
	if incoming <= 0 {
		incoming = 1
	}

	next := c.Lines()
	if idx := indexOf(next, line.Key()); idx >= 0 {
		next[idx].setQuantity(next[idx].Quantity() + incoming)
		return c.commit(ctx, next)
	}

	nl := line.clone()
	nl.setQuantity(incoming)
	if nl.Kind == KindBundle && nl.Bundle.ID == "" {
		nl.Bundle.ID = uuid.NewString()
	}
	return c.commit(ctx, append(next, nl))
}

func (c *Cart) Remove(ctx context.Context, key Key) error {
	next := c.Lines()
	idx := indexOf(next, key)
	if idx < 0 {
		return ErrLineNotFound
	}
	return c.commit(ctx, append(next[:idx], next[idx+1:]...))
}

// SetQuantity replaces a line's quantity. n <= 0 removes the line.
func (c *Cart) SetQuantity(ctx context.Context, key Key, n int) error {
	if n <= 0 {
		return c.Remove(ctx, key)
	}
	next := c.Lines()
	idx := indexOf(next, key)
	if idx < 0 {
		return ErrLineNotFound
	}
	next[idx].setQuantity(n)
	return c.commit(ctx, next)
}

func (c *Cart) Clear(ctx context.Context) error {
	return c.commit(ctx, nil)
}

// Lines returns a deep copy of the cart contents in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = l.clone()
	}
	return out
}

func (c *Cart) Len() int                  { return len(c.lines) }
func (c *Cart) TotalItems() int           { return c.totalItems }
func (c *Cart) Subtotal() decimal.Decimal { return c.subtotal }

func indexOf(lines []Line, key Key) int {
	for i := range lines {
		if lines[i].Key() == key {
			return i
		}
	}
	return -1
}

func (c *Cart) recompute() {
	total := 0
	sub := decimal.Zero
	for _, l := range c.lines {
		q := l.Quantity()
		total += q
		sub = sub.Add(l.UnitPrice().Mul(decimal.NewFromInt(int64(q))))
	}
	c.totalItems = total
	c.subtotal = sub
}

// commit saves next and only then makes it the cart's content, so a failed
// save leaves the cart as it was.
func (c *Cart) commit(ctx context.Context, next []Line) error {
	raw, err := Marshal(next)
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, c.owner, raw); err != nil {
		c.log.Error("failed to persist cart", zap.String("owner", c.owner), zap.Error(err))
		return fmt.Errorf("persist cart: %w", err)
	}
	c.lines = next
	c.recompute()
	return nil
}

// Marshal encodes lines as the persisted snapshot format.
func Marshal(lines []Line) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(lines)
}

// Unmarshal decodes a snapshot and rejects entries whose tag does not match
// their payload.
func Unmarshal(raw []byte) ([]Line, error) {
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	for i, l := range lines {
		if err := l.validate(); err != nil {
			return nil, fmt.Errorf("cart snapshot line %d: %w", i, err)
		}
	}
	return lines, nil
}
