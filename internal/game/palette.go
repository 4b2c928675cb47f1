package game

import (
	"sync"

	"github.com/fatih/color"

	"mogul/internal/identity"
)

var paletteCycle = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgMagenta),
	color.New(color.FgYellow),
	color.New(color.FgGreen),
	color.New(color.FgBlue),
	color.New(color.FgRed),
	color.New(color.FgHiCyan),
	color.New(color.FgHiMagenta),
}

var paletteNeutral = color.New(color.FgHiWhite)

// Palette hands out a stable terminal color per player. It is an
// owned cache passed to the renderers that need it; once frozen it
// stops assigning and unknown names fall back to neutral.
type Palette struct {
	mu     sync.Mutex
	colors map[string]*color.Color
	frozen bool
	next   int
}

func NewPalette() *Palette {
	return &Palette{colors: make(map[string]*color.Color)}
}

// Assign returns the player's color, allocating the next palette slot
// on first sight. After Freeze, unseen players get the neutral color.
func (p *Palette) Assign(name string) *color.Color {
	key := identity.Key(name)
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.colors[key]; ok {
		return c
	}
	if p.frozen {
		return paletteNeutral
	}
	c := paletteCycle[p.next%len(paletteCycle)]
	p.next++
	p.colors[key] = c
	return c
}

// Freeze stops further assignment and returns an immutable view of
// the mapping built so far.
func (p *Palette) Freeze() FrozenPalette {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frozen = true
	out := make(FrozenPalette, len(p.colors))
	for k, v := range p.colors {
		out[k] = v
	}
	return out
}

// FrozenPalette is a read-only name→color mapping.
type FrozenPalette map[string]*color.Color

// Color looks up a player's color, neutral when unassigned.
func (f FrozenPalette) Color(name string) *color.Color {
	if c, ok := f[identity.Key(name)]; ok {
		return c
	}
	return paletteNeutral
}
