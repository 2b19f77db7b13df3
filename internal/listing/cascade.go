package listing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cleantech-console/internal/domain"

	"go.uber.org/zap"
)

// Level is one step of the location picker, ordered by specificity.
type Level int

const (
	LevelNone Level = iota
	LevelArea
	LevelCity
	LevelOrganization
	LevelBuilding
	LevelFloor
)

// Levels lists the pickable levels from least to most specific.
var Levels = []Level{LevelArea, LevelCity, LevelOrganization, LevelBuilding, LevelFloor}

func (l Level) String() string {
	switch l {
	case LevelArea:
		return "area"
	case LevelCity:
		return "city"
	case LevelOrganization:
		return "organization"
	case LevelBuilding:
		return "building"
	case LevelFloor:
		return "floor"
	default:
		return "none"
	}
}

func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// FilterKey is the list-endpoint query key that filters by this level.
func (l Level) FilterKey() string {
	switch l {
	case LevelArea:
		return "AreaId"
	case LevelCity:
		return "CityId"
	case LevelOrganization:
		return "OrganizationId"
	case LevelBuilding:
		return "BuildingId"
	case LevelFloor:
		return "FloorId"
	default:
		return ""
	}
}

// Next returns the level below l.
func (l Level) Next() (Level, bool) {
	if l < LevelArea || l >= LevelFloor {
		return LevelNone, false
	}
	return l + 1, true
}

func ParseLevel(s string) (Level, error) {
	for _, l := range Levels {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return LevelNone, fmt.Errorf("unknown location level %q", s)
}

// OptionLoader fetches the options of level whose parent is parentID.
// parentID is zero for LevelArea.
type OptionLoader interface {
	LoadOptions(ctx context.Context, level Level, parentID int) ([]domain.LocationOption, error)
}

// Cascade is the dependent dropdown chain area → city → organization →
// building → floor. Changing a level clears every level below it.
type Cascade struct {
	mu       sync.Mutex
	loader   OptionLoader
	logger   *zap.Logger
	selected map[Level]int
	options  map[Level][]domain.LocationOption
	loading  map[Level]bool
	gen      map[Level]uint64
	loadErr  bool
}

func NewCascade(loader OptionLoader, logger *zap.Logger) *Cascade {
	return &Cascade{
		loader:   loader,
		logger:   logger,
		selected: map[Level]int{},
		options:  map[Level][]domain.LocationOption{},
		loading:  map[Level]bool{},
		gen:      map[Level]uint64{},
	}
}

// LoadRoots loads the area options, which need no parent.
func (c *Cascade) LoadRoots(ctx context.Context) error {
	c.mu.Lock()
	g := c.begin(LevelArea)
	c.mu.Unlock()
	return c.load(ctx, LevelArea, 0, g)
}

// Select sets level to id, clears everything below it and loads the options
// of the next level. A non-positive id behaves like Clear.
func (c *Cascade) Select(ctx context.Context, level Level, id int) error {
	if level < LevelArea || level > LevelFloor {
		return fmt.Errorf("unknown location level %d", level)
	}
	if id <= 0 {
		c.Clear(level)
		return nil
	}

	c.mu.Lock()
	c.selected[level] = id
	c.clearBelow(level)
	next, ok := level.Next()
	if !ok {
		c.mu.Unlock()
		return nil
	}
	g := c.begin(next)
	c.mu.Unlock()

	return c.load(ctx, next, id, g)
}

// Clear unsets level and everything below it without loading.
func (c *Cascade) Clear(level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.selected, level)
	c.clearBelow(level)
}

// Reset clears every level including the area options.
func (c *Cascade) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range Levels {
		delete(c.selected, l)
		delete(c.options, l)
		c.loading[l] = false
		c.gen[l]++
	}
	c.loadErr = false
}

func (c *Cascade) Selected(level Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected[level]
}

func (c *Cascade) Options(level Level) []domain.LocationOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.LocationOption(nil), c.options[level]...)
}

func (c *Cascade) Loading(level Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading[level]
}

func (c *Cascade) LoadError() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Filter renders the selected levels as list filters.
func (c *Cascade) Filter() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := Filters{}
	for _, l := range Levels {
		if id := c.selected[l]; id > 0 {
			f[l.FilterKey()] = id
		}
	}
	return f
}

// CascadeLevel is the view of one level.
type CascadeLevel struct {
	Level    Level                   `json:"level"`
	Selected int                     `json:"selected,omitempty"`
	Options  []domain.LocationOption `json:"options"`
	Loading  bool                    `json:"loading"`
}

// CascadeView is the picker state rendered for the browser.
type CascadeView struct {
	Levels    []CascadeLevel `json:"levels"`
	LoadError bool           `json:"loadError"`
}

func (c *Cascade) View() CascadeView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := CascadeView{LoadError: c.loadErr, Levels: make([]CascadeLevel, 0, len(Levels))}
	for _, l := range Levels {
		v.Levels = append(v.Levels, CascadeLevel{
			Level:    l,
			Selected: c.selected[l],
			Options:  append([]domain.LocationOption{}, c.options[l]...),
			Loading:  c.loading[l],
		})
	}
	return v
}

// begin marks level as loading and returns the generation the result must
// match. Caller holds mu.
func (c *Cascade) begin(level Level) uint64 {
	c.gen[level]++
	c.loading[level] = true
	c.loadErr = false
	return c.gen[level]
}

// clearBelow drops selections and options deeper than level and invalidates
// their in-flight loads. Caller holds mu.
func (c *Cascade) clearBelow(level Level) {
	for _, l := range Levels {
		if l <= level {
			continue
		}
		delete(c.selected, l)
		delete(c.options, l)
		c.loading[l] = false
		c.gen[l]++
	}
}

func (c *Cascade) load(ctx context.Context, level Level, parentID int, g uint64) error {
	opts, err := c.loader.LoadOptions(ctx, level, parentID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[level] != g {
		c.logger.Debug("discarding superseded location options",
			zap.Stringer("level", level),
			zap.Int("parent_id", parentID),
		)
		return nil
	}
	c.loading[level] = false
	if err != nil {
		c.loadErr = true
		c.logger.Warn("location options load failed",
			zap.Stringer("level", level),
			zap.Int("parent_id", parentID),
			zap.Error(err),
		)
		return fmt.Errorf("load %s options: %w", level, err)
	}
	c.options[level] = opts
	return nil
}
