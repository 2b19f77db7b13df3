package service

import (
	"errors"
	"fmt"
	"strings"

	"cleantech-console/internal/domain"
	"cleantech-console/internal/export"
)

var ErrUnknownScreen = errors.New("unknown screen")

// Registry is the fixed set of list screens the console serves.
type Registry struct {
	order []string
	defs  map[string]Definition
}

func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, dup := r.defs[d.Name()]; dup {
			panic("duplicate screen " + d.Name())
		}
		r.order = append(r.order, d.Name())
		r.defs[d.Name()] = d
	}
	return r
}

func (r *Registry) Get(name string) (Definition, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScreen, name)
	}
	return d, nil
}

// Definitions returns the screens in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.defs[n])
	}
	return out
}

// ScreenInfo is the menu entry of a screen.
type ScreenInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

func (r *Registry) Infos() []ScreenInfo {
	out := make([]ScreenInfo, 0, len(r.order))
	for _, d := range r.Definitions() {
		out = append(out, ScreenInfo{Name: d.Name(), Title: d.Title()})
	}
	return out
}

const ScreenQuestions = "questions"

func idColumn[T domain.Entity]() export.Column[T] {
	return export.Column[T]{Header: "ID", Width: 8, Value: func(v T) any { return v.EntityID() }}
}

func col[T any](header string, width float64, value func(T) any) export.Column[T] {
	return export.Column[T]{Header: header, Width: width, Value: value}
}

// DefaultRegistry lists every screen of the console.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Define("countries", "Countries", "country",
			idColumn[domain.Country](),
			col("Name", 30, func(c domain.Country) any { return c.Name }),
		),
		Define("areas", "Areas", "area",
			idColumn[domain.Area](),
			col("Name", 30, func(a domain.Area) any { return a.Name }),
			col("Country", 25, func(a domain.Area) any { return a.CountryName }),
		),
		Define("cities", "Cities", "city",
			idColumn[domain.City](),
			col("Name", 30, func(c domain.City) any { return c.Name }),
			col("Area", 25, func(c domain.City) any { return c.AreaName }),
		),
		Define("organizations", "Organizations", "organization",
			idColumn[domain.Organization](),
			col("Name", 30, func(o domain.Organization) any { return o.Name }),
			col("City", 25, func(o domain.Organization) any { return o.CityName }),
		),
		Define("buildings", "Buildings", "building",
			idColumn[domain.Building](),
			col("Name", 30, func(b domain.Building) any { return b.Name }),
			col("Organization", 30, func(b domain.Building) any { return b.OrganizationName }),
		),
		Define("floors", "Floors", "floor",
			idColumn[domain.Floor](),
			col("Name", 30, func(f domain.Floor) any { return f.Name }),
			col("Building", 25, func(f domain.Floor) any { return f.BuildingName }),
		),
		Define("sections", "Sections", "section",
			idColumn[domain.Section](),
			col("Name", 30, func(s domain.Section) any { return s.Name }),
			col("Floor", 25, func(s domain.Section) any { return s.FloorName }),
		),
		Define("points", "Points", "point",
			idColumn[domain.Point](),
			col("Name", 30, func(p domain.Point) any { return p.Name }),
			col("Section", 25, func(p domain.Point) any { return p.SectionName }),
		),
		Define("devices", "Devices", "device",
			idColumn[domain.Device](),
			col("Name", 25, func(d domain.Device) any { return d.Name }),
			col("Serial Number", 20, func(d domain.Device) any { return d.SerialNumber }),
			col("Type", 15, func(d domain.Device) any { return d.Type }),
			col("Point", 20, func(d domain.Device) any { return d.PointName }),
			col("Active", 10, func(d domain.Device) any { return d.IsActive }),
		),
		Define("feedback-devices", "Feedback Devices", "feedbackdevice",
			idColumn[domain.FeedbackDevice](),
			col("Name", 25, func(f domain.FeedbackDevice) any { return f.Name }),
			col("Section", 20, func(f domain.FeedbackDevice) any { return f.SectionName }),
			col("Floor", 20, func(f domain.FeedbackDevice) any { return f.FloorName }),
			col("Status", 12, func(f domain.FeedbackDevice) any { return f.Status }),
		),
		Define(ScreenQuestions, "Questions", "question",
			idColumn[domain.Question](),
			col("Question (EN)", 40, func(q domain.Question) any { return q.NameEn }),
			col("Question (AR)", 40, func(q domain.Question) any { return q.NameAr }),
			col("Type", 12, func(q domain.Question) any { return string(q.Type) }),
			col("Shown", 10, func(q domain.Question) any { return q.IsShown }),
			col("Sections", 30, func(q domain.Question) any { return strings.Join(q.Sections, ", ") }),
		),
		Define("materials", "Materials", "material",
			idColumn[domain.Material](),
			col("Name", 25, func(m domain.Material) any { return m.Name }),
			col("Category", 20, func(m domain.Material) any { return m.CategoryName }),
			col("Quantity", 12, func(m domain.Material) any { return m.Quantity }),
			col("Min Threshold", 14, func(m domain.Material) any { return m.MinThreshold }),
			col("Low Stock", 10, func(m domain.Material) any { return m.BelowThreshold() }),
		),
		Define("categories", "Categories", "category",
			idColumn[domain.Category](),
			col("Name", 25, func(c domain.Category) any { return c.Name }),
			col("Unit", 12, func(c domain.Category) any { return c.Unit }),
			col("Parent", 25, func(c domain.Category) any { return c.ParentName }),
		),
		Define("providers", "Providers", "provider",
			idColumn[domain.Provider](),
			col("Name", 25, func(p domain.Provider) any { return p.Name }),
			col("Email", 25, func(p domain.Provider) any { return p.Email }),
			col("Phone", 16, func(p domain.Provider) any { return p.PhoneNumber }),
			col("City", 20, func(p domain.Provider) any { return p.CityName }),
		),
		Define("users", "Users", "user",
			idColumn[domain.User](),
			col("User Name", 20, func(u domain.User) any { return u.UserName }),
			col("Full Name", 25, func(u domain.User) any { return u.FullName() }),
			col("Email", 25, func(u domain.User) any { return u.Email }),
			col("Role", 12, func(u domain.User) any { return u.Role }),
		),
		Define("tasks", "Tasks", "task",
			idColumn[domain.Task](),
			col("Title", 30, func(t domain.Task) any { return t.Title }),
			col("Status", 12, func(t domain.Task) any { return t.Status }),
			col("Priority", 10, func(t domain.Task) any { return t.Priority }),
			col("Start", 18, func(t domain.Task) any { return t.StartDate }),
			col("End", 18, func(t domain.Task) any { return t.EndDate }),
			col("Section", 20, func(t domain.Task) any { return t.SectionName }),
			col("Assignee", 20, func(t domain.Task) any { return t.AssigneeName }),
		),
	)
}
