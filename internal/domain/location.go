package domain

// Country is the root of the location hierarchy.
type Country struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (c Country) EntityID() int { return c.ID }

type Area struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	CountryID   int    `json:"countryId,omitempty"`
	CountryName string `json:"countryName,omitempty"`
}

func (a Area) EntityID() int { return a.ID }

type City struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	AreaID   int    `json:"areaId,omitempty"`
	AreaName string `json:"areaName,omitempty"`
}

func (c City) EntityID() int { return c.ID }

type Organization struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	CityID   int    `json:"cityId,omitempty"`
	CityName string `json:"cityName,omitempty"`
}

func (o Organization) EntityID() int { return o.ID }

type Building struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	OrganizationID   int    `json:"organizationId,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

func (b Building) EntityID() int { return b.ID }

type Floor struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	BuildingID   int    `json:"buildingId,omitempty"`
	BuildingName string `json:"buildingName,omitempty"`
}

func (f Floor) EntityID() int { return f.ID }

type Section struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	FloorID   int    `json:"floorId,omitempty"`
	FloorName string `json:"floorName,omitempty"`
}

func (s Section) EntityID() int { return s.ID }

type Point struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	SectionID   int    `json:"sectionId,omitempty"`
	SectionName string `json:"sectionName,omitempty"`
}

func (p Point) EntityID() int { return p.ID }

// LocationOption is one entry of a cascading dropdown.
type LocationOption struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (o LocationOption) EntityID() int { return o.ID }
