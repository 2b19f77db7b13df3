package domain

// Device is a sensor or IoT device installed at a point.
type Device struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Type         string `json:"type,omitempty"`
	PointID      int    `json:"pointId,omitempty"`
	PointName    string `json:"pointName,omitempty"`
	IsActive     bool   `json:"isActive"`
}

func (d Device) EntityID() int { return d.ID }

// FeedbackDevice is a tablet that collects answers to questions in a section.
type FeedbackDevice struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	SectionID   int    `json:"sectionId,omitempty"`
	SectionName string `json:"sectionName,omitempty"`
	FloorName   string `json:"floorName,omitempty"`
	Status      string `json:"status,omitempty"`
}

func (f FeedbackDevice) EntityID() int { return f.ID }
