package domain

type Category struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Unit             string `json:"unit,omitempty"`
	ParentCategoryID int    `json:"parentCategoryId,omitempty"`
	ParentName       string `json:"parentName,omitempty"`
}

func (c Category) EntityID() int { return c.ID }

type Material struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	CategoryID   int    `json:"categoryId,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
	Quantity     int    `json:"quantity"`
	MinThreshold int    `json:"minThreshold"`
	Description  string `json:"description,omitempty"`
}

func (m Material) EntityID() int { return m.ID }

// BelowThreshold reports whether stock needs replenishing.
func (m Material) BelowThreshold() bool { return m.Quantity < m.MinThreshold }

type Provider struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
	CityName    string `json:"cityName,omitempty"`
}

func (p Provider) EntityID() int { return p.ID }

type CategoryForm struct {
	ID               int    `json:"id,omitempty"`
	Name             string `json:"name" validate:"required,max=200"`
	Unit             string `json:"unit" validate:"required"`
	ParentCategoryID int    `json:"parentCategoryId,omitempty" validate:"gte=0"`
}

type MaterialForm struct {
	ID           int    `json:"id,omitempty"`
	Name         string `json:"name" validate:"required,max=200"`
	CategoryID   int    `json:"categoryId" validate:"required,gt=0"`
	MinThreshold int    `json:"minThreshold" validate:"gte=0"`
	Description  string `json:"description,omitempty"`
}

type ProviderForm struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"omitempty,email"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=20"`
	Address     string `json:"address,omitempty"`
}
