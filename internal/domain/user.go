package domain

// Role names as issued by the backend.
const (
	RoleAdmin      = "Admin"
	RoleManager    = "Manager"
	RoleSupervisor = "Supervisor"
	RoleCleaner    = "Cleaner"
)

type User struct {
	ID        int    `json:"id"`
	UserName  string `json:"userName"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (u User) EntityID() int { return u.ID }

// FullName falls back to the user name when no personal name is set.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.UserName
	}
}

type Task struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status,omitempty"`
	Priority     string `json:"priority,omitempty"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`
	SectionName  string `json:"sectionName,omitempty"`
	AssigneeName string `json:"assigneeName,omitempty"`
}

func (t Task) EntityID() int { return t.ID }
