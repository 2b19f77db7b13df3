package domain

// QuestionType is how a feedback device renders the question.
type QuestionType string

const (
	QuestionRating   QuestionType = "Rating"
	QuestionChoice   QuestionType = "Choice"
	QuestionTextarea QuestionType = "Textarea"
)

type Question struct {
	ID       int          `json:"id"`
	NameEn   string       `json:"nameEn"`
	NameAr   string       `json:"nameAr,omitempty"`
	Type     QuestionType `json:"type"`
	Image    string       `json:"image,omitempty"`
	IsShown  bool         `json:"isShown"`
	Sections []string     `json:"sections,omitempty"`
}

func (q Question) EntityID() int { return q.ID }

// QuestionForm is submitted as multipart so an image can travel with it.
// ID is zero on create.
type QuestionForm struct {
	ID     int          `json:"id,omitempty"`
	NameEn string       `json:"nameEn" validate:"required,max=500"`
	NameAr string       `json:"nameAr" validate:"max=500"`
	Type   QuestionType `json:"type" validate:"required,oneof=Rating Choice Textarea"`

	ImageName string `json:"-"`
	Image     []byte `json:"-"`
}

// QuestionAssignment binds questions to exactly one of a section or a point.
type QuestionAssignment struct {
	SectionID   int   `json:"sectionId,omitempty" validate:"required_without=PointID,excluded_with=PointID"`
	PointID     int   `json:"pointId,omitempty" validate:"required_without=SectionID"`
	QuestionIDs []int `json:"questionIds" validate:"required,min=1,dive,gt=0"`
}
