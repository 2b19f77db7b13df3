package backend

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"cleantech-console/internal/domain"
	"cleantech-console/internal/validation"

	"github.com/go-resty/resty/v2"
)

// Questions adds the multipart and assignment calls of the question resource.
type Questions struct {
	*Resource[domain.Question]
}

func NewQuestions(c *Client) *Questions {
	return &Questions{Resource: NewResource[domain.Question](c, "question")}
}

func (q *Questions) CreateWithImage(ctx context.Context, form domain.QuestionForm) error {
	return q.submit(ctx, http.MethodPost, q.path+"/create", form)
}

func (q *Questions) UpdateWithImage(ctx context.Context, form domain.QuestionForm) error {
	return q.submit(ctx, http.MethodPut, q.path+"/edit", form)
}

func (q *Questions) submit(ctx context.Context, method, path string, form domain.QuestionForm) error {
	if err := validation.Struct(form); err != nil {
		return err
	}
	fields := map[string]string{
		"NameEn": form.NameEn,
		"NameAr": form.NameAr,
		"Type":   string(form.Type),
	}
	if form.ID > 0 {
		fields["Id"] = strconv.Itoa(form.ID)
	}
	_, err := do[any](ctx, q.c, method, path, func(r *resty.Request) {
		r.SetMultipartFormData(fields)
		if len(form.Image) > 0 {
			name := form.ImageName
			if name == "" {
				name = "image"
			}
			r.SetFileReader("Image", name, bytes.NewReader(form.Image))
		}
	})
	return err
}

// Assign binds questions to a section or to a point.
func (q *Questions) Assign(ctx context.Context, a domain.QuestionAssignment) error {
	if err := validation.Struct(a); err != nil {
		return err
	}
	path := q.path + "/assign/section"
	var body any = struct {
		SectionID   int   `json:"sectionId"`
		QuestionIDs []int `json:"questionIds"`
	}{a.SectionID, a.QuestionIDs}
	if a.PointID > 0 {
		path = q.path + "/assign/point"
		body = struct {
			PointID     int   `json:"pointId"`
			QuestionIDs []int `json:"questionIds"`
		}{a.PointID, a.QuestionIDs}
	}
	_, err := do[any](ctx, q.c, http.MethodPost, path, jsonBody(body))
	return err
}
