package model

import (
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mbolis/survey-builder/fault"
)

const (
	MaxPagesPerSurvey   = 20
	MaxQuestionsPerPage = 50
)

type QuestionType string

const (
	Textbox        QuestionType = "textbox"
	MultipleChoice QuestionType = "multiple_choice"
	Checkbox       QuestionType = "checkbox"
	Dropdown       QuestionType = "dropdown"
)

func (t QuestionType) Valid() bool {
	switch t {
	case Textbox, MultipleChoice, Checkbox, Dropdown:
		return true
	}
	return false
}

// Choice reports whether the type carries options and a randomize flag.
func (t QuestionType) Choice() bool {
	return t.Valid() && t != Textbox
}

type Survey struct {
	ID        int       `json:"id,omitempty"`
	UserID    int       `json:"-"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	Pages     []Page    `json:"pages,omitempty"`
}

type Page struct {
	ID        int        `json:"id,omitempty"`
	SurveyID  int        `json:"surveyId,omitempty"`
	Number    int        `json:"number"`
	Questions []Question `json:"questions,omitempty"`
}

type Question struct {
	ID          int          `json:"id,omitempty"`
	SurveyID    int          `json:"surveyId,omitempty"`
	PageID      int          `json:"pageId,omitempty"`
	Number      int          `json:"number"`
	Type        QuestionType `json:"type"`
	Description string       `json:"description"`
	Required    bool         `json:"required"`
	Randomize   *bool        `json:"randomize,omitempty"`
	Options     []Option     `json:"options,omitempty"`
}

type Option struct {
	ID         int    `json:"id,omitempty"`
	QuestionID int    `json:"questionId,omitempty"`
	Number     int    `json:"number"`
	Text       string `json:"text"`
}

const (
	CollectorWebLink = "web_link"

	CollectorOpen   = "open"
	CollectorClosed = "closed"
)

type Collector struct {
	ID       int    `json:"id,omitempty"`
	SurveyID int    `json:"surveyId,omitempty"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	Slug     string `json:"slug,omitempty"`
}

type Response struct {
	ID          int       `json:"id,omitempty"`
	CollectorID int       `json:"collectorId,omitempty"`
	SurveyID    int       `json:"surveyId,omitempty"`
	IP          string    `json:"-"`
	Time        time.Time `json:"time"`
	Answers     []Answer  `json:"answers,omitempty"`
}

type Answer struct {
	ID         int `json:"id,omitempty"`
	ResponseID int `json:"responseId,omitempty"`
	QuestionID int `json:"questionId"`
	// Value holds the raw submitted value: a string for textbox, an option
	// id for single-choice types, a list of option ids for checkbox.
	Value any `json:"value"`
}

// Validate checks the structural rules for a question payload. All offending
// fields are reported at once.
func (q Question) Validate() error {
	var errs *multierror.Error

	if !q.Type.Valid() {
		errs = multierror.Append(errs, fault.Newf(fault.BadRequest, "unknown question type %q", q.Type))
	}
	if strings.TrimSpace(q.Description) == "" {
		errs = multierror.Append(errs, fault.New(fault.BadRequest, "question description is required"))
	}

	if q.Type == Textbox {
		if len(q.Options) > 0 {
			errs = multierror.Append(errs, fault.New(fault.BadRequest, "textbox question must not carry options"))
		}
		if q.Randomize != nil {
			errs = multierror.Append(errs, fault.New(fault.BadRequest, "textbox question must not carry randomize"))
		}
	}
	if q.Type.Choice() {
		if len(q.Options) == 0 {
			errs = multierror.Append(errs, fault.Newf(fault.BadRequest, "%s question requires at least one option", q.Type))
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt.Text) == "" {
				errs = multierror.Append(errs, fault.New(fault.BadRequest, "option text is required"))
				break
			}
		}
	}

	if errs != nil {
		return fault.Wrap(fault.BadRequest, "invalid question", errs.ErrorOrNil())
	}
	return nil
}
