package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/model"
	"github.com/pkg/errors"
)

// Submission is one page worth of answers coming in through a collector.
// UpdatedAt is the survey stamp the responder read when the form was served:
// a structural change since then is a conflict.
type Submission struct {
	PageID    int            `json:"pageId"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Answers   []model.Answer `json:"answers"`
}

// CollectorSurvey loads the survey behind an open collector, as served to
// responders.
func CollectorSurvey(ctx context.Context, db *sql.DB, slug string) (survey model.Survey, err error) {
	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		collector, err := getCollectorBySlug(ctx, tx, slug)
		if err != nil {
			return err
		}
		if collector.Status != model.CollectorOpen {
			return fault.New(fault.Unauthorized, "collector is closed")
		}

		survey, err = getSurvey(ctx, tx, collector.SurveyID)
		return err
	})
	return survey, err
}

// SubmitResponse validates and stores one page of answers. The collector
// must be open, the survey structure unchanged since the responder read it,
// and every question on the page satisfied by its answer.
func SubmitResponse(ctx context.Context, db *sql.DB, slug, ip string, in Submission) (response model.Response, err error) {
	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		collector, err := getCollectorBySlug(ctx, tx, slug)
		if err != nil {
			return err
		}
		if collector.Status != model.CollectorOpen {
			return fault.New(fault.Unauthorized, "collector is closed")
		}

		survey, err := getSurvey(ctx, tx, collector.SurveyID)
		if err != nil {
			return err
		}
		if !survey.UpdatedAt.Equal(in.UpdatedAt) {
			return fault.New(fault.Conflict, "survey changed since the form was loaded")
		}

		page, err := getPage(ctx, tx, collector.SurveyID, in.PageID)
		if err != nil {
			return err
		}
		questions, err := getPageQuestions(ctx, tx, page.ID)
		if err != nil {
			return err
		}

		var completed bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM response
				WHERE collector_id = ?
					AND ip = ?
			)`,
			collector.ID, ip,
		).Scan(&completed)
		if err != nil {
			return errors.Wrap(err, "check prior response")
		}
		if completed {
			return fault.New(fault.Unauthorized, "collector already completed")
		}

		byQuestion := make(map[int]model.Answer, len(in.Answers))
		for _, a := range in.Answers {
			byQuestion[a.QuestionID] = a
		}
		for _, q := range questions {
			answer, ok := byQuestion[q.ID]
			if err := validateAnswer(q, answer, ok); err != nil {
				return err
			}
		}

		response = model.Response{
			CollectorID: collector.ID,
			SurveyID:    collector.SurveyID,
			IP:          ip,
			Time:        time.Now(),
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO response (collector_id, survey_id, ip, time)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			response.CollectorID, response.SurveyID, response.IP, response.Time,
		).Scan(&response.ID)
		if err != nil {
			return errors.Wrap(err, "insert response")
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO response_answer (response_id, question_id, value)
			VALUES (?, ?, ?)
			RETURNING id`)
		if err != nil {
			return errors.Wrap(err, "insert answers.prepare")
		}
		defer stmt.Close()

		for _, q := range questions {
			a, ok := byQuestion[q.ID]
			if !ok || a.Value == nil {
				continue
			}
			value, err := json.Marshal(a.Value)
			if err != nil {
				return errors.Wrap(err, "insert answers.encode")
			}
			a.ResponseID = response.ID
			err = stmt.QueryRowContext(ctx, response.ID, q.ID, string(value)).Scan(&a.ID)
			if err != nil {
				return errors.Wrap(err, "insert answers")
			}
			response.Answers = append(response.Answers, a)
		}
		return nil
	})
	return response, err
}

// validateAnswer applies the per-type answer rules: textbox wants non-blank
// text when required, choice types want answers referencing existing option
// ids, checkbox wants at least one selection when required.
func validateAnswer(q model.Question, a model.Answer, present bool) error {
	switch q.Type {
	case model.Textbox:
		text, _ := a.Value.(string)
		if q.Required && strings.TrimSpace(text) == "" {
			return fault.Newf(fault.BadRequest, "question %d requires an answer", q.ID)
		}
		if present && a.Value != nil {
			if _, ok := a.Value.(string); !ok {
				return fault.Newf(fault.BadRequest, "question %d expects a text answer", q.ID)
			}
		}

	case model.MultipleChoice, model.Dropdown:
		if !present || a.Value == nil {
			if q.Required {
				return fault.Newf(fault.BadRequest, "question %d requires an answer", q.ID)
			}
			return nil
		}
		id, ok := optionID(a.Value)
		if !ok || !hasOption(q, id) {
			return fault.Newf(fault.BadRequest, "question %d answer references an unknown option", q.ID)
		}

	case model.Checkbox:
		ids, ok := optionIDs(a.Value)
		if present && a.Value != nil && !ok {
			return fault.Newf(fault.BadRequest, "question %d expects a list of option ids", q.ID)
		}
		if q.Required && len(ids) == 0 {
			return fault.Newf(fault.BadRequest, "question %d requires at least one selection", q.ID)
		}
		for _, id := range ids {
			if !hasOption(q, id) {
				return fault.Newf(fault.BadRequest, "question %d answer references an unknown option", q.ID)
			}
		}
	}
	return nil
}

// optionID coerces a decoded JSON value into an option id.
func optionID(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func optionIDs(v any) ([]int, bool) {
	if v == nil {
		return nil, true
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	ids := make([]int, len(list))
	for i, item := range list {
		id, ok := optionID(item)
		if !ok {
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

func hasOption(q model.Question, id int) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}
