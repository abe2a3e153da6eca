// Package repository holds the persistence side of the survey domain. Every
// structural mutation (page/question create, delete, move, copy) runs inside
// one serializable transaction: reads first, range shifts next, the entity
// mutation after that, and the survey timestamp bump last.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/ordering"
	"github.com/pkg/errors"
)

// applyShifts renumbers ranges of the given table ("survey_page" or
// "survey_question") for one survey. Shift ranges never overlap the moved
// block, so plain range updates are safe.
func applyShifts(ctx context.Context, tx *sql.Tx, table string, surveyID int, shifts []ordering.Shift) error {
	for _, s := range shifts {
		var err error
		if s.To == ordering.NoBound {
			_, err = tx.ExecContext(ctx, `
				UPDATE `+table+`
				SET number = number + ?
				WHERE survey_id = ?
					AND number >= ?`,
				s.By, surveyID, s.From,
			)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE `+table+`
				SET number = number + ?
				WHERE survey_id = ?
					AND number >= ?
					AND number < ?`,
				s.By, surveyID, s.From, s.To,
			)
		}
		if err != nil {
			return errors.Wrap(err, "shift "+table)
		}
	}
	return nil
}

// touchSurvey bumps the survey's logical version stamp. Response submission
// checks it to detect structural changes under the responder's feet.
func touchSurvey(ctx context.Context, tx *sql.Tx, surveyID int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE survey
		SET updated_at = ?
		WHERE id = ?`,
		time.Now(), surveyID,
	)
	return errors.Wrap(err, "touch survey")
}

// getPage resolves a page by id within a survey. A page belonging to another
// survey is reported as missing.
func getPage(ctx context.Context, tx *sql.Tx, surveyID, pageID int) (p model.Page, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT id, survey_id, number
		FROM survey_page
		WHERE id = ?
			AND survey_id = ?`,
		pageID, surveyID,
	).Scan(&p.ID, &p.SurveyID, &p.Number)
	if errors.Is(err, sql.ErrNoRows) {
		err = fault.NotFoundf("page", pageID)
	}
	return p, errors.Wrap(err, "get page")
}

// getQuestion resolves a question by id. A question that exists but belongs
// to a different survey is a belongs-to violation, not a not-found.
func getQuestion(ctx context.Context, tx *sql.Tx, surveyID, questionID int) (q model.Question, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT id, survey_id, page_id, number, type, description, required, randomize
		FROM survey_question
		WHERE id = ?`,
		questionID,
	).Scan(&q.ID, &q.SurveyID, &q.PageID, &q.Number, &q.Type, &q.Description, &q.Required, &q.Randomize)
	if errors.Is(err, sql.ErrNoRows) {
		return q, fault.NotFoundf("question", questionID)
	}
	if err != nil {
		return q, errors.Wrap(err, "get question")
	}
	if q.SurveyID != surveyID {
		return q, fault.Newf(fault.BadRequest, "question %d does not belong to survey %d", questionID, surveyID)
	}
	return q, nil
}

func getQuestionOptions(ctx context.Context, tx *sql.Tx, questionID int) ([]model.Option, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, question_id, number, text
		FROM question_option
		WHERE question_id = ?
		ORDER BY number`,
		questionID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get options")
	}
	defer rows.Close()

	var opts []model.Option
	for rows.Next() {
		o := model.Option{}
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Number, &o.Text); err != nil {
			return nil, errors.Wrap(err, "get options.scan")
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// getPageQuestions loads a page's questions with options, in number order.
func getPageQuestions(ctx context.Context, tx *sql.Tx, pageID int) ([]model.Question, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, survey_id, page_id, number, type, description, required, randomize
		FROM survey_question
		WHERE page_id = ?
		ORDER BY number`,
		pageID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get page questions")
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q := model.Question{}
		err = rows.Scan(&q.ID, &q.SurveyID, &q.PageID, &q.Number, &q.Type, &q.Description, &q.Required, &q.Randomize)
		if err != nil {
			return nil, errors.Wrap(err, "get page questions.scan")
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		if questions[i].Type.Choice() {
			questions[i].Options, err = getQuestionOptions(ctx, tx, questions[i].ID)
			if err != nil {
				return nil, err
			}
		}
	}
	return questions, nil
}

// questionSpan reports the first question number and question count of a
// page. first is 0 when the page is empty.
func questionSpan(ctx context.Context, tx *sql.Tx, pageID int) (first, count int, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MIN(number), 0), COUNT(*)
		FROM survey_question
		WHERE page_id = ?`,
		pageID,
	).Scan(&first, &count)
	return first, count, errors.Wrap(err, "question span")
}

// lastQuestionBefore returns the greatest question number on pages of the
// survey whose page number is lower than the given one, excluding a page.
// Returns 0 when no such question exists.
func lastQuestionBefore(ctx context.Context, tx *sql.Tx, surveyID, pageNumber, excludePageID int) (last int, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(q.number), 0)
		FROM survey_question q
		INNER JOIN survey_page p ON (q.page_id = p.id)
		WHERE q.survey_id = ?
			AND p.number < ?
			AND p.id != ?`,
		surveyID, pageNumber, excludePageID,
	).Scan(&last)
	return last, errors.Wrap(err, "last question before page")
}

func countPages(ctx context.Context, tx *sql.Tx, surveyID int) (n int, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM survey_page WHERE survey_id = ?`,
		surveyID,
	).Scan(&n)
	return n, errors.Wrap(err, "count pages")
}

func countPageQuestions(ctx context.Context, tx *sql.Tx, pageID int) (n int, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM survey_question WHERE page_id = ?`,
		pageID,
	).Scan(&n)
	return n, errors.Wrap(err, "count page questions")
}

func insertOptions(ctx context.Context, tx *sql.Tx, questionID int, opts []model.Option) ([]model.Option, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question_option (question_id, number, text)
		VALUES (?, ?, ?)
		RETURNING id`)
	if err != nil {
		return nil, errors.Wrap(err, "insert options.prepare")
	}
	defer stmt.Close()

	out := make([]model.Option, len(opts))
	for i, o := range opts {
		o.QuestionID = questionID
		o.Number = i + 1
		err = stmt.QueryRowContext(ctx, questionID, o.Number, o.Text).Scan(&o.ID)
		if err != nil {
			return nil, errors.Wrap(err, "insert options")
		}
		out[i] = o
	}
	return out, nil
}

// deleteQuestionRows removes a set of questions with their referential
// baggage in foreign-key order: answers first, then options, then the rows.
func deleteQuestionRows(ctx context.Context, tx *sql.Tx, questionIDs []int) error {
	for _, id := range questionIDs {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM response_answer WHERE question_id = ?`, id)
		if err != nil {
			return errors.Wrap(err, "delete answers")
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM question_option WHERE question_id = ?`, id)
		if err != nil {
			return errors.Wrap(err, "delete options")
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM survey_question WHERE id = ?`, id)
		if err != nil {
			return errors.Wrap(err, "delete question")
		}
	}
	return nil
}
