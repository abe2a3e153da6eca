package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/model"
	"github.com/pkg/errors"
)

// CreateSurvey stores a new survey for the given owner. Every survey is born
// with page 1, so the at-least-one-page invariant holds from the start.
func CreateSurvey(ctx context.Context, db *sql.DB, userID int, in model.Survey) (survey model.Survey, err error) {
	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		now := time.Now()
		survey = in
		survey.UserID = userID
		survey.CreatedAt = now
		survey.UpdatedAt = now

		err := tx.QueryRowContext(ctx, `
			INSERT INTO survey (user_id, title, category, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			userID, survey.Title, survey.Category, now, now,
		).Scan(&survey.ID)
		if err != nil {
			return errors.Wrap(err, "insert survey")
		}

		page := model.Page{SurveyID: survey.ID, Number: 1}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO survey_page (survey_id, number) VALUES (?, 1)
			RETURNING id`,
			survey.ID,
		).Scan(&page.ID)
		if err != nil {
			return errors.Wrap(err, "insert first page")
		}

		survey.Pages = []model.Page{page}
		return nil
	})
	return survey, err
}

// GetSurvey loads a survey with its full page/question/option tree, all in
// number order.
func GetSurvey(ctx context.Context, db *sql.DB, surveyID int) (survey model.Survey, err error) {
	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		survey, err = getSurvey(ctx, tx, surveyID)
		return err
	})
	return survey, err
}

func getSurvey(ctx context.Context, tx *sql.Tx, surveyID int) (survey model.Survey, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, title, category, created_at, updated_at
		FROM survey
		WHERE id = ?`,
		surveyID,
	).Scan(&survey.ID, &survey.UserID, &survey.Title, &survey.Category, &survey.CreatedAt, &survey.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return survey, fault.NotFoundf("survey", surveyID)
	}
	if err != nil {
		return survey, errors.Wrap(err, "get survey")
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, survey_id, number
		FROM survey_page
		WHERE survey_id = ?
		ORDER BY number`,
		surveyID,
	)
	if err != nil {
		return survey, errors.Wrap(err, "get survey pages")
	}
	defer rows.Close()

	for rows.Next() {
		p := model.Page{}
		if err := rows.Scan(&p.ID, &p.SurveyID, &p.Number); err != nil {
			return survey, errors.Wrap(err, "get survey pages.scan")
		}
		survey.Pages = append(survey.Pages, p)
	}
	if err := rows.Err(); err != nil {
		return survey, err
	}

	for i := range survey.Pages {
		survey.Pages[i].Questions, err = getPageQuestions(ctx, tx, survey.Pages[i].ID)
		if err != nil {
			return survey, err
		}
	}
	return survey, nil
}

// ListSurveys returns the surveys owned by a user, without their trees.
func ListSurveys(ctx context.Context, db *sql.DB, userID int) ([]model.Survey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, title, category, created_at, updated_at
		FROM survey
		WHERE user_id = ?
		ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list surveys")
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		s := model.Survey{}
		err = rows.Scan(&s.ID, &s.UserID, &s.Title, &s.Category, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "list surveys.scan")
		}
		surveys = append(surveys, s)
	}
	return surveys, rows.Err()
}

// UpdateSurvey replaces a survey's title and category.
func UpdateSurvey(ctx context.Context, db *sql.DB, surveyID int, in model.Survey) (survey model.Survey, err error) {
	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE survey
			SET title = ?, category = ?, updated_at = ?
			WHERE id = ?`,
			in.Title, in.Category, time.Now(), surveyID,
		)
		if err != nil {
			return errors.Wrap(err, "update survey")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "update survey.verify")
		}
		if n < 1 {
			return fault.NotFoundf("survey", surveyID)
		}

		survey, err = getSurvey(ctx, tx, surveyID)
		return err
	})
	return survey, err
}

// DeleteSurvey removes a survey and everything underneath it, in foreign-key
// order: answers, responses, collectors, options, questions, pages, survey.
func DeleteSurvey(ctx context.Context, db *sql.DB, surveyID int) error {
	return database.Transact(ctx, db, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM response_answer
				WHERE response_id IN (SELECT id FROM response WHERE survey_id = ?)`,
			`DELETE FROM response WHERE survey_id = ?`,
			`DELETE FROM collector WHERE survey_id = ?`,
			`DELETE FROM question_option
				WHERE question_id IN (SELECT id FROM survey_question WHERE survey_id = ?)`,
			`DELETE FROM survey_question WHERE survey_id = ?`,
			`DELETE FROM survey_page WHERE survey_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, surveyID); err != nil {
				return errors.Wrap(err, "delete survey tree")
			}
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM survey WHERE id = ?`, surveyID)
		if err != nil {
			return errors.Wrap(err, "delete survey")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "delete survey.verify")
		}
		if n < 1 {
			return fault.NotFoundf("survey", surveyID)
		}
		return nil
	})
}

// SurveyOwner reports the owning user of a survey.
func SurveyOwner(ctx context.Context, db *sql.DB, surveyID int) (userID int, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT user_id FROM survey WHERE id = ?`,
		surveyID,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fault.NotFoundf("survey", surveyID)
	}
	return userID, errors.Wrap(err, "survey owner")
}
