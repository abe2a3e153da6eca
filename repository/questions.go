package repository

import (
	"context"
	"database/sql"

	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/ordering"
	"github.com/pkg/errors"
)

// AddQuestion creates a question at the end of a page. Question numbers are
// survey-wide: an empty page picks up right after the last question found on
// any earlier page, and every later question shifts up to make room.
func AddQuestion(ctx context.Context, db *sql.DB, surveyID, pageID int, in model.Question) (question model.Question, err error) {
	if err := in.Validate(); err != nil {
		return question, err
	}

	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		page, err := getPage(ctx, tx, surveyID, pageID)
		if err != nil {
			return err
		}

		n, err := countPageQuestions(ctx, tx, pageID)
		if err != nil {
			return err
		}
		if n >= model.MaxQuestionsPerPage {
			return fault.Newf(fault.BadRequest, "page cannot hold more than %d questions", model.MaxQuestionsPerPage)
		}

		var last int
		if n == 0 {
			last, err = lastQuestionBefore(ctx, tx, surveyID, page.Number, 0)
		} else {
			err = tx.QueryRowContext(ctx, `
				SELECT MAX(number) FROM survey_question WHERE page_id = ?`,
				pageID,
			).Scan(&last)
		}
		if err != nil {
			return errors.Wrap(err, "resolve question number")
		}

		plan := ordering.Insert(last+1, 1)
		if err := applyShifts(ctx, tx, "survey_question", surveyID, plan.Shifts); err != nil {
			return err
		}

		question = in
		question.SurveyID = surveyID
		question.PageID = pageID
		question.Number = plan.Start
		err = tx.QueryRowContext(ctx, `
			INSERT INTO survey_question (survey_id, page_id, number, type, description, required, randomize)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			surveyID, pageID, question.Number, question.Type, question.Description, question.Required, question.Randomize,
		).Scan(&question.ID)
		if err != nil {
			return errors.Wrap(err, "insert question")
		}

		question.Options, err = insertOptions(ctx, tx, question.ID, in.Options)
		if err != nil {
			return err
		}

		return touchSurvey(ctx, tx, surveyID)
	})
	return question, err
}

// UpdateQuestion replaces a question's description, type, required and
// randomize flags, and reconciles its options: options missing from the
// incoming set are deleted, the rest are upserted. No renumbering happens.
func UpdateQuestion(ctx context.Context, db *sql.DB, surveyID int, in model.Question) (question model.Question, err error) {
	if err := in.Validate(); err != nil {
		return question, err
	}

	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		if _, err := getQuestion(ctx, tx, surveyID, in.ID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE survey_question
			SET type = ?, description = ?, required = ?, randomize = ?
			WHERE id = ?`,
			in.Type, in.Description, in.Required, in.Randomize, in.ID,
		)
		if err != nil {
			return errors.Wrap(err, "update question")
		}

		existing, err := getQuestionOptions(ctx, tx, in.ID)
		if err != nil {
			return err
		}
		keep := make(map[int]bool, len(in.Options))
		for _, o := range in.Options {
			if o.ID != 0 {
				keep[o.ID] = true
			}
		}
		for _, o := range existing {
			if !keep[o.ID] {
				_, err = tx.ExecContext(ctx, `
					DELETE FROM question_option WHERE id = ?`, o.ID)
				if err != nil {
					return errors.Wrap(err, "delete stale option")
				}
			}
		}
		for i, o := range in.Options {
			if o.ID != 0 {
				_, err = tx.ExecContext(ctx, `
					UPDATE question_option SET number = ?, text = ? WHERE id = ? AND question_id = ?`,
					i+1, o.Text, o.ID, in.ID,
				)
			} else {
				_, err = tx.ExecContext(ctx, `
					INSERT INTO question_option (question_id, number, text) VALUES (?, ?, ?)`,
					in.ID, i+1, o.Text,
				)
			}
			if err != nil {
				return errors.Wrap(err, "upsert option")
			}
		}

		if err := touchSurvey(ctx, tx, surveyID); err != nil {
			return err
		}

		question, err = getQuestion(ctx, tx, surveyID, in.ID)
		if err != nil {
			return err
		}
		question.Options, err = getQuestionOptions(ctx, tx, in.ID)
		return err
	})
	return question, err
}

// DeleteQuestion removes a question with its answers and options, and closes
// the gap in the survey-wide numbering. Returns the question's prior state.
func DeleteQuestion(ctx context.Context, db *sql.DB, surveyID, questionID int) (question model.Question, err error) {
	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		question, err = getQuestion(ctx, tx, surveyID, questionID)
		if err != nil {
			return err
		}
		question.Options, err = getQuestionOptions(ctx, tx, questionID)
		if err != nil {
			return err
		}

		if err := deleteQuestionRows(ctx, tx, []int{questionID}); err != nil {
			return err
		}

		plan := ordering.Remove(question.Number, 1)
		if err := applyShifts(ctx, tx, "survey_question", surveyID, plan.Shifts); err != nil {
			return err
		}

		return touchSurvey(ctx, tx, surveyID)
	})
	return question, err
}

// MoveQuestion relocates a question next to a target question, reassigning
// it to the target's page. Numbering is survey-wide, so the move works the
// same within a page and across pages.
func MoveQuestion(ctx context.Context, db *sql.DB, surveyID, questionID, targetQuestionID, pageID int, pos ordering.Position) (question model.Question, err error) {
	if !pos.Valid() {
		return question, fault.Newf(fault.BadRequest, "invalid position %q", pos)
	}

	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		src, err := getQuestion(ctx, tx, surveyID, questionID)
		if err != nil {
			return err
		}
		tgt, err := getQuestion(ctx, tx, surveyID, targetQuestionID)
		if err != nil {
			return err
		}
		if tgt.PageID != pageID {
			return fault.Newf(fault.BadRequest, "question %d does not belong to page %d", targetQuestionID, pageID)
		}

		at := ordering.ResolveInsert(tgt.Number, pos)
		plan, moved := ordering.Move(src.Number, 1, at)
		if moved {
			if err := applyShifts(ctx, tx, "survey_question", surveyID, plan.Shifts); err != nil {
				return err
			}
		}
		// The page assignment may change even when the numbers do not.
		_, err = tx.ExecContext(ctx, `
			UPDATE survey_question SET number = ?, page_id = ? WHERE id = ?`,
			plan.Start, tgt.PageID, questionID,
		)
		if err != nil {
			return errors.Wrap(err, "renumber question")
		}

		if err := touchSurvey(ctx, tx, surveyID); err != nil {
			return err
		}

		question, err = getQuestion(ctx, tx, surveyID, questionID)
		if err != nil {
			return err
		}
		question.Options, err = getQuestionOptions(ctx, tx, questionID)
		return err
	})
	return question, err
}

// CopyQuestion duplicates a question (with options) next to a target
// question on the target's page.
func CopyQuestion(ctx context.Context, db *sql.DB, surveyID, questionID, targetQuestionID, pageID int, pos ordering.Position) (question model.Question, err error) {
	if !pos.Valid() {
		return question, fault.Newf(fault.BadRequest, "invalid position %q", pos)
	}

	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		src, err := getQuestion(ctx, tx, surveyID, questionID)
		if err != nil {
			return err
		}
		src.Options, err = getQuestionOptions(ctx, tx, questionID)
		if err != nil {
			return err
		}
		tgt, err := getQuestion(ctx, tx, surveyID, targetQuestionID)
		if err != nil {
			return err
		}
		if tgt.PageID != pageID {
			return fault.Newf(fault.BadRequest, "question %d does not belong to page %d", targetQuestionID, pageID)
		}

		n, err := countPageQuestions(ctx, tx, pageID)
		if err != nil {
			return err
		}
		if n >= model.MaxQuestionsPerPage {
			return fault.Newf(fault.BadRequest, "page cannot hold more than %d questions", model.MaxQuestionsPerPage)
		}

		plan := ordering.Insert(ordering.ResolveInsert(tgt.Number, pos), 1)
		if err := applyShifts(ctx, tx, "survey_question", surveyID, plan.Shifts); err != nil {
			return err
		}

		question = src
		question.PageID = tgt.PageID
		question.Number = plan.Start
		err = tx.QueryRowContext(ctx, `
			INSERT INTO survey_question (survey_id, page_id, number, type, description, required, randomize)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			surveyID, question.PageID, question.Number, question.Type, question.Description, question.Required, question.Randomize,
		).Scan(&question.ID)
		if err != nil {
			return errors.Wrap(err, "insert question copy")
		}

		question.Options, err = insertOptions(ctx, tx, question.ID, src.Options)
		if err != nil {
			return err
		}

		return touchSurvey(ctx, tx, surveyID)
	})
	return question, err
}
