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

// CreatePage appends an empty page to the survey.
func CreatePage(ctx context.Context, db *sql.DB, surveyID int) (page model.Page, err error) {
	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		n, err := countPages(ctx, tx, surveyID)
		if err != nil {
			return err
		}
		if n >= model.MaxPagesPerSurvey {
			return fault.Newf(fault.MaxPagesExceeded, "survey cannot hold more than %d pages", model.MaxPagesPerSurvey)
		}

		plan := ordering.Append(n, 1)
		page = model.Page{SurveyID: surveyID, Number: plan.Start}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO survey_page (survey_id, number) VALUES (?, ?)
			RETURNING id`,
			surveyID, page.Number,
		).Scan(&page.ID)
		if err != nil {
			return errors.Wrap(err, "insert page")
		}

		return touchSurvey(ctx, tx, surveyID)
	})
	return page, err
}

// DeletePage removes a page with all of its questions, closing the gap in
// both the page sequence and the survey-wide question sequence. The survey's
// last page cannot be deleted. Returns the page's prior state.
func DeletePage(ctx context.Context, db *sql.DB, surveyID, pageID int) (page model.Page, err error) {
	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		page, err = getPage(ctx, tx, surveyID, pageID)
		if err != nil {
			return err
		}

		n, err := countPages(ctx, tx, surveyID)
		if err != nil {
			return err
		}
		if n == 1 {
			return fault.New(fault.BadRequest, "survey must have at least one page")
		}

		page.Questions, err = getPageQuestions(ctx, tx, pageID)
		if err != nil {
			return err
		}
		firstQ, k, err := questionSpan(ctx, tx, pageID)
		if err != nil {
			return err
		}

		ids := make([]int, len(page.Questions))
		for i, q := range page.Questions {
			ids[i] = q.ID
		}
		if err := deleteQuestionRows(ctx, tx, ids); err != nil {
			return err
		}
		if k > 0 {
			plan := ordering.Remove(firstQ, k)
			if err := applyShifts(ctx, tx, "survey_question", surveyID, plan.Shifts); err != nil {
				return err
			}
		}

		plan := ordering.Remove(page.Number, 1)
		if err := applyShifts(ctx, tx, "survey_page", surveyID, plan.Shifts); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM survey_page WHERE id = ?`, pageID)
		if err != nil {
			return errors.Wrap(err, "delete page")
		}

		return touchSurvey(ctx, tx, surveyID)
	})
	return page, err
}

// MovePage relocates a page relative to a target page of the same survey.
// The page's question block follows: it is re-anchored after the last
// question of whatever precedes the page in its new position (start of
// survey when nothing does), and the displaced question range shifts to
// close the gap. Pages without questions never touch question numbering.
func MovePage(ctx context.Context, db *sql.DB, surveyID, pageID, targetPageID int, pos ordering.Position) (page model.Page, err error) {
	if !pos.Valid() {
		return page, fault.Newf(fault.BadRequest, "invalid position %q", pos)
	}

	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		src, err := getPage(ctx, tx, surveyID, pageID)
		if err != nil {
			return err
		}
		tgt, err := getPage(ctx, tx, surveyID, targetPageID)
		if err != nil {
			return err
		}

		at := ordering.ResolveInsert(tgt.Number, pos)
		plan, moved := ordering.Move(src.Number, 1, at)
		if !moved {
			page = src
			page.Questions, err = getPageQuestions(ctx, tx, pageID)
			return err
		}

		// Snapshot everything the question cascade needs before any write.
		firstQ, k, err := questionSpan(ctx, tx, pageID)
		if err != nil {
			return err
		}
		anchor, err := lastQuestionBefore(ctx, tx, surveyID, at, pageID)
		if err != nil {
			return err
		}

		if err := applyShifts(ctx, tx, "survey_page", surveyID, plan.Shifts); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE survey_page SET number = ? WHERE id = ?`,
			plan.Start, pageID,
		)
		if err != nil {
			return errors.Wrap(err, "renumber page")
		}

		if k > 0 {
			qPlan, qMoved := ordering.Move(firstQ, k, anchor+1)
			if qMoved {
				if err := applyShifts(ctx, tx, "survey_question", surveyID, qPlan.Shifts); err != nil {
					return err
				}
				_, err = tx.ExecContext(ctx, `
					UPDATE survey_question
					SET number = number - ? + ?
					WHERE page_id = ?`,
					firstQ, qPlan.Start, pageID,
				)
				if err != nil {
					return errors.Wrap(err, "renumber page questions")
				}
			}
		}

		if err := touchSurvey(ctx, tx, surveyID); err != nil {
			return err
		}

		page, err = getPage(ctx, tx, surveyID, pageID)
		if err != nil {
			return err
		}
		page.Questions, err = getPageQuestions(ctx, tx, pageID)
		return err
	})
	return page, err
}

// CopyPage duplicates a page with all of its questions and options next to a
// target page. The copy starts with no response history.
func CopyPage(ctx context.Context, db *sql.DB, surveyID, pageID, targetPageID int, pos ordering.Position) (page model.Page, err error) {
	if !pos.Valid() {
		return page, fault.Newf(fault.BadRequest, "invalid position %q", pos)
	}

	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		src, err := getPage(ctx, tx, surveyID, pageID)
		if err != nil {
			return err
		}
		tgt, err := getPage(ctx, tx, surveyID, targetPageID)
		if err != nil {
			return err
		}

		n, err := countPages(ctx, tx, surveyID)
		if err != nil {
			return err
		}
		if n >= model.MaxPagesPerSurvey {
			return fault.Newf(fault.MaxPagesExceeded, "survey cannot hold more than %d pages", model.MaxPagesPerSurvey)
		}

		questions, err := getPageQuestions(ctx, tx, src.ID)
		if err != nil {
			return err
		}

		at := ordering.ResolveInsert(tgt.Number, pos)
		anchor, err := lastQuestionBefore(ctx, tx, surveyID, at, 0)
		if err != nil {
			return err
		}

		plan := ordering.Insert(at, 1)
		if err := applyShifts(ctx, tx, "survey_page", surveyID, plan.Shifts); err != nil {
			return err
		}
		page = model.Page{SurveyID: surveyID, Number: plan.Start}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO survey_page (survey_id, number) VALUES (?, ?)
			RETURNING id`,
			surveyID, page.Number,
		).Scan(&page.ID)
		if err != nil {
			return errors.Wrap(err, "insert page copy")
		}

		if len(questions) > 0 {
			qPlan := ordering.Insert(anchor+1, len(questions))
			if err := applyShifts(ctx, tx, "survey_question", surveyID, qPlan.Shifts); err != nil {
				return err
			}

			for i, q := range questions {
				dup := q
				dup.PageID = page.ID
				dup.Number = qPlan.Start + i
				err = tx.QueryRowContext(ctx, `
					INSERT INTO survey_question (survey_id, page_id, number, type, description, required, randomize)
					VALUES (?, ?, ?, ?, ?, ?, ?)
					RETURNING id`,
					surveyID, dup.PageID, dup.Number, dup.Type, dup.Description, dup.Required, dup.Randomize,
				).Scan(&dup.ID)
				if err != nil {
					return errors.Wrap(err, "insert question copy")
				}
				dup.Options, err = insertOptions(ctx, tx, dup.ID, q.Options)
				if err != nil {
					return err
				}
				page.Questions = append(page.Questions, dup)
			}
		}

		return touchSurvey(ctx, tx, surveyID)
	})
	return page, err
}
