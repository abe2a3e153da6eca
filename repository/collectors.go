package repository

import (
	"context"
	"database/sql"

	"github.com/gofrs/uuid"
	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/model"
	"github.com/pkg/errors"
)

// CreateCollector opens a new web-link distribution channel for a survey.
func CreateCollector(ctx context.Context, db *sql.DB, surveyID int) (collector model.Collector, err error) {
	slug, err := uuid.NewV4()
	if err != nil {
		return collector, errors.Wrap(err, "collector slug")
	}

	collector = model.Collector{
		SurveyID: surveyID,
		Type:     model.CollectorWebLink,
		Status:   model.CollectorOpen,
		Slug:     slug.String(),
	}
	err = db.QueryRowContext(ctx, `
		INSERT INTO collector (survey_id, type, status, slug)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		surveyID, collector.Type, collector.Status, collector.Slug,
	).Scan(&collector.ID)
	return collector, errors.Wrap(err, "insert collector")
}

// ListCollectors returns a survey's collectors.
func ListCollectors(ctx context.Context, db *sql.DB, surveyID int) ([]model.Collector, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, survey_id, type, status, slug
		FROM collector
		WHERE survey_id = ?
		ORDER BY id`,
		surveyID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list collectors")
	}
	defer rows.Close()

	collectors := []model.Collector{}
	for rows.Next() {
		c := model.Collector{}
		err = rows.Scan(&c.ID, &c.SurveyID, &c.Type, &c.Status, &c.Slug)
		if err != nil {
			return nil, errors.Wrap(err, "list collectors.scan")
		}
		collectors = append(collectors, c)
	}
	return collectors, rows.Err()
}

// UpdateCollectorStatus opens or closes a collector.
func UpdateCollectorStatus(ctx context.Context, db *sql.DB, surveyID, collectorID int, status string) (collector model.Collector, err error) {
	if status != model.CollectorOpen && status != model.CollectorClosed {
		return collector, fault.Newf(fault.BadRequest, "invalid collector status %q", status)
	}

	err = database.Transact(ctx, db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE collector
			SET status = ?
			WHERE id = ?
				AND survey_id = ?`,
			status, collectorID, surveyID,
		)
		if err != nil {
			return errors.Wrap(err, "update collector")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "update collector.verify")
		}
		if n < 1 {
			return fault.NotFoundf("collector", collectorID)
		}

		err = tx.QueryRowContext(ctx, `
			SELECT id, survey_id, type, status, slug
			FROM collector
			WHERE id = ?`,
			collectorID,
		).Scan(&collector.ID, &collector.SurveyID, &collector.Type, &collector.Status, &collector.Slug)
		return errors.Wrap(err, "get collector")
	})
	return collector, err
}

// DeleteCollector removes a collector with its response history.
func DeleteCollector(ctx context.Context, db *sql.DB, surveyID, collectorID int) error {
	return database.Transact(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM response_answer
			WHERE response_id IN (SELECT id FROM response WHERE collector_id = ?)`,
			collectorID,
		)
		if err != nil {
			return errors.Wrap(err, "delete collector answers")
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM response WHERE collector_id = ?`, collectorID)
		if err != nil {
			return errors.Wrap(err, "delete collector responses")
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM collector
			WHERE id = ?
				AND survey_id = ?`,
			collectorID, surveyID,
		)
		if err != nil {
			return errors.Wrap(err, "delete collector")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "delete collector.verify")
		}
		if n < 1 {
			return fault.NotFoundf("collector", collectorID)
		}
		return nil
	})
}

func getCollectorBySlug(ctx context.Context, tx *sql.Tx, slug string) (c model.Collector, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT id, survey_id, type, status, slug
		FROM collector
		WHERE slug = ?`,
		slug,
	).Scan(&c.ID, &c.SurveyID, &c.Type, &c.Status, &c.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		err = fault.NotFoundf("collector", slug)
	}
	return c, errors.Wrap(err, "get collector")
}
