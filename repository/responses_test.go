package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/model"
	"github.com/stretchr/testify/require"
)

// collectedSurvey builds a one-page survey with a required textbox and a
// required multiple-choice question, plus an open collector.
func collectedSurvey(t *testing.T, db *sql.DB) (model.Survey, model.Collector, model.Question, model.Question) {
	t.Helper()
	ctx := context.Background()

	survey := seedSurvey(t, db)
	text, err := AddQuestion(ctx, db, survey.ID, survey.Pages[0].ID, model.Question{
		Type:        model.Textbox,
		Description: "your name",
		Required:    true,
	})
	require.NoError(t, err)
	choice, err := AddQuestion(ctx, db, survey.ID, survey.Pages[0].ID, model.Question{
		Type:        model.MultipleChoice,
		Description: "your pick",
		Required:    true,
		Options:     []model.Option{{Text: "a"}, {Text: "b"}},
	})
	require.NoError(t, err)

	collector, err := CreateCollector(ctx, db, survey.ID)
	require.NoError(t, err)

	// Re-read for the current updated_at stamp.
	survey, err = GetSurvey(ctx, db, survey.ID)
	require.NoError(t, err)

	return survey, collector, text, choice
}

func TestSubmitResponse(t *testing.T) {
	db := openTestDB(t)
	survey, collector, text, choice := collectedSurvey(t, db)

	response, err := SubmitResponse(context.Background(), db, collector.Slug, "10.0.0.1", Submission{
		PageID:    survey.Pages[0].ID,
		UpdatedAt: survey.UpdatedAt,
		Answers: []model.Answer{
			{QuestionID: text.ID, Value: "Ada"},
			{QuestionID: choice.ID, Value: choice.Options[1].ID},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, response.ID)
	require.Len(t, response.Answers, 2)

	var n int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM response_answer WHERE response_id = ?`, response.ID).Scan(&n))
	require.Equal(t, 2, n)
}

func TestSubmitResponse_Conflict(t *testing.T) {
	db := openTestDB(t)
	survey, collector, text, choice := collectedSurvey(t, db)

	// The survey structure changes after the responder loaded the form.
	addTextbox(t, db, survey.ID, survey.Pages[0].ID, "sneaky new question")

	_, err := SubmitResponse(context.Background(), db, collector.Slug, "10.0.0.1", Submission{
		PageID:    survey.Pages[0].ID,
		UpdatedAt: survey.UpdatedAt,
		Answers: []model.Answer{
			{QuestionID: text.ID, Value: "Ada"},
			{QuestionID: choice.ID, Value: choice.Options[0].ID},
		},
	})
	require.True(t, fault.Is(err, fault.Conflict), "expected Conflict, got %v", err)
}

func TestSubmitResponse_ClosedCollector(t *testing.T) {
	db := openTestDB(t)
	survey, collector, text, choice := collectedSurvey(t, db)
	ctx := context.Background()

	_, err := UpdateCollectorStatus(ctx, db, survey.ID, collector.ID, model.CollectorClosed)
	require.NoError(t, err)

	_, err = SubmitResponse(ctx, db, collector.Slug, "10.0.0.1", Submission{
		PageID:    survey.Pages[0].ID,
		UpdatedAt: survey.UpdatedAt,
		Answers: []model.Answer{
			{QuestionID: text.ID, Value: "Ada"},
			{QuestionID: choice.ID, Value: choice.Options[0].ID},
		},
	})
	require.True(t, fault.Is(err, fault.Unauthorized), "expected Unauthorized, got %v", err)

	_, err = CollectorSurvey(ctx, db, collector.Slug)
	require.True(t, fault.Is(err, fault.Unauthorized), "expected Unauthorized, got %v", err)
}

func TestSubmitResponse_AlreadyCompleted(t *testing.T) {
	db := openTestDB(t)
	survey, collector, text, choice := collectedSurvey(t, db)
	ctx := context.Background()

	submission := Submission{
		PageID:    survey.Pages[0].ID,
		UpdatedAt: survey.UpdatedAt,
		Answers: []model.Answer{
			{QuestionID: text.ID, Value: "Ada"},
			{QuestionID: choice.ID, Value: choice.Options[0].ID},
		},
	}

	_, err := SubmitResponse(ctx, db, collector.Slug, "10.0.0.1", submission)
	require.NoError(t, err)

	_, err = SubmitResponse(ctx, db, collector.Slug, "10.0.0.1", submission)
	require.True(t, fault.Is(err, fault.Unauthorized), "expected Unauthorized, got %v", err)

	// A different responder is still welcome.
	_, err = SubmitResponse(ctx, db, collector.Slug, "10.0.0.2", submission)
	require.NoError(t, err)
}

func TestSubmitResponse_Validation(t *testing.T) {
	db := openTestDB(t)
	survey, collector, text, choice := collectedSurvey(t, db)
	ctx := context.Background()

	for name, answers := range map[string][]model.Answer{
		"missing required textbox": {
			{QuestionID: choice.ID, Value: choice.Options[0].ID},
		},
		"blank required textbox": {
			{QuestionID: text.ID, Value: "   "},
			{QuestionID: choice.ID, Value: choice.Options[0].ID},
		},
		"missing required choice": {
			{QuestionID: text.ID, Value: "Ada"},
		},
		"unknown option reference": {
			{QuestionID: text.ID, Value: "Ada"},
			{QuestionID: choice.ID, Value: 999999},
		},
		"non-text answer for textbox": {
			{QuestionID: text.ID, Value: 42},
			{QuestionID: choice.ID, Value: choice.Options[0].ID},
		},
	} {
		_, err := SubmitResponse(ctx, db, collector.Slug, "10.0.0.1", Submission{
			PageID:    survey.Pages[0].ID,
			UpdatedAt: survey.UpdatedAt,
			Answers:   answers,
		})
		require.True(t, fault.Is(err, fault.BadRequest), "%s: expected BadRequest, got %v", name, err)
	}

	var n int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM response WHERE collector_id = ?`, collector.ID).Scan(&n))
	require.Zero(t, n, "rejected submissions must not be persisted")
}

func TestSubmitResponse_Checkbox(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	survey := seedSurvey(t, db)
	checkbox, err := AddQuestion(ctx, db, survey.ID, survey.Pages[0].ID, model.Question{
		Type:        model.Checkbox,
		Description: "pick some",
		Required:    true,
		Options:     []model.Option{{Text: "a"}, {Text: "b"}, {Text: "c"}},
	})
	require.NoError(t, err)
	collector, err := CreateCollector(ctx, db, survey.ID)
	require.NoError(t, err)
	survey, err = GetSurvey(ctx, db, survey.ID)
	require.NoError(t, err)

	// Required checkbox without a selection is rejected.
	_, err = SubmitResponse(ctx, db, collector.Slug, "10.0.0.1", Submission{
		PageID:    survey.Pages[0].ID,
		UpdatedAt: survey.UpdatedAt,
		Answers:   []model.Answer{{QuestionID: checkbox.ID, Value: []any{}}},
	})
	require.True(t, fault.Is(err, fault.BadRequest), "expected BadRequest, got %v", err)

	// Every selected id must reference an existing option.
	_, err = SubmitResponse(ctx, db, collector.Slug, "10.0.0.1", Submission{
		PageID:    survey.Pages[0].ID,
		UpdatedAt: survey.UpdatedAt,
		Answers: []model.Answer{
			{QuestionID: checkbox.ID, Value: []any{checkbox.Options[0].ID, 999999}},
		},
	})
	require.True(t, fault.Is(err, fault.BadRequest), "expected BadRequest, got %v", err)

	_, err = SubmitResponse(ctx, db, collector.Slug, "10.0.0.1", Submission{
		PageID:    survey.Pages[0].ID,
		UpdatedAt: survey.UpdatedAt,
		Answers: []model.Answer{
			{QuestionID: checkbox.ID, Value: []any{checkbox.Options[0].ID, checkbox.Options[2].ID}},
		},
	})
	require.NoError(t, err)
}
