package repository

import (
	"context"
	"testing"

	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/ordering"
	"github.com/stretchr/testify/require"
)

func TestAddQuestion_AppendsToPage(t *testing.T) {
	db := openTestDB(t)
	survey := seedSurvey(t, db)
	page := survey.Pages[0]

	q1 := addTextbox(t, db, survey.ID, page.ID, "first")
	q2 := addTextbox(t, db, survey.ID, page.ID, "second")
	require.Equal(t, 1, q1.Number)
	require.Equal(t, 2, q2.Number)
}

func TestAddQuestion_EmptyMiddlePage(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// [P1(q1,q2), P2(), P3(q3)]: a question added to P2 must take number 3
	// by scanning back through P1, pushing q3 to 4.
	survey := seedSurvey(t, db)
	p1 := survey.Pages[0]
	p2, err := CreatePage(ctx, db, survey.ID)
	require.NoError(t, err)
	p3, err := CreatePage(ctx, db, survey.ID)
	require.NoError(t, err)

	addTextbox(t, db, survey.ID, p1.ID, "q1")
	addTextbox(t, db, survey.ID, p1.ID, "q2")
	q3 := addTextbox(t, db, survey.ID, p3.ID, "q3")

	q, err := AddQuestion(ctx, db, survey.ID, p2.ID, model.Question{
		Type:        model.Textbox,
		Description: "middle",
	})
	require.NoError(t, err)
	require.Equal(t, 3, q.Number)

	numbers, _ := questionNumbers(t, db, survey.ID)
	require.Equal(t, 4, numbers[q3.ID])
	requireDense(t, numbers)
	requireContiguousByPage(t, db, survey.ID)
}

func TestAddQuestion_EmptyFirstPage(t *testing.T) {
	db := openTestDB(t)
	survey := seedSurvey(t, db)

	// No earlier questions anywhere: the new question becomes number 1.
	q := addTextbox(t, db, survey.ID, survey.Pages[0].ID, "first ever")
	require.Equal(t, 1, q.Number)
}

func TestAddQuestion_PageCapacity(t *testing.T) {
	db := openTestDB(t)
	survey := seedSurvey(t, db)
	page := survey.Pages[0]
	ctx := context.Background()

	for i := 1; i <= model.MaxQuestionsPerPage; i++ {
		q, err := AddQuestion(ctx, db, survey.ID, page.ID, model.Question{
			Type:        model.Textbox,
			Description: "q",
		})
		require.NoError(t, err)
		require.Equal(t, i, q.Number)
	}

	_, err := AddQuestion(ctx, db, survey.ID, page.ID, model.Question{
		Type:        model.Textbox,
		Description: "one too many",
	})
	require.True(t, fault.Is(err, fault.BadRequest), "expected BadRequest, got %v", err)
}

func TestAddQuestion_Invalid(t *testing.T) {
	db := openTestDB(t)
	survey := seedSurvey(t, db)
	ctx := context.Background()

	randomize := true
	for name, in := range map[string]model.Question{
		"unknown type":          {Type: "essay", Description: "?"},
		"textbox with options":  {Type: model.Textbox, Description: "?", Options: []model.Option{{Text: "a"}}},
		"textbox randomize":     {Type: model.Textbox, Description: "?", Randomize: &randomize},
		"choice without option": {Type: model.Dropdown, Description: "?"},
		"blank description":     {Type: model.Textbox, Description: "   "},
	} {
		_, err := AddQuestion(ctx, db, survey.ID, survey.Pages[0].ID, in)
		require.True(t, fault.Is(err, fault.BadRequest), "%s: expected BadRequest, got %v", name, err)
	}

	numbers, _ := questionNumbers(t, db, survey.ID)
	require.Empty(t, numbers, "rejected questions must not be persisted")
}

func TestUpdateQuestion_ReconcilesOptions(t *testing.T) {
	db := openTestDB(t)
	survey := seedSurvey(t, db)
	q := addChoice(t, db, survey.ID, survey.Pages[0].ID, "pick one", "red", "green", "blue")

	// Drop "green", rename "blue", add "yellow".
	updated, err := UpdateQuestion(context.Background(), db, survey.ID, model.Question{
		ID:          q.ID,
		Type:        model.MultipleChoice,
		Description: "pick one color",
		Options: []model.Option{
			{ID: q.Options[0].ID, Text: "red"},
			{ID: q.Options[2].ID, Text: "navy"},
			{Text: "yellow"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "pick one color", updated.Description)
	require.Equal(t, q.Number, updated.Number, "update must not renumber")

	require.Len(t, updated.Options, 3)
	require.Equal(t, "red", updated.Options[0].Text)
	require.Equal(t, "navy", updated.Options[1].Text)
	require.Equal(t, q.Options[2].ID, updated.Options[1].ID, "renamed option keeps its id")
	require.Equal(t, "yellow", updated.Options[2].Text)

	var n int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM question_option WHERE id = ?`, q.Options[1].ID).Scan(&n))
	require.Zero(t, n, "dropped option must be deleted")
}

func TestUpdateQuestion_SwitchToTextbox(t *testing.T) {
	db := openTestDB(t)
	survey := seedSurvey(t, db)
	q := addChoice(t, db, survey.ID, survey.Pages[0].ID, "pick one", "red", "green")

	updated, err := UpdateQuestion(context.Background(), db, survey.ID, model.Question{
		ID:          q.ID,
		Type:        model.Textbox,
		Description: "write it instead",
	})
	require.NoError(t, err)
	require.Equal(t, model.Textbox, updated.Type)
	require.Empty(t, updated.Options)
	require.Nil(t, updated.Randomize)

	var n int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM question_option WHERE question_id = ?`, q.ID).Scan(&n))
	require.Zero(t, n)
}

func TestUpdateQuestion_TextboxWithOptionsRejected(t *testing.T) {
	db := openTestDB(t)
	survey := seedSurvey(t, db)
	q := addChoice(t, db, survey.ID, survey.Pages[0].ID, "pick one", "red", "green")

	_, err := UpdateQuestion(context.Background(), db, survey.ID, model.Question{
		ID:          q.ID,
		Type:        model.Textbox,
		Description: "inconsistent",
		Options:     []model.Option{{Text: "red"}},
	})
	require.True(t, fault.Is(err, fault.BadRequest), "expected BadRequest, got %v", err)

	// Nothing may have been persisted before the rejection.
	fresh, err := GetSurvey(context.Background(), db, survey.ID)
	require.NoError(t, err)
	require.Equal(t, model.MultipleChoice, fresh.Pages[0].Questions[0].Type)
	require.Len(t, fresh.Pages[0].Questions[0].Options, 2)
}

func TestDeleteQuestion_Renumbers(t *testing.T) {
	db := openTestDB(t)
	survey, _, questions := threePageSurvey(t, db)

	deleted, err := DeleteQuestion(context.Background(), db, survey.ID, questions[2].ID)
	require.NoError(t, err)
	require.Equal(t, 3, deleted.Number, "prior state is returned")

	numbers, _ := questionNumbers(t, db, survey.ID)
	require.Len(t, numbers, 5)
	require.Equal(t, 3, numbers[questions[3].ID])
	require.Equal(t, 5, numbers[questions[5].ID])
	requireDense(t, numbers)
	requireContiguousByPage(t, db, survey.ID)
}

func TestMoveQuestion_AcrossPages(t *testing.T) {
	db := openTestDB(t)
	survey, pages, questions := threePageSurvey(t, db)

	// Move q1 after q5: it leaves P1 and lands at the end of P2.
	moved, err := MoveQuestion(context.Background(), db,
		survey.ID, questions[0].ID, questions[4].ID, pages[1].ID, ordering.After)
	require.NoError(t, err)
	require.Equal(t, 5, moved.Number)
	require.Equal(t, pages[1].ID, moved.PageID)

	numbers, pageAssign := questionNumbers(t, db, survey.ID)
	require.Equal(t, 1, numbers[questions[1].ID], "q2 slides down")
	require.Equal(t, 6, numbers[questions[5].ID], "q6 stays put")
	require.Equal(t, pages[1].ID, pageAssign[questions[0].ID])
	requireDense(t, numbers)
	requireContiguousByPage(t, db, survey.ID)
}

func TestMoveQuestion_NoOpKeepsNumbers(t *testing.T) {
	db := openTestDB(t)
	survey, pages, questions := threePageSurvey(t, db)

	before, _ := questionNumbers(t, db, survey.ID)

	_, err := MoveQuestion(context.Background(), db,
		survey.ID, questions[3].ID, questions[3].ID, pages[1].ID, ordering.Before)
	require.NoError(t, err)

	after, _ := questionNumbers(t, db, survey.ID)
	require.Equal(t, before, after)
}

func TestMoveQuestion_BelongsToViolations(t *testing.T) {
	db := openTestDB(t)
	survey, pages, questions := threePageSurvey(t, db)
	other := seedSurvey(t, db)
	stranger := addTextbox(t, db, other.ID, other.Pages[0].ID, "not yours")
	ctx := context.Background()

	// Unknown question: not found.
	_, err := MoveQuestion(ctx, db, survey.ID, 9999, questions[0].ID, pages[0].ID, ordering.After)
	require.True(t, fault.Is(err, fault.NotFound), "expected NotFound, got %v", err)

	// A question of another survey: belongs-to violation, not a not-found.
	_, err = MoveQuestion(ctx, db, survey.ID, stranger.ID, questions[0].ID, pages[0].ID, ordering.After)
	require.True(t, fault.Is(err, fault.BadRequest), "expected BadRequest, got %v", err)

	// Target question not on the stated page: same violation.
	_, err = MoveQuestion(ctx, db, survey.ID, questions[0].ID, questions[4].ID, pages[0].ID, ordering.After)
	require.True(t, fault.Is(err, fault.BadRequest), "expected BadRequest, got %v", err)
}

func TestCopyQuestion(t *testing.T) {
	db := openTestDB(t)
	survey, pages, questions := threePageSurvey(t, db)

	copied, err := CopyQuestion(context.Background(), db,
		survey.ID, questions[4].ID, questions[5].ID, pages[2].ID, ordering.Before)
	require.NoError(t, err)
	require.NotEqual(t, questions[4].ID, copied.ID)
	require.Equal(t, 6, copied.Number)
	require.Equal(t, pages[2].ID, copied.PageID)
	require.Len(t, copied.Options, 3, "options must be duplicated")
	for i, o := range copied.Options {
		require.NotEqual(t, questions[4].Options[i].ID, o.ID)
	}

	numbers, _ := questionNumbers(t, db, survey.ID)
	require.Len(t, numbers, 7)
	require.Equal(t, 7, numbers[questions[5].ID], "q6 shifts up")
	requireDense(t, numbers)
	requireContiguousByPage(t, db, survey.ID)
}
