package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/mbolis/survey-builder/config"
	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/model"
	"github.com/stretchr/testify/require"
)

var testDBSeq int64

// openTestDB opens a throwaway in-memory database with the schema applied.
// The shared cache keeps the database alive across pool connections.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := database.Open(config.Config{DBUrl: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

var testUserSeq int64

// seedSurvey creates an owner and an empty survey (with its initial page).
func seedSurvey(t *testing.T, db *sql.DB) model.Survey {
	t.Helper()
	ctx := context.Background()

	var userID int
	err := db.QueryRow(`
		INSERT INTO user (username, password_hash) VALUES (?, 'x')
		RETURNING id`,
		fmt.Sprintf("owner%d", atomic.AddInt64(&testUserSeq, 1)),
	).Scan(&userID)
	require.NoError(t, err)

	survey, err := CreateSurvey(ctx, db, userID, model.Survey{Title: "Customer feedback", Category: "customer_feedback"})
	require.NoError(t, err)
	return survey
}

// addTextbox appends a plain textbox question to a page.
func addTextbox(t *testing.T, db *sql.DB, surveyID, pageID int, description string) model.Question {
	t.Helper()
	q, err := AddQuestion(context.Background(), db, surveyID, pageID, model.Question{
		Type:        model.Textbox,
		Description: description,
	})
	require.NoError(t, err)
	return q
}

// addChoice appends a multiple-choice question with the given options.
func addChoice(t *testing.T, db *sql.DB, surveyID, pageID int, description string, options ...string) model.Question {
	t.Helper()
	in := model.Question{
		Type:        model.MultipleChoice,
		Description: description,
	}
	for _, text := range options {
		in.Options = append(in.Options, model.Option{Text: text})
	}
	q, err := AddQuestion(context.Background(), db, surveyID, pageID, in)
	require.NoError(t, err)
	return q
}

// pageNumbers reads the page numbering, keyed by page id.
func pageNumbers(t *testing.T, db *sql.DB, surveyID int) map[int]int {
	t.Helper()
	rows, err := db.Query(`
		SELECT id, number FROM survey_page WHERE survey_id = ?`, surveyID)
	require.NoError(t, err)
	defer rows.Close()

	numbers := map[int]int{}
	for rows.Next() {
		var id, number int
		require.NoError(t, rows.Scan(&id, &number))
		numbers[id] = number
	}
	require.NoError(t, rows.Err())
	return numbers
}

// questionNumbers reads the survey-wide question numbering, keyed by
// question id, along with the page each question sits on.
func questionNumbers(t *testing.T, db *sql.DB, surveyID int) (numbers map[int]int, pages map[int]int) {
	t.Helper()
	rows, err := db.Query(`
		SELECT id, page_id, number FROM survey_question WHERE survey_id = ?`, surveyID)
	require.NoError(t, err)
	defer rows.Close()

	numbers = map[int]int{}
	pages = map[int]int{}
	for rows.Next() {
		var id, pageID, number int
		require.NoError(t, rows.Scan(&id, &pageID, &number))
		numbers[id] = number
		pages[id] = pageID
	}
	require.NoError(t, rows.Err())
	return numbers, pages
}

// requireDense asserts the numbering is exactly {1..len} with no gaps or
// duplicates.
func requireDense(t *testing.T, numbers map[int]int) {
	t.Helper()
	seen := map[int]bool{}
	for id, n := range numbers {
		require.GreaterOrEqual(t, n, 1, "number of %d out of range", id)
		require.LessOrEqual(t, n, len(numbers), "number of %d out of range", id)
		require.False(t, seen[n], "duplicate number %d", n)
		seen[n] = true
	}
}

// requireContiguousByPage asserts that each page's questions occupy one
// contiguous block and that blocks follow page order.
func requireContiguousByPage(t *testing.T, db *sql.DB, surveyID int) {
	t.Helper()
	rows, err := db.Query(`
		SELECT p.id, COALESCE(MIN(q.number), 0), COALESCE(MAX(q.number), 0), COUNT(q.id)
		FROM survey_page p
		LEFT OUTER JOIN survey_question q ON (q.page_id = p.id)
		WHERE p.survey_id = ?
		GROUP BY p.id
		ORDER BY p.number`,
		surveyID)
	require.NoError(t, err)
	defer rows.Close()

	next := 1
	for rows.Next() {
		var pageID, min, max, count int
		require.NoError(t, rows.Scan(&pageID, &min, &max, &count))
		if count == 0 {
			continue
		}
		require.Equal(t, next, min, "page %d block must start right after the previous page", pageID)
		require.Equal(t, min+count-1, max, "page %d block must be contiguous", pageID)
		next = max + 1
	}
	require.NoError(t, rows.Err())
}
