// internal/memory/recorder_test.go
package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"wb-analyst/internal/models"
)

func TestSave_InsertsExchange(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO agent_conversations").
		WithArgs("session-1", "Какая маржа?", "Маржа: 117,500 ₽", "describe", `["margin_summary","plan_fact"]`, createdAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	recorder := NewRecorder(db, createTestLogger(t))
	err = recorder.Save(context.Background(), models.ConversationExchange{
		SessionID: "session-1",
		Question:  "Какая маржа?",
		Response:  "Маржа: 117,500 ₽",
		Intent:    models.IntentDescribe,
		ToolsUsed: []string{"margin_summary", "plan_fact"},
		CreatedAt: createdAt,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_EmptyToolsStoredAsNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO agent_conversations").
		WithArgs("session-1", "вопрос", "ответ", "describe", nil, createdAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	recorder := NewRecorder(db, createTestLogger(t))
	err = recorder.Save(context.Background(), models.ConversationExchange{
		SessionID: "session-1",
		Question:  "вопрос",
		Response:  "ответ",
		Intent:    models.IntentDescribe,
		CreatedAt: createdAt,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_CapsLongResponse(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO agent_conversations").
		WithArgs("session-1", "вопрос", strings.Repeat("а", maxStoredResponseChars), "describe", nil, createdAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	recorder := NewRecorder(db, createTestLogger(t))
	err = recorder.Save(context.Background(), models.ConversationExchange{
		SessionID: "session-1",
		Question:  "вопрос",
		Response:  strings.Repeat("а", maxStoredResponseChars+2000),
		Intent:    models.IntentDescribe,
		CreatedAt: createdAt,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_Failure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO agent_conversations").
		WillReturnError(assert.AnError)

	recorder := NewRecorder(db, createTestLogger(t))
	err = recorder.Save(context.Background(), models.ConversationExchange{
		SessionID: "session-1",
		Question:  "вопрос",
		Response:  "ответ",
		CreatedAt: time.Now(),
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceFailed)
}

func TestHistory_ReturnsChronologicalOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	newest := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	oldest := newest.Add(-time.Hour)
	mock.ExpectQuery("FROM agent_conversations").
		WithArgs("session-1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"question", "response", "intent", "created_at"}).
			AddRow("второй вопрос", "второй ответ", "diagnose", newest).
			AddRow("первый вопрос", "первый ответ", "describe", oldest))

	recorder := NewRecorder(db, createTestLogger(t))
	history, err := recorder.History(context.Background(), "session-1", 10)

	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "первый вопрос", history[0].Question)
	assert.Equal(t, models.IntentDescribe, history[0].Intent)
	assert.Equal(t, "второй вопрос", history[1].Question)
	assert.Equal(t, "session-1", history[1].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM agent_conversations").
		WithArgs("session-1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"question", "response", "intent", "created_at"}))

	recorder := NewRecorder(db, createTestLogger(t))
	history, err := recorder.History(context.Background(), "session-1", 10)

	assert.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistory_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM agent_conversations").
		WillReturnError(assert.AnError)

	recorder := NewRecorder(db, createTestLogger(t))
	_, err = recorder.History(context.Background(), "session-1", 10)

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceFailed)
}
