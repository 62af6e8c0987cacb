// internal/memory/session_test.go
package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"wb-analyst/internal/models"
)

func TestAddExchange(t *testing.T) {
	session := NewSession("session-1")

	tools := []string{"margin_summary", "plan_fact"}
	exchange := session.AddExchange("Какая маржа?", "Маржа: 117,500 ₽", models.IntentDescribe, tools)

	assert.NotEmpty(t, exchange.ID)
	assert.Equal(t, "session-1", exchange.SessionID)
	assert.Equal(t, "Какая маржа?", exchange.Question)
	assert.Equal(t, models.IntentDescribe, exchange.Intent)
	assert.Len(t, session.History, 1)

	// The stored record keeps its own copy of the tool list.
	tools[0] = "изменён"
	assert.Equal(t, "margin_summary", session.History[0].ToolsUsed[0])
}

func TestLastExchange(t *testing.T) {
	session := NewSession("session-1")

	_, ok := session.LastExchange()
	assert.False(t, ok)

	session.AddExchange("первый", "ответ 1", models.IntentDescribe, nil)
	session.AddExchange("второй", "ответ 2", models.IntentDiagnose, nil)

	last, ok := session.LastExchange()
	assert.True(t, ok)
	assert.Equal(t, "второй", last.Question)
	assert.Equal(t, models.IntentDiagnose, last.Intent)
}

func TestDigest_EmptyHistory(t *testing.T) {
	assert.Equal(t, "", Digest(nil, 5, 200))
}

func TestDigest_Format(t *testing.T) {
	history := []models.ConversationExchange{
		{Question: "Какая маржа за вчера?", Response: "Маржа: 117,500 ₽"},
		{Question: "А план выполняется?", Response: "План на 92%"},
	}

	digest := Digest(history, 5, 200)

	expected := "Предыдущие вопросы в этой сессии:\n\n" +
		"1. Вопрос: Какая маржа за вчера?\n" +
		"   Ответ: Маржа: 117,500 ₽\n\n" +
		"2. Вопрос: А план выполняется?\n" +
		"   Ответ: План на 92%\n\n"
	assert.Equal(t, expected, digest)
}

func TestDigest_KeepsOnlyRecentExchanges(t *testing.T) {
	var history []models.ConversationExchange
	for _, q := range []string{"в1", "в2", "в3", "в4", "в5", "в6", "в7"} {
		history = append(history, models.ConversationExchange{Question: q, Response: "ответ"})
	}

	digest := Digest(history, 5, 200)

	assert.NotContains(t, digest, "в1")
	assert.NotContains(t, digest, "в2")
	assert.Contains(t, digest, "1. Вопрос: в3")
	assert.Contains(t, digest, "5. Вопрос: в7")
	assert.NotContains(t, digest, "6. Вопрос")
}

func TestDigest_TruncatesLongResponses(t *testing.T) {
	history := []models.ConversationExchange{
		{Question: "вопрос", Response: strings.Repeat("й", 250)},
	}

	digest := Digest(history, 5, 200)

	assert.Contains(t, digest, strings.Repeat("й", 200)+"...")
	assert.Equal(t, 200, strings.Count(digest, "й"))
}

func TestDigest_ShortResponseKeptVerbatim(t *testing.T) {
	history := []models.ConversationExchange{
		{Question: "вопрос", Response: "короткий ответ"},
	}

	digest := Digest(history, 5, 200)

	assert.Contains(t, digest, "Ответ: короткий ответ\n")
	assert.NotContains(t, digest, "...")
}

func TestCapRunes(t *testing.T) {
	assert.Equal(t, "абв", capRunes("абв", 10))
	assert.Equal(t, "аб", capRunes("абвгд", 2))
	assert.NotContains(t, capRunes(strings.Repeat("ю", 30), 10), "...")
}
