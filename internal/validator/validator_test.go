package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tryout-backend/internal/model"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	Setup()
	m.Run()
}

func bindSave(t *testing.T, body, lang string) map[string]string {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if lang != "" {
		c.Request.Header.Set("Accept-Language", lang)
	}
	var req model.SaveAnswerRequest
	return Bind(c, &req)
}

func TestBindSaveAnswer(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "choice", body: `{"questionId":1,"answerChoice":2}`},
		{name: "essay", body: `{"questionId":1,"essayAnswer":"Paris"}`},
		{name: "empty essay is an answer", body: `{"questionId":1,"essayAnswer":""}`},
		{name: "missing question", body: `{"answerChoice":2}`, wantField: "questionId"},
		{name: "negative choice", body: `{"questionId":1,"answerChoice":-1}`, wantField: "answerChoice"},
		{name: "both values", body: `{"questionId":1,"answerChoice":2,"essayAnswer":"x"}`, wantField: "answerChoice"},
		{name: "no value", body: `{"questionId":1}`, wantField: "answerChoice"},
		{name: "broken json", body: `{"questionId":`, wantField: "detail"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fields := bindSave(t, tc.body, "")
			if tc.wantField == "" {
				if fields != nil {
					t.Fatalf("expected no errors, got %v", fields)
				}
				return
			}
			if _, ok := fields[tc.wantField]; !ok {
				t.Fatalf("expected error on %q, got %v", tc.wantField, fields)
			}
		})
	}
}

func TestBindTranslatesIndonesian(t *testing.T) {
	fields := bindSave(t, `{"questionId":1}`, "id-ID,id;q=0.9")
	if msg := fields["answerChoice"]; !strings.Contains(msg, "harus") {
		t.Fatalf("expected Indonesian message, got %q", msg)
	}

	fields = bindSave(t, `{"questionId":1}`, "en")
	if msg := fields["answerChoice"]; !strings.Contains(msg, "exactly one") {
		t.Fatalf("expected English message, got %q", msg)
	}
}

func TestStructValidatesSubmitAnswers(t *testing.T) {
	req := model.SubmitRequest{Answers: []model.AnswerUpsert{{QuestionID: 1}}}
	if fields := Struct(&req); fields == nil {
		t.Fatal("expected dive validation to reject an empty answer")
	}

	ok := model.SubmitRequest{Answers: []model.AnswerUpsert{{QuestionID: 1, AnswerChoice: new(int)}}}
	if fields := Struct(&ok); fields != nil {
		t.Fatalf("unexpected errors %v", fields)
	}
}
