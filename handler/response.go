package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"sheet-qa/internal/domain"
	"sheet-qa/internal/session"
	"sheet-qa/internal/usecase"
	"sheet-qa/internal/view"
)

type sessionResponse struct {
	ID              string           `json:"id"`
	FileUploaded    bool             `json:"fileUploaded"`
	Messages        []domain.Message `json:"messages"`
	PendingQuestion string           `json:"pendingQuestion,omitempty"`
	Columns         []string         `json:"columns,omitempty"`
	Rows            [][]string       `json:"rows,omitempty"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type effectResponse struct {
	Kind    string          `json:"kind"`
	Message *domain.Message `json:"message,omitempty"`
	Text    string          `json:"text,omitempty"`
	Rows    int             `json:"rows,omitempty"`
}

type commandResponse struct {
	Session sessionResponse  `json:"session"`
	Effects []effectResponse `json:"effects"`
}

type errorResponse struct {
	Error   string           `json:"error"`
	Reason  string           `json:"reason,omitempty"`
	Session *sessionResponse `json:"session,omitempty"`
}

func newSessionResponse(s *session.State) sessionResponse {
	out := sessionResponse{
		ID:              s.ID,
		FileUploaded:    s.FileUploaded,
		Messages:        s.Messages,
		PendingQuestion: s.PendingQuestion,
		UpdatedAt:       s.UpdatedAt,
	}
	if s.Table != nil {
		out.Columns = s.Table.Columns()
		out.Rows = s.Table.Rows()
	}
	return out
}

func newCommandResponse(out usecase.Outcome) commandResponse {
	effects := make([]effectResponse, 0, len(out.Effects))
	for _, e := range out.Effects {
		er := effectResponse{Kind: e.Kind()}
		switch v := e.(type) {
		case session.AppendMessage:
			m := v.Message
			er.Message = &m
		case session.SetPendingQuestion:
			er.Text = v.Text
		case session.ReplaceTable:
			if v.Table != nil {
				er.Rows = v.Table.Len()
			}
		}
		effects = append(effects, er)
	}
	return commandResponse{Session: newSessionResponse(out.State), Effects: effects}
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func (h *Handler) htmlPage(s *session.State) events.APIGatewayProxyResponse {
	var buf bytes.Buffer
	if err := view.Render(&buf, view.FromState(s, h.maxQuestionLen)); err != nil {
		h.logger.Error("render page", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal), Reason: "render_error"})
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
		Body:       buf.String(),
	}
}

func redirectHome() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusSeeOther,
		Headers:    map[string]string{"Location": "/"},
	}
}

// withSession returns the session id in both the header and the cookie.
func withSession(resp events.APIGatewayProxyResponse, sessionID string) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[headerSessionID] = sessionID
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	resp.Headers["Set-Cookie"] = c.String()
	return resp
}

func expiredCookie() string {
	c := &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: true}
	return c.String()
}
