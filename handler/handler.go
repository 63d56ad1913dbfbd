// Package handler adapts API Gateway proxy events to the session service.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"sheet-qa/internal/usecase"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	headerSessionID     = "X-Session-Id"
	headerFileName      = "X-File-Name"
	sessionCookie       = "sheetqa_session"
)

// SessionUseCase is the part of usecase.SessionService the handler drives.
type SessionUseCase interface {
	Open(ctx context.Context, sessionID string) (usecase.Outcome, error)
	Upload(ctx context.Context, in usecase.UploadInput) (usecase.Outcome, error)
	Ask(ctx context.Context, in usecase.AskInput) (usecase.Outcome, error)
	Reset(ctx context.Context, sessionID string) (usecase.Outcome, error)
	Close(ctx context.Context, sessionID string) error
}

type Handler struct {
	svc            SessionUseCase
	logger         *slog.Logger
	maxQuestionLen int
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxQuestionLength sets the maxlength of the page's question field.
func WithMaxQuestionLength(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxQuestionLen = n
		}
	}
}

func NewHandler(svc SessionUseCase, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: session use case must not be nil")
	}
	h := &Handler{svc: svc, logger: slog.Default(), maxQuestionLen: 300}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// request carries what every route needs from the raw event.
type request struct {
	event         events.APIGatewayProxyRequest
	correlationID string
	sessionID     string
	wantsHTML     bool
	logger        *slog.Logger
}

// Handle routes one API Gateway request. Errors are always rendered into the
// response; the returned error is reserved for the Lambda runtime and is
// always nil.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req := request{
		event:         event,
		correlationID: header(event, headerCorrelationID),
		sessionID:     header(event, headerSessionID),
		wantsHTML:     strings.Contains(header(event, "Accept"), "text/html"),
	}
	if req.correlationID == "" {
		req.correlationID = uuid.NewString()
	}
	if req.sessionID == "" {
		req.sessionID = cookieValue(event, sessionCookie)
	}

	route := event.HTTPMethod + " " + normalizePath(event.Path)
	logger := h.logger.With("correlation_id", req.correlationID, "route", route)
	req.logger = logger

	var resp events.APIGatewayProxyResponse
	switch route {
	case "GET /":
		resp = h.page(ctx, req)
	case "GET /session":
		resp = h.show(ctx, req)
	case "POST /upload":
		resp = h.upload(ctx, req)
	case "POST /ask":
		resp = h.ask(ctx, req)
	case "POST /reset":
		resp = h.reset(ctx, req)
	case "DELETE /session":
		resp = h.end(ctx, req)
	default:
		resp = jsonResponse(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"})
	}

	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[headerCorrelationID] = req.correlationID

	attrs := []any{"status", resp.StatusCode, "session_id", resp.Headers[headerSessionID]}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		logger.Error("request failed", attrs...)
	case resp.StatusCode >= http.StatusBadRequest:
		logger.Warn("request rejected", attrs...)
	default:
		logger.Info("request handled", attrs...)
	}
	return resp, nil
}

func (h *Handler) page(ctx context.Context, req request) events.APIGatewayProxyResponse {
	out, err := h.svc.Open(ctx, req.sessionID)
	if err != nil {
		return h.failure(req, out, err)
	}
	return withSession(h.htmlPage(out.State), out.State.ID)
}

func (h *Handler) show(ctx context.Context, req request) events.APIGatewayProxyResponse {
	out, err := h.svc.Open(ctx, req.sessionID)
	if err != nil {
		return h.failure(req, out, err)
	}
	return withSession(jsonResponse(http.StatusOK, newSessionResponse(out.State)), out.State.ID)
}

func (h *Handler) upload(ctx context.Context, req request) events.APIGatewayProxyResponse {
	file, err := parseUpload(req.event)
	if err != nil {
		return h.failure(req, usecase.Outcome{}, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_upload", Err: err})
	}
	out, err := h.svc.Upload(ctx, usecase.UploadInput{
		SessionID: req.sessionID,
		Filename:  file.name,
		Body:      file.body,
	})
	if err != nil {
		return h.failure(req, out, err)
	}
	return h.success(req, out)
}

func (h *Handler) ask(ctx context.Context, req request) events.APIGatewayProxyResponse {
	question, err := parseQuestion(req.event)
	if err != nil {
		return h.failure(req, usecase.Outcome{}, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err})
	}
	out, err := h.svc.Ask(ctx, usecase.AskInput{SessionID: req.sessionID, Question: question})
	if err != nil {
		return h.failure(req, out, err)
	}
	return h.success(req, out)
}

func (h *Handler) reset(ctx context.Context, req request) events.APIGatewayProxyResponse {
	out, err := h.svc.Reset(ctx, req.sessionID)
	if err != nil {
		return h.failure(req, out, err)
	}
	return h.success(req, out)
}

func (h *Handler) end(ctx context.Context, req request) events.APIGatewayProxyResponse {
	if err := h.svc.Close(ctx, req.sessionID); err != nil {
		return h.failure(req, usecase.Outcome{}, err)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusNoContent,
		Headers:    map[string]string{"Set-Cookie": expiredCookie()},
	}
}

// success answers a command: browser form posts go back to the page, API
// callers get the new state and the effects that produced it.
func (h *Handler) success(req request, out usecase.Outcome) events.APIGatewayProxyResponse {
	if req.wantsHTML {
		return withSession(redirectHome(), out.State.ID)
	}
	return withSession(jsonResponse(http.StatusOK, newCommandResponse(out)), out.State.ID)
}

// failure maps err to a status. Browser callers always go back to the page;
// upload failures still carry the saved session holding the error message.
func (h *Handler) failure(req request, out usecase.Outcome, err error) events.APIGatewayProxyResponse {
	status, code, reason := mapError(err)
	req.logger.Warn("command failed", "code", code, "reason", reason, "err", err)
	if req.wantsHTML && req.event.HTTPMethod != http.MethodGet {
		if out.State == nil {
			return redirectHome()
		}
		return withSession(redirectHome(), out.State.ID)
	}
	body := errorResponse{Error: code, Reason: reason}
	if out.State != nil {
		sv := newSessionResponse(out.State)
		body.Session = &sv
	}
	resp := jsonResponse(status, body)
	if out.State != nil {
		resp = withSession(resp, out.State.ID)
	}
	return resp
}

func mapError(err error) (int, string, string) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal), ""
	}
	switch ue.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ue.Code), ue.Reason
	case usecase.ErrorParseFailure:
		return http.StatusUnprocessableEntity, string(ue.Code), ue.Reason
	case usecase.ErrorArchiveFailure:
		return http.StatusBadGateway, string(ue.Code), ue.Reason
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal), ue.Reason
	}
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
