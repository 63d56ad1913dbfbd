package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

const uploadField = "file"

type uploadedFile struct {
	name string
	body io.ReadSeeker
}

type askRequest struct {
	Question string `json:"question"`
}

// header looks a header up case-insensitively across both header maps.
func header(event events.APIGatewayProxyRequest, name string) string {
	for k, v := range event.Headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	for k, vs := range event.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
	}
	return ""
}

func cookieValue(event events.APIGatewayProxyRequest, name string) string {
	raw := header(event, "Cookie")
	if raw == "" {
		return ""
	}
	cookies, err := http.ParseCookie(raw)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func rawBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if !event.IsBase64Encoded {
		return []byte(event.Body), nil
	}
	b, err := base64.StdEncoding.DecodeString(event.Body)
	if err != nil {
		return nil, fmt.Errorf("decode base64 body: %w", err)
	}
	return b, nil
}

// parseUpload accepts either a multipart form with a "file" field or the raw
// file bytes named by X-File-Name or the filename query parameter.
func parseUpload(event events.APIGatewayProxyRequest) (uploadedFile, error) {
	body, err := rawBody(event)
	if err != nil {
		return uploadedFile{}, err
	}

	mediaType, params, _ := mime.ParseMediaType(header(event, "Content-Type"))
	if mediaType == "multipart/form-data" {
		return multipartFile(body, params["boundary"])
	}

	name := header(event, headerFileName)
	if name == "" {
		name = event.QueryStringParameters["filename"]
	}
	if name == "" {
		return uploadedFile{}, errors.New("missing file name")
	}
	if len(body) == 0 {
		return uploadedFile{}, errors.New("empty body")
	}
	return uploadedFile{name: name, body: bytes.NewReader(body)}, nil
}

func multipartFile(body []byte, boundary string) (uploadedFile, error) {
	if boundary == "" {
		return uploadedFile{}, errors.New("multipart body without boundary")
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return uploadedFile{}, fmt.Errorf("missing form field %q", uploadField)
		}
		if err != nil {
			return uploadedFile{}, fmt.Errorf("read multipart: %w", err)
		}
		if part.FormName() != uploadField {
			continue
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return uploadedFile{}, fmt.Errorf("read form file: %w", err)
		}
		if part.FileName() == "" {
			return uploadedFile{}, errors.New("form file has no name")
		}
		return uploadedFile{name: part.FileName(), body: bytes.NewReader(data)}, nil
	}
}

// parseQuestion reads the question from a urlencoded form or a JSON body.
func parseQuestion(event events.APIGatewayProxyRequest) (string, error) {
	body, err := rawBody(event)
	if err != nil {
		return "", err
	}
	mediaType, _, _ := mime.ParseMediaType(header(event, "Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return "", fmt.Errorf("parse form: %w", err)
		}
		return form.Get("question"), nil
	}
	var in askRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return "", fmt.Errorf("decode json: %w", err)
	}
	return in.Question, nil
}
