package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"storeratings/pkg/validation"
)

// Kind classifies a failure for presentation.
type Kind int

const (
	// KindTransport means no response reached the client.
	KindTransport Kind = iota
	// KindUnauthorized is a 401: no or invalid session.
	KindUnauthorized
	// KindForbidden is a 403: session present but wrong role.
	KindForbidden
	// KindValidation is a field-scoped server rejection.
	KindValidation
	// KindServer is any other non-2xx.
	KindServer
)

// Fixed summaries. Status-code overrides win over body content because
// auth failures are not guaranteed to carry field errors.
const (
	SummaryUnauthorized = "authentication required"
	SummaryForbidden    = "insufficient permission"
	SummaryFields       = "Please fix the highlighted fields"
	SummaryTransport    = "Network error. Please try again later."
)

// Error is what the transport returns for any non-2xx response.
// Body is the raw, unmodified server payload.
type Error struct {
	Status int
	Body   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d", e.Status)
}

// Normalized is the uniform error model every screen consumes.
type Normalized struct {
	Kind    Kind
	Fields  validation.Errors
	Summary string
	Status  int
	// Raw keeps the server body untouched for diagnostic display.
	Raw json.RawMessage
}

// paramError is the validator-library wire shape: {param, msg}.
type paramError struct {
	Param string `json:"param"`
	Msg   string `json:"msg"`
}

// envelope covers the recognized server error shapes. Error is kept
// raw so the field-map and plain-string variants can be told apart
// after classification rather than by chained type sniffing.
type envelope struct {
	Error  json.RawMessage `json:"error"`
	Errors []paramError    `json:"errors"`
}

type bodyShape int

const (
	shapeNone bodyShape = iota
	shapeFieldMap
	shapeParamList
	shapeMessage
)

func classify(body []byte) (bodyShape, validation.Errors, string) {
	var env envelope
	if len(body) == 0 || json.Unmarshal(body, &env) != nil {
		return shapeNone, nil, ""
	}
	if len(env.Errors) > 0 {
		fields := validation.Errors{}
		// Later entries for the same param overwrite earlier ones.
		for _, e := range env.Errors {
			if e.Param != "" {
				fields[e.Param] = e.Msg
			}
		}
		return shapeParamList, fields, ""
	}
	if len(env.Error) > 0 {
		var fields validation.Errors
		if json.Unmarshal(env.Error, &fields) == nil {
			return shapeFieldMap, fields, ""
		}
		var msg string
		if json.Unmarshal(env.Error, &msg) == nil {
			return shapeMessage, nil, msg
		}
	}
	return shapeNone, nil, ""
}

// Normalize maps an HTTP status and server body onto the uniform error
// model. fallback is the caller-supplied generic summary used when the
// body carries no recognizable structure.
func Normalize(status int, body []byte, fallback string) Normalized {
	n := Normalized{
		Fields: validation.Errors{},
		Status: status,
		Raw:    json.RawMessage(body),
	}

	// Status overrides precede body inspection.
	switch status {
	case http.StatusUnauthorized:
		n.Kind = KindUnauthorized
		n.Summary = SummaryUnauthorized
		return n
	case http.StatusForbidden:
		n.Kind = KindForbidden
		n.Summary = SummaryForbidden
		return n
	}

	switch shape, fields, msg := classify(body); shape {
	case shapeFieldMap, shapeParamList:
		n.Kind = KindValidation
		n.Fields = fields
		n.Summary = SummaryFields
	case shapeMessage:
		n.Kind = KindServer
		n.Summary = msg
	default:
		n.Kind = KindServer
		n.Summary = fallback
	}
	return n
}

// FromError normalizes any error coming back from the transport.
// A non-*Error value means no response was received.
func FromError(err error, fallback string) Normalized {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return Normalize(apiErr.Status, apiErr.Body, fallback)
	}
	return Normalized{
		Kind:    KindTransport,
		Fields:  validation.Errors{},
		Summary: SummaryTransport,
	}
}
