package problem

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContentType is the media type for Problem Details responses.
const ContentType = "application/problem+json"

// Mapper maps a domain or application error to a Detail.
type Mapper func(err error) (Detail, bool)

// Responder sends Problem Details responses, consulting its mappers before
// falling back to a generic internal error.
type Responder struct {
	mappers []Mapper
}

// NewResponder creates a responder with the given error mappers.
func NewResponder(mappers ...Mapper) *Responder {
	return &Responder{mappers: mappers}
}

// Respond sends a Detail response with the proper content type.
func (r *Responder) Respond(c *gin.Context, detail Detail) {
	if detail.Instance == "" {
		detail.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentType)
	c.JSON(detail.Status, detail)
}

// Error maps err through the chain and responds. Errors that are already a
// Detail pass through unchanged; anything unmapped becomes a 500.
func (r *Responder) Error(c *gin.Context, err error) {
	var detail Detail
	if errors.As(err, &detail) {
		r.Respond(c, detail)
		return
	}
	for _, mapper := range r.mappers {
		if mapped, ok := mapper(err); ok {
			r.Respond(c, mapped)
			return
		}
	}
	r.Respond(c, Internal.WithDetail(err.Error()))
}

// BadRequest sends a 400 problem response.
func (r *Responder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, BadRequest.WithDetail(detail))
}

// Status resolves the HTTP status err maps to through the mapper chain,
// falling back to 500. For handlers that answer in a non-problem body (e.g.
// provider ack protocols) but still want taxonomy-correct status codes.
func (r *Responder) Status(err error) int {
	var detail Detail
	if errors.As(err, &detail) {
		return detail.Status
	}
	for _, mapper := range r.mappers {
		if mapped, ok := mapper(err); ok {
			return mapped.Status
		}
	}
	return http.StatusInternalServerError
}
