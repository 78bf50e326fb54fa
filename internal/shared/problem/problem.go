// Package problem provides RFC 7807 Problem Details for HTTP APIs.
package problem

import (
	"fmt"
	"net/http"
)

// Detail represents an RFC 7807 Problem Details response.
// See: https://www.rfc-editor.org/rfc/rfc7807
type Detail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code for this occurrence.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Instance is a URI reference that identifies the specific occurrence.
	Instance string `json:"instance,omitempty"`
	// Extensions holds additional problem-specific properties.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Error implements the error interface.
func (d Detail) Error() string {
	if d.Detail != "" {
		return fmt.Sprintf("%s: %s", d.Title, d.Detail)
	}
	return d.Title
}

// WithDetail returns a copy with the given detail message.
func (d Detail) WithDetail(detail string) Detail {
	d.Detail = detail
	return d
}

// WithExtension returns a copy with an additional extension property.
func (d Detail) WithExtension(key string, value any) Detail {
	if d.Extensions == nil {
		d.Extensions = make(map[string]any)
	}
	d.Extensions[key] = value
	return d
}

// Problem types as URI references.
const (
	TypeNotFound          = "/problems/not-found"
	TypeBadRequest        = "/problems/bad-request"
	TypeInsufficientStock = "/problems/insufficient-stock"
	TypeInvalidState      = "/problems/invalid-order-state"
	TypeInternal          = "/problems/internal-error"
)

// Problem templates for the error taxonomy of this API.
var (
	// NotFound indicates the referenced order or product does not exist.
	NotFound = Detail{
		Type:   TypeNotFound,
		Title:  "Resource Not Found",
		Status: http.StatusNotFound,
	}

	// BadRequest indicates the request was malformed or violated an invariant.
	BadRequest = Detail{
		Type:   TypeBadRequest,
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
	}

	// InsufficientStock indicates the requested quantity exceeds available
	// stock. Client-correctable: retry with a smaller quantity or later.
	InsufficientStock = Detail{
		Type:   TypeInsufficientStock,
		Title:  "Insufficient Stock",
		Status: http.StatusBadRequest,
	}

	// InvalidState indicates the order's current status forbids the
	// operation, e.g. cancelling a paid order.
	InvalidState = Detail{
		Type:   TypeInvalidState,
		Title:  "Invalid Order State",
		Status: http.StatusConflict,
	}

	// Internal indicates an unexpected server error.
	Internal = Detail{
		Type:   TypeInternal,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
	}
)

// NewNotFound creates a not-found problem for a specific resource.
func NewNotFound(resourceType string, identifier any) Detail {
	return NotFound.
		WithDetail(fmt.Sprintf("%s with identifier '%v' not found", resourceType, identifier)).
		WithExtension("resourceType", resourceType).
		WithExtension("identifier", identifier)
}
