package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/transport"
)

// RequestValidator checks requests against the OpenAPI document before they reach a handler.
// Requests for paths the document does not describe pass through untouched.
type RequestValidator struct {
	router routers.Router
	base   *transport.BaseHandler
}

func NewRequestValidator(specPath string, base *transport.BaseHandler) (*RequestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	return newRequestValidator(loader.Context, doc, base)
}

func NewRequestValidatorFromData(data []byte, base *transport.BaseHandler) (*RequestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	return newRequestValidator(loader.Context, doc, base)
}

func newRequestValidator(ctx context.Context, doc *openapi3.T, base *transport.BaseHandler) (*RequestValidator, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &RequestValidator{router: router, base: base}, nil
}

func (v *RequestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			v.base.HandleServiceError(w, r,
				internal.NewValidationError("request does not match the API schema", internal.ErrCodeValidationFailed).
					WithDetails(err.Error()).
					WithCause(err))
			return
		}

		next.ServeHTTP(w, r)
	})
}
