package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dpshade/prompt-mover/internal/errors"
)

const maxBodyBytes = 8 << 20

// loggingMiddleware logs one line per request
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// recoverMiddleware turns a panic into a 500 with the standard error body
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic in handler", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				s.writeError(w, errors.InternalError("Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validateBody checks the JSON body against a validation schema before the
// handler runs. The body is restored so the handler can decode it again.
func (s *Server) validateBody(schema string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to read request body"))
				return
			}
			r.Body.Close()

			var params map[string]interface{}
			if err := json.Unmarshal(body, &params); err != nil || params == nil {
				s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidFormat, "Request body must be a JSON object"))
				return
			}

			result := s.validator.Validate(schema, params)
			if !result.Valid {
				s.writeError(w, result.ToAppError())
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
