package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
)

// requestLogger logs every HTTP request
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		Logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// clientIP replaces the remote address with the client address reported by a
// proxy. CF-Connecting-IP wins over X-Forwarded-For.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
			r.RemoteAddr = ip
		} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				r.RemoteAddr = ip
			}
		}
		next.ServeHTTP(w, r)
	})
}

// recoverer turns a panic outside the connect handlers into a 500
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				Logger.Error().
					Interface("panic", rvr).
					Str("path", r.URL.Path).
					Msg("Recovered from panic")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func newCORSHandler(allowedOrigins []string, next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	// credentials are not allowed together with a wildcard origin
	wildcard := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{
			"Accept-Encoding",
			"Connect-Accept-Encoding",
			"Connect-Content-Encoding",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Content-Encoding",
			"Content-Type",
		},
		ExposedHeaders: []string{
			"Content-Encoding",
			"Connect-Content-Encoding",
			errorKindKey,
			errorHintKey,
		},
		AllowCredentials: !wildcard,
		MaxAge:           int(2 * time.Hour / time.Second),
	}).Handler(next)
}

// loggingInterceptor logs every rpc with its outcome
func loggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			event := Logger.Info()
			if err != nil {
				// rejected intents are the caller's problem
				if connect.CodeOf(err) == connect.CodeInternal {
					event = Logger.Error().Err(err)
				} else {
					event = Logger.Warn().Err(err)
				}
			}
			event.
				Str("procedure", req.Spec().Procedure).
				Str("protocol", req.Peer().Protocol).
				Dur("duration", time.Since(start)).
				Msg("rpc")
			return resp, err
		}
	}
}

// noCacheInterceptor marks responses as volatile; bound transactions carry
// the current runtime version
func noCacheInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err == nil && resp != nil {
				resp.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
			}
			return resp, err
		}
	}
}

type validator interface {
	Validate() error
}

// validationInterceptor rejects malformed requests with InvalidArgument
// before they reach the engine
func validationInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if v, ok := req.Any().(validator); ok {
				if err := v.Validate(); err != nil {
					Logger.Debug().
						Str("procedure", req.Spec().Procedure).
						Err(err).
						Msg("Request validation failed")
					return nil, toConnectError(req.Spec().Procedure, err)
				}
			}
			return next(ctx, req)
		}
	}
}

// metricsInterceptor counts calls per procedure and outcome on the global
// meter provider
func metricsInterceptor() (connect.UnaryInterceptorFunc, error) {
	meter := otel.Meter("github.com/Cogwheel-Validator/spectra-xcm/xcmhub/rpc")
	calls, err := meter.Int64Counter("xcmhub.rpc.calls",
		metric.WithDescription("Transfer service calls by procedure and outcome"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("xcmhub.rpc.duration",
		metric.WithDescription("Transfer service call latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := metric.WithAttributes(
				attribute.String("procedure", req.Spec().Procedure),
				attribute.String("code", outcome(err)),
				attribute.String("kind", errorKind(err)),
			)
			calls.Add(ctx, 1, attrs)
			latency.Record(ctx, time.Since(start).Seconds(), attrs)
			return resp, err
		}
	}, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return connect.CodeOf(err).String()
}

func errorKind(err error) string {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		if kind := connectErr.Meta().Get(errorKindKey); kind != "" {
			return kind
		}
	}
	if kind, ok := models.KindOf(err); ok {
		return string(kind)
	}
	return ""
}
