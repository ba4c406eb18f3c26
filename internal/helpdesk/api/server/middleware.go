package server

import (
	"net/http"
	"time"

	"github.com/Leopold1975/helpdesk/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

func loggingMiddleware(logg logger.Logger) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				lg := logg.With("request_id", middleware.GetReqID(r.Context()))

				lg.Infof("METHOD %s URI %s %s STATUS %d Latency %s Client IP %s User Agent %s",
					r.Method,
					r.URL.RequestURI(),
					r.Proto,
					ww.Status(),
					time.Since(start).String(),
					r.RemoteAddr,
					r.UserAgent(),
				)

				if ww.Status() >= http.StatusInternalServerError {
					lg.Errorf("request %s %s failed with status %d", r.Method, r.URL.Path, ww.Status())
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
