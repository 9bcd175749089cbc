package http

import (
	"net/http"
	"strings"

	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httputil"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/logger"
)

// ContentTypeJSON rejects request bodies that are not declared as JSON. A
// missing Content-Type is tolerated; bodiless POSTs are common from forms.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "UNSUPPORTED_MEDIA_TYPE",
						Message:   "Content-Type must be application/json",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
