package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"cloud.google.com/go/civil"

	"healthreport/internal/app"
	"healthreport/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, map[string]any{"error": "validation failed", "fields": verr.Fields})
		return
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// decodeAndValidate parses the body into dst and checks its struct tags.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := parseJSON(r, dst); err != nil {
		return err
	}
	return validateStruct(dst)
}

// statusFor maps domain and service errors to a status; anything else gets
// fallback.
func statusFor(err error, fallback int) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRecentlyWritten):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, app.ErrMissingCredentials):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsertFailed):
		return http.StatusInternalServerError
	default:
		return fallback
	}
}

// fail writes err with the mapped status. Streaming-buffer refusals get the
// user-facing explanation instead of the raw warehouse text.
func (s *Server) fail(w http.ResponseWriter, err error, fallback int) {
	status := statusFor(err, fallback)
	switch {
	case errors.Is(err, domain.ErrRecentlyWritten):
		err = errors.New(domain.RecentlyWrittenMessage)
	case errors.Is(err, domain.ErrInsertFailed):
		err = errors.New("failed to save record")
	case status >= http.StatusInternalServerError:
		s.log.Error("request failed", "error", err)
	}
	writeError(w, status, err)
}

// failReflection reports reflection-path errors: the raw message with 400,
// except for not-found and streaming-buffer refusals, which map as usual.
func (s *Server) failReflection(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInsertFailed) {
		s.log.Error("reflection write failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.fail(w, err, http.StatusBadRequest)
}

// parseTimeBound accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date
// (midnight UTC).
func parseTimeBound(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%q is not an RFC 3339 timestamp or YYYY-MM-DD date", v)
	}
	t := d.In(time.UTC)
	return &t, nil
}

func apiNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, domain.ErrNotFound)
}

func spaFromDisk(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	indexPath := path.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := path.Clean(r.URL.Path)
		if reqPath == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		staticPath := path.Join(dir, reqPath)
		if info, err := os.Stat(staticPath); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFile(w, r, indexPath)
	})
}
