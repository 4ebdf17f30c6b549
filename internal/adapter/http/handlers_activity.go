package adapthttp

import (
	"net/http"
	"time"

	"healthreport/internal/domain"
)

type createActivityRequest struct {
	StartTime       *time.Time `json:"start_time" validate:"required"`
	EndTime         *time.Time `json:"end_time" validate:"required"`
	ActivityContent *string    `json:"activity_content" validate:"required"`
	CategoryID      *string    `json:"category_id" validate:"required"`
	FatigueLevel    *int       `json:"fatigue_level" validate:"required,min=0,max=5"`
	FatigueNotes    *string    `json:"fatigue_notes"`
}

func (req createActivityRequest) input() domain.ActivityInput {
	return domain.ActivityInput{
		StartTime:       *req.StartTime,
		EndTime:         *req.EndTime,
		ActivityContent: *req.ActivityContent,
		CategoryID:      *req.CategoryID,
		FatigueLevel:    *req.FatigueLevel,
		FatigueNotes:    req.FatigueNotes,
	}
}

// updateActivityRequest mirrors the create body with every field optional.
// A JSON null decodes to nil and is treated like an absent field.
type updateActivityRequest struct {
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	ActivityContent *string    `json:"activity_content"`
	CategoryID      *string    `json:"category_id"`
	FatigueLevel    *int       `json:"fatigue_level" validate:"omitempty,min=0,max=5"`
	FatigueNotes    *string    `json:"fatigue_notes"`
}

func (req updateActivityRequest) patch() domain.ActivityPatch {
	return domain.ActivityPatch{
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		ActivityContent: req.ActivityContent,
		CategoryID:      req.CategoryID,
		FatigueLevel:    req.FatigueLevel,
		FatigueNotes:    req.FatigueNotes,
	}
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req createActivityRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := s.activities.Create(r.Context(), currentUser(r).ID, req.input())
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseTimeBound(q.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, &ValidationError{Fields: map[string]string{"start_date": err.Error()}})
		return
	}
	end, err := parseTimeBound(q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, &ValidationError{Fields: map[string]string{"end_date": err.Error()}})
		return
	}

	items, err := s.activities.List(r.Context(), currentUser(r).ID, domain.ActivityRange{Start: start, End: end})
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	a, err := s.activities.Get(r.Context(), r.PathValue("id"), currentUser(r).ID)
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req updateActivityRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := s.activities.Update(r.Context(), r.PathValue("id"), currentUser(r).ID, req.patch())
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := s.activities.Delete(r.Context(), r.PathValue("id"), currentUser(r).ID); err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
