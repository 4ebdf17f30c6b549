package adapthttp

import (
	"net/http"

	"cloud.google.com/go/civil"

	"healthreport/internal/app"
	"healthreport/internal/domain"
)

type questionRequest struct {
	Text  string `json:"text" validate:"required"`
	Score int    `json:"score" validate:"min=1,max=5"`
}

func toQuestions(in []questionRequest) []domain.Question {
	out := make([]domain.Question, 0, len(in))
	for _, q := range in {
		out = append(out, domain.Question{Text: q.Text, Score: q.Score})
	}
	return out
}

// upsertReflectionRequest accepts the whole stored shape. The derived load
// score is recomputed server-side, so a client-supplied value is ignored.
type upsertReflectionRequest struct {
	WeekStartDate         string   `json:"week_start_date" validate:"required,datetime=2006-01-02"`
	ReflectionNotes       *string  `json:"reflection_notes"`
	AIDiagnosisResult     *string  `json:"ai_diagnosis_result"`
	WeeklyTotalLoadPoints *float64 `json:"weekly_total_load_points"`

	Title      *string           `json:"title"`
	Questions  []questionRequest `json:"questions" validate:"omitempty,dive"`
	Anxieties  *string           `json:"anxieties"`
	GoodThings *string           `json:"good_things"`
}

// diagnosisRequest accepts the same body as an upsert; only the survey
// content feeds the comment.
type diagnosisRequest struct {
	WeekStartDate         string   `json:"week_start_date"`
	ReflectionNotes       *string  `json:"reflection_notes"`
	AIDiagnosisResult     *string  `json:"ai_diagnosis_result"`
	WeeklyTotalLoadPoints *float64 `json:"weekly_total_load_points"`

	Title      *string           `json:"title"`
	Questions  []questionRequest `json:"questions" validate:"omitempty,dive"`
	Anxieties  *string           `json:"anxieties"`
	GoodThings *string           `json:"good_things"`
}

func (s *Server) handleUpsertReflection(w http.ResponseWriter, r *http.Request) {
	var req upsertReflectionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	week, err := app.ParseWeekStart(req.WeekStartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	saved, err := s.reflections.Upsert(r.Context(), currentUser(r).ID, domain.ReflectionInput{
		WeekStartDate:     week,
		ReflectionNotes:   req.ReflectionNotes,
		Title:             req.Title,
		Questions:         toQuestions(req.Questions),
		Anxieties:         req.Anxieties,
		GoodThings:        req.GoodThings,
		AIDiagnosisResult: req.AIDiagnosisResult,
	})
	if err != nil {
		s.failReflection(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "saved", "data": saved})
}

func (s *Server) handleListReflections(w http.ResponseWriter, r *http.Request) {
	var week *civil.Date
	if v := r.URL.Query().Get("week_start_date"); v != "" {
		d, err := app.ParseWeekStart(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		week = &d
	}

	items, err := s.reflections.List(r.Context(), currentUser(r).ID, week)
	if err != nil {
		s.failReflection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDiagnosis(w http.ResponseWriter, r *http.Request) {
	var req diagnosisRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	comment := s.reflections.Diagnose(r.Context(), app.DiagnosisRequest{
		Title:      deref(req.Title),
		Questions:  toQuestions(req.Questions),
		Anxieties:  deref(req.Anxieties),
		GoodThings: deref(req.GoodThings),
	})
	writeJSON(w, http.StatusOK, map[string]any{"ai_comment": comment})
}

func (s *Server) handleWeeklyLoadSummary(w http.ResponseWriter, r *http.Request) {
	week, err := app.ParseWeekStart(r.URL.Query().Get("week_start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	summary, err := s.reflections.WeeklySummary(r.Context(), currentUser(r).ID, week)
	if err != nil {
		s.failReflection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
