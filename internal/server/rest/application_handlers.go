package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
	"github.com/dmitrijs2005/worktrack/internal/server/services"
	"github.com/gorilla/mux"
)

const dateLayout = "2006-01-02"

type applicationRequest struct {
	CompanyName string                   `json:"companyName"`
	Position    string                   `json:"position"`
	Status      models.ApplicationStatus `json:"status"`
	AppliedDate string                   `json:"appliedDate"`
	Notes       string                   `json:"notes"`
}

type applicationResponse struct {
	ID          int64                    `json:"id"`
	CompanyName string                   `json:"companyName"`
	Position    string                   `json:"position"`
	Status      models.ApplicationStatus `json:"status"`
	AppliedDate *string                  `json:"appliedDate"`
	Notes       string                   `json:"notes"`
	HasResume   bool                     `json:"hasResume"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

type statusRequest struct {
	Status models.ApplicationStatus `json:"status"`
}

type resumeUploadRequest struct {
	FileName string `json:"fileName"`
}

type urlResponse struct {
	URL string `json:"url"`
}

func (req applicationRequest) input() (services.ApplicationInput, error) {
	in := services.ApplicationInput{
		CompanyName: req.CompanyName,
		Position:    req.Position,
		Status:      req.Status,
		Notes:       req.Notes,
	}
	if req.AppliedDate != "" {
		d, err := time.Parse(dateLayout, req.AppliedDate)
		if err != nil {
			return in, fmt.Errorf("%w: appliedDate: must be a date in YYYY-MM-DD format", common.ErrValidation)
		}
		in.AppliedDate = &d
	}
	return in, nil
}

func toApplicationResponse(a *models.JobApplication) applicationResponse {
	resp := applicationResponse{
		ID:          a.ID,
		CompanyName: a.CompanyName,
		Position:    a.Position,
		Status:      a.Status,
		Notes:       a.Notes,
		HasResume:   a.ResumeKey != nil,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.AppliedDate != nil {
		d := a.AppliedDate.Format(dateLayout)
		resp.AppliedDate = &d
	}
	return resp
}

// applicationID reads the {id} route variable. The route pattern already
// restricts it to digits, so only overflow can fail here.
func applicationID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, common.ErrApplicationNotFound
	}
	return id, nil
}

func (s *HTTPServer) createApplication(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.applications.Create(r.Context(), principal(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicationResponse(app))
}

func (s *HTTPServer) listApplications(w http.ResponseWriter, r *http.Request) {
	list, err := s.applications.List(r.Context(), principal(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]applicationResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toApplicationResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) getApplication(w http.ResponseWriter, r *http.Request) {
	id, err := applicationID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.applications.Get(r.Context(), principal(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (s *HTTPServer) updateApplication(w http.ResponseWriter, r *http.Request) {
	id, err := applicationID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req applicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.applications.Update(r.Context(), principal(r), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (s *HTTPServer) patchApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := applicationID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.applications.PatchStatus(r.Context(), principal(r), id, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (s *HTTPServer) deleteApplication(w http.ResponseWriter, r *http.Request) {
	id, err := applicationID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.applications.Delete(r.Context(), principal(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) resumeUploadURL(w http.ResponseWriter, r *http.Request) {
	id, err := applicationID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req resumeUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	url, err := s.applications.ResumeUploadURL(r.Context(), principal(r), id, req.FileName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (s *HTTPServer) resumeDownloadURL(w http.ResponseWriter, r *http.Request) {
	id, err := applicationID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	url, err := s.applications.ResumeDownloadURL(r.Context(), principal(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}
