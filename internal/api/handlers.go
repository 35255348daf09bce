package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/freakspace/leadtool/internal/harvest"
	"github.com/freakspace/leadtool/internal/model"
	"github.com/freakspace/leadtool/internal/store"
)

type handlers struct {
	store store.Store
}

func (h *handlers) listLinks(w http.ResponseWriter, r *http.Request) {
	var f store.LinkFilter
	var err error
	f.Domain = r.URL.Query().Get("domain")
	if f.Captured, err = boolQuery(r, "captured"); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if f.Parsed, err = boolQuery(r, "parsed"); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if f.Invalid, err = boolQuery(r, "invalid"); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if f.Limit, err = intQuery(r, "limit"); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if f.Offset, err = intQuery(r, "offset"); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	links, err := h.store.ListLinks(r.Context(), f)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": nonNil(links)})
}

func (h *handlers) linksForParsing(w http.ResponseWriter, r *http.Request) {
	links, err := h.store.FetchUnparsed(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": nonNil(links)})
}

type createLinkRequest struct {
	Link string `json:"link"`
}

func (h *handlers) createLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	domain := harvest.ExtractDomain(req.Link)
	if domain == "" {
		writeError(w, http.StatusBadRequest, "link is required")
		return
	}

	created, err := h.store.CreateLink(r.Context(), domain)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Link created successfully",
		"domain":  domain,
		"created": created,
	})
}

// updateLinkRequest mirrors the editable link columns. Absent keys are left
// untouched.
type updateLinkRequest struct {
	ContentPath    *string    `json:"content_path"`
	ScreenshotPath *string    `json:"screenshot_path"`
	Email          *string    `json:"email"`
	ContactName    *string    `json:"contact_name"`
	Pronoun        *string    `json:"pronoun"`
	Industry       *string    `json:"industry"`
	City           *string    `json:"city"`
	Area           *string    `json:"area"`
	Classification *int       `json:"classification"`
	Description    *string    `json:"description"`
	Parsed         *bool      `json:"parsed"`
	Invalid        *bool      `json:"invalid"`
	ContactedAt    *time.Time `json:"contacted_at"`
}

func (req updateLinkRequest) toUpdate() store.LinkUpdate {
	u := store.LinkUpdate{
		ContentPath:    req.ContentPath,
		ScreenshotPath: req.ScreenshotPath,
		Classification: req.Classification,
		Description:    req.Description,
		Parsed:         req.Parsed,
		Invalid:        req.Invalid,
		ContactedAt:    req.ContactedAt,
		Fields:         map[string]model.Field{},
	}
	for name, v := range map[string]*string{
		model.FieldEmail:       req.Email,
		model.FieldContactName: req.ContactName,
		model.FieldPronoun:     req.Pronoun,
		model.FieldIndustry:    req.Industry,
		model.FieldCity:        req.City,
		model.FieldArea:        req.Area,
	} {
		if v != nil {
			u.Fields[name] = model.NormalizeField(name, model.Value(*v))
		}
	}
	return u
}

func (h *handlers) updateLink(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	var req updateLinkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if c := req.Classification; c != nil && (*c < model.ClassificationUnset || *c > model.ClassificationMax) {
		writeError(w, http.StatusBadRequest, "classification must be between 0 and 10")
		return
	}

	if err := h.store.Update(r.Context(), id, req.toUpdate()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "link %d not found", id)
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Link updated successfully"})
}

type checkSentRequest struct {
	Domain string `json:"domain"`
	Email  string `json:"email"`
}

func (h *handlers) checkSent(w http.ResponseWriter, r *http.Request) {
	var req checkSentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sent, err := h.store.CheckSent(r.Context(), harvest.ExtractDomain(req.Domain), req.Email)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": sent})
}

func (h *handlers) listCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": nonNil(campaigns)})
}

func (h *handlers) nextLead(w http.ResponseWriter, r *http.Request) {
	link, err := h.store.FetchOneUnlabeled(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lead": link})
}

type reviewRequest struct {
	Accepted     bool   `json:"accepted"`
	CampaignID   *int64 `json:"campaign_id"`
	EmailContent string `json:"email_content"`
}

func (h *handlers) reviewLead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	var req reviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.store.GetLink(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "link %d not found", id)
			return
		}
		internalError(w, r, err)
		return
	}

	qc := model.QCRejected
	if req.Accepted {
		qc = model.QCAccepted
	}
	ev, err := h.store.CreateEmailEvent(r.Context(), model.EmailEvent{
		LinkID:     id,
		CampaignID: req.CampaignID,
		QCResult:   qc,
		Content:    req.EmailContent,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"event": ev})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
