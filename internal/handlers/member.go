package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/vaughan-dsouza/clubhouse/internal/auth"
	"github.com/vaughan-dsouza/clubhouse/internal/utils"
	"github.com/vaughan-dsouza/clubhouse/internal/views"
)

type memberReq struct {
	MemberCode string `json:"memberCode"`
}

func (m *memberReq) BindForm(form url.Values) {
	m.MemberCode = form.Get("memberCode")
}

func (h *Handler) MemberForm(w http.ResponseWriter, r *http.Request) error {
	return h.render(w, r, views.Member, "Membership", nil)
}

// UpgradeMembership grants isMember to the current user when the shared
// member code matches.
func (h *Handler) UpgradeMembership(w http.ResponseWriter, r *http.Request) error {
	user, ok := currentUser(r)
	if !ok {
		redirectHome(w, r)
		return nil
	}

	var req memberReq
	if err := utils.DecodeBody(w, r, &req); err != nil {
		return nil
	}

	err := h.auth.UpgradeMembership(r.Context(), user.ID, req.MemberCode)
	if errors.Is(err, auth.ErrWrongMemberCode) {
		h.log.InfoContext(r.Context(), "wrong member code", "user_id", user.ID)
		verr := &ValidationError{}
		verr.Add("memberCode", "incorrect member code")
		return verr
	}
	if err != nil {
		return err
	}

	h.log.InfoContext(r.Context(), "membership granted", "user_id", user.ID)
	redirectHome(w, r)
	return nil
}
