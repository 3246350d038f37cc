package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vaughan-dsouza/clubhouse/internal/middleware"
	"github.com/vaughan-dsouza/clubhouse/internal/models"
	"github.com/vaughan-dsouza/clubhouse/internal/utils"
	"github.com/vaughan-dsouza/clubhouse/internal/views"
)

const maxTitleLength = 255

type messageReq struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (m *messageReq) BindForm(form url.Values) {
	m.Title = form.Get("title")
	m.Text = form.Get("text")
}

func (m *messageReq) validate() error {
	verr := &ValidationError{}
	title := strings.TrimSpace(m.Title)
	switch {
	case title == "":
		verr.Add("title", "title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		verr.Add("title", "title must be at most 255 characters")
	}
	if strings.TrimSpace(m.Text) == "" {
		verr.Add("text", "text is required")
	}
	return verr.Err()
}

// messageJSON is the list entry sent to JSON clients. Author fields are
// left out for viewers who may not see them.
type messageJSON struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	Author    string     `json:"author,omitempty"`
	AuthorID  int64      `json:"authorId,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ---------------------- LIST ----------------------

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) error {
	msgs, err := h.messages.ListMessages(r.Context())
	if err != nil {
		return err
	}

	user, ok := currentUser(r)
	showAuthors := middleware.Allows(user, ok, middleware.Member)

	if utils.WantsJSON(r) {
		out := make([]messageJSON, 0, len(msgs))
		for _, m := range msgs {
			entry := messageJSON{ID: m.ID, Title: m.Title, Text: m.Text}
			if showAuthors {
				created := m.CreatedAt
				entry.Author = m.AuthorName()
				entry.AuthorID = m.AuthorID
				entry.CreatedAt = &created
			}
			out = append(out, entry)
		}
		utils.JSON(w, http.StatusOK, out)
		return nil
	}

	return h.render(w, r, views.Index, "Clubhouse", views.IndexData{Messages: msgs, ShowAuthors: showAuthors})
}

// ---------------------- CREATE ----------------------

func (h *Handler) NewMessageForm(w http.ResponseWriter, r *http.Request) error {
	return h.render(w, r, views.New, "New message", nil)
}

func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) error {
	user, ok := currentUser(r)
	if !ok {
		redirectHome(w, r)
		return nil
	}

	var req messageReq
	if err := utils.DecodeBody(w, r, &req); err != nil {
		return nil
	}
	if err := req.validate(); err != nil {
		return err
	}

	msg, err := h.messages.CreateMessage(r.Context(), models.Message{
		Title:    strings.TrimSpace(req.Title),
		Text:     req.Text,
		AuthorID: user.ID,
	})
	if err != nil {
		return err
	}

	h.log.InfoContext(r.Context(), "message posted", "message_id", msg.ID, "author_id", user.ID)

	if utils.IsJSON(r) {
		utils.JSON(w, http.StatusCreated, msg)
		return nil
	}
	redirectHome(w, r)
	return nil
}
