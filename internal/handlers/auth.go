package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/vaughan-dsouza/clubhouse/internal/auth"
	"github.com/vaughan-dsouza/clubhouse/internal/middleware"
	"github.com/vaughan-dsouza/clubhouse/internal/session"
	"github.com/vaughan-dsouza/clubhouse/internal/utils"
	"github.com/vaughan-dsouza/clubhouse/internal/views"
)

const minPasswordLength = 3

// ----------- Request DTOs -------------

type signUpReq struct {
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
	IsAdmin              bool   `json:"isAdmin"`
}

func (s *signUpReq) BindForm(form url.Values) {
	s.FirstName = form.Get("firstName")
	s.LastName = form.Get("lastName")
	s.Email = form.Get("email")
	s.Password = form.Get("password")
	s.PasswordConfirmation = form.Get("passwordConfirmation")
	s.IsAdmin = utils.FormBool(form, "isAdmin")
}

// validate reports every problem at once.
func (s *signUpReq) validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(s.FirstName) == "" {
		verr.Add("firstName", "first name is required")
	}
	if strings.TrimSpace(s.LastName) == "" {
		verr.Add("lastName", "last name is required")
	}
	if strings.TrimSpace(s.Email) == "" {
		verr.Add("email", "email is required")
	}
	if utf8.RuneCountInString(s.Password) < minPasswordLength {
		verr.Add("password", "password must be at least 3 characters")
	}
	if s.PasswordConfirmation != s.Password {
		verr.Add("passwordConfirmation", "password confirmation does not match password")
	}
	return verr.Err()
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (l *loginReq) BindForm(form url.Values) {
	l.Email = form.Get("email")
	l.Password = form.Get("password")
}

// -------------- SIGN UP ----------------------

func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) error {
	return h.render(w, r, views.Signup, "Sign up", nil)
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) error {
	var req signUpReq
	if err := utils.DecodeBody(w, r, &req); err != nil {
		return nil
	}

	if err := req.validate(); err != nil {
		return err
	}

	// Only an existing admin may mint another admin.
	isAdmin := false
	if req.IsAdmin {
		current, ok := currentUser(r)
		if middleware.Allows(current, ok, middleware.Admin) {
			isAdmin = true
		} else {
			h.log.WarnContext(r.Context(), "ignoring isAdmin on signup from non-admin", "email", req.Email)
		}
	}

	created, err := h.auth.Register(r.Context(), auth.SignupInput{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		IsAdmin:   isAdmin,
	})
	if err != nil {
		return err
	}

	h.log.InfoContext(r.Context(), "user created", "user_id", created.ID, "is_admin", created.IsAdmin)

	if utils.IsJSON(r) {
		utils.JSON(w, http.StatusOK, map[string]string{"message": "User created successfully"})
		return nil
	}
	redirectHome(w, r)
	return nil
}

// -------------- LOGIN ------------------------

// Login redirects home whatever the outcome; only a successful login sets
// the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) error {
	var req loginReq
	if err := utils.DecodeBody(w, r, &req); err != nil {
		return nil
	}

	user, err := h.auth.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrIncorrectEmail), errors.Is(err, auth.ErrIncorrectPassword):
			h.log.InfoContext(r.Context(), "login failed", "reason", err.Error())
		default:
			h.log.ErrorContext(r.Context(), "login failed", "err", err)
		}
		redirectHome(w, r)
		return nil
	}

	if sid, ok := middleware.SessionID(r.Context()); ok {
		if err := h.auth.DestroySession(r.Context(), sid); err != nil {
			return err
		}
	}

	sess, err := h.auth.CreateSession(r.Context(), user)
	if err != nil {
		return err
	}

	ck, err := h.cookies.Cookie(sess)
	if err != nil {
		return err
	}
	session.SetCookie(w, ck)

	h.log.InfoContext(r.Context(), "login", "user_id", user.ID)
	redirectHome(w, r)
	return nil
}

// -------------- LOGOUT -----------------------

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) error {
	if sid, ok := middleware.SessionID(r.Context()); ok {
		if err := h.auth.DestroySession(r.Context(), sid); err != nil {
			return err
		}
	}

	session.SetCookie(w, h.cookies.Clear())
	redirectHome(w, r)
	return nil
}
