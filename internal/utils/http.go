package utils

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// JSON writes a JSON response with status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// JSONError writes {"error": "..."} with a given status.
func JSONError(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// FormBinder is implemented by request types that can also be filled from
// an urlencoded form.
type FormBinder interface {
	BindForm(form url.Values)
}

// IsJSON reports whether the request body is JSON.
func IsJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// WantsJSON reports whether the client sent or asked for JSON.
func WantsJSON(r *http.Request) bool {
	if IsJSON(r) {
		return true
	}
	for _, entry := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(entry))
		if err != nil || mt != "application/json" {
			continue
		}
		if q, ok := params["q"]; ok && strings.Trim(q, "0.") == "" {
			continue
		}
		return true
	}
	return false
}

// DecodeBody fills v from a JSON or urlencoded body and writes a 400 on
// malformed input.
func DecodeBody(w http.ResponseWriter, r *http.Request, v FormBinder) error {
	if IsJSON(r) {
		return DecodeJSON(w, r, v)
	}

	if err := r.ParseForm(); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return err
	}
	v.BindForm(r.PostForm)
	return nil
}

// DecodeJSON parses the JSON body into v and handles invalid JSON.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		JSONError(w, http.StatusBadRequest, "empty request body")
		return http.ErrBodyNotAllowed
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return err
	}

	return nil
}

// FormBool reads a checkbox-style boolean ("on", "true", "1").
func FormBool(form url.Values, key string) bool {
	switch form.Get(key) {
	case "on", "true", "1":
		return true
	default:
		return false
	}
}
