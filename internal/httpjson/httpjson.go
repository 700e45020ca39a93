// Package httpjson écrit des réponses JSON homogènes.
// Les erreurs suivent la convention du backend Trakt: {"detail": "..."}.
package httpjson

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Detail string `json:"detail"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, detail string) {
	Write(w, status, ErrorBody{Detail: detail})
}
