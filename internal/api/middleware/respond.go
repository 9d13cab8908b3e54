package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hugh/birthday-buddy/internal/api/dto"
)

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg})
}
