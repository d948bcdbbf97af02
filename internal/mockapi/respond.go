package mockapi

import (
	"encoding/json"
	"net/http"

	"github.com/smartfox/smartfox/internal/domain/models"
)

// response — конверт ответа, который ожидает клиент.
type response struct {
	Status     string             `json:"status"`
	Message    string             `json:"message,omitempty"`
	Data       interface{}        `json:"data,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, response{Status: "success", Data: data})
}

func writePage(w http.ResponseWriter, data interface{}, p models.Pagination) {
	writeJSON(w, http.StatusOK, response{Status: "success", Data: data, Pagination: &p})
}

func writeOK(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, response{Status: "success", Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Status: "error", Message: message})
}

// writeStoreError переводит ошибку хранилища в ответ.
func writeStoreError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if e, ok := err.(*Error); ok {
		writeError(w, status, e.Message)
		return
	}
	writeError(w, status, "internal error")
}

func decodeBody(r *http.Request, v interface{}) error {
	defer func() {
		_ = r.Body.Close()
	}()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errorf(http.StatusBadRequest, "invalid request body")
	}
	return nil
}
