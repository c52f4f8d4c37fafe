package handler

import (
	"encoding/json"
	"net/http"

	"arcstore-api/internal/service"
	"arcstore-api/pkg/apierror"
	"arcstore-api/pkg/response"
)

// maxBodyBytes caps request bodies on the JSON endpoints.
const maxBodyBytes = 1 << 16

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) *apierror.Error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	return nil
}

// writeResult writes a store workflow outcome. Business failures are
// ordinary responses with success=false; only an unavailable store maps to 503.
func writeResult(w http.ResponseWriter, res *service.Result) {
	status := http.StatusOK
	if res.Code == service.CodeStoreUnavailable {
		status = http.StatusServiceUnavailable
	}
	response.Raw(w, status, res)
}
