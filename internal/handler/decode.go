package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"fakestore-offline/pkg/apierror"
)

const maxJSONBody = 64 << 10

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when optional is set.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return apierror.BadRequest("invalid JSON body")
	}
	return nil
}
