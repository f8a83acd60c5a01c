package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/types"
)

var errUnknown = errors.New("unknown error")

// WriteSuccess wraps data in the success envelope with a 200.
func WriteSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto its HTTP status and public body. Errors without a
// code are treated as internal and never leak their text. The full chain is
// logged when logg is set.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errUnknown
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := types.ErrorEnvelope{
		Error: typed.PublicMessage(),
		Code:  string(typed.Code()),
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		fields := pkgerrors.Dump(err).Fields()
		fields["http_status"] = meta.HTTPStatus
		logg.Error(logg.WithFields(ctx, fields), "request.error", err)
	}

	writeJSON(w, meta.HTTPStatus, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent, so an encode failure can only be dropped
	_ = json.NewEncoder(w).Encode(payload)
}
