package rpc

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
)

const (
	// metadata keys carried by every transfer error
	errorKindKey = "Xcmhub-Error-Kind"
	errorHintKey = "Xcmhub-Error-Hint"
)

// codeOf maps an error kind to the connect code returned to clients
func codeOf(kind models.ErrorKind) connect.Code {
	switch kind {
	case models.KindInvalidCurrency,
		models.KindDuplicateAsset,
		models.KindDuplicateAssetID,
		models.KindInvalidAddress,
		models.KindInvalidParameter:
		return connect.CodeInvalidArgument
	case models.KindNodeNotSupported,
		models.KindNoXcmSupport,
		models.KindScenarioNotSupported,
		models.KindIncompatibleNodes:
		return connect.CodeFailedPrecondition
	default:
		return connect.CodeInternal
	}
}

// toConnectError converts engine errors. Internal failures are logged and
// reported without their details.
func toConnectError(procedure string, err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	var te *models.TransferError
	if !errors.As(err, &te) {
		Logger.Error().Err(err).Str("procedure", procedure).Msg("Unexpected error")
		return connect.NewError(connect.CodeInternal, fmt.Errorf("internal server error"))
	}
	out := connect.NewError(codeOf(te.Kind), err)
	out.Meta().Set(errorKindKey, string(te.Kind))
	if te.Hint != "" {
		out.Meta().Set(errorHintKey, te.Hint)
	}
	return out
}
