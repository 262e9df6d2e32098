package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
)

const (
	// TransferServiceName is the fully-qualified name of the transfer service
	TransferServiceName = "xcmhub.v1.TransferService"

	BuildTransferProcedure = "/" + TransferServiceName + "/BuildTransfer"
	BuildBatchProcedure    = "/" + TransferServiceName + "/BuildBatch"
	ListChainsProcedure    = "/" + TransferServiceName + "/ListChains"
	GetAssetInfoProcedure  = "/" + TransferServiceName + "/GetAssetInfo"
)

// JSONCodec lets connect carry the plain Go request and response types. It
// replaces connect's protobuf JSON codec under the same name.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}

// TransferServiceHandler is implemented by TransferServer
type TransferServiceHandler interface {
	BuildTransfer(context.Context, *connect.Request[models.BuildTransferRequest]) (*connect.Response[models.BuildTransferResponse], error)
	BuildBatch(context.Context, *connect.Request[models.BuildBatchRequest]) (*connect.Response[models.BuildBatchResponse], error)
	ListChains(context.Context, *connect.Request[models.ListChainsRequest]) (*connect.Response[models.ListChainsResponse], error)
	GetAssetInfo(context.Context, *connect.Request[models.GetAssetInfoRequest]) (*connect.Response[models.GetAssetInfoResponse], error)
}

// NewTransferServiceHandler builds the http handler of the service and the
// path prefix to mount it on
func NewTransferServiceHandler(svc TransferServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	lookupOpts := append(append([]connect.HandlerOption{}, opts...),
		connect.WithIdempotency(connect.IdempotencyNoSideEffects))

	buildTransfer := connect.NewUnaryHandler(BuildTransferProcedure, svc.BuildTransfer, opts...)
	buildBatch := connect.NewUnaryHandler(BuildBatchProcedure, svc.BuildBatch, opts...)
	listChains := connect.NewUnaryHandler(ListChainsProcedure, svc.ListChains, lookupOpts...)
	getAssetInfo := connect.NewUnaryHandler(GetAssetInfoProcedure, svc.GetAssetInfo, lookupOpts...)

	return "/" + TransferServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case BuildTransferProcedure:
			buildTransfer.ServeHTTP(w, r)
		case BuildBatchProcedure:
			buildBatch.ServeHTTP(w, r)
		case ListChainsProcedure:
			listChains.ServeHTTP(w, r)
		case GetAssetInfoProcedure:
			getAssetInfo.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
