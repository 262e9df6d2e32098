package models_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

func TestTransferError(t *testing.T) {
	cause := errors.New("checksum mismatch")
	err := models.NewInvalidAddressError("Hydration", "bad address %q", "5Grw").WithCause(cause).WithHint("use hex")

	assert.Equal(t, err.Error(), `InvalidAddress [Hydration]: bad address "5Grw" (use hex): checksum mismatch`)
	assert.True(t, errors.Is(err, models.ErrInvalidAddress))
	assert.False(t, errors.Is(err, models.ErrInvalidCurrency))
	assert.True(t, errors.Is(err, cause))

	wrapped := fmt.Errorf("transfer 2: %w", err)
	kind, ok := models.KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, kind, models.KindInvalidAddress)
	assert.True(t, models.IsKind(wrapped, models.KindInvalidAddress))

	_, ok = models.KindOf(cause)
	assert.False(t, ok)
}

func TestParams_KeepOrder(t *testing.T) {
	call := models.SerializedCall{
		Module:  "xTokens",
		Section: "transfer",
		Parameters: models.Params{
			{Name: "currency_id", Value: 5},
			{Name: "amount", Value: "1000"},
			{Name: "dest_weight_limit", Value: "Unlimited"},
		},
	}
	b, err := json.Marshal(call)
	assert.NoError(t, err)
	assert.Equal(t, string(b),
		`{"module":"xTokens","section":"transfer","parameters":{"currency_id":5,"amount":"1000","dest_weight_limit":"Unlimited"}}`)

	var decoded models.SerializedCall
	assert.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, decoded.Parameters.Names(), []string{"currency_id", "amount", "dest_weight_limit"})
	v, ok := decoded.Parameters.Get("currency_id")
	assert.True(t, ok)
	assert.Equal(t, string(v.(json.RawMessage)), "5")

	var bad models.Params
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &bad))
}

func TestRequestValidation(t *testing.T) {
	valid := models.TransferIntent{From: "Hydration", Currency: models.Symbol("DOT"), Amount: "1", Address: "0x01"}
	both := &models.Destination{Chain: "Acala", Location: &xcm.MultiLocation{Parents: 1}}
	ambiguous := valid
	ambiguous.To = both

	cases := []struct {
		name string
		req  interface{ Validate() error }
		ok   bool
	}{
		{"transfer", &models.BuildTransferRequest{Intent: valid}, true},
		{"transfer without amount", &models.BuildTransferRequest{Intent: models.TransferIntent{
			Currency: models.Symbol("DOT"), Address: "0x01"}}, false},
		{"multi-asset without amount", &models.BuildTransferRequest{Intent: models.TransferIntent{
			Currency: models.MultiAssets(models.MultiAssetEntry{}), Address: "0x01"}}, true},
		{"raw location", &models.BuildTransferRequest{Intent: models.TransferIntent{
			From: "Hydration", To: models.ToLocation(xcm.ParachainLocation(1, 2000)),
			Currency: models.Symbol("DOT"), Amount: "1", Address: "0x01"}}, true},
		{"chain and location", &models.BuildTransferRequest{Intent: ambiguous}, false},
		{"batch with chain and location", &models.BuildBatchRequest{Transfers: []models.TransferIntent{valid}, To: both}, false},
		{"batch with an ambiguous transfer", &models.BuildBatchRequest{Transfers: []models.TransferIntent{valid, ambiguous}}, false},
		{"empty batch", &models.BuildBatchRequest{}, false},
		{"oversized batch", &models.BuildBatchRequest{Transfers: make([]models.TransferIntent, models.MaxBatchTransfers+1)}, false},
		{"batch", &models.BuildBatchRequest{Transfers: []models.TransferIntent{valid, valid}}, true},
		{"relay filter", &models.ListChainsRequest{Relay: "Kusama"}, true},
		{"unknown relay", &models.ListChainsRequest{Relay: "westend"}, false},
		{"asset info", &models.GetAssetInfoRequest{Chain: "Acala", Currency: models.AssetID("12")}, true},
		{"asset info without currency", &models.GetAssetInfoRequest{Chain: "Acala"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, models.IsKind(err, models.KindInvalidParameter))
		})
	}
}
