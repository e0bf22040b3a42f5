package common_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepcae-backend/pkg/common"
	pkgerrors "deepcae-backend/pkg/errors"
)

func TestRespondJSON_Envelope(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/nodes", nil)
	req = req.WithContext(common.WithRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()

	common.RespondJSON(rec, req, 200, map[string]string{"branch": "main"})

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "req-42", resp.Meta.RequestID)
}

func TestRespondError_MapsAppError(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/nodes/meshA/rollback", nil)
	rec := httptest.NewRecorder()

	common.RespondError(rec, req, pkgerrors.NewConcurrencyError("meshA"))

	require.Equal(t, 409, rec.Code)
	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(pkgerrors.ErrorTypeConcurrency), resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}

func TestRespondError_HidesInternalDetail(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/nodes", nil)
	rec := httptest.NewRecorder()

	common.RespondError(rec, req, pkgerrors.NewDatabaseError("scan", assert.AnError))

	require.Equal(t, 500, rec.Code)
	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "internal server error", resp.Error.Message)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestParseJSONBody_EnforcesLimitAndUnknownFields(t *testing.T) {
	type payload struct {
		Description string `json:"description"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"description":"ok"}`))
	var p payload
	require.NoError(t, common.ParseJSONBody(httptest.NewRecorder(), req, &p, 1024))
	assert.Equal(t, "ok", p.Description)

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"unknown":true}`))
	assert.Error(t, common.ParseJSONBody(httptest.NewRecorder(), req, &p, 1024))

	big := `{"description":"` + strings.Repeat("x", 100) + `"}`
	req = httptest.NewRequest("POST", "/", strings.NewReader(big))
	assert.Error(t, common.ParseJSONBody(httptest.NewRecorder(), req, &p, 16))
}

func TestAuthorFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, common.AnonymousAuthor, common.AuthorFromContext(ctx))

	ctx = common.WithUserID(ctx, "user-1")
	assert.Equal(t, "user-1", common.AuthorFromContext(ctx))
}
