package httphandler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/tokenforge/nestledger/modules/nonfungible/api/httphandler"
	"github.com/tokenforge/nestledger/modules/nonfungible/ledger"
	"github.com/tokenforge/nestledger/modules/nonfungible/repository/memory"
	"github.com/tokenforge/nestledger/modules/nonfungible/usecase"
	"github.com/tokenforge/nestledger/pkg/errorhandler"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	repo := memory.NewRepository()
	l := ledger.New(repo)
	u := usecase.New(repo, l)
	handler := httphandler.New(l, u, 5)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorhandler.NewHTTPErrorHandler(),
	})
	require.NoError(t, handler.Mount(app))
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func createCollection(t *testing.T, app *fiber.App, owner string) int {
	t.Helper()
	status, body := do(t, app, http.MethodPost, "/v1/nft/collections", map[string]any{
		"sender": owner,
		"name":   "test collection",
	})
	require.Equal(t, http.StatusOK, status)
	result := body["result"].(map[string]any)
	return int(result["collectionId"].(float64))
}

func mintToken(t *testing.T, app *fiber.App, collection int, sender, owner string) int {
	t.Helper()
	status, body := do(t, app, http.MethodPost, fmt.Sprintf("/v1/nft/collections/%d/tokens", collection), map[string]any{
		"sender": sender,
		"items":  []map[string]any{{"owner": owner}},
	})
	require.Equal(t, http.StatusOK, status)
	result := body["result"].(map[string]any)
	ids := result["tokenIds"].([]any)
	require.Len(t, ids, 1)
	return int(ids[0].(float64))
}

func TestCreateCollectionRequiresSender(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/v1/nft/collections", map[string]any{
		"name": "no sender",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "validation error", body["error"])
}

func TestMintRequiresItems(t *testing.T) {
	app := newTestApp(t)
	collection := createCollection(t, app, "alice")

	status, body := do(t, app, http.MethodPost, fmt.Sprintf("/v1/nft/collections/%d/tokens", collection), map[string]any{
		"sender": "alice",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "validation error", body["error"])
}

func TestTokenRouteRejectsZeroTokenId(t *testing.T) {
	app := newTestApp(t)
	collection := createCollection(t, app, "alice")

	status, body := do(t, app, http.MethodPost, fmt.Sprintf("/v1/nft/collections/%d/tokens/0/transfer", collection), map[string]any{
		"sender": "alice",
		"to":     "bob",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "validation error", body["error"])
}

func TestGetCollectionNotFound(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodGet, "/v1/nft/collections/42", nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.NotEmpty(t, body["error"])
}

func TestMintTransferBurnFlow(t *testing.T) {
	app := newTestApp(t)
	collection := createCollection(t, app, "alice")
	token := mintToken(t, app, collection, "alice", "alice")

	status, _ := do(t, app, http.MethodPost, fmt.Sprintf("/v1/nft/collections/%d/tokens/%d/transfer", collection, token), map[string]any{
		"sender": "alice",
		"to":     "bob",
	})
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, app, http.MethodGet, fmt.Sprintf("/v1/nft/collections/%d/tokens/%d", collection, token), nil)
	require.Equal(t, http.StatusOK, status)
	result := body["result"].(map[string]any)
	require.Equal(t, "bob", result["owner"])
	require.Equal(t, "bob", result["topmostOwner"])

	status, _ = do(t, app, http.MethodPost, fmt.Sprintf("/v1/nft/collections/%d/tokens/%d/burn", collection, token), map[string]any{
		"sender": "bob",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = do(t, app, http.MethodGet, fmt.Sprintf("/v1/nft/collections/%d", collection), nil)
	require.Equal(t, http.StatusOK, status)
	collectionResult := body["result"].(map[string]any)
	require.Equal(t, float64(0), collectionResult["totalSupply"])
}

func TestTransferByNonOwnerReturnsErrorKind(t *testing.T) {
	app := newTestApp(t)
	collection := createCollection(t, app, "alice")
	token := mintToken(t, app, collection, "alice", "alice")

	status, body := do(t, app, http.MethodPost, fmt.Sprintf("/v1/nft/collections/%d/tokens/%d/transfer", collection, token), map[string]any{
		"sender": "bob",
		"from":   "alice",
		"to":     "bob",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.NotEmpty(t, body["error"])
}

func TestBurnRecursivelyReportsResult(t *testing.T) {
	app := newTestApp(t)
	collection := createCollection(t, app, "alice")
	parent := mintToken(t, app, collection, "alice", "alice")

	// nest a child under the parent, then burn the subtree
	status, body := do(t, app, http.MethodPost, fmt.Sprintf("/v1/nft/collections/%d/tokens", collection), map[string]any{
		"sender": "alice",
		"items":  []map[string]any{{"owner": fmt.Sprintf("nested:%d:%d", collection, parent)}},
	})
	require.Equal(t, http.StatusOK, status)
	_ = body

	status, body = do(t, app, http.MethodPost, fmt.Sprintf("/v1/nft/collections/%d/tokens/%d/burn-recursively", collection, parent), map[string]any{
		"sender": "alice",
	})
	require.Equal(t, http.StatusOK, status)
	result := body["result"].(map[string]any)
	require.Equal(t, float64(2), result["tokensBurned"])
}

func TestSetAllowanceAndDelegatedTransfer(t *testing.T) {
	app := newTestApp(t)
	collection := createCollection(t, app, "alice")
	token := mintToken(t, app, collection, "alice", "alice")

	status, _ := do(t, app, http.MethodPut, fmt.Sprintf("/v1/nft/collections/%d/tokens/%d/allowance", collection, token), map[string]any{
		"sender":  "alice",
		"spender": "carol",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodPost, fmt.Sprintf("/v1/nft/collections/%d/tokens/%d/transfer", collection, token), map[string]any{
		"sender": "carol",
		"from":   "alice",
		"to":     "bob",
	})
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, app, http.MethodGet, fmt.Sprintf("/v1/nft/collections/%d/accounts/bob/tokens", collection), nil)
	require.Equal(t, http.StatusOK, status)
	result := body["result"].(map[string]any)
	require.Equal(t, float64(1), result["balance"])
}
