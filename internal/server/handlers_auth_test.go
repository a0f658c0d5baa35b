package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/pressroom/internal/types"
)

func postJSON(t *testing.T, h http.Handler, path string, payload any, token string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, h http.Handler) types.LoginResponse {
	t.Helper()
	rec := postJSON(t, h, "/auth/register", types.CreateUserRequest{
		Name: "Jordan", Email: "jordan@example.com", Password: "correct-horse",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp types.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRegister_ReturnsUserAndValidToken(t *testing.T) {
	h := newTriggerHarness(t)
	handler := h.server.Handler()

	resp := registerUser(t, handler)
	assert.Equal(t, "Jordan", resp.User.Name)
	assert.Equal(t, "jordan@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token)

	claims, err := h.server.deps.JWT.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	h := newTriggerHarness(t)
	handler := h.server.Handler()

	registerUser(t, handler)
	rec := postJSON(t, handler, "/auth/register", types.CreateUserRequest{
		Name: "Other", Email: "jordan@example.com", Password: "another-pass",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	h := newTriggerHarness(t)
	rec := postJSON(t, h.server.Handler(), "/auth/register", types.CreateUserRequest{
		Name: "Jordan", Email: "jordan@example.com", Password: "short",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_WrongPasswordIs401(t *testing.T) {
	h := newTriggerHarness(t)
	handler := h.server.Handler()
	registerUser(t, handler)

	rec := postJSON(t, handler, "/auth/login", types.LoginRequest{
		Email: "jordan@example.com", Password: "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_UnknownEmailMatchesWrongPassword(t *testing.T) {
	h := newTriggerHarness(t)
	handler := h.server.Handler()
	registerUser(t, handler)

	wrongPass := postJSON(t, handler, "/auth/login", types.LoginRequest{
		Email: "jordan@example.com", Password: "wrong-password",
	}, "")
	unknown := postJSON(t, handler, "/auth/login", types.LoginRequest{
		Email: "nobody@example.com", Password: "wrong-password",
	}, "")
	assert.Equal(t, wrongPass.Code, unknown.Code)
	assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())
}

func TestLogin_Succeeds(t *testing.T) {
	h := newTriggerHarness(t)
	handler := h.server.Handler()
	registered := registerUser(t, handler)

	rec := postJSON(t, handler, "/auth/login", types.LoginRequest{
		Email: "jordan@example.com", Password: "correct-horse",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.NotEmpty(t, resp.Token)
}

func TestUsersMe_RequiresAuth(t *testing.T) {
	h := newTriggerHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersMe_ReturnsProfile(t *testing.T) {
	h := newTriggerHarness(t)
	handler := h.server.Handler()
	registered := registerUser(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+registered.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var user types.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	assert.Equal(t, registered.User.ID, user.ID)
}

func TestCredit_TopsUpBalance(t *testing.T) {
	h := newTriggerHarness(t)
	handler := h.server.Handler()
	registered := registerUser(t, handler)

	rec := postJSON(t, handler, "/users/me/credit", types.CreditRequest{Amount: 1000}, registered.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int64
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(1000), resp["balance"])
}

func TestCredit_RejectsNonPositiveAmount(t *testing.T) {
	h := newTriggerHarness(t)
	handler := h.server.Handler()
	registered := registerUser(t, handler)

	rec := postJSON(t, handler, "/users/me/credit", map[string]int64{"amount": -5}, registered.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSlot_AndListPublications(t *testing.T) {
	h := newTriggerHarness(t)
	handler := h.server.Handler()
	registered := registerUser(t, handler)

	rec := postJSON(t, handler, "/slots", createSlotRequest{
		Name:        "coffee-blog",
		Platform:    types.PlatformWordPress,
		ContentType: types.ContentTypeLongform,
		Topics: []types.TopicCluster{
			{Name: "cold brew", MainPhrase: "cold brew coffee", LongformEligible: true},
		},
	}, registered.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var slot types.ContentSlot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&slot))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", slot.ID.String())

	pubReq := httptest.NewRequest(http.MethodGet, "/slots/"+slot.ID.String()+"/publications", nil)
	pubReq.Header.Set("Authorization", "Bearer "+registered.Token)
	pubRec := httptest.NewRecorder()
	handler.ServeHTTP(pubRec, pubReq)
	require.Equal(t, http.StatusOK, pubRec.Code)

	var listResp struct {
		Publications []types.PublicationRecord `json:"publications"`
	}
	require.NoError(t, json.NewDecoder(pubRec.Body).Decode(&listResp))
	assert.Empty(t, listResp.Publications)
}
