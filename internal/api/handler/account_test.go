package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/pkg/response"
	"github.com/qs3c/aipara_account_server/internal/testutil"
)

type memAvatars struct {
	uploaded []string
}

func (m *memAvatars) UploadAvatar(uid string, data []byte, ext string) (string, error) {
	url := "https://cdn.example.com/avatars/" + uid + "/1" + ext
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

func (m *memAvatars) DeleteByURL(url string) error {
	return nil
}

func accountRouter(ctx *testContext, uid string) *gin.Engine {
	h := NewAccountHandler(ctx.Profiles, ctx.Accounts)

	router := gin.New()
	router.GET("/plans", h.ListPlans)

	authed := router.Group("")
	if uid != "" {
		authed.Use(mockAuth(uid))
	}
	authed.GET("/account", h.Get)
	authed.GET("/account/subscriptions", h.ListSubscriptions)
	authed.GET("/account/ledger", h.ListLedger)
	authed.POST("/account/avatar", h.UploadAvatar)
	authed.POST("/account/verification", h.RequestCode)
	authed.POST("/account/password", h.SetPassword)
	authed.POST("/account/password/skip", h.SkipPassword)
	authed.POST("/account/email", h.BindEmail)
	authed.POST("/account/phone", h.BindPhone)
	return router
}

func serve(router *gin.Engine, method, path string, body *bytes.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAccountHandler_Get(t *testing.T) {
	ctx := setupServices(t, nil)
	profile := testutil.TestProfile(t, ctx.DB, testutil.WithBalance(30))

	resp := parseResponse(t, serve(accountRouter(ctx, profile.UID), "GET", "/account", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	p := data["profile"].(map[string]interface{})
	assert.Equal(t, profile.UID, p["uid"])
	assert.Equal(t, float64(30), p["balance_amount"])
	plan := data["plan"].(map[string]interface{})
	assert.Equal(t, model.PlanFree, plan["plan_tier"])
}

func TestAccountHandler_Get_Errors(t *testing.T) {
	ctx := setupServices(t, nil)

	resp := parseResponse(t, serve(accountRouter(ctx, ""), "GET", "/account", nil))
	assert.Equal(t, response.CodeUnauthorized, resp.Code)

	resp = parseResponse(t, serve(accountRouter(ctx, "uid_missing"), "GET", "/account", nil))
	assert.Equal(t, response.CodeInvalidRequest, resp.Code)
	assert.Equal(t, "用户信息不存在", resp.Message)
}

func TestAccountHandler_ListSubscriptions(t *testing.T) {
	ctx := setupServices(t, nil)
	profile := testutil.TestProfile(t, ctx.DB)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s := start.AddDate(0, i, 0)
		testutil.TestSubscription(t, ctx.DB, profile.UID, s, s.AddDate(0, 1, 0))
	}

	resp := parseResponse(t, serve(accountRouter(ctx, profile.UID), "GET", "/account/subscriptions?page=1&page_size=2", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["total"])
	assert.Equal(t, float64(2), data["page_size"])
	assert.Len(t, data["items"], 2)

	resp = parseResponse(t, serve(accountRouter(ctx, profile.UID), "GET", "/account/subscriptions?page=abc", nil))
	assert.Equal(t, response.CodeInvalidRequest, resp.Code)
}

func TestAccountHandler_ListLedger_Empty(t *testing.T) {
	ctx := setupServices(t, nil)

	resp := parseResponse(t, serve(accountRouter(ctx, "uid_none"), "GET", "/account/ledger", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["total"])
	assert.Equal(t, float64(1), data["page"])
	assert.Equal(t, float64(20), data["page_size"])
}

func TestAccountHandler_ListPlans(t *testing.T) {
	ctx := setupServices(t, nil)

	resp := parseResponse(t, serve(accountRouter(ctx, ""), "GET", "/plans", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	plans := resp.Data.(map[string]interface{})["plans"].([]interface{})
	assert.Len(t, plans, 2)
}

func TestAccountHandler_VerificationAndPassword(t *testing.T) {
	ctx := setupServices(t, nil)
	profile := testutil.TestProfile(t, ctx.DB)
	router := accountRouter(ctx, profile.UID)

	resp := parseResponse(t, serve(router, "POST", "/account/verification", jsonBody(t, map[string]string{"phone": "13800000000"})))
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	vid := resp.Data.(map[string]interface{})["verification_id"].(string)
	assert.Equal(t, "vid-+86 13800000000", vid)

	resp = parseResponse(t, serve(router, "POST", "/account/password", jsonBody(t, map[string]string{
		"phone":           "13800000000",
		"verification_id": vid,
		"code":            "123456",
		"new_password":    "abc",
	})))
	assert.Equal(t, response.CodeInvalidRequest, resp.Code)
	assert.Equal(t, "密码长度至少 6 位。", resp.Message)

	resp = parseResponse(t, serve(router, "POST", "/account/password", jsonBody(t, map[string]string{
		"phone":           "13800000000",
		"verification_id": vid,
		"code":            "123456",
		"new_password":    "abcdef",
	})))
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	meta := resp.Data.(map[string]interface{})["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["password_set"])
	assert.Equal(t, "phone", meta["password_method"])
	assert.Equal(t, "access-"+profile.UID, ctx.Provider.lastToken)
}

func TestAccountHandler_BindEmail_RequiresPassword(t *testing.T) {
	ctx := setupServices(t, nil)
	profile := testutil.TestProfile(t, ctx.DB)

	resp := parseResponse(t, serve(accountRouter(ctx, profile.UID), "POST", "/account/email", jsonBody(t, map[string]string{
		"email":           "a@example.com",
		"verification_id": "vid",
		"code":            "1",
		"password":        "secret1",
	})))
	assert.Equal(t, response.CodeInvalidRequest, resp.Code)
	assert.Equal(t, "请先设置登录密码后再绑定。", resp.Message)

	resp = parseResponse(t, serve(accountRouter(ctx, profile.UID), "POST", "/account/phone", jsonBody(t, map[string]string{
		"phone": "13800000000",
	})))
	assert.Equal(t, response.CodeInvalidRequest, resp.Code)
}

func TestAccountHandler_SkipPassword(t *testing.T) {
	ctx := setupServices(t, nil)
	profile := testutil.TestProfile(t, ctx.DB)

	resp := parseResponse(t, serve(accountRouter(ctx, profile.UID), "POST", "/account/password/skip", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	meta := resp.Data.(map[string]interface{})["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["password_skipped"])
}

func avatarRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/account/avatar", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestAccountHandler_UploadAvatar(t *testing.T) {
	avatars := &memAvatars{}
	ctx := setupServices(t, avatars)
	profile := testutil.TestProfile(t, ctx.DB)
	router := accountRouter(ctx, profile.UID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, avatarRequest(t, "me.PNG", []byte("png-bytes")))
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)

	url := resp.Data.(map[string]interface{})["avatar_url"].(string)
	assert.Equal(t, "https://cdn.example.com/avatars/"+profile.UID+"/1.png", url)

	var got model.Profile
	require.NoError(t, ctx.DB.Where("uid = ?", profile.UID).First(&got).Error)
	assert.Equal(t, url, got.AvatarURL)
	assert.Equal(t, "测试用户", got.DisplayName)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, avatarRequest(t, "doc.pdf", []byte("pdf")))
	assert.Equal(t, response.CodeInvalidRequest, parseResponse(t, w).Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/account/avatar", nil))
	resp = parseResponse(t, w)
	assert.Equal(t, response.CodeInvalidRequest, resp.Code)
	assert.Equal(t, "请选择文件", resp.Message)
}

func TestAccountHandler_UploadAvatar_TooLarge(t *testing.T) {
	avatars := &memAvatars{}
	ctx := setupServices(t, avatars)
	profile := testutil.TestProfile(t, ctx.DB)
	router := accountRouter(ctx, profile.UID)

	limit := ctx.Profiles.MaxAvatarSize()
	require.Equal(t, int64(1024), limit)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, avatarRequest(t, "big.png", bytes.Repeat([]byte("x"), int(limit)*4)))
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeInvalidRequest, resp.Code)
	assert.Equal(t, "头像文件过大", resp.Message)
	assert.Empty(t, avatars.uploaded)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, avatarRequest(t, "edge.png", bytes.Repeat([]byte("x"), int(limit))))
	assert.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)
	assert.Len(t, avatars.uploaded, 1)
}

func TestAccountHandler_UploadAvatar_NoOSS(t *testing.T) {
	ctx := setupServices(t, nil)
	profile := testutil.TestProfile(t, ctx.DB)

	w := httptest.NewRecorder()
	accountRouter(ctx, profile.UID).ServeHTTP(w, avatarRequest(t, "me.jpg", []byte("jpg")))
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeServerError, resp.Code)
	assert.Equal(t, "OSS 客户端未配置", resp.Message)
}
