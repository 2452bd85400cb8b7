package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/senyabanana/furniture-market/internal/auth"
	"github.com/senyabanana/furniture-market/internal/events"
	"github.com/senyabanana/furniture-market/internal/handlers"
	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/repository"
	"github.com/senyabanana/furniture-market/internal/services"
)

type fakeUploader struct {
	ownerID string
	size    int64
}

func (u *fakeUploader) UploadPhoto(_ context.Context, ownerID string, body io.Reader, size int64, contentType string) (string, error) {
	u.ownerID = ownerID
	n, err := io.Copy(io.Discard, body)
	u.size = n
	return "https://cdn.example.com/request-photos/" + ownerID + "/photo.png", err
}

type testServer struct {
	server   *httptest.Server
	tokens   *auth.Tokens
	recorder *events.Recorder
	uploader *fakeUploader
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	recorder := &events.Recorder{}
	uploader := &fakeUploader{}

	h := Handlers{
		Requests:  handlers.NewRequestHandler(services.NewRequestService(store, recorder, logger), nil, logger, 5*time.Second),
		Proposals: handlers.NewProposalHandler(services.NewProposalService(store, recorder, logger, services.DefaultLimits), logger, 5*time.Second),
		Uploads:   handlers.NewUploadHandler(uploader, logger, 5*time.Second),
	}
	tokens := auth.NewTokens("test-secret", time.Hour)
	server := httptest.NewServer(InitRoutes(h, tokens, logger))
	t.Cleanup(server.Close)

	return &testServer{server: server, tokens: tokens, recorder: recorder, uploader: uploader}
}

func (s *testServer) token(t *testing.T, id string, role models.Role) string {
	t.Helper()
	token, err := s.tokens.IssueToken(models.Actor{ID: id, Role: role})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

// do выполняет запрос и декодирует ответ в out, если он не nil.
func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func requestBody() map[string]any {
	return map[string]any{
		"title":       "Oak wardrobe",
		"description": "Two-door wardrobe, 180x60x220",
		"category":    "wardrobes",
		"region":      "Moscow",
		"photos":      []string{"https://cdn.example.com/a.jpg"},
	}
}

func proposalBody(price string) map[string]any {
	return map[string]any{
		"price":       price,
		"deadline":    time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"description": "Solid oak, delivery included",
	}
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.server.URL + "/api/ping")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("ping = %d %q", resp.StatusCode, body)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	var errResp models.ErrorResponse
	if code := s.do(t, http.MethodGet, "/api/requests/my", "", nil, &errResp); code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
	if errResp.Code != models.CodeUnauthenticated {
		t.Errorf("code = %q", errResp.Code)
	}
	if code := s.do(t, http.MethodGet, "/api/requests/my", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
}

func TestNegotiationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	clientToken := s.token(t, "client-c", models.Client)
	m1 := s.token(t, "master-m1", models.Master)
	m2 := s.token(t, "master-m2", models.Master)

	var req models.Request
	if code := s.do(t, http.MethodPost, "/api/requests", clientToken, requestBody(), &req); code != http.StatusCreated {
		t.Fatalf("create request status = %d", code)
	}
	if req.Status != models.PendingRequest || len(req.Photos) != 1 {
		t.Fatalf("created request = %+v", req)
	}

	var region []models.Request
	if code := s.do(t, http.MethodGet, "/api/requests/region/moscow", m1, nil, &region); code != http.StatusOK {
		t.Fatalf("region status = %d", code)
	}
	if len(region) != 1 || region[0].ID != req.ID {
		t.Fatalf("region listing = %+v", region)
	}

	var p1, p2 models.Proposal
	if code := s.do(t, http.MethodPost, "/api/requests/"+req.ID+"/proposals", m1, proposalBody("5000"), &p1); code != http.StatusCreated {
		t.Fatalf("submit p1 status = %d", code)
	}
	if code := s.do(t, http.MethodPost, "/api/requests/"+req.ID+"/proposals", m2, proposalBody("4500.50"), &p2); code != http.StatusCreated {
		t.Fatalf("submit p2 status = %d", code)
	}
	if p2.Price.String() != "4500.5" {
		t.Errorf("price = %s", p2.Price)
	}

	var errResp models.ErrorResponse
	if code := s.do(t, http.MethodPost, "/api/requests/"+req.ID+"/proposals", m1, proposalBody("4000"), &errResp); code != http.StatusForbidden {
		t.Fatalf("duplicate submit status = %d", code)
	}
	if errResp.Reason != models.DuplicateProposal {
		t.Errorf("reason = %q", errResp.Reason)
	}

	var own []models.Proposal
	s.do(t, http.MethodGet, "/api/requests/"+req.ID+"/proposals", m2, nil, &own)
	if len(own) != 1 || own[0].ID != p2.ID {
		t.Fatalf("master sees %+v", own)
	}

	var accepted models.Proposal
	if code := s.do(t, http.MethodPost, "/api/proposals/"+p1.ID+"/accept", clientToken, nil, &accepted); code != http.StatusOK {
		t.Fatalf("accept status = %d", code)
	}
	if accepted.Status != models.AcceptedProposal {
		t.Errorf("accepted status = %q", accepted.Status)
	}

	errResp = models.ErrorResponse{}
	if code := s.do(t, http.MethodPost, "/api/proposals/"+p2.ID+"/accept", clientToken, nil, &errResp); code != http.StatusConflict {
		t.Fatalf("second accept status = %d", code)
	}
	if errResp.Code != models.CodeInvalidTransition {
		t.Errorf("code = %q", errResp.Code)
	}

	var got models.Request
	s.do(t, http.MethodGet, "/api/requests/"+req.ID, clientToken, nil, &got)
	if got.Status != models.AcceptedRequest {
		t.Errorf("request status = %q", got.Status)
	}

	var mine []models.Proposal
	s.do(t, http.MethodGet, "/api/proposals/my", m1, nil, &mine)
	if len(mine) != 1 || mine[0].Status != models.AcceptedProposal {
		t.Errorf("my proposals = %+v", mine)
	}

	if code := s.do(t, http.MethodPost, "/api/requests/"+req.ID+"/close", clientToken, nil, &got); code != http.StatusOK {
		t.Fatalf("close status = %d", code)
	}
	if got.Status != models.ClosedRequest {
		t.Errorf("closed status = %q", got.Status)
	}

	wantTypes := []models.EventType{
		models.ProposalCreated,
		models.ProposalCreated,
		models.ProposalAccepted,
		models.RequestClosed,
	}
	gotTypes := s.recorder.Types()
	if len(gotTypes) != len(wantTypes) {
		t.Fatalf("events = %v, want %v", gotTypes, wantTypes)
	}
	for i := range wantTypes {
		if gotTypes[i] != wantTypes[i] {
			t.Errorf("events[%d] = %q, want %q", i, gotTypes[i], wantTypes[i])
		}
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	clientToken := s.token(t, "client-c", models.Client)
	masterToken := s.token(t, "master-m1", models.Master)

	var req models.Request
	s.do(t, http.MethodPost, "/api/requests", clientToken, requestBody(), &req)

	withPrice := requestBody()
	withPrice["price"] = 1000

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   models.ErrorCode
	}{
		{"client price rejected", http.MethodPost, "/api/requests", clientToken, withPrice, http.StatusBadRequest, models.CodeValidation},
		{"master cannot create request", http.MethodPost, "/api/requests", masterToken, requestBody(), http.StatusForbidden, models.CodeAuthorization},
		{"client cannot submit proposal", http.MethodPost, "/api/requests/" + req.ID + "/proposals", clientToken, proposalBody("100"), http.StatusForbidden, models.CodeAuthorization},
		{"unknown request", http.MethodGet, "/api/requests/00000000-0000-0000-0000-000000000000", clientToken, nil, http.StatusNotFound, models.CodeNotFound},
		{"malformed id", http.MethodPost, "/api/proposals/not-a-uuid/accept", clientToken, nil, http.StatusNotFound, models.CodeNotFound},
		{"bad limit", http.MethodGet, "/api/requests/my?limit=abc", clientToken, nil, http.StatusBadRequest, models.CodeValidation},
		{"bad json", http.MethodPost, "/api/requests", clientToken, "not an object", http.StatusBadRequest, models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp models.ErrorResponse
			if code := s.do(t, tt.method, tt.path, tt.token, tt.body, &errResp); code != tt.status {
				t.Fatalf("status = %d, want %d (%+v)", code, tt.status, errResp)
			}
			if errResp.Code != tt.code {
				t.Errorf("code = %q, want %q", errResp.Code, tt.code)
			}
		})
	}
}

func TestHistoryRouteDisabledWithoutStore(t *testing.T) {
	s := newTestServer(t)
	clientToken := s.token(t, "client-c", models.Client)

	var req models.Request
	s.do(t, http.MethodPost, "/api/requests", clientToken, requestBody(), &req)
	if code := s.do(t, http.MethodGet, "/api/requests/"+req.ID+"/history", clientToken, nil, nil); code != http.StatusNotFound {
		t.Fatalf("history status = %d, want 404", code)
	}
}

func uploadRequest(t *testing.T, url, token, contentType string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="photo"; filename="photo.png"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(payload)
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, url+"/api/uploads/photos", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadPhoto(t *testing.T) {
	s := newTestServer(t)
	clientToken := s.token(t, "client-c", models.Client)
	payload := []byte("\x89PNG fake image")

	resp, err := http.DefaultClient.Do(uploadRequest(t, s.server.URL, clientToken, "image/png", payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(body["url"], "https://") {
		t.Errorf("url = %q", body["url"])
	}
	if s.uploader.ownerID != "client-c" || s.uploader.size != int64(len(payload)) {
		t.Errorf("uploader got owner=%q size=%d", s.uploader.ownerID, s.uploader.size)
	}

	resp2, err := http.DefaultClient.Do(uploadRequest(t, s.server.URL, clientToken, "application/pdf", payload))
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("pdf upload status = %d, want 400", resp2.StatusCode)
	}

	masterToken := s.token(t, "master-m1", models.Master)
	resp3, err := http.DefaultClient.Do(uploadRequest(t, s.server.URL, masterToken, "image/png", payload))
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusForbidden {
		t.Errorf("master upload status = %d, want 403", resp3.StatusCode)
	}
}
