package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"keycrack/internal/auth"
	"keycrack/internal/cipher"
	"keycrack/internal/jobs"
	"keycrack/internal/models"
	"keycrack/internal/pairs"
	"keycrack/internal/services/mitm"
)

var nop = zap.NewNop().Sugar()

type fakeStore struct {
	mu   sync.Mutex
	jobs map[string]models.Job
}

func newFakeStore() *fakeStore { return &fakeStore{jobs: map[string]models.Job{}} }

func (f *fakeStore) Create(_ context.Context, j *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = *j
	return nil
}

func (f *fakeStore) Update(ctx context.Context, j *models.Job) error { return f.Create(ctx, j) }

func (f *fakeStore) Get(_ context.Context, id string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return &j, nil
}

func (f *fakeStore) List(_ context.Context, userID string, limit int) ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Job
	for _, j := range f.jobs {
		if userID == "" || j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func withUser(r *http.Request, sub string, roles ...string) *http.Request {
	return r.WithContext(auth.WithClaims(r.Context(), auth.Claims{Subject: sub, Roles: roles}))
}

func withURLParam(r *http.Request, key, val string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestTransform(t *testing.T) {
	h := Transform(cipher.Default(), nil, nop)

	testCases := []struct {
		name   string
		body   string
		status int
		output string
	}{
		{"encrypt_full", `{"key":"C0FFEE15FFFFEE","input":"0x00DEADBEEF"}`, http.StatusOK, "0xA85A692205"},
		{"encrypt_partial", `{"key":"0xC0FFEE15FFFFEE","input":"00DEADBEEF","rounds":3}`, http.StatusOK, "0x9525458A2E"},
		{"decrypt_full", `{"key":"C0FFEE15FFFFEE","input":"0xA85A692205","direction":"decrypt"}`, http.StatusOK, "0x00DEADBEEF"},
		{"bad_rounds", `{"key":"C0FFEE15FFFFEE","input":"0x01","rounds":7}`, http.StatusBadRequest, ""},
		{"block_too_wide", `{"key":"C0FFEE15FFFFEE","input":"0x010000000000"}`, http.StatusBadRequest, ""},
		{"key_too_wide", `{"key":"0x01C0FFEE15FFFFEE","input":"0x01"}`, http.StatusBadRequest, ""},
		{"bad_direction", `{"key":"01","input":"0x01","direction":"sideways"}`, http.StatusBadRequest, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/cipher/transform", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.status, rec.Body.String())
			}
			if tc.output == "" {
				return
			}
			var out map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out["output"] != tc.output {
				t.Errorf("output = %v, want %s", out["output"], tc.output)
			}
		})
	}
}

func TestCipherInfo(t *testing.T) {
	rec := httptest.NewRecorder()
	CipherInfo(cipher.Default()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cipher", nil))
	var out struct {
		KeySize int   `json:"key_size"`
		Rounds  int   `json:"rounds"`
		SBox    []int `json:"sbox"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.KeySize != 7 || out.Rounds != 6 || len(out.SBox) != 32 || out.SBox[0] != 22 {
		t.Errorf("unexpected info %+v", out)
	}
}

func TestGeneratePairs(t *testing.T) {
	body := `{"key":"C0FFEE15C0FFEE","count":5,"seed":42}`
	rec := httptest.NewRecorder()
	GeneratePairs(cipher.Default(), nil, nop).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cipher/pairs", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	ps, err := pairs.Parse(rec.Body)
	if err != nil || len(ps) != 5 {
		t.Fatalf("Parse = %d pairs, %v", len(ps), err)
	}
	if !mitm.Verify(cipher.Default(), cipher.KeyFromUint64(0xC0FFEE15C0FFEE), ps) {
		t.Error("generated pairs do not match the key")
	}

	rec = httptest.NewRecorder()
	GeneratePairs(cipher.Default(), nil, nop).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"key":"01","count":100000}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized count accepted: %d", rec.Code)
	}
}

func TestJobLifecycle(t *testing.T) {
	store := newFakeStore()
	runner := jobs.NewRunner(store, mitm.Config{Workers: 2, LowSpace: 1 << 10, HighSpace: 1 << 12}, 1, nop)

	key := cipher.JoinKey(0x155, 0x0ACE)
	ps := pairs.Generate(cipher.Default(), key, 3, rand.New(rand.NewSource(5)))
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "capture.txt")
	if err := pairs.Write(fw, ps); err != nil {
		t.Fatalf("Write: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	SubmitJob(runner, nil, nop).ServeHTTP(rec, withUser(req, "alice"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status %d: %s", rec.Code, rec.Body.String())
	}
	var submitted models.Job
	if err := json.NewDecoder(rec.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if submitted.Label != "capture.txt" || submitted.PairCount != 3 {
		t.Fatalf("unexpected job %+v", submitted)
	}
	runner.Wait()

	get := func(user string, roles ...string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+submitted.ID, nil)
		req = withURLParam(withUser(req, user, roles...), "id", submitted.ID)
		rec := httptest.NewRecorder()
		GetJob(store, nop).ServeHTTP(rec, req)
		return rec
	}

	rec = get("alice")
	var done models.Job
	if err := json.NewDecoder(rec.Body).Decode(&done); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if done.Status != models.JobFound || done.KeyHex == nil || *done.KeyHex != key.String() {
		t.Fatalf("job = %+v", done)
	}

	if rec := get("mallory"); rec.Code != http.StatusNotFound {
		t.Errorf("other user sees job: %d", rec.Code)
	}
	if rec := get("root", auth.RoleAdmin); rec.Code != http.StatusOK {
		t.Errorf("admin cannot see job: %d", rec.Code)
	}
}

func TestSubmitJobJSONRows(t *testing.T) {
	store := newFakeStore()
	runner := jobs.NewRunner(store, mitm.Config{Workers: 1, LowSpace: 16, HighSpace: 16}, 1, nop)
	defer runner.Wait()

	for _, tc := range []struct {
		body   string
		status int
	}{
		{`{"label":"two","rows":["0x00DEADBEEF,0xA85A692205","0x0000000001,0x0000000002"]}`, http.StatusAccepted},
		{`{"rows":["0x00DEADBEEF"]}`, http.StatusBadRequest},
		{`{"rows":[]}`, http.StatusBadRequest},
		{`{"rows":["0x010000000000,0x01"]}`, http.StatusBadRequest},
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		SubmitJob(runner, nil, nop).ServeHTTP(rec, withUser(req, "bob"))
		if rec.Code != tc.status {
			t.Errorf("%s: status %d, want %d (%s)", tc.body, rec.Code, tc.status, rec.Body.String())
		}
	}
}

func TestGetJobRejectsBadID(t *testing.T) {
	req := withURLParam(withUser(httptest.NewRequest(http.MethodGet, "/", nil), "alice"), "id", "not-a-uuid")
	rec := httptest.NewRecorder()
	GetJob(newFakeStore(), nop).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCancelFinishedJob(t *testing.T) {
	store := newFakeStore()
	runner := jobs.NewRunner(store, mitm.Config{}, 1, nop)
	const id = "0f5c2a8e-3b7d-4e19-a6c4-9d2e1f0b8a73"
	key := "0xC0FFEE15FFFFEE"
	store.jobs[id] = models.Job{ID: id, UserID: "alice", Status: models.JobFound, KeyHex: &key}

	req := withURLParam(withUser(httptest.NewRequest(http.MethodPost, "/", nil), "alice"), "id", id)
	rec := httptest.NewRecorder()
	CancelJob(runner, store, nil, nop).ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusConflict, rec.Body.String())
	}
	if got, _ := store.Get(context.Background(), id); got.Status != models.JobFound {
		t.Errorf("status changed to %s", got.Status)
	}
}
