package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"lfs-gateway/internal/api"
	"lfs-gateway/internal/locks"
	"lfs-gateway/internal/logging"
	"lfs-gateway/internal/signer"
	"lfs-gateway/internal/storage"
	"lfs-gateway/internal/token"
)

const signerHost = "https://lfs.example.com"

// memStore is an in-memory locks.Store with the same observable
// contract as the Postgres store: monotonically increasing ids, the
// limit+1 overflow probe, inclusive cursors, and owner-checked delete.
type memStore struct {
	mu     sync.Mutex
	nextID int
	locks  []locks.Lock
	repos  map[string]string // id -> repo
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, repos: map[string]string{}}
}

func (m *memStore) CreateLock(ctx context.Context, repo, user, path, ref string) (locks.Lock, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.locks {
		if m.repos[l.ID] == repo && l.Path == path {
			return l, false, nil
		}
	}
	lock := locks.Lock{
		ID:       strconv.Itoa(m.nextID),
		Path:     path,
		RefName:  ref,
		Owner:    locks.Owner{Name: user},
		LockedAt: time.Now(),
	}
	m.nextID++
	m.locks = append(m.locks, lock)
	m.repos[lock.ID] = repo
	return lock, true, nil
}

func (m *memStore) ListLocks(ctx context.Context, repo string, opts locks.ListOptions) (string, []locks.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	effective := 100
	if opts.LimitSupplied {
		effective = opts.Limit
		if effective > 1000 {
			effective = 1000
		}
		if effective < 0 {
			effective = 0
		}
	}
	fetch := effective + 1
	if fetch < 2 {
		fetch = 2
	}

	cursor := 0
	if opts.Cursor != "" {
		c, err := strconv.Atoi(opts.Cursor)
		if err != nil {
			return "", nil, &locks.Error{Kind: locks.ErrInvalidCursor, Err: err}
		}
		cursor = c
	}

	var fetched []locks.Lock
	for _, l := range m.locks {
		if m.repos[l.ID] != repo {
			continue
		}
		if opts.Path != "" && l.Path != opts.Path {
			continue
		}
		if opts.ID != "" && l.ID != opts.ID {
			continue
		}
		if id, _ := strconv.Atoi(l.ID); id < cursor {
			continue
		}
		fetched = append(fetched, l)
		if len(fetched) == fetch {
			break
		}
	}

	if len(fetched) > effective {
		return fetched[len(fetched)-1].ID, fetched[:effective], nil
	}
	return "", fetched, nil
}

func (m *memStore) DeleteLock(ctx context.Context, repo, user, id, ref string, force bool) (locks.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.locks {
		if m.repos[l.ID] != repo || l.ID != id {
			continue
		}
		if l.Owner.Name != user && !force {
			return locks.Lock{}, &locks.Error{Kind: locks.ErrForceDeleteRequired}
		}
		m.locks = append(m.locks[:i], m.locks[i+1:]...)
		return l, nil
	}
	return locks.Lock{}, &locks.Error{Kind: locks.ErrLockNotFound}
}

type testEnv struct {
	server     *httptest.Server
	repoCodec  *token.Codec
	linkCodec  *token.Codec
	linkSigner *signer.Custom
	store      *memStore
}

func newTestEnv(t *testing.T, withLocks bool) *testEnv {
	t.Helper()

	repoCodec := token.NewCodec([]byte("repo-secret"), 3600)
	linkCodec := token.NewCodec([]byte("link-secret"), 3600)
	fs := storage.NewFSBackend(t.TempDir())
	custom := signer.NewCustom(signerHost, linkCodec)

	services := &Services{
		Meta:       fs,
		Signer:     custom,
		Proxy:      fs,
		RepoTokens: repoCodec,
		Log:        logging.New(),
	}
	env := &testEnv{repoCodec: repoCodec, linkCodec: linkCodec, linkSigner: custom}
	if withLocks {
		env.store = newMemStore()
		services.Locks = env.store
	}

	env.server = httptest.NewServer(NewRouter(services))
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) repoToken(t *testing.T, repo, user string, op token.Operation) string {
	t.Helper()
	signed, err := token.EncodeRepoToken(e.repoCodec, token.RepoTokenClaims{
		Repo: repo, User: user, Operation: op,
	})
	if err != nil {
		t.Fatalf("EncodeRepoToken: %v", err)
	}
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decodeInto[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return v
}

func assertMessage(t *testing.T, data []byte, want string) {
	t.Helper()
	body := decodeInto[errorBody](t, data)
	if body.Message != want {
		t.Errorf("message = %q, want %q", body.Message, want)
	}
}

func batchBody(op string, oids ...string) map[string]any {
	objects := make([]map[string]any, 0, len(oids))
	for _, oid := range oids {
		objects = append(objects, map[string]any{"oid": oid, "size": 123})
	}
	return map[string]any{
		"operation": op,
		"transfers": []string{"basic"},
		"objects":   objects,
		"hash_algo": "sha256",
	}
}

// Scenario A: a download batch for a missing object answers 200 with a
// per-object Not found error.
func TestBatchDownloadMiss(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.repoToken(t, "testing", "user1", token.OperationDownload)

	resp, data := env.do(t, http.MethodPost, "/objects/batch?repo=testing", tok,
		batchBody("download", "test2.txt"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, data)
	}

	body := decodeInto[api.BatchResponse](t, data)
	if body.Transfer != "basic" || body.HashAlgo != "sha256" {
		t.Errorf("envelope = %q/%q", body.Transfer, body.HashAlgo)
	}
	if len(body.Objects) != 1 {
		t.Fatalf("len(objects) = %d", len(body.Objects))
	}
	obj := body.Objects[0]
	if obj.OID != "test2.txt" || obj.Size != 123 {
		t.Errorf("object = %+v", obj)
	}
	if obj.Error == nil || obj.Error.Message != "Not found" {
		t.Errorf("error = %+v, want Not found", obj.Error)
	}
}

// Scenario B: an upload batch under a download token is rejected with
// the normalized 403 shape.
func TestBatchUploadForbiddenForReadToken(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.repoToken(t, "testing", "user1", token.OperationDownload)

	resp, data := env.do(t, http.MethodPost, "/objects/batch?repo=testing", tok,
		batchBody("upload", "test2.txt"))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", resp.StatusCode, data)
	}
	assertMessage(t, data, "Missing write authorization")
}

// Scenario C: upload through the proxy endpoint, then download the
// same bytes and content type back.
func TestProxyUploadDownloadRoundTrip(t *testing.T) {
	env := newTestEnv(t, false)
	uploadTok := env.repoToken(t, "testing", "user1", token.OperationUpload)

	resp, data := env.do(t, http.MethodPost, "/objects/batch?repo=testing", uploadTok,
		batchBody("upload", "test2.txt"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("batch status = %d: %s", resp.StatusCode, data)
	}
	body := decodeInto[api.BatchResponse](t, data)
	actions := body.Objects[0].Actions
	if actions == nil || actions.Upload == nil {
		t.Fatalf("no upload action: %s", data)
	}

	wantHref := signerHost + "/testing/objects/access/test2.txt"
	if actions.Upload.Href != wantHref {
		t.Errorf("upload href = %q, want %q", actions.Upload.Href, wantHref)
	}
	auth := actions.Upload.Header["Authorization"]
	if !strings.HasPrefix(auth, "Bearer ") {
		t.Fatalf("upload authorization = %q", auth)
	}

	// The reverse proxy would rewrite <host>/<repo>/objects/access/<oid>
	// to /objects/access/<oid>?repo=<repo>; hit that form directly.
	payload := []byte("test of some data from integration test")
	putReq, err := http.NewRequest(http.MethodPut,
		env.server.URL+"/objects/access/test2.txt?repo=testing", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	putReq.Header.Set("Authorization", auth)
	putReq.Header.Set("Content-Type", "custom/my-mime-type")
	putResp, err := http.DefaultClient.Do(putReq)
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, putResp.Body)
	putResp.Body.Close()
	if putResp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", putResp.StatusCode)
	}

	// A download batch must now offer the object.
	downloadTok := env.repoToken(t, "testing", "user1", token.OperationDownload)
	resp, data = env.do(t, http.MethodPost, "/objects/batch?repo=testing", downloadTok,
		batchBody("download", "test2.txt"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download batch status = %d: %s", resp.StatusCode, data)
	}
	body = decodeInto[api.BatchResponse](t, data)
	actions = body.Objects[0].Actions
	if actions == nil || actions.Download == nil {
		t.Fatalf("no download action after upload: %s", data)
	}

	getReq, err := http.NewRequest(http.MethodGet,
		env.server.URL+"/objects/access/test2.txt?repo=testing", nil)
	if err != nil {
		t.Fatal(err)
	}
	getReq.Header.Set("Authorization", actions.Download.Header["Authorization"])
	getResp, err := http.DefaultClient.Do(getReq)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(getResp.Body)
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", getResp.StatusCode)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("downloaded %q, want %q", got, payload)
	}
	if ct := getResp.Header.Get("Content-Type"); ct != "custom/my-mime-type" {
		t.Errorf("content type = %q, want custom/my-mime-type", ct)
	}
}

func TestProxyRejectsMismatchedLinkToken(t *testing.T) {
	env := newTestEnv(t, false)

	// A download-scoped token must not authorize a PUT.
	linkTok, err := token.EncodeLinkToken(env.linkCodec, token.LinkTokenClaims{
		Repo: "testing", Oid: "test2.txt", Operation: token.OperationDownload,
	})
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPut,
		env.server.URL+"/objects/access/test2.txt?repo=testing", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+linkTok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	assertMessage(t, data, "Unauthorized")
}

// Scenario F: a traversal oid is Not found in the batch, and the proxy
// endpoint answers 404 even when the link token itself is valid.
func TestTraversalDefense(t *testing.T) {
	env := newTestEnv(t, false)
	oid := "../../../secret/my_secret.txt"

	tok := env.repoToken(t, "testing", "user1", token.OperationDownload)
	resp, data := env.do(t, http.MethodPost, "/objects/batch?repo=testing", tok,
		batchBody("download", oid))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("batch status = %d", resp.StatusCode)
	}
	body := decodeInto[api.BatchResponse](t, data)
	if body.Objects[0].Error == nil || body.Objects[0].Error.Message != "Not found" {
		t.Errorf("traversal oid = %+v, want Not found", body.Objects[0])
	}

	linkTok, err := token.EncodeLinkToken(env.linkCodec, token.LinkTokenClaims{
		Repo: "testing", Oid: oid, Operation: token.OperationDownload,
	})
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodGet,
		env.server.URL+"/objects/access/"+oid+"?repo=testing", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+linkTok)
	getResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	data, _ = io.ReadAll(getResp.Body)
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("proxy status = %d, want 404: %s", getResp.StatusCode, data)
	}
	assertMessage(t, data, "Not found")
}

func TestBatchRejectsMissingAuthorization(t *testing.T) {
	env := newTestEnv(t, false)
	resp, data := env.do(t, http.MethodPost, "/objects/batch?repo=testing", "",
		batchBody("download", "a.txt"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	assertMessage(t, data, "Unauthorized")
}

func TestBatchRejectsExpiredToken(t *testing.T) {
	env := newTestEnv(t, false)
	expiredCodec := token.NewCodec([]byte("repo-secret"), 0)
	tok, err := token.EncodeRepoToken(expiredCodec, token.RepoTokenClaims{
		Repo: "testing", User: "user1", Operation: token.OperationDownload,
	})
	if err != nil {
		t.Fatal(err)
	}
	resp, data := env.do(t, http.MethodPost, "/objects/batch?repo=testing", tok,
		batchBody("download", "a.txt"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", resp.StatusCode, data)
	}
	assertMessage(t, data, "Unauthorized")
}

func TestBatchRejectsWrongRepoToken(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.repoToken(t, "other-repo", "user1", token.OperationDownload)
	resp, data := env.do(t, http.MethodPost, "/objects/batch?repo=testing", tok,
		batchBody("download", "a.txt"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	assertMessage(t, data, "Unauthorized")
}

func TestBatchRejectsBadHashAlgo(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.repoToken(t, "testing", "user1", token.OperationDownload)
	body := batchBody("download", "a.txt")
	body["hash_algo"] = "sha512"
	resp, _ := env.do(t, http.MethodPost, "/objects/batch?repo=testing", tok, body)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestBatchRejectsUnsupportedTransfer(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.repoToken(t, "testing", "user1", token.OperationDownload)
	body := batchBody("download", "a.txt")
	body["transfers"] = []string{"multipart"}
	resp, _ := env.do(t, http.MethodPost, "/objects/batch?repo=testing", tok, body)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}

func TestTrailingSlashRoutes(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.repoToken(t, "testing", "user1", token.OperationDownload)
	resp, _ := env.do(t, http.MethodPost, "/objects/batch/?repo=testing", tok,
		batchBody("download", "a.txt"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trailing-slash batch status = %d, want 200", resp.StatusCode)
	}
}

func TestLocksNotConfigured(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.repoToken(t, "testing", "user1", token.OperationUpload)
	resp, data := env.do(t, http.MethodPost, "/locks?repo=testing", tok,
		map[string]any{"path": "foo/bar.bin"})
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
	assertMessage(t, data, "The lock api is not implemented on this server")
}

// Scenario D: the full lock lifecycle — create, conflict, verify
// partition, owner-checked delete, force delete.
func TestLockLifecycle(t *testing.T) {
	env := newTestEnv(t, true)
	user1 := env.repoToken(t, "testing", "user1", token.OperationUpload)
	user2 := env.repoToken(t, "testing", "user2", token.OperationUpload)

	// user1 locks foo/bar.bin
	resp, data := env.do(t, http.MethodPost, "/locks?repo=testing", user1,
		map[string]any{"path": "foo/bar.bin", "ref": map[string]string{"name": "master"}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, data)
	}
	created := decodeInto[api.CreateLockResponse](t, data)
	if created.Lock.ID != "1" || created.Lock.Path != "foo/bar.bin" || created.Lock.Owner.Name != "user1" {
		t.Errorf("created lock = %+v", created.Lock)
	}
	if _, err := time.Parse(time.RFC3339, created.Lock.LockedAt); err != nil {
		t.Errorf("locked_at %q is not RFC 3339: %v", created.Lock.LockedAt, err)
	}

	// Same path again, same owner: conflict with the prior lock.
	resp, data = env.do(t, http.MethodPost, "/locks?repo=testing", user1,
		map[string]any{"path": "foo/bar.bin"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d: %s", resp.StatusCode, data)
	}
	conflict := decodeInto[api.CreateLockResponse](t, data)
	if conflict.Message != "already created lock" || conflict.Lock.ID != "1" {
		t.Errorf("conflict = %+v", conflict)
	}

	// Another user hits the same conflict.
	resp, data = env.do(t, http.MethodPost, "/locks?repo=testing", user2,
		map[string]any{"path": "foo/bar.bin"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate (user2) status = %d", resp.StatusCode)
	}
	conflict = decodeInto[api.CreateLockResponse](t, data)
	if conflict.Lock.ID != "1" || conflict.Lock.Owner.Name != "user1" {
		t.Errorf("conflict lock = %+v", conflict.Lock)
	}

	// Two more locks.
	resp, data = env.do(t, http.MethodPost, "/locks?repo=testing", user1,
		map[string]any{"path": "foo/bar2.bin"})
	if id := decodeInto[api.CreateLockResponse](t, data).Lock.ID; resp.StatusCode != http.StatusCreated || id != "2" {
		t.Fatalf("second create = %d id %s", resp.StatusCode, id)
	}
	resp, data = env.do(t, http.MethodPost, "/locks?repo=testing", user2,
		map[string]any{"path": "foo/u2.bin"})
	if id := decodeInto[api.CreateLockResponse](t, data).Lock.ID; resp.StatusCode != http.StatusCreated || id != "3" {
		t.Fatalf("third create = %d id %s", resp.StatusCode, id)
	}

	// Verification partitions around the caller.
	resp, data = env.do(t, http.MethodPost, "/locks/verify?repo=testing", user1,
		map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d: %s", resp.StatusCode, data)
	}
	verify := decodeInto[api.VerifyLocksResponse](t, data)
	if len(verify.Ours) != 2 || verify.Ours[0].ID != "1" || verify.Ours[1].ID != "2" {
		t.Errorf("ours = %+v", verify.Ours)
	}
	if len(verify.Theirs) != 1 || verify.Theirs[0].ID != "3" {
		t.Errorf("theirs = %+v", verify.Theirs)
	}

	// Unlock own lock; a second attempt is gone.
	resp, data = env.do(t, http.MethodPost, "/locks/1/unlock?repo=testing", user1,
		map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unlock status = %d: %s", resp.StatusCode, data)
	}
	deleted := decodeInto[api.DeleteLockResponse](t, data)
	if deleted.Lock.ID != "1" {
		t.Errorf("deleted lock = %+v", deleted.Lock)
	}
	resp, data = env.do(t, http.MethodPost, "/locks/1/unlock?repo=testing", user1,
		map[string]any{})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("re-unlock status = %d, want 404", resp.StatusCode)
	}
	assertMessage(t, data, "Not found")

	// Someone else's lock needs force.
	resp, data = env.do(t, http.MethodPost, "/locks/3/unlock?repo=testing", user1,
		map[string]any{})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign unlock status = %d, want 403", resp.StatusCode)
	}
	assertMessage(t, data, "Missing write authorization")

	resp, data = env.do(t, http.MethodPost, "/locks/3/unlock?repo=testing", user1,
		map[string]any{"force": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forced unlock status = %d: %s", resp.StatusCode, data)
	}
}

// Scenario E: cursor pagination over five locks.
func TestLockPagination(t *testing.T) {
	env := newTestEnv(t, true)
	user1 := env.repoToken(t, "testing", "user1", token.OperationUpload)

	for i := 1; i <= 5; i++ {
		resp, data := env.do(t, http.MethodPost, "/locks?repo=testing", user1,
			map[string]any{"path": fmt.Sprintf("file%d.bin", i)})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %d status = %d: %s", i, resp.StatusCode, data)
		}
	}

	resp, data := env.do(t, http.MethodGet, "/locks?repo=testing&limit=3", user1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d: %s", resp.StatusCode, data)
	}
	page := decodeInto[api.ListLocksResponse](t, data)
	if len(page.Locks) != 3 || page.NextCursor != "4" {
		t.Fatalf("page = %d locks, cursor %q; want 3, \"4\"", len(page.Locks), page.NextCursor)
	}

	resp, data = env.do(t, http.MethodGet, "/locks?repo=testing&cursor=4&limit=1", user1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	page = decodeInto[api.ListLocksResponse](t, data)
	if len(page.Locks) != 1 || page.Locks[0].ID != "4" || page.NextCursor != "5" {
		t.Fatalf("page = %+v cursor %q; want lock 4, cursor \"5\"", page.Locks, page.NextCursor)
	}

	resp, data = env.do(t, http.MethodGet, "/locks?repo=testing&limit=0", user1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	page = decodeInto[api.ListLocksResponse](t, data)
	if len(page.Locks) != 0 || page.NextCursor != "2" {
		t.Fatalf("page = %d locks, cursor %q; want 0, \"2\"", len(page.Locks), page.NextCursor)
	}
}

func TestListLocksInvalidLimit(t *testing.T) {
	env := newTestEnv(t, true)
	user1 := env.repoToken(t, "testing", "user1", token.OperationUpload)

	for _, limit := range []string{"abc", "-1"} {
		resp, _ := env.do(t, http.MethodGet, "/locks?repo=testing&limit="+limit, user1, nil)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("limit=%s status = %d, want 422", limit, resp.StatusCode)
		}
	}
}

func TestCreateLockRequiresWriteToken(t *testing.T) {
	env := newTestEnv(t, true)
	readTok := env.repoToken(t, "testing", "user1", token.OperationDownload)

	resp, data := env.do(t, http.MethodPost, "/locks?repo=testing", readTok,
		map[string]any{"path": "foo/bar.bin"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	assertMessage(t, data, "Unauthorized")

	// Listing is fine with a read token.
	resp, _ = env.do(t, http.MethodGet, "/locks?repo=testing", readTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
}

func TestListLocksFilters(t *testing.T) {
	env := newTestEnv(t, true)
	user1 := env.repoToken(t, "testing", "user1", token.OperationUpload)

	env.do(t, http.MethodPost, "/locks?repo=testing", user1, map[string]any{"path": "a.bin"})
	env.do(t, http.MethodPost, "/locks?repo=testing", user1, map[string]any{"path": "b.bin"})

	resp, data := env.do(t, http.MethodGet, "/locks?repo=testing&path=b.bin", user1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := decodeInto[api.ListLocksResponse](t, data)
	if len(page.Locks) != 1 || page.Locks[0].Path != "b.bin" {
		t.Errorf("path filter page = %+v", page.Locks)
	}

	resp, data = env.do(t, http.MethodGet, "/locks?repo=testing&id=1", user1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page = decodeInto[api.ListLocksResponse](t, data)
	if len(page.Locks) != 1 || page.Locks[0].ID != "1" {
		t.Errorf("id filter page = %+v", page.Locks)
	}
}
