package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/models"
	"github.com/lucron9090/cruis-api/internal/services/auth"
)

type capturedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

func newCapturingUpstream(t *testing.T, status int, respBody string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.header = r.Header.Clone()
		captured.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestDispatcher(sitesURL, apiURL string) *Dispatcher {
	config := common.NewDefaultConfig()
	config.Upstream.SitesURL = sitesURL
	config.Upstream.APIURL = apiURL
	config.Upstream.RequestTimeout = 5 * time.Second
	return NewDispatcher(config, common.GetLogger())
}

func TestDispatchSitesInjectsCookie(t *testing.T) {
	srv, captured := newCapturingUpstream(t, http.StatusOK, `{"ok":true}`)
	d := newTestDispatcher(srv.URL, srv.URL+"/v1")

	creds := &models.MotorCredentials{
		PublicKey:    "pk-1",
		CookieString: "AuthUserInfo=abc; motorsession=xyz",
	}

	clientHeader := http.Header{}
	clientHeader.Set("Accept", "application/json")
	clientHeader.Set("Cookie", "client-cookie=must-not-leak")
	clientHeader.Set("X-Session-Id", "must-not-leak")
	clientHeader.Set("Session", "must-not-leak")

	resp, err := d.Dispatch(context.Background(), creds, &Request{
		Target: TargetSites,
		Method: http.MethodGet,
		Path:   "m1/api/years",
		Query:  "make=honda",
		Header: clientHeader,
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if captured.path != "/m1/api/years" {
		t.Errorf("upstream path = %q", captured.path)
	}
	if captured.query != "make=honda" {
		t.Errorf("upstream query = %q", captured.query)
	}
	if got := captured.header.Get("Cookie"); got != creds.CookieString {
		t.Errorf("Cookie = %q, want stored cookie bag", got)
	}
	if captured.header.Get("X-Session-Id") != "" {
		t.Error("X-Session-Id leaked upstream")
	}
	if captured.header.Get("Session") != "" {
		t.Error("Session header leaked upstream")
	}
	if captured.header.Get("Accept") != "application/json" {
		t.Error("benign client header not forwarded")
	}
	if captured.header.Get("Referer") == "" || captured.header.Get("Origin") == "" {
		t.Error("sites requests need Referer and Origin")
	}
}

func TestDispatchSitesBuildsCookieFromKeys(t *testing.T) {
	srv, captured := newCapturingUpstream(t, http.StatusOK, "{}")
	d := newTestDispatcher(srv.URL, srv.URL+"/v1")

	// Header-credential path: no captured cookie bag, only structured keys.
	creds := &models.MotorCredentials{
		PublicKey:     "pk-2",
		ApiTokenKey:   "tk-2",
		ApiTokenValue: "tv-2",
	}

	_, err := d.Dispatch(context.Background(), creds, &Request{
		Target: TargetSites,
		Method: http.MethodGet,
		Path:   "m1/home",
		Header: http.Header{},
	})
	if err != nil {
		t.Fatal(err)
	}

	cookie := captured.header.Get("Cookie")
	if cookie == "" {
		t.Fatal("no cookie sent upstream")
	}
	rebuilt, ok := auth.ExtractCredentials(cookie)
	if !ok {
		t.Fatalf("rebuilt cookie %q not extractable", cookie)
	}
	if rebuilt.PublicKey != "pk-2" || rebuilt.ApiTokenValue != "tv-2" {
		t.Errorf("rebuilt credentials = %+v", rebuilt)
	}
}

func TestDispatchAPISignsRequest(t *testing.T) {
	srv, captured := newCapturingUpstream(t, http.StatusOK, `[2024,2025]`)
	d := newTestDispatcher(srv.URL, srv.URL+"/v1")

	creds := &models.MotorCredentials{
		PublicKey:     "pk-1",
		ApiTokenValue: "priv-1",
	}

	resp, err := d.Dispatch(context.Background(), creds, &Request{
		Target: TargetAPI,
		Method: http.MethodGet,
		Path:   "Information/Years",
		Header: http.Header{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "[2024,2025]" {
		t.Errorf("body = %q", resp.Body)
	}

	if captured.path != "/v1/Information/Years" {
		t.Errorf("upstream path = %q, versioned prefix missing", captured.path)
	}

	date := captured.header.Get("Date")
	if date == "" {
		t.Fatal("Date header missing")
	}
	at, err := time.Parse(http.TimeFormat, date)
	if err != nil {
		t.Fatalf("Date %q not in HTTP time format: %v", date, err)
	}

	// The Authorization signature must match the Date header it shipped with.
	wantSig := auth.SignRequest("pk-1", "priv-1", "GET", at.Unix(), "/v1/Information/Years")
	if got := captured.header.Get("Authorization"); got != "Shared pk-1:"+wantSig {
		t.Errorf("Authorization = %q, want signature over sent Date", got)
	}
	if captured.header.Get("Cookie") != "" {
		t.Error("API host requests must not carry cookies")
	}
}

func TestDispatchRelaysUpstreamStatus(t *testing.T) {
	srv, _ := newCapturingUpstream(t, http.StatusNotFound, `{"error":"unknown vehicle"}`)
	d := newTestDispatcher(srv.URL, srv.URL+"/v1")

	resp, err := d.Dispatch(context.Background(), &models.MotorCredentials{PublicKey: "pk"}, &Request{
		Target: TargetAPI,
		Method: http.MethodGet,
		Path:   "Information/Missing",
		Header: http.Header{},
	})
	if err != nil {
		t.Fatalf("non-2xx must not be a transport error, got %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want relayed 404", resp.StatusCode)
	}
}

func TestDispatchForwardsBody(t *testing.T) {
	srv, captured := newCapturingUpstream(t, http.StatusOK, "{}")
	d := newTestDispatcher(srv.URL, srv.URL+"/v1")

	_, err := d.Dispatch(context.Background(), &models.MotorCredentials{PublicKey: "pk", ApiTokenValue: "tv"}, &Request{
		Target: TargetAPI,
		Method: http.MethodPost,
		Path:   "Token",
		Header: http.Header{},
		Body:   []byte(`{"grant":"client"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if captured.method != http.MethodPost {
		t.Errorf("method = %q", captured.method)
	}
	if string(captured.body) != `{"grant":"client"}` {
		t.Errorf("body = %q", captured.body)
	}
}

func TestDispatchProxyBaseOverride(t *testing.T) {
	srv, captured := newCapturingUpstream(t, http.StatusOK, "{}")

	config := common.NewDefaultConfig()
	config.Upstream.SitesURL = "https://unreachable.invalid"
	config.Upstream.APIURL = "https://unreachable.invalid/v1"
	config.Upstream.ProxyBaseURL = srv.URL + "/bridge"
	config.Upstream.RequestTimeout = 5 * time.Second
	d := NewDispatcher(config, common.GetLogger())

	_, err := d.Dispatch(context.Background(), &models.MotorCredentials{PublicKey: "pk", CookieString: "AuthUserInfo=x"}, &Request{
		Target: TargetSites,
		Method: http.MethodGet,
		Path:   "m1/api/years",
		Header: http.Header{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if captured.path != "/bridge/m1/api/years" {
		t.Errorf("path = %q, want forwarded to the chained base", captured.path)
	}
}

func TestIsHTML(t *testing.T) {
	htmlByType := &Response{
		Header: http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:   []byte("{}"),
	}
	if !IsHTML(htmlByType) {
		t.Error("content-type text/html not detected")
	}

	htmlBySniff := &Response{
		Header: http.Header{},
		Body:   []byte("\n  <!DOCTYPE html><html></html>"),
	}
	if !IsHTML(htmlBySniff) {
		t.Error("doctype prefix not detected")
	}

	jsonResp := &Response{
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`{"a":1}`),
	}
	if IsHTML(jsonResp) {
		t.Error("JSON response misdetected as HTML")
	}
}
