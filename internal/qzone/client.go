package qzone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"qzsync/internal/qzerr"
	"qzsync/internal/store"
)

const (
	hostBase   = "https://user.qzone.qq.com"
	proxyBase  = hostBase + "/proxy/domain"
	refererURL = hostBase + "/"

	connectTimeout = 30 * time.Second
	readTimeout    = 60 * time.Second
)

// HTTPDoer describes the HTTP client used by the Qzone service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials supplies the live cookie and derived token for authenticated
// requests. The session manager implements it.
type Credentials interface {
	Uin() int64
	Cookie() store.Cookie
	Gtk() int32
}

// Client issues authenticated requests against the Qzone CGI endpoints.
type Client struct {
	creds  Credentials
	client HTTPDoer
}

// NewClient constructs a client with default transport timeouts.
func NewClient(creds Credentials) *Client {
	return &Client{
		creds: creds,
		client: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				ResponseHeaderTimeout: connectTimeout,
			},
		},
	}
}

// NewClientWithDoer constructs a client around a custom HTTP doer (tests).
func NewClientWithDoer(creds Credentials, doer HTTPDoer) *Client {
	return &Client{creds: creds, client: doer}
}

type wrapper struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// get issues an authenticated GET against path with the provided query,
// unwraps the JSONP envelope, and maps the wrapper code to the error
// taxonomy. The g_tk token is appended automatically.
func (c *Client) get(ctx context.Context, rawURL string, query url.Values) (*wrapper, error) {
	return c.request(ctx, http.MethodGet, rawURL, query, nil)
}

func (c *Client) post(ctx context.Context, rawURL string, query url.Values, form url.Values) (*wrapper, error) {
	return c.request(ctx, http.MethodPost, rawURL, query, form)
}

func (c *Client) request(ctx context.Context, method, rawURL string, query url.Values, form url.Values) (*wrapper, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("g_tk", fmt.Sprint(c.creds.Gtk()))

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL+"?"+query.Encode(), body)
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "qzone", "build request", rawURL, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Referer", refererURL)
	req.Header.Set("Cookie", c.cookieHeader())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrTransient, "qzone", "request", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, qzerr.Wrap(qzerr.ErrTransient, "qzone", "request",
			fmt.Sprintf("%s returned %d", rawURL, resp.StatusCode), nil)
	}
	if resp.StatusCode == http.StatusForbidden {
		return nil, qzerr.Wrap(qzerr.ErrAuthExpired, "qzone", "request",
			fmt.Sprintf("%s returned 403", rawURL), nil)
	}
	if resp.StatusCode >= 400 {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "qzone", "request",
			fmt.Sprintf("%s returned %d", rawURL, resp.StatusCode), nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrTransient, "qzone", "read response", rawURL, err)
	}

	payload, err := unwrapJSONP(raw)
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "qzone", "unwrap response", rawURL, err)
	}

	var w wrapper
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "qzone", "decode response", rawURL, err)
	}
	if err := qzerr.FromCode(w.Code, w.Message); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *Client) cookieHeader() string {
	cookie := c.creds.Cookie()
	ouin := fmt.Sprintf("o%010d", c.creds.Uin())
	pairs := []string{
		"uin=" + ouin,
		"p_uin=" + ouin,
		"p_skey=" + cookie.PSkey,
		"pt4_token=" + cookie.Pt4Token,
		"pt_guid_sig=" + cookie.PtGuidSig,
		"ptcz=" + cookie.Ptcz,
	}
	return strings.Join(pairs, "; ")
}
