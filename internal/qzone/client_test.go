package qzone_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"qzsync/internal/qzerr"
	"qzsync/internal/qzone"
	"qzsync/internal/store"
)

type fakeCreds struct{}

func (fakeCreds) Uin() int64 { return 123 }
func (fakeCreds) Cookie() store.Cookie {
	return store.Cookie{PSkey: "sk", Pt4Token: "t4", PtGuidSig: "sig", Ptcz: "cz"}
}
func (fakeCreds) Gtk() int32 { return 42 }

type fakeDoer struct {
	lastReq *http.Request
	status  int
	body    string
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     http.Header{},
	}, nil
}

func TestFeedsMoreDecodesPage(t *testing.T) {
	doer := &fakeDoer{body: `_Callback({"code":0,"data":{` +
		`"data":[{"uin":"1","abstime":"100","key":"k1","appid":311,"typeid":0,"html":"<div>x</div>"}],` +
		`"main":{"externparam":"next-cursor"}}});`}
	c := qzone.NewClientWithDoer(fakeCreds{}, doer)

	page, err := c.FeedsMore(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("FeedsMore: %v", err)
	}
	if len(page.Entries) != 1 || page.Entries[0].Key != "k1" {
		t.Fatalf("entries = %+v, want one entry k1", page.Entries)
	}
	if page.Externparam != "next-cursor" {
		t.Fatalf("externparam = %q, want next-cursor", page.Externparam)
	}
}

func TestRequestCarriesTokenAndCookie(t *testing.T) {
	doer := &fakeDoer{body: `{"code":0,"data":{"data":[],"main":{}}}`}
	c := qzone.NewClientWithDoer(fakeCreds{}, doer)

	if _, err := c.FeedsMore(context.Background(), 1, ""); err != nil {
		t.Fatalf("FeedsMore: %v", err)
	}
	req := doer.lastReq
	if got := req.URL.Query().Get("g_tk"); got != "42" {
		t.Fatalf("g_tk = %q, want 42", got)
	}
	cookie := req.Header.Get("Cookie")
	for _, want := range []string{"uin=o0000000123", "p_uin=o0000000123", "p_skey=sk", "ptcz=cz"} {
		if !strings.Contains(cookie, want) {
			t.Fatalf("cookie header %q missing %q", cookie, want)
		}
	}
	if req.Header.Get("Referer") == "" {
		t.Fatal("referer header not set")
	}
}

func TestResponseCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"expired", `{"code":-3000,"message":"login expired"}`, qzerr.ErrAuthExpired},
		{"not logged in", `{"code":-10000,"message":"no login"}`, qzerr.ErrAuthExpired},
		{"busy", `{"code":-10001,"message":"busy"}`, qzerr.ErrBusy},
		{"album retry", `{"code":-10805,"message":"try later"}`, qzerr.ErrAlbumNotReady},
		{"other", `{"code":-7,"message":"nope"}`, qzerr.ErrPermanent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := qzone.NewClientWithDoer(fakeCreds{}, &fakeDoer{body: tc.body})
			_, err := c.FeedsMore(context.Background(), 1, "")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, qzerr.ErrAuthExpired},
		{http.StatusBadGateway, qzerr.ErrTransient},
		{http.StatusNotFound, qzerr.ErrPermanent},
	}
	for _, tc := range cases {
		c := qzone.NewClientWithDoer(fakeCreds{}, &fakeDoer{status: tc.status})
		_, err := c.FeedsMore(context.Background(), 1, "")
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}
