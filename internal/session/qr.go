package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"qzsync/internal/logging"
	"qzsync/internal/qzerr"
	"qzsync/internal/store"
)

const (
	ptloginBase = "https://ssl.ptlogin2.qq.com"
	qrShowURL   = ptloginBase + "/ptqrshow"
	qrLoginURL  = ptloginBase + "/ptqrlogin"

	loginAppID = "549000912"
	loginDaid  = "5"

	qrPollInterval = 3 * time.Second
	qrMaxRefresh   = 6
)

// QR poll result codes from the ptuiCB envelope.
const (
	qrCodeSuccess   = "0"
	qrCodeExpired   = "65"
	qrCodeWaiting   = "66"
	qrCodeScanned   = "67"
	qrCodeCancelled = "68"
)

// qrFlow runs one QR login attempt: fetch an image, poll for the scan,
// follow the success redirect, and collect the session cookies.
type qrFlow struct {
	uin      int64
	observer QRObserver
	logger   *slog.Logger
	client   *http.Client
	jar      *cookiejar.Jar

	renewCh  chan struct{}
	cancelCh chan struct{}
	cancelMu sync.Mutex
	done     bool
}

func newQRFlow(uin int64, observer QRObserver, logger *slog.Logger) *qrFlow {
	jar, _ := cookiejar.New(nil)
	return &qrFlow{
		uin:      uin,
		observer: observer,
		logger:   logging.NewComponentLogger(logger, "qr-login"),
		client:   &http.Client{Jar: jar, Timeout: 30 * time.Second},
		jar:      jar,
		renewCh:  make(chan struct{}, 1),
		cancelCh: make(chan struct{}),
	}
}

// Renew requests a fresh QR image; reports false when the flow has ended.
func (f *qrFlow) Renew() bool {
	f.cancelMu.Lock()
	defer f.cancelMu.Unlock()
	if f.done {
		return false
	}
	select {
	case f.renewCh <- struct{}{}:
	default:
	}
	return true
}

// Cancel aborts the flow; reports false when the flow has ended.
func (f *qrFlow) Cancel() bool {
	f.cancelMu.Lock()
	defer f.cancelMu.Unlock()
	if f.done {
		return false
	}
	f.done = true
	close(f.cancelCh)
	return true
}

func (f *qrFlow) finish() {
	f.cancelMu.Lock()
	f.done = true
	f.cancelMu.Unlock()
}

// Run executes the sub-flow until scan success, timeout, user cancel, or the
// refresh budget is spent.
func (f *qrFlow) Run(ctx context.Context) (store.Cookie, error) {
	defer f.finish()

	qrsig, err := f.fetchImage(ctx, 0)
	if err != nil {
		f.notifyFailed(ctx, err)
		return store.Cookie{}, err
	}
	refreshes := 0

	ticker := time.NewTicker(qrPollInterval)
	defer ticker.Stop()

	scanned := false
	for {
		select {
		case <-ctx.Done():
			err := qzerr.Wrap(qzerr.ErrTransient, "session", "qr login", "timed out", ctx.Err())
			f.notifyFailed(ctx, err)
			return store.Cookie{}, err
		case <-f.cancelCh:
			if f.observer != nil {
				f.observer.QRCancelled(ctx)
			}
			return store.Cookie{}, qzerr.Wrap(qzerr.ErrUserBreak, "session", "qr login", "cancelled", nil)
		case <-f.renewCh:
			refreshes++
			if refreshes > qrMaxRefresh {
				err := qzerr.Wrap(qzerr.ErrLoginFailed, "session", "qr login", "refresh budget spent", nil)
				f.notifyFailed(ctx, err)
				return store.Cookie{}, err
			}
			if qrsig, err = f.fetchImage(ctx, refreshes); err != nil {
				f.notifyFailed(ctx, err)
				return store.Cookie{}, err
			}
		case <-ticker.C:
			code, redirect, err := f.poll(ctx, qrsig)
			if err != nil {
				f.notifyFailed(ctx, err)
				return store.Cookie{}, err
			}
			switch code {
			case qrCodeWaiting:
			case qrCodeScanned:
				if !scanned {
					scanned = true
					if f.observer != nil {
						f.observer.QRScanned(ctx)
					}
				}
			case qrCodeExpired:
				refreshes++
				if refreshes > qrMaxRefresh {
					err := qzerr.Wrap(qzerr.ErrLoginFailed, "session", "qr login", "image expired too often", nil)
					f.notifyFailed(ctx, err)
					return store.Cookie{}, err
				}
				if qrsig, err = f.fetchImage(ctx, refreshes); err != nil {
					f.notifyFailed(ctx, err)
					return store.Cookie{}, err
				}
			case qrCodeCancelled:
				if f.observer != nil {
					f.observer.QRCancelled(ctx)
				}
				return store.Cookie{}, qzerr.Wrap(qzerr.ErrUserBreak, "session", "qr login", "declined on device", nil)
			case qrCodeSuccess:
				cookie, err := f.completeLogin(ctx, redirect)
				if err != nil {
					f.notifyFailed(ctx, err)
					return store.Cookie{}, err
				}
				return cookie, nil
			default:
				err := qzerr.Wrap(qzerr.ErrLoginFailed, "session", "qr login",
					fmt.Sprintf("unexpected poll code %s", code), nil)
				f.notifyFailed(ctx, err)
				return store.Cookie{}, err
			}
		}
	}
}

// fetchImage downloads a fresh QR PNG and returns the qrsig cookie value.
func (f *qrFlow) fetchImage(ctx context.Context, refresh int) (string, error) {
	query := url.Values{
		"appid": {loginAppID},
		"daid":  {loginDaid},
		"e":     {"2"},
		"l":     {"M"},
		"s":     {"3"},
		"d":     {"72"},
		"v":     {"4"},
		"t":     {fmt.Sprint(rand.Float64())},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, qrShowURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", qzerr.Wrap(qzerr.ErrPermanent, "session", "qr image", "build request", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", qzerr.Wrap(qzerr.ErrTransient, "session", "qr image", "fetch", err)
	}
	defer resp.Body.Close()

	png, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", qzerr.Wrap(qzerr.ErrTransient, "session", "qr image", "read", err)
	}

	var qrsig string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "qrsig" {
			qrsig = cookie.Value
		}
	}
	if qrsig == "" {
		return "", qzerr.Wrap(qzerr.ErrTransient, "session", "qr image", "missing qrsig cookie", nil)
	}

	if f.observer != nil {
		f.observer.QRFetched(ctx, png, refresh)
	}
	f.logger.Debug("qr image fetched", logging.Int("refresh", refresh))
	return qrsig, nil
}

func (f *qrFlow) poll(ctx context.Context, qrsig string) (code, redirect string, err error) {
	query := url.Values{
		"u1":         {"https://qzs.qq.com/qzone/v5/loginsucc.html?para=izone"},
		"ptqrtoken":  {fmt.Sprint(hash33(qrsig))},
		"ptredirect": {"0"},
		"h":          {"1"},
		"t":          {"1"},
		"g":          {"1"},
		"from_ui":    {"1"},
		"ptlang":     {"2052"},
		"action":     {fmt.Sprintf("0-0-%d", time.Now().UnixMilli())},
		"js_type":    {"1"},
		"pt_uistyle": {"40"},
		"aid":        {loginAppID},
		"daid":       {loginDaid},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, qrLoginURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", "", qzerr.Wrap(qzerr.ErrPermanent, "session", "qr poll", "build request", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", qzerr.Wrap(qzerr.ErrTransient, "session", "qr poll", "fetch", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", "", qzerr.Wrap(qzerr.ErrTransient, "session", "qr poll", "read", err)
	}
	fields, err := parsePtuiCB(string(body))
	if err != nil {
		return "", "", qzerr.Wrap(qzerr.ErrPermanent, "session", "qr poll", "parse", err)
	}
	if len(fields) > 2 {
		redirect = fields[2]
	}
	return fields[0], redirect, nil
}

// completeLogin follows the success redirect so the cookie jar collects the
// session cookies, then assembles the credential set.
func (f *qrFlow) completeLogin(ctx context.Context, redirect string) (store.Cookie, error) {
	if redirect == "" {
		return store.Cookie{}, qzerr.Wrap(qzerr.ErrLoginFailed, "session", "qr login", "missing redirect", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, redirect, nil)
	if err != nil {
		return store.Cookie{}, qzerr.Wrap(qzerr.ErrPermanent, "session", "qr login", "build redirect", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return store.Cookie{}, qzerr.Wrap(qzerr.ErrTransient, "session", "qr login", "follow redirect", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	cookie := collectCookies(f.jar)
	if !cookie.Complete() {
		return store.Cookie{}, qzerr.Wrap(qzerr.ErrLoginFailed, "session", "qr login",
			"incomplete cookie set after redirect", nil)
	}
	return cookie, nil
}

func (f *qrFlow) notifyFailed(ctx context.Context, err error) {
	if f.observer != nil {
		f.observer.QRFailed(ctx, err)
	}
}

// hash33 derives ptqrtoken from the qrsig cookie.
func hash33(s string) int32 {
	hash := int64(0)
	for _, c := range []byte(s) {
		hash += (hash << 5) + int64(c)
	}
	return int32(hash & 0x7fffffff)
}
