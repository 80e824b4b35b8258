package session

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"qzsync/internal/logging"
	"qzsync/internal/qzerr"
	"qzsync/internal/store"
)

const (
	upCheckURL   = ptloginBase + "/check"
	upLoginURL   = ptloginBase + "/login"
	upVerifyURL  = ptloginBase + "/pt_sms_login"
	upCaptchaURL = "https://ssl.captcha.qq.com/cap_union_new_getcapbysig"
)

// Password login result codes from the ptuiCB envelope.
const (
	upCodeSuccess      = "0"
	upCodeWrongCaptcha = "4"
	upCodeNeedSMS      = "10009"
)

// upFlow runs one password login attempt. The remote side may interject a
// select-captcha or an SMS challenge; both are resolved through the prompter.
type upFlow struct {
	uin       int64
	password  string
	prompter  UPPrompter
	challenge time.Duration
	logger    *slog.Logger
	client    *http.Client
	jar       *cookiejar.Jar
}

func newUPFlow(uin int64, password string, prompter UPPrompter, challenge time.Duration,
	logger *slog.Logger) *upFlow {
	jar, _ := cookiejar.New(nil)
	return &upFlow{
		uin:       uin,
		password:  password,
		prompter:  prompter,
		challenge: challenge,
		logger:    logging.NewComponentLogger(logger, "up-login"),
		client:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
		jar:       jar,
	}
}

// Run executes the password flow and returns the collected cookie set.
func (f *upFlow) Run(ctx context.Context) (store.Cookie, error) {
	if f.password == "" {
		return store.Cookie{}, qzerr.Wrap(qzerr.ErrLoginFailed, "session", "up login",
			"no password configured", nil)
	}

	needCaptcha, verifycode, salt, err := f.check(ctx)
	if err != nil {
		return store.Cookie{}, err
	}

	if needCaptcha {
		verifycode, err = f.solveCaptcha(ctx, verifycode)
		if err != nil {
			return store.Cookie{}, err
		}
	}

	fields, err := f.login(ctx, verifycode, salt)
	if err != nil {
		return store.Cookie{}, err
	}

	switch fields[0] {
	case upCodeSuccess:
	case upCodeNeedSMS:
		hint := ""
		if len(fields) > 4 {
			hint = fields[4]
		}
		if fields, err = f.verifySMS(ctx, hint); err != nil {
			return store.Cookie{}, err
		}
		if fields[0] != upCodeSuccess {
			return store.Cookie{}, loginEnvelopeErr(fields)
		}
	case upCodeWrongCaptcha:
		return store.Cookie{}, qzerr.Wrap(qzerr.ErrLoginFailed, "session", "up login",
			"verification code rejected", nil)
	default:
		return store.Cookie{}, loginEnvelopeErr(fields)
	}

	if len(fields) > 2 && fields[2] != "" {
		if err := f.followRedirect(ctx, fields[2]); err != nil {
			return store.Cookie{}, err
		}
	}

	cookie := collectCookies(f.jar)
	if !cookie.Complete() {
		return store.Cookie{}, qzerr.Wrap(qzerr.ErrLoginFailed, "session", "up login",
			"incomplete cookie set", nil)
	}
	f.logger.Info("password login completed")
	return cookie, nil
}

// check probes whether a captcha is required and fetches the verify salt.
func (f *upFlow) check(ctx context.Context) (needCaptcha bool, verifycode, salt string, err error) {
	query := url.Values{
		"uin":         {strconv.FormatInt(f.uin, 10)},
		"appid":       {loginAppID},
		"daid":        {loginDaid},
		"pt_tea":      {"2"},
		"pt_vcode_v1": {"0"},
		"regmaster":   {""},
	}
	body, err := f.get(ctx, upCheckURL+"?"+query.Encode(), "up check")
	if err != nil {
		return false, "", "", err
	}
	fields, err := parsePtuiCB(body)
	if err != nil || len(fields) < 3 {
		return false, "", "", qzerr.Wrap(qzerr.ErrPermanent, "session", "up check", "parse", err)
	}
	return fields[0] != "0", fields[1], fields[2], nil
}

// solveCaptcha downloads the challenge image set and routes it through the
// prompter. The joined selection indexes form the verify answer.
func (f *upFlow) solveCaptcha(ctx context.Context, sig string) (string, error) {
	if f.prompter == nil {
		return "", qzerr.Wrap(qzerr.ErrLoginFailed, "session", "up captcha",
			"captcha required but no prompter installed", nil)
	}

	var images [][]byte
	for i := 0; i < 9; i++ {
		query := url.Values{
			"aid":  {loginAppID},
			"sig":  {sig},
			"grid": {strconv.Itoa(i)},
		}
		img, err := f.getRaw(ctx, upCaptchaURL+"?"+query.Encode(), "up captcha")
		if err != nil {
			return "", err
		}
		images = append(images, img)
	}

	challengeCtx, cancel := context.WithTimeout(ctx, f.challenge)
	defer cancel()
	picks, err := f.prompter.SelectCaptcha(challengeCtx, images)
	if err != nil {
		return "", qzerr.Wrap(qzerr.ErrUserBreak, "session", "up captcha", "challenge aborted", err)
	}

	parts := make([]string, 0, len(picks))
	for _, p := range picks {
		parts = append(parts, strconv.Itoa(p))
	}
	return strings.Join(parts, ","), nil
}

func (f *upFlow) login(ctx context.Context, verifycode, salt string) ([]string, error) {
	query := url.Values{
		"u":          {strconv.FormatInt(f.uin, 10)},
		"p":          {encryptPassword(f.password, f.uin, verifycode, salt)},
		"verifycode": {verifycode},
		"u1":         {"https://qzs.qq.com/qzone/v5/loginsucc.html?para=izone"},
		"ptredirect": {"0"},
		"h":          {"1"},
		"t":          {"1"},
		"g":          {"1"},
		"from_ui":    {"1"},
		"ptlang":     {"2052"},
		"action":     {fmt.Sprintf("2-0-%d", time.Now().UnixMilli())},
		"js_type":    {"1"},
		"pt_uistyle": {"40"},
		"aid":        {loginAppID},
		"daid":       {loginDaid},
	}
	body, err := f.get(ctx, upLoginURL+"?"+query.Encode(), "up login")
	if err != nil {
		return nil, err
	}
	fields, err := parsePtuiCB(body)
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "session", "up login", "parse", err)
	}
	return fields, nil
}

// verifySMS requests the code from the prompter and replays it to the
// verification endpoint.
func (f *upFlow) verifySMS(ctx context.Context, hint string) ([]string, error) {
	if f.prompter == nil {
		return nil, qzerr.Wrap(qzerr.ErrLoginFailed, "session", "up sms",
			"sms challenge raised but no prompter installed", nil)
	}

	challengeCtx, cancel := context.WithTimeout(ctx, f.challenge)
	defer cancel()
	code, err := f.prompter.SMSCode(challengeCtx, hint)
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrUserBreak, "session", "up sms", "challenge aborted", err)
	}

	query := url.Values{
		"uin":     {strconv.FormatInt(f.uin, 10)},
		"smscode": {strings.TrimSpace(code)},
		"aid":     {loginAppID},
		"daid":    {loginDaid},
	}
	body, err := f.get(ctx, upVerifyURL+"?"+query.Encode(), "up sms")
	if err != nil {
		return nil, err
	}
	fields, err := parsePtuiCB(body)
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "session", "up sms", "parse", err)
	}
	return fields, nil
}

func (f *upFlow) followRedirect(ctx context.Context, redirect string) error {
	_, err := f.getRaw(ctx, redirect, "up redirect")
	return err
}

func (f *upFlow) get(ctx context.Context, rawURL, op string) (string, error) {
	body, err := f.getRaw(ctx, rawURL, op)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (f *upFlow) getRaw(ctx context.Context, rawURL, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "session", op, "build request", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrTransient, "session", op, "fetch", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, qzerr.Wrap(qzerr.ErrTransient, "session", op, "read", err)
	}
	return body, nil
}

func loginEnvelopeErr(fields []string) error {
	msg := "login rejected"
	if len(fields) > 4 && fields[4] != "" {
		msg = fields[4]
	}
	return qzerr.Wrap(qzerr.ErrLoginFailed, "session", "up login",
		fmt.Sprintf("%s (code %s)", msg, fields[0]), nil)
}

// encryptPassword derives the login password digest: the password hash is
// salted with the account id, then with the upper-cased verify code.
func encryptPassword(password string, uin int64, verifycode, salt string) string {
	uinBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(uinBytes, uint64(uin))

	h1 := md5.Sum([]byte(password))
	mixed := append(h1[:], uinBytes...)
	if salt != "" {
		mixed = append(mixed, salt...)
	}
	h2 := md5.Sum(mixed)
	h2hex := strings.ToUpper(hex.EncodeToString(h2[:]))

	h3 := md5.Sum([]byte(h2hex + strings.ToUpper(verifycode)))
	return strings.ToUpper(hex.EncodeToString(h3[:]))
}
