package core

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"h5p-downloader/lib/restyutil"
	"h5p-downloader/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

var ErrLoginFailed = fmt.Errorf("failed to login, the platform rejected the credentials")
var ErrNoLoginForm = fmt.Errorf("could not find a login form on the login page")
var ErrNoLoginToken = fmt.Errorf("could not find a csrf token in the login form")
var ErrNoPasswordField = fmt.Errorf("could not find a password field, the email may be unrecognized or the account externally managed")
var ErrSSONotSupported = fmt.Errorf("this account signs in through SSO/SAML, automated login is not supported")

// Client is an authenticated scraping session against one H5P platform.
// It is not safe for concurrent mutation, one run owns one client.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	jar         http.CookieJar
	sessionFile string
}

type ClientOptions struct {
	BaseUrl string
	// path of the persisted cookie store, empty disables persistence
	SessionFile string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(strings.TrimSuffix(opts.BaseUrl, "/"))
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(baseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	// export downloads may redirect to a CDN on another domain
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/h5p/http")
	restyutil.DumpResponses(client, restyInstrumentOutput)

	c := &Client{
		BaseUrl:     baseUrl,
		Http:        client,
		jar:         jar,
		sessionFile: opts.SessionFile,
	}
	return c, nil
}

// ResolveUrl rebases a possibly relative href onto the platform base URL.
func (c *Client) ResolveUrl(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.BaseUrl.ResolveReference(parsed).String()
}

// the URL the client ended up at after redirects
func finalUrl(res *resty.Response) string {
	if res.RawResponse != nil &&
		res.RawResponse.Request != nil &&
		res.RawResponse.Request.URL != nil {
		return res.RawResponse.Request.URL.String()
	}
	return res.Request.URL
}

// ProbeSession issues a lightweight authenticated-only request without
// following redirects. Anything but a plain 200 means the session is gone.
func (c *Client) ProbeSession(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "client:ProbeSession")
	defer span.End()

	httpc := *c.Http.GetClient()
	httpc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet,
		c.BaseUrl.JoinPath("content").String(), nil,
	)
	if err != nil {
		span.RecordError(err)
		return false
	}
	res, err := httpc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session probe request failed")
		return false
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK
}

// EnsureAuthenticated restores and validates a persisted session if one
// exists, otherwise it runs the full login flow.
func (c *Client) EnsureAuthenticated(ctx context.Context, email, password string) error {
	ctx, span := tracer.Start(ctx, "client:EnsureAuthenticated")
	defer span.End()

	if c.RestoreSession(ctx) && c.ProbeSession(ctx) {
		span.AddEvent("restored session is valid")
		return nil
	}
	return c.LoginEmailPassword(ctx, email, password)
}

// LoginEmailPassword runs the platform's two-step login flow: submit the
// email with a scraped csrf token, then the password on the resulting form.
// Every failure here is fatal for the run, nothing can be downloaded
// without a session.
func (c *Client) LoginEmailPassword(ctx context.Context, email, password string) error {
	ctx, span := tracer.Start(ctx, "client:LoginEmailPassword")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/login/introduce")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, "login page returned a non-200 status")
		return fmt.Errorf("login page returned status %d", res.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return err
	}

	loginForm := doc.Find("form").First()
	if loginForm.Length() == 0 {
		span.SetStatus(codes.Error, ErrNoLoginForm.Error())
		return ErrNoLoginForm
	}
	token := doc.Find("input[name=_token]").AttrOr("value", "")
	if token == "" {
		span.SetStatus(codes.Error, ErrNoLoginToken.Error())
		return ErrNoLoginToken
	}
	formAction := c.ResolveUrl(loginForm.AttrOr("action", "/login/introduce"))

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"_token": token,
			"email":  email,
		}).
		Post(formAction)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit email")
		return err
	}

	landedOn := strings.ToLower(finalUrl(res))
	if strings.Contains(landedOn, "sso") || strings.Contains(landedOn, "saml") {
		span.SetStatus(codes.Error, ErrSSONotSupported.Error())
		return ErrSSONotSupported
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse email step html")
		return err
	}

	passwordInput := doc.Find("input[type=password]")
	if passwordInput.Length() == 0 {
		passwordInput = doc.Find("input[name=password]")
	}
	if passwordInput.Length() == 0 {
		span.SetStatus(codes.Error, ErrNoPasswordField.Error())
		return ErrNoPasswordField
	}

	// the password form carries a fresh token, fall back to the old one
	token = doc.Find("input[name=_token]").AttrOr("value", token)

	passwordAction := "/login"
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if !strings.EqualFold(form.AttrOr("method", ""), "post") {
			return true
		}
		if action := form.AttrOr("action", ""); action != "" {
			passwordAction = action
		}
		return false
	})

	payload := map[string]string{
		"_token":   token,
		"email":    email,
		"password": password,
	}
	// forward whatever hidden fields the platform put on the form
	doc.Find("input[type=hidden]").Each(func(_ int, hidden *goquery.Selection) {
		name := hidden.AttrOr("name", "")
		if name == "" {
			return
		}
		if _, taken := payload[name]; taken {
			return
		}
		payload[name] = hidden.AttrOr("value", "")
	})

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(payload).
		Post(c.ResolveUrl(passwordAction))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit password")
		return err
	}

	if res.StatusCode() != http.StatusOK ||
		strings.Contains(strings.ToLower(finalUrl(res)), "login") {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return ErrLoginFailed
	}

	c.SaveSession(ctx)
	return nil
}
