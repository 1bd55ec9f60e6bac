package e2etest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/descope/virtualwebauthn"
)

const (
	readyTimeout      = time.Second
	readyPollInterval = 100 * time.Millisecond
)

// Client is a browser-like HTTP client with a virtual passkey authenticator.
type Client struct {
	client        *http.Client
	url           string
	rp            virtualwebauthn.RelyingParty
	authenticator virtualwebauthn.Authenticator
}

// NewClient creates a Webauthn-aware HTTP client.
//
// rpID and rpOrigin should correspond to the Webauthn setup on the server.
func NewClient(url, rpID, rpOrigin string) (*Client, error) {
	return newClient(url, rpID, rpOrigin, http.DefaultTransport)
}

// NewClientWithSecFetchSite creates a client that sends the given Sec-Fetch-Site header with every request. Use
// "cross-site" to simulate a request forged by another origin.
func NewClientWithSecFetchSite(url, rpID, rpOrigin, secFetchSite string) (*Client, error) {
	return newClient(url, rpID, rpOrigin, &headerTransport{
		header: "Sec-Fetch-Site",
		value:  secFetchSite,
		next:   http.DefaultTransport,
	})
}

func newClient(url, rpID, rpOrigin string, transport http.RoundTripper) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, fmt.Errorf("create unsafe cookie jar: %w", err)
	}
	return &Client{
		client:        &http.Client{Jar: jar, Transport: transport},
		url:           url,
		rp:            virtualwebauthn.RelyingParty{Name: "Fitplan", ID: rpID, Origin: rpOrigin},
		authenticator: virtualwebauthn.NewAuthenticator(),
	}, nil
}

type headerTransport struct {
	header string
	value  string
	next   http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(t.header, t.value)
	return t.next.RoundTrip(req) //nolint:wrapcheck // transparent transport
}

// StatusError is returned when the server answers with an unexpected status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	deadline := time.Now().Add(readyTimeout)
	for {
		resp, err := c.Get(ctx, urlPath)
		if err == nil {
			if closeErr := resp.Body.Close(); closeErr != nil {
				return fmt.Errorf("close response body: %w", closeErr)
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(readyPollInterval):
			if time.Now().After(deadline) {
				return errors.New("timeout waiting for endpoint to be ready")
			}
		}
	}
}

func (c *Client) do(ctx context.Context, method, urlPath, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, urlPath, "", nil)
}

// postJSON posts body and returns the response body, failing on anything but 200.
func (c *Client) postJSON(ctx context.Context, urlPath string, body string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, urlPath, "application/json", strings.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(out), nil
}

func documentFromResponse(resp *http.Response) (*goquery.Document, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}

// GetDoc fetches a URL and returns a goquery document.
func (c *Client) GetDoc(ctx context.Context, urlPath string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, urlPath)
	if err != nil {
		return nil, fmt.Errorf("client get: %w", err)
	}
	return documentFromResponse(resp)
}

// Register registers a new WebAuthn credential with the server and returns the front page document.
func (c *Client) Register(ctx context.Context) (*goquery.Document, error) {
	options, err := c.postJSON(ctx, "/api/registration/start", "")
	if err != nil {
		return nil, fmt.Errorf("start registration: %w", err)
	}
	attOpts, err := virtualwebauthn.ParseAttestationOptions(options)
	if err != nil {
		return nil, fmt.Errorf("parse attestation options: %w", err)
	}

	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	attestation := virtualwebauthn.CreateAttestationResponse(c.rp, c.authenticator, credential, *attOpts)
	if _, err = c.postJSON(ctx, "/api/registration/finish", attestation); err != nil {
		return nil, fmt.Errorf("finish registration: %w", err)
	}

	c.authenticator.AddCredential(credential)
	// Discoverable login returns the user handle from the authenticator.
	c.authenticator.Options.UserHandle = []byte(attOpts.UserID)

	doc, err := c.GetDoc(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("get document after registration: %w", err)
	}
	return doc, nil
}

// Login logs in to the server given there is a registered WebAuthn credential and returns the front page document.
func (c *Client) Login(ctx context.Context) (*goquery.Document, error) {
	if len(c.authenticator.Credentials) == 0 {
		return nil, errors.New("no registered credential, call Register first")
	}
	options, err := c.postJSON(ctx, "/api/login/start", "")
	if err != nil {
		return nil, fmt.Errorf("start login: %w", err)
	}
	asOpts, err := virtualwebauthn.ParseAssertionOptions(options)
	if err != nil {
		return nil, fmt.Errorf("parse assertion options: %w", err)
	}

	assertion := virtualwebauthn.CreateAssertionResponse(c.rp, c.authenticator, c.authenticator.Credentials[0], *asOpts)
	if _, err = c.postJSON(ctx, "/api/login/finish", assertion); err != nil {
		return nil, fmt.Errorf("finish login: %w", err)
	}

	doc, err := c.GetDoc(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("get document after login: %w", err)
	}
	return doc, nil
}

// Logout submits the logout form on the front page.
func (c *Client) Logout(ctx context.Context) (*goquery.Document, error) {
	doc, err := c.GetDoc(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc, err = c.SubmitForm(ctx, doc, "/api/logout", nil); err != nil {
		return nil, fmt.Errorf("submit form: %w", err)
	}
	return doc, nil
}

// SubmitForm submits a form in the doc identified with action formActionURLPath and returns the response document.
// formFields maps label text to value. Inputs, textareas and selects are looked up by their label. Hidden inputs of
// the form are submitted as they are.
func (c *Client) SubmitForm(
	ctx context.Context,
	doc *goquery.Document,
	formActionURLPath string,
	formFields map[string]string,
) (*goquery.Document, error) {
	form, err := FindForm(doc, formActionURLPath)
	if err != nil {
		return nil, fmt.Errorf("find form: %w", err)
	}

	formData := neturl.Values{}
	form.Find("input[type=hidden]").Each(func(_ int, hidden *goquery.Selection) {
		if name, ok := hidden.Attr("name"); ok {
			formData.Add(name, hidden.AttrOr("value", ""))
		}
	})

	for labelText, value := range formFields {
		field, findErr := FindInputForLabel(form, labelText)
		if findErr != nil {
			if field, err = FindSelectForLabel(form, labelText); err != nil {
				return nil, fmt.Errorf("find field for label: %w", errors.Join(findErr, err))
			}
		}
		name, exists := field.Attr("name")
		if !exists {
			return nil, fmt.Errorf("field has no name attribute (label: %s, form_action: %s)",
				labelText, formActionURLPath)
		}
		if IsMultipleSelect(field) {
			for v := range strings.SplitSeq(value, ",") {
				formData.Add(name, v)
			}
			continue
		}
		formData.Set(name, value)
	}

	resp, err := c.do(ctx, http.MethodPost, formActionURLPath, "application/x-www-form-urlencoded",
		strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, err
	}
	return documentFromResponse(resp)
}
