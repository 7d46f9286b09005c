// Package esign is a client for the e-signature provider's REST API and its
// signed webhook deliveries.
package esign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
)

// Signer is the person asked to sign.
type Signer struct {
	FirstName string
	LastName  string
	Email     string
	Locale    string
}

type Request struct {
	Name         string
	DocumentName string
	Document     []byte
	Signer       Signer
}

// Envelope identifies an activated signature request.
type Envelope struct {
	RequestID  string
	DocumentID string
}

type Provider interface {
	// Send creates the request, uploads the document, adds the signer and
	// activates it.
	Send(ctx context.Context, req Request) (*Envelope, error)
	DownloadSigned(ctx context.Context, requestID string) ([]byte, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type idResponse struct {
	ID string `json:"id"`
}

func (c *Client) Send(ctx context.Context, req Request) (*Envelope, error) {
	logger.ExternalServiceCall("esign", "send", "name", req.Name, "signer", req.Signer.Email)

	env, err := c.send(ctx, req)
	logger.ExternalServiceResult("esign", "send", err, "name", req.Name)
	if err != nil {
		return nil, domain.Upstream("esign", err)
	}
	return env, nil
}

func (c *Client) send(ctx context.Context, req Request) (*Envelope, error) {
	var created idResponse
	err := c.doJSON(ctx, http.MethodPost, "/signature_requests", map[string]any{
		"name":          req.Name,
		"delivery_mode": "email",
		"timezone":      "UTC",
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("create signature request: %w", err)
	}
	base := "/signature_requests/" + created.ID

	doc, err := c.upload(ctx, base+"/documents", req.DocumentName, req.Document)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	locale := req.Signer.Locale
	if locale == "" {
		locale = "en"
	}
	signer := map[string]any{
		"info": map[string]any{
			"first_name": req.Signer.FirstName,
			"last_name":  req.Signer.LastName,
			"email":      req.Signer.Email,
			"locale":     locale,
		},
		"signature_level":               "electronic_signature",
		"signature_authentication_mode": "no_otp",
		"fields": []map[string]any{
			{"document_id": doc.ID, "type": "signature", "page": 1, "x": 77, "y": 581},
		},
	}
	if err := c.doJSON(ctx, http.MethodPost, base+"/signers", signer, nil); err != nil {
		return nil, fmt.Errorf("add signer: %w", err)
	}

	if err := c.doJSON(ctx, http.MethodPost, base+"/activate", nil, nil); err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	return &Envelope{RequestID: created.ID, DocumentID: doc.ID}, nil
}

func (c *Client) DownloadSigned(ctx context.Context, requestID string) ([]byte, error) {
	logger.ExternalServiceCall("esign", "download", "requestID", requestID)

	httpReq, err := c.newRequest(ctx, http.MethodGet, "/signature_requests/"+requestID+"/documents/download", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err == nil {
		defer resp.Body.Close()
		err = checkStatus(resp)
	}
	var body []byte
	if err == nil {
		body, err = io.ReadAll(resp.Body)
	}
	logger.ExternalServiceResult("esign", "download", err, "requestID", requestID, "bytes", len(body))
	if err != nil {
		return nil, domain.Upstream("esign", err)
	}
	return body, nil
}

func (c *Client) upload(ctx context.Context, path, name string, content []byte) (*idResponse, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.WriteField("nature", "signable_document"); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, path, buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	var out idResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	httpReq, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return c.do(httpReq, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s %s: status %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
}
