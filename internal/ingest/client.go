package ingest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
)

const (
	envelopeSuccessCode = 100
	envelopeSuccessMsg  = "OK"
)

type Endpoint struct {
	URL    string
	Method string          // GET when empty
	Body   json.RawMessage // sent as JSON when set
}

type ClientConfig struct {
	ProxyURL     string // http, https or socks5
	CertPath     string // PKCS#12 client certificate
	CertPassword string
	Timeout      time.Duration // zero keeps the transport default
	UserAgent    string
}

// NewHTTPClient builds the upstream HTTP client with optional proxy and client certificate.
func NewHTTPClient(cfg ClientConfig) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()

	if strings.TrimSpace(cfg.ProxyURL) != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}

	if strings.TrimSpace(cfg.CertPath) != "" {
		cert, err := loadPKCS12(cfg.CertPath, cfg.CertPassword)
		if err != nil {
			return nil, err
		}
		tr.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return &http.Client{Transport: tr, Timeout: cfg.Timeout}, nil
}

func loadPKCS12(path string, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read client certificate: %w", err)
	}

	// ToPEM instead of Decode: bundles with a CA chain have more than two bags.
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode client certificate: %w", err)
	}

	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}

	cert, err := tls.X509KeyPair(pemData, pemData)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load client certificate: %w", err)
	}
	return cert, nil
}

// Client fetches envelopes from upstream endpoints.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

func NewClient(httpClient *http.Client, userAgent string) Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return Client{HTTP: httpClient, UserAgent: userAgent}
}

// Fetch performs the request and returns the envelope's response payload.
func (c Client) Fetch(ctx context.Context, ep Endpoint) (json.RawMessage, error) {
	method := strings.ToUpper(strings.TrimSpace(ep.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(ep.Body) > 0 {
		body = bytes.NewReader(ep.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, ep.URL, body)
	if err != nil {
		return nil, &TransportError{Endpoint: ep.URL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: ep.URL, Err: fmt.Errorf("cannot fetch from endpoint: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: ep.URL, Err: fmt.Errorf("read body: %w", err)}
	}

	return decodeEnvelope(ep.URL, raw)
}

func decodeEnvelope(endpoint string, raw []byte) (json.RawMessage, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("unable to parse JSON: %w", err)}
	}

	codeRaw, ok := env["code"]
	if !ok {
		return nil, &MalformedResponseError{Endpoint: endpoint, Reason: "missing code"}
	}
	msgRaw, ok := env["msg"]
	if !ok {
		return nil, &MalformedResponseError{Endpoint: endpoint, Reason: "missing msg"}
	}

	var code int
	if err := json.Unmarshal(codeRaw, &code); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Reason: "code is not an integer"}
	}
	var msg string
	if err := json.Unmarshal(msgRaw, &msg); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Reason: "msg is not a string"}
	}

	if code != envelopeSuccessCode || msg != envelopeSuccessMsg {
		return nil, &APIError{Code: code, Msg: msg}
	}

	payload, ok := env["response"]
	if !ok || isJSONNull(payload) {
		return nil, &MalformedResponseError{Endpoint: endpoint, Reason: "missing response"}
	}

	return payload, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
