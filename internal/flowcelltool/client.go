package flowcelltool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"seqpoll/internal/logging"
	"seqpoll/internal/runid"
	"seqpoll/internal/runstatus"
	"seqpoll/internal/services"
)

// ErrStatusUnavailable marks transport, authentication, and server failures.
// Callers never receive a default status in place of this error.
var ErrStatusUnavailable = errors.New("status store unavailable")

const apiPrefix = "/flowcells/api/v0/flowcell/"

// HTTPDoer describes the HTTP client used by the status store client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Signature         string
	MimeType          string
	Version           string
	HTTPClient        HTTPDoer
	Logger            *slog.Logger
}

// Flowcell is the subset of the flow cell resource seqpoll reads.
type Flowcell struct {
	UUID             string            `json:"uuid"`
	VendorID         string            `json:"vendor_id"`
	StatusSequencing string            `json:"status_sequencing"`
	StatusConversion string            `json:"status_conversion"`
	DeliveryType     string            `json:"delivery_type"`
	NumLanes         int               `json:"num_lanes"`
	Libraries        []json.RawMessage `json:"libraries"`
}

// Status returns the raw status for a category.
func (f Flowcell) Status(category runstatus.Category) string {
	switch category {
	case runstatus.CategorySequencing:
		return f.StatusSequencing
	case runstatus.CategoryConversion:
		return f.StatusConversion
	default:
		return ""
	}
}

// Client talks to the Flowcelltool REST API. Runs are addressed by their
// directory path; the flow cell named in the run's RunInfo.xml selects the
// record, with the directory name's vendor id as fallback. The client does
// not retry.
type Client struct {
	baseURL   string
	token     string
	signature string
	mimeType  string
	http      HTTPDoer
	limiter   *rate.Limiter
	logger    *slog.Logger

	mu    sync.Mutex
	uuids map[string]string
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "flowcelltool", "init", "base url required", nil)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "flowcelltool", "init", "parse base url", err)
	}
	doer := opts.HTTPClient
	if doer == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}
	c := &Client{
		baseURL:   base,
		token:     strings.TrimSpace(opts.Token),
		signature: buildSignature(opts.Signature, opts.Version),
		mimeType:  opts.MimeType,
		http:      doer,
		logger:    logging.NewComponentLogger(opts.Logger, "flowcelltool"),
		uuids:     make(map[string]string),
	}
	if c.mimeType == "" {
		c.mimeType = "text/plain"
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

func buildSignature(text, version string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if version = strings.TrimSpace(version); version != "" {
		text += " " + version
	}
	return "\n-- \n" + text
}

// Lookup fetches the flow cell record for a run directory.
func (c *Client) Lookup(ctx context.Context, runPath string) (Flowcell, error) {
	vendorID, err := c.vendorID(runPath)
	if err != nil {
		return Flowcell{}, err
	}
	var fc Flowcell
	endpoint := c.baseURL + apiPrefix + "by_vendor_id/" + url.PathEscape(vendorID) + "/"
	if err := c.getJSON(ctx, "lookup", endpoint, &fc); err != nil {
		return Flowcell{}, err
	}
	if strings.TrimSpace(fc.UUID) == "" {
		return Flowcell{}, fmt.Errorf("%w: lookup %s: response missing uuid", ErrStatusUnavailable, vendorID)
	}
	c.mu.Lock()
	c.uuids[runPath] = fc.UUID
	c.mu.Unlock()
	return fc, nil
}

// vendorID prefers the flow cell named in RunInfo.xml and falls back to the
// id parsed from the directory name.
func (c *Client) vendorID(runPath string) (string, error) {
	flowcell, err := runid.ReadFlowcell(runPath)
	if err != nil {
		c.logger.Debug("run info unreadable; using directory name",
			logging.String("run_path", runPath),
			logging.Error(err),
		)
	}
	if flowcell != "" {
		return flowcell, nil
	}
	id, err := runid.Parse(runPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "flowcelltool", "lookup", "parse run name", err)
	}
	return id.VendorID, nil
}

// GetStatus returns the current status for category. A blank value reads as
// initial; any other unknown value is returned verbatim for the caller to judge.
func (c *Client) GetStatus(ctx context.Context, runPath string, category runstatus.Category) (runstatus.Status, error) {
	fc, err := c.Lookup(ctx, runPath)
	if err != nil {
		return "", err
	}
	raw := strings.TrimSpace(fc.Status(category))
	if raw == "" {
		return runstatus.StatusInitial, nil
	}
	if status, ok := runstatus.ParseStatus(raw); ok {
		return status, nil
	}
	return runstatus.Status(raw), nil
}

// SetStatus writes status for category. Writes are idempotent.
func (c *Client) SetStatus(ctx context.Context, runPath string, category runstatus.Category, status runstatus.Status) error {
	if !status.Known() {
		return services.Wrap(services.ErrValidation, "flowcelltool", "set status", fmt.Sprintf("unknown status %q", status), nil)
	}
	uuid, err := c.resolveUUID(ctx, runPath)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("status_"+string(category), string(status))
	req, err := c.newRequest(ctx, http.MethodPatch, c.baseURL+apiPrefix+uuid+"/", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.do(req, "set status")
	if err != nil {
		return err
	}
	drain(resp)
	c.logger.Debug("status written",
		logging.String(logging.FieldRunPath, runPath),
		logging.String(logging.FieldCategory, string(category)),
		logging.String(logging.FieldStatus, string(status)),
	)
	return nil
}

// GetDeliveryType returns the run's delivery policy.
func (c *Client) GetDeliveryType(ctx context.Context, runPath string) (runstatus.DeliveryType, error) {
	fc, err := c.Lookup(ctx, runPath)
	if err != nil {
		return runstatus.DeliveryType{}, err
	}
	delivery, err := runstatus.ParseDeliveryType(fc.DeliveryType)
	if err != nil {
		return runstatus.DeliveryType{}, services.Wrap(services.ErrValidation, "flowcelltool", "delivery type", "", err)
	}
	return delivery, nil
}

// GetLaneCount returns the number of lanes on the flow cell (at least 1).
func (c *Client) GetLaneCount(ctx context.Context, runPath string) (int, error) {
	fc, err := c.Lookup(ctx, runPath)
	if err != nil {
		return 0, err
	}
	if fc.NumLanes < 1 {
		return 0, services.Wrap(services.ErrValidation, "flowcelltool", "lane count", fmt.Sprintf("invalid lane count %d", fc.NumLanes), nil)
	}
	return fc.NumLanes, nil
}

// GetSampleSheet writes the current sample sheet to dest. A flow cell without
// libraries yields an empty file.
func (c *Client) GetSampleSheet(ctx context.Context, runPath, dest string) error {
	fc, err := c.Lookup(ctx, runPath)
	if err != nil {
		return err
	}
	var content []byte
	if len(fc.Libraries) > 0 {
		req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+apiPrefix+fc.UUID+"/sample_sheet/", nil)
		if err != nil {
			return err
		}
		resp, err := c.do(req, "sample sheet")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		content, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read sample sheet: %w", ErrStatusUnavailable, err)
		}
	} else {
		c.logger.Info("flow cell has no libraries; writing empty sample sheet",
			logging.String(logging.FieldRunPath, runPath))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create sample sheet directory: %w", err)
	}
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write sample sheet: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("commit sample sheet: %w", err)
	}
	return nil
}

// PostAttachment adds a message with an optional attachment to the flow cell.
func (c *Client) PostAttachment(ctx context.Context, runPath, subject, body, attachmentPath string) error {
	uuid, err := c.resolveUUID(ctx, runPath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"title", subject},
		{"body", body + c.signature},
		{"mime_type", c.mimeType},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
	}
	if attachmentPath != "" {
		if err := attachFile(writer, attachmentPath); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+apiPrefix+uuid+"/add_message/", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.do(req, "add message")
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

func attachFile(writer *multipart.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "flowcelltool", "add message", "open attachment", err)
	}
	defer file.Close()
	part, err := writer.CreateFormFile("attachments", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("encode attachment: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("encode attachment: %w", err)
	}
	return nil
}

func (c *Client) resolveUUID(ctx context.Context, runPath string) (string, error) {
	c.mu.Lock()
	uuid, ok := c.uuids[runPath]
	c.mu.Unlock()
	if ok {
		return uuid, nil
	}
	fc, err := c.Lookup(ctx, runPath)
	if err != nil {
		return "", err
	}
	return fc.UUID, nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, dest any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", ErrStatusUnavailable, op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	return req, nil
}

// do sends req and maps failures. The caller owns the body on success.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%w: %s: rate limit wait: %w", ErrStatusUnavailable, op, err)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStatusUnavailable, op, err)
	}
	if resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(snippet))
	if resp.StatusCode == http.StatusNotFound {
		return nil, services.Wrap(services.ErrNotFound, "flowcelltool", op, fmt.Sprintf("%s %s returned 404", req.Method, req.URL.Path), nil)
	}
	return nil, fmt.Errorf("%w: %s: %s %s returned %d: %s", ErrStatusUnavailable, op, req.Method, req.URL.Path, resp.StatusCode, detail)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}
