package acumatica

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GetFile downloads an attached file by the href Acumatica reports under the
// record's files array (e.g. "/entity/Default/24.200.001/files/{id}"). The
// returned content type comes from the response header. The call carries the
// same bounded timeout as detail fetches.
func (c *Client) GetFile(ctx context.Context, baseURL, cookie, href string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.detailTimeout)
	defer cancel()

	target := href
	if !strings.HasPrefix(href, "http") {
		target = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("acumatica: failed to create file request: %w", err)
	}
	req.Header.Set("Cookie", cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("acumatica: file request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, "", ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", ErrNotFound
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, "", &StatusError{Code: resp.StatusCode, Body: truncateBody(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "", fmt.Errorf("acumatica: failed to read file body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
