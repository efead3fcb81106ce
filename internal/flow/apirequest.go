package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
)

// forbiddenHeaders never pass from a flow definition into an outbound
// request; the transport owns them.
var forbiddenHeaders = []string{
	"Connection",
	"Content-Length",
	"Content-Type",
	"Host",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Transfer-Encoding",
	"Upgrade",
	"User-Agent",
}

// responseReadLimit bounds how much of a response becomes the
// API_RESPONSE variable.
const responseReadLimit = 2048

// handleAPIRequest performs the node's outbound call and stores the
// (truncated) response as API_RESPONSE. A transport failure cuts this
// branch without erroring the traversal.
func (w *Walker) handleAPIRequest(ctx context.Context, id int64, vars *Variables) ([]designer.Connection, error) {
	request, err := w.api.APIRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := ExpandData(ctx, request.Body, vars, true)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode api request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(string(request.Method)), request.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("build api request: %w", err)
	}
	for key, value := range request.Headers {
		req.Header.Set(key, value)
	}
	for _, header := range forbiddenHeaders {
		req.Header.Del(header)
	}
	req.Header.Set("User-Agent",
		fmt.Sprintf("ConstructorTelegramBots (constructor.exg1o.org; bot_id=%d)", w.botID))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.outbound.Do(req)
	if err != nil {
		w.log.Debug("api request failed", "api_request_id", id, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		w.log.Debug("api request read failed", "api_request_id", id, "error", err)
		return nil, nil
	}
	vars.Add("API_RESPONSE", parseResponseBody(raw))

	return request.SourceConnections, nil
}

// parseResponseBody keeps JSON structured and falls back to the raw
// text.
func parseResponseBody(raw []byte) any {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	return value
}
