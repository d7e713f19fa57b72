package script

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/codefionn/selenai/internal/consts"
	"github.com/codefionn/selenai/internal/htmlconv"
	"github.com/codefionn/selenai/internal/tools"
)

const opHTTP = "http_request"

var allowedMethods = map[string]bool{
	http.MethodGet: true, http.MethodHead: true, http.MethodPost: true,
	http.MethodPut: true, http.MethodPatch: true, http.MethodDelete: true,
	http.MethodOptions: true,
}

// parseRequest converts a script value into a Request. spec may be a
// mapping {url, method?, headers?, body?, markdown?} or a host.Request.
func parseRequest(spec Value) (Request, error) {
	var req Request
	if spec.Kind != KindMapping {
		return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "request must be a mapping, got %s", spec.Kind)
	}

	rawURL, ok := spec.Field("url")
	if !ok {
		return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "missing url")
	}
	u, err := rawURL.AsText()
	if err != nil {
		return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "url: %v", err)
	}
	req.URL = strings.TrimSpace(u)

	req.Method = http.MethodGet
	if m, ok := spec.Field("method"); ok && !m.IsAbsent() {
		method, err := m.AsText()
		if err != nil {
			return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "method: %v", err)
		}
		if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
			req.Method = method
		}
	}
	if !allowedMethods[req.Method] {
		return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "unsupported method %q", req.Method)
	}

	if hv, ok := spec.Field("headers"); ok && !hv.IsAbsent() {
		entries, err := hv.AsMapping()
		if err != nil {
			return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "headers: %v", err)
		}
		req.Headers = make(map[string]string, len(entries))
		for name, value := range entries {
			s, err := value.AsText()
			if err != nil {
				return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "header %s: %v", name, err)
			}
			req.Headers[name] = s
		}
	}

	if b, ok := spec.Field("body"); ok && !b.IsAbsent() {
		body, err := b.AsText()
		if err != nil {
			return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "body: %v", err)
		}
		req.Body = body
	}

	if md, ok := spec.Field("markdown"); ok && !md.IsAbsent() {
		flag, err := md.AsBool()
		if err != nil {
			return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "markdown: %v", err)
		}
		req.Markdown = flag
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return req, tools.Errorf(tools.KindArgumentParse, opHTTP, "url must be an absolute http(s) URL: %q", req.URL)
	}
	return req, nil
}

// HTTPRequest performs a request bounded by the HTTP timeout.
func (h *host) HTTPRequest(spec interface{}) (Response, error) {
	c, err := h.enter(opHTTP)
	if err != nil {
		return Response{}, err
	}
	req, err := parseRequest(FromAny(spec))
	if err != nil {
		return Response{}, err
	}
	if h.dryRun {
		c.frame.record(fmt.Sprintf("Would send %s %s", req.Method, req.URL))
		return Response{}, nil
	}

	ctx, cancel := context.WithTimeout(c.ctx, h.httpTimeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, tools.NewError(tools.KindArgumentParse, opHTTP, req.URL, err)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", "selenai")
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Response{}, tools.NewError(tools.KindNetwork, opHTTP, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, consts.MaxHTTPBodySize+1))
	if err != nil {
		return Response{}, tools.NewError(tools.KindNetwork, opHTTP, req.URL, err)
	}
	truncated := len(data) > consts.MaxHTTPBodySize
	if truncated {
		data = data[:consts.MaxHTTPBodySize]
	}

	out := Response{
		Status:  resp.StatusCode,
		Headers: make(map[string]string, len(resp.Header)),
		Body:    string(data),
	}
	for name, values := range resp.Header {
		out.Headers[name] = strings.Join(values, ", ")
	}
	if req.Markdown {
		out.Body, _ = htmlconv.ToMarkdown(out.Body, resp.Header.Get("Content-Type"))
	}
	if truncated {
		out.Body += fmt.Sprintf("\n[body truncated at %d bytes]", consts.MaxHTTPBodySize)
	}
	return out, nil
}
